package markdown

import (
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// renderInline scans one line of text for inline spans.
// Precedence: code span, image, link, emphasis (3 > 2 > 1 delimiters), strikethrough.
func renderInline(text string) string {
	var sb strings.Builder
	sb.Grow(len(text) + 16)

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '`':
			if end := strings.IndexByte(text[i+1:], '`'); end > 0 {
				sb.WriteString("<code>" + escapeHTML(text[i+1:i+1+end]) + "</code>")
				i += end + 2
				continue
			}

		case c == '!' && strings.HasPrefix(text[i:], "!["):
			if alt, url, n, ok := parseLinkParts(text[i+1:], true); ok {
				if isSafeURL(url, true) {
					sb.WriteString(`<img src="` + escapeHTML(url) + `" alt="` + escapeHTML(alt) + `">`)
				} else {
					sb.WriteString(escapeHTML(alt))
				}
				i += 1 + n
				continue
			}

		case c == '[':
			if label, url, n, ok := parseLinkParts(text[i:], false); ok {
				if isSafeURL(url, false) {
					sb.WriteString(`<a href="` + escapeHTML(url) + `" target="_blank" rel="noopener">` + renderInline(label) + `</a>`)
				} else {
					sb.WriteString(renderInline(label))
				}
				i += n
				continue
			}

		case c == '*' || c == '_':
			if html, n, ok := parseEmphasis(text[i:], c); ok {
				sb.WriteString(html)
				i += n
				continue
			}

		case c == '~' && strings.HasPrefix(text[i:], "~~"):
			if end := strings.Index(text[i+3:], "~~"); end >= 0 {
				inner := text[i+2 : i+3+end]
				sb.WriteString("<del>" + renderInline(inner) + "</del>")
				i += 3 + end + 2
				continue
			}
		}

		sb.WriteString(escapeHTML(text[i : i+1]))
		i++
	}
	return sb.String()
}

// parseEmphasis matches a delimiter run at the start of s against the nearest
// closing run of the same length, trying *** before ** before *.
func parseEmphasis(s string, delim byte) (string, int, bool) {
	run := 0
	for run < len(s) && s[run] == delim {
		run++
	}
	if run > 3 {
		run = 3
	}

	for k := run; k >= 1; k-- {
		marker := strings.Repeat(string(delim), k)
		// content must be at least one character
		if len(s) < 2*k+1 {
			continue
		}
		end := strings.Index(s[k+1:], marker)
		if end < 0 {
			continue
		}
		inner := renderInline(s[k : k+1+end])
		consumed := k + 1 + end + k
		switch k {
		case 3:
			return "<strong><em>" + inner + "</em></strong>", consumed, true
		case 2:
			return "<strong>" + inner + "</strong>", consumed, true
		default:
			return "<em>" + inner + "</em>", consumed, true
		}
	}
	return "", 0, false
}

// parseLinkParts parses "[label](url)" at the start of s. When image is true
// the label may be empty.
func parseLinkParts(s string, image bool) (label, url string, n int, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return "", "", 0, false
	}
	closeLabel := strings.IndexByte(s, ']')
	if closeLabel < 0 || (!image && closeLabel == 1) {
		return "", "", 0, false
	}
	if closeLabel+1 >= len(s) || s[closeLabel+1] != '(' {
		return "", "", 0, false
	}
	closeURL := strings.IndexByte(s[closeLabel+2:], ')')
	if closeURL < 0 {
		return "", "", 0, false
	}
	label = s[1:closeLabel]
	url = strings.TrimSpace(s[closeLabel+2 : closeLabel+2+closeURL])
	return label, url, closeLabel + 2 + closeURL + 1, true
}

func isSafeURL(url string, image bool) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	switch {
	case strings.HasPrefix(lower, "javascript:"), strings.HasPrefix(lower, "vbscript:"):
		return false
	case strings.HasPrefix(lower, "data:"):
		return image && strings.HasPrefix(lower, "data:image/")
	}
	return true
}

// EscapeHTML escapes text for use in HTML content or a quoted attribute
func EscapeHTML(s string) string {
	return escapeHTML(s)
}
