// Package markdown renders the small Markdown subset produced by the analysis
// service into an HTML fragment.
//
// Rendering is two passes: lines are classified into blocks, then the text of
// each block is scanned for inline spans. Every piece of source text is
// HTML-escaped on the way out.
package markdown

import "strings"

// OutputMode selects how rendered blocks are joined
type OutputMode int

const (
	// JoinBlocks emits one block per line, separated by newlines
	JoinBlocks OutputMode = iota
	// WrapParagraph additionally wraps the whole fragment in one <p>
	WrapParagraph
	// LineBreaks merges consecutive text lines into one paragraph joined by <br>
	LineBreaks
)

// Options configure a Renderer
type Options struct {
	Mode OutputMode
	// PreserveCodeSpaces renders spaces inside fenced code as &nbsp;
	PreserveCodeSpaces bool
}

// Renderer converts Markdown-lite source to HTML. It holds no mutable state.
type Renderer struct {
	opts Options
}

// New creates a renderer
func New(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

var defaultRenderer = New(Options{})

// Render converts src with default options
func Render(src string) string {
	return defaultRenderer.Render(src)
}

// Render converts src into an HTML fragment. Empty input yields an empty paragraph.
func (r *Renderer) Render(src string) string {
	blocks := parseBlocks(src)

	out := make([]string, 0, len(blocks))
	var para []string
	flush := func() {
		if len(para) > 0 {
			out = append(out, "<p>"+strings.Join(para, "<br>")+"</p>")
			para = nil
		}
	}

	for _, b := range blocks {
		if r.opts.Mode == LineBreaks {
			switch b.kind {
			case blockText:
				para = append(para, renderInline(b.text))
				continue
			case blockBlank:
				flush()
				continue
			}
			flush()
		}
		if html := r.renderBlock(b); html != "" {
			out = append(out, html)
		}
	}
	flush()

	if len(out) == 0 {
		return "<p></p>"
	}

	html := strings.Join(out, "\n")
	if r.opts.Mode == WrapParagraph {
		return "<p>" + html + "</p>"
	}
	return html
}

func (r *Renderer) renderBlock(b block) string {
	switch b.kind {
	case blockCode:
		code := escapeHTML(b.text)
		if r.opts.PreserveCodeSpaces {
			code = strings.ReplaceAll(code, " ", "&nbsp;")
		}
		return "<pre><code>" + code + "</code></pre>"
	case blockHeading:
		tag := headingTags[b.level]
		return "<" + tag + ">" + renderInline(b.text) + "</" + tag + ">"
	case blockRule:
		return "<hr>"
	case blockQuote:
		return "<blockquote>" + renderInline(b.text) + "</blockquote>"
	case blockBulletList, blockOrderedList:
		tag := "ul"
		if b.kind == blockOrderedList {
			tag = "ol"
		}
		var sb strings.Builder
		sb.WriteString("<" + tag + ">")
		for _, item := range b.items {
			sb.WriteString("<li>" + renderInline(item) + "</li>")
		}
		sb.WriteString("</" + tag + ">")
		return sb.String()
	case blockText:
		return "<p>" + renderInline(b.text) + "</p>"
	}
	return ""
}

var headingTags = [...]string{"", "h1", "h2", "h3", "h4", "h5", "h6"}
