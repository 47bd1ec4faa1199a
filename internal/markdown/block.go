package markdown

import (
	"regexp"
	"strings"
)

type blockKind int

const (
	blockBlank blockKind = iota
	blockText
	blockCode
	blockHeading
	blockRule
	blockQuote
	blockBulletList
	blockOrderedList
)

type block struct {
	kind  blockKind
	text  string
	level int      // headings
	items []string // lists
}

var (
	headingRe = regexp.MustCompile(`^(#{1,6})[ \t]+(.*)$`)
	ruleRe    = regexp.MustCompile(`^\s*(\*\s*\*\s*\*[\s*]*|-{3,}|_{3,})\s*$`)
	quoteRe   = regexp.MustCompile(`^>\s+(.*)$`)
	bulletRe  = regexp.MustCompile(`^\s*[*+-]\s+(.+)$`)
	orderedRe = regexp.MustCompile(`^\s*\d+\.\s+(.+)$`)
)

func isFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

// parseBlocks classifies source lines. Consecutive list items of the same
// kind, optionally separated by blank lines, become one list block.
func parseBlocks(src string) []block {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	if strings.TrimSpace(src) == "" {
		return nil
	}
	lines := strings.Split(src, "\n")

	var blocks []block
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if isFence(line) {
			var code []string
			j := i + 1
			for ; j < len(lines) && !isFence(lines[j]); j++ {
				code = append(code, lines[j])
			}
			blocks = append(blocks, block{kind: blockCode, text: strings.Join(code, "\n")})
			i = j // closing fence, or past the end when unclosed
			continue
		}

		if strings.TrimSpace(line) == "" {
			blocks = append(blocks, block{kind: blockBlank})
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, block{kind: blockHeading, level: len(m[1]), text: m[2]})
			continue
		}

		// rules first: "* * *" would otherwise read as a bullet
		if ruleRe.MatchString(line) {
			blocks = append(blocks, block{kind: blockRule})
			continue
		}

		if m := quoteRe.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, block{kind: blockQuote, text: m[1]})
			continue
		}

		if kind, item, ok := listItem(line); ok {
			items := []string{item}
			j := i + 1
			for j < len(lines) {
				next := j
				for next < len(lines) && strings.TrimSpace(lines[next]) == "" {
					next++
				}
				if next >= len(lines) {
					break
				}
				k, it, ok := listItem(lines[next])
				if !ok || k != kind {
					break
				}
				items = append(items, it)
				j = next + 1
			}
			blocks = append(blocks, block{kind: kind, items: items})
			i = j - 1
			continue
		}

		blocks = append(blocks, block{kind: blockText, text: line})
	}
	return blocks
}

func listItem(line string) (blockKind, string, bool) {
	if ruleRe.MatchString(line) {
		return 0, "", false
	}
	if m := bulletRe.FindStringSubmatch(line); m != nil {
		return blockBulletList, m[1], true
	}
	if m := orderedRe.FindStringSubmatch(line); m != nil {
		return blockOrderedList, m[1], true
	}
	return 0, "", false
}
