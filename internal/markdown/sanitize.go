package markdown

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var viewPolicy = newViewPolicy()

func newViewPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("section", "figure", "figcaption")
	policy.AllowAttrs("class").OnElements("div", "section", "p", "span", "h2", "a", "pre")
	policy.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	policy.AllowAttrs("loading").OnElements("img")
	policy.AllowDataURIImages()
	return policy
}

// Sanitize strips anything outside the report view allow-list from an HTML fragment
func Sanitize(html string) string {
	return viewPolicy.Sanitize(html)
}
