// Package richtext handles the HTML produced by the admin rich text editor:
// sanitising it on save and deriving plain text, excerpts, tables of
// contents and Markdown from it for the public site.
package richtext

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// Policy returns the allow-list used for editor output. It is built once and
// safe for concurrent use.
func Policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()

		p.AllowElements(
			"p", "br", "hr", "div",
			"h2", "h3", "h4",
			"ul", "ol", "li",
			"blockquote", "pre", "code",
			"strong", "b", "em", "i",
			"figure", "figcaption",
			"table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption",
		)
		p.AllowAttrs("id").Matching(regexp.MustCompile(`^[a-z0-9-]+$`)).OnElements("h2", "h3", "h4")

		// Custom marks
		p.AllowElements("mark", "u", "s", "sub", "sup", "span")
		p.AllowAttrs("class").Matching(regexp.MustCompile(`^hl-[a-z]+$`)).OnElements("span", "mark")
		p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w-]+$`)).OnElements("code")

		// Links: external ones open in a new tab with rel="nofollow noopener"
		p.AllowStandardURLs()
		p.AllowAttrs("href", "title").OnElements("a")
		p.RequireNoFollowOnFullyQualifiedLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)

		p.AllowImages()
		p.AllowAttrs("loading").Matching(regexp.MustCompile(`^(lazy|eager)$`)).OnElements("img")
		p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")

		policy = p
	})
	return policy
}

// Sanitize strips everything from html that the editor can't produce
func Sanitize(html string) string {
	return Policy().Sanitize(html)
}
