// Package sanitize cleans user-supplied station text before it is stored.
// Descriptions may carry a little formatting (bold, links, line breaks);
// everything else is stripped by bluemonday.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	descriptionPolicy *bluemonday.Policy
	strictPolicy      *bluemonday.Policy
	policyOnce        sync.Once
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("b", "strong", "i", "em", "br", "p", "small")
		p.AllowStandardURLs()
		p.AllowAttrs("href").OnElements("a")
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		descriptionPolicy = p

		strictPolicy = bluemonday.StrictPolicy()
	})
	return descriptionPolicy, strictPolicy
}

// Description sanitizes a station description. The result is safe to render
// unescaped in the dashboard.
//
// Must be called on every description before it is stored.
func Description(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	p, _ := policies()
	return p.Sanitize(input)
}

// PlainText strips all markup, e.g. for station names and usernames that
// end up in notifications.
func PlainText(input string) string {
	_, p := policies()
	return strings.TrimSpace(p.Sanitize(input))
}
