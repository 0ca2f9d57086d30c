package render

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var classTokens = regexp.MustCompile(`^[a-zA-Z0-9_\- ]+$`)

// Policy is the sanitizer applied to every rendered document. Raw HTML in a
// document passes through goldmark and is cleaned here.
func Policy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// Heading anchors may contain CJK, which the standard id pattern rejects.
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowDataURIImages()
	p.AllowAttrs("class").Matching(classTokens).OnElements("img", "pre", "code", "span", "div")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	return p
}
