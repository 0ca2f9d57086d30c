// Package outline turns markdown text into a heading forest with unique anchor ids.
package outline

import (
	"regexp"
	"strings"
)

// Heading is one node of the outline.
type Heading struct {
	ID       string     `json:"id"`
	Text     string     `json:"text"`
	Level    int        `json:"level"`
	Line     int        `json:"line"`
	Children []*Heading `json:"children,omitempty"`
}

// headingPattern matches ATX headings: 1-6 '#', at least one whitespace, then text.
var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// fencePattern matches fenced code block delimiters with up to 3 spaces of indentation.
var fencePattern = regexp.MustCompile("^[ ]{0,3}(`{3,}|~{3,})")

// Extract parses text into an ordered forest of headings.
// Lines inside fenced code blocks are never headings.
func Extract(text string) []*Heading {
	var (
		roots []*Heading
		stack []*Heading
		fence fenceState
		slugs = NewSlugger()
	)

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if fence.step(line) {
			continue
		}

		m := headingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[2])
		if title == "" {
			continue
		}

		h := &Heading{
			ID:    slugs.Next(title),
			Text:  title,
			Level: len(m[1]),
			Line:  i,
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, h)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, h)
		}
		stack = append(stack, h)
	}
	return roots
}

// fenceState pairs opening and closing fences: a closing fence uses the same
// character and is at least as long as the opening one.
type fenceState struct {
	open    bool
	char    byte
	openLen int
}

// step consumes one line and reports whether it belongs to a code block
// (delimiters included).
func (f *fenceState) step(line string) bool {
	m := fencePattern.FindStringSubmatch(line)
	if m == nil {
		return f.open
	}
	chars := m[1]
	if !f.open {
		f.open, f.char, f.openLen = true, chars[0], len(chars)
		return true
	}
	if chars[0] == f.char && len(chars) >= f.openLen {
		f.open = false
	}
	return true
}

// Flatten returns the forest in document order.
func Flatten(roots []*Heading) []*Heading {
	var out []*Heading
	var walk func([]*Heading)
	walk = func(hs []*Heading) {
		for _, h := range hs {
			out = append(out, h)
			walk(h.Children)
		}
	}
	walk(roots)
	return out
}

// Find returns the heading with the given id.
func Find(roots []*Heading, id string) (*Heading, bool) {
	for _, h := range Flatten(roots) {
		if h.ID == id {
			return h, true
		}
	}
	return nil, false
}

// Count returns the number of headings in the forest.
func Count(roots []*Heading) int {
	n := 0
	for _, h := range roots {
		n += 1 + Count(h.Children)
	}
	return n
}
