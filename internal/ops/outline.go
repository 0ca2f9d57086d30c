package ops

import "github.com/koen666/MarkTex/internal/outline"

// OutlineInput contains parameters for the Outline operation.
type OutlineInput struct {
	ID   string // optional, default: current document
	Flat bool   // list headings in document order without nesting
}

// OutlineOutput contains the result of the Outline operation.
type OutlineOutput struct {
	ID       string             `json:"id"`
	Headings []*outline.Heading `json:"headings"`
	Count    int                `json:"count"`
}

// Outline extracts the heading tree of a document.
func Outline(env *Env, input OutlineInput) (*OutlineOutput, error) {
	id := env.documentID(input.ID)
	content, err := env.Session.Read(id)
	if err != nil {
		return nil, err
	}

	roots := outline.Extract(content)
	headings := roots
	if input.Flat {
		headings = make([]*outline.Heading, 0)
		for _, h := range outline.Flatten(roots) {
			leaf := *h
			leaf.Children = nil
			headings = append(headings, &leaf)
		}
	}
	if headings == nil {
		headings = make([]*outline.Heading, 0)
	}

	return &OutlineOutput{ID: id, Headings: headings, Count: outline.Count(roots)}, nil
}
