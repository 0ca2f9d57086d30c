package ops

import "github.com/koen666/MarkTex/internal/render"

// RenderInput contains parameters for the Render operation.
type RenderInput struct {
	ID     string // optional, default: current document
	Inline bool   // embed images as data URLs instead of /raw/ links
}

// RenderOutput contains the result of the Render operation.
type RenderOutput struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

// Render converts a document to HTML.
func Render(env *Env, input RenderInput) (*RenderOutput, error) {
	id := env.documentID(input.ID)
	content, err := env.Session.Read(id)
	if err != nil {
		return nil, err
	}

	r := env.Renderer
	if input.Inline {
		r = render.New(env.Session, render.InlineAssets(env.Session.Asset))
	}
	html, err := r.Render(content)
	if err != nil {
		return nil, err
	}
	return &RenderOutput{ID: id, HTML: html}, nil
}
