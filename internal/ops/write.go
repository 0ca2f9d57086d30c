package ops

import (
	"unicode/utf8"

	"github.com/koen666/MarkTex/internal/blob"
	"github.com/koen666/MarkTex/internal/errors"
)

// WriteInput contains parameters for the Write operation.
type WriteInput struct {
	ID      string // optional, default: current document
	Content string
}

// WriteOutput contains the result of the Write operation.
type WriteOutput struct {
	ID    string `json:"id"`
	Chars int    `json:"chars"`
}

// Write replaces a document's text. Writing the current document goes through
// the editor buffer.
func Write(env *Env, input WriteInput) (*WriteOutput, error) {
	if blob.IsHandle(input.Content) {
		return nil, errors.NewInvalidRequest("content must be document text, not an object handle")
	}

	id := env.documentID(input.ID)
	if id == env.Session.Current() {
		env.Session.Edit(input.Content)
	} else {
		// Binary assets and folders are not documents
		if _, err := env.Session.Read(id); err != nil {
			return nil, err
		}
		if err := env.Session.Update(id, input.Content); err != nil {
			return nil, err
		}
	}

	return &WriteOutput{ID: id, Chars: utf8.RuneCountInString(input.Content)}, nil
}
