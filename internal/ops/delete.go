package ops

import "github.com/koen666/MarkTex/internal/errors"

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID string // required
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted []string `json:"deleted"`
	Current string   `json:"current"`
}

// Delete removes a file or a folder with everything in it.
func Delete(env *Env, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	removed, err := env.Session.Delete(input.ID)
	if err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: removed, Current: env.Session.Current()}, nil
}
