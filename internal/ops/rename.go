package ops

import "github.com/koen666/MarkTex/internal/errors"

// RenameInput contains parameters for the Rename operation.
type RenameInput struct {
	ID   string // required
	Name string // new last path segment
}

// RenameOutput contains the result of the Rename operation.
type RenameOutput struct {
	OldID   string `json:"old_id"`
	ID      string `json:"id"`
	Renamed bool   `json:"renamed"`
}

// Rename changes the last segment of an id. An empty or unchanged name leaves
// the workspace alone and reports Renamed=false.
func Rename(env *Env, input RenameInput) (*RenameOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	newID, err := env.Session.Rename(input.ID, input.Name)
	if err != nil {
		return nil, err
	}
	return &RenameOutput{OldID: input.ID, ID: newID, Renamed: newID != input.ID}, nil
}
