package ops

import (
	"strings"

	"github.com/koen666/MarkTex/internal/errors"
	"github.com/koen666/MarkTex/internal/vfs"
)

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Parent  string   // optional, default: root
	Name    string   // required
	Type    vfs.Kind // default: file
	Content string   // files only
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	ID   string   `json:"id"`
	Type vfs.Kind `json:"type"`
}

// Create adds a document or folder.
func Create(env *Env, input CreateInput) (*CreateOutput, error) {
	parent := strings.Trim(strings.TrimSpace(input.Parent), "/")
	name := strings.TrimSpace(input.Name)

	kind := input.Type
	if kind == "" {
		kind = vfs.KindFile
	}

	var (
		id  string
		err error
	)
	switch kind {
	case vfs.KindFile:
		id, err = env.Session.CreateFile(parent, name, input.Content)
	case vfs.KindFolder:
		if input.Content != "" {
			return nil, errors.NewInvalidRequest("folders have no content")
		}
		id, err = env.Session.CreateFolder(parent, name)
	default:
		return nil, errors.NewInvalidRequest("type must be one of: file, folder")
	}
	if err != nil {
		return nil, err
	}
	return &CreateOutput{ID: id, Type: kind}, nil
}
