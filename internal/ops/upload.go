package ops

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/koen666/MarkTex/internal/errors"
	"github.com/koen666/MarkTex/internal/thumb"
	"github.com/koen666/MarkTex/internal/workspace"
)

// UploadItem is one file offered for upload. An empty MIME is detected from
// the name, then from the data.
type UploadItem struct {
	Name string
	MIME string
	Data []byte
}

// UploadInput contains parameters for the Upload operation.
type UploadInput struct {
	Items []UploadItem // required, max MaxUploadItems
}

// UploadedAsset describes a created asset.
type UploadedAsset struct {
	ID     string `json:"id"`
	MIME   string `json:"mime"`
	Bytes  int    `json:"bytes"`
	Size   string `json:"size"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// UploadOutput contains the result of the Upload operation.
type UploadOutput struct {
	Created []UploadedAsset `json:"created"`
	Skipped []string        `json:"skipped"`
}

// Upload stores images under assets/. Non-images, oversized files and names
// already taken are skipped, not failed.
func Upload(env *Env, input UploadInput) (*UploadOutput, error) {
	if len(input.Items) == 0 {
		return nil, errors.NewInvalidRequest("items must not be empty")
	}
	if len(input.Items) > MaxUploadItems {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("items exceeds maximum of %d", MaxUploadItems))
	}

	uploads := make([]workspace.Upload, len(input.Items))
	for i, item := range input.Items {
		uploads[i] = workspace.Upload{Name: item.Name, MIME: DetectMIME(item.Name, item.MIME, item.Data), Data: item.Data}
	}

	res, err := env.Session.Upload(uploads)
	if err != nil {
		return nil, err
	}

	out := &UploadOutput{Created: make([]UploadedAsset, 0, len(res.Created)), Skipped: res.Skipped}
	if out.Skipped == nil {
		out.Skipped = []string{}
	}
	for i, id := range res.Created {
		u := uploads[res.Sources[i]]
		asset := UploadedAsset{
			ID:    id,
			MIME:  u.MIME,
			Bytes: len(u.Data),
			Size:  humanize.Bytes(uint64(len(u.Data))),
		}
		if w, h, err := thumb.Dimensions(u.Data); err == nil {
			asset.Width, asset.Height = w, h
		}
		out.Created = append(out.Created, asset)
	}
	return out, nil
}

// DetectMIME returns declared if set, otherwise the type implied by the file
// extension, otherwise a sniffed type.
func DetectMIME(name, declared string, data []byte) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if base, _, err := mime.ParseMediaType(t); err == nil {
			return base
		}
		return t
	}
	t := http.DetectContentType(data)
	if base, _, err := mime.ParseMediaType(t); err == nil {
		return base
	}
	return t
}

// ReadUploads loads files from disk as upload items.
func ReadUploads(paths []string) ([]UploadItem, error) {
	items := make([]UploadItem, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewNotFound(p)
			}
			return nil, errors.NewInternal(fmt.Errorf("failed to read %s: %w", p, err))
		}
		items = append(items, UploadItem{Name: filepath.Base(p), Data: data})
	}
	return items, nil
}
