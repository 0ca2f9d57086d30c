package ops

import (
	"strings"

	"github.com/koen666/MarkTex/internal/vfs"
)

// TreeInput contains parameters for the Tree operation.
type TreeInput struct {
	Match string // optional glob over ids; "*" stays within one segment, "**" crosses
}

// TreeItem is one node of the flattened tree.
type TreeItem struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Type   vfs.Kind `json:"type"`
	Depth  int      `json:"depth"`
	Binary bool     `json:"binary,omitempty"`
}

// TreeOutput contains the result of the Tree operation.
type TreeOutput struct {
	Current string     `json:"current"`
	Items   []TreeItem `json:"items"`
	Count   int        `json:"count"`
}

// Tree lists the workspace in order, optionally filtered by a glob.
func Tree(env *Env, input TreeInput) (*TreeOutput, error) {
	var keep map[string]bool
	if pattern := strings.TrimSpace(input.Match); pattern != "" {
		ids, err := env.Session.Match(pattern)
		if err != nil {
			return nil, err
		}
		keep = make(map[string]bool, len(ids))
		for _, id := range ids {
			keep[id] = true
		}
	}

	items := make([]TreeItem, 0)
	for _, e := range env.Session.Entries() {
		if keep != nil && !keep[e.ID] {
			continue
		}
		item := TreeItem{ID: e.ID, Name: e.Name, Type: e.Kind, Depth: e.Depth}
		if e.Kind == vfs.KindFile {
			if rec, ok := env.Session.Resolve(e.ID); ok && rec.ID == e.ID {
				item.Binary = rec.IsBinary()
			}
		}
		items = append(items, item)
	}

	return &TreeOutput{
		Current: env.Session.Current(),
		Items:   items,
		Count:   len(items),
	}, nil
}
