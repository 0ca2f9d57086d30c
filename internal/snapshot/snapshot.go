// Package snapshot converts the in-memory workspace into a self-contained JSON
// document and back. Binary assets travel as data URLs; object store handles never
// leave the process.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/koen666/MarkTex/internal/blob"
	"github.com/koen666/MarkTex/internal/errors"
	"github.com/koen666/MarkTex/internal/logging"
	"github.com/koen666/MarkTex/internal/metrics"
	"github.com/koen666/MarkTex/internal/vfs"
)

// Key is the durable store key the workspace lives under.
const Key = "marktex-workspace"

// ObjectStore holds binary payloads for the lifetime of the process.
type ObjectStore interface {
	Create(data []byte, mime string) string
	Fetch(handle string) ([]byte, string, error)
}

// Workspace is the persisted form of a session.
type Workspace struct {
	Files       []Node `json:"files"`
	CurrentFile string `json:"currentFile"`
	Timestamp   int64  `json:"timestamp"` // Unix milliseconds
}

// Node mirrors vfs.Node. Content is nil for binary assets; EncodedPayload is
// set only for them.
type Node struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Type           vfs.Kind `json:"type"`
	Content        *string  `json:"content,omitempty"`
	EncodedPayload string   `json:"encodedPayload,omitempty"`
	Children       []Node   `json:"children,omitempty"`
}

// Report lists the ids that could not be converted. The walk never stops early.
type Report struct {
	Failed []string
}

// OK reports whether every node converted.
func (r Report) OK() bool { return len(r.Failed) == 0 }

// SavedAt returns the snapshot timestamp as a time.
func (w *Workspace) SavedAt() time.Time {
	return time.UnixMilli(w.Timestamp)
}

// Marshal encodes w as JSON.
func Marshal(w *Workspace) ([]byte, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

// Unmarshal decodes a snapshot. Anything that is not a JSON object with a files
// array is rejected.
func Unmarshal(data []byte) (*Workspace, error) {
	var raw struct {
		Files       *[]Node `json:"files"`
		CurrentFile string  `json:"currentFile"`
		Timestamp   int64   `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewDecodeFailed(Key, err)
	}
	if raw.Files == nil {
		return nil, errors.NewDecodeFailed(Key, errMissingFiles)
	}
	return &Workspace{Files: *raw.Files, CurrentFile: raw.CurrentFile, Timestamp: raw.Timestamp}, nil
}

var errMissingFiles = fmt.Errorf("snapshot has no files array")

// Serialize walks the tree and produces snapshot nodes. Binary assets are looked
// up through the registry and fetched from objects; an asset that cannot be read
// is logged and emitted with neither content nor payload.
func Serialize(nodes []vfs.Node, reg *vfs.Registry, objects ObjectStore) ([]Node, Report) {
	var report Report
	out := serializeNodes(nodes, reg, objects, &report)
	return out, report
}

func serializeNodes(nodes []vfs.Node, reg *vfs.Registry, objects ObjectStore, report *Report) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		switch n := n.(type) {
		case *vfs.Folder:
			out = append(out, Node{
				ID:       n.ID,
				Name:     n.Name,
				Type:     vfs.KindFolder,
				Children: serializeNodes(n.Children, reg, objects, report),
			})
		case *vfs.File:
			out = append(out, serializeFile(n, reg, objects, report))
		}
	}
	return out
}

func serializeFile(f *vfs.File, reg *vfs.Registry, objects ObjectStore, report *Report) Node {
	node := Node{ID: f.ID, Name: f.Name, Type: vfs.KindFile}

	ref := binaryRef(f, reg)
	if ref == "" {
		content := f.Content
		node.Content = &content
		return node
	}

	data, mime, err := objects.Fetch(ref)
	if err != nil {
		werr := errors.NewEncodeFailed(f.ID, err)
		logging.L().Warn("asset not persisted", zap.String("id", f.ID), zap.Error(werr))
		metrics.RecordEncodeFailure()
		report.Failed = append(report.Failed, f.ID)
		return node
	}
	node.EncodedPayload = Encode(data, mime)
	return node
}

// binaryRef prefers the registry record, which the session keeps authoritative.
func binaryRef(f *vfs.File, reg *vfs.Registry) string {
	if rec, ok := reg.Get(f.ID); ok && rec.IsBinary() {
		return rec.BinaryRef
	}
	if f.IsBinary() {
		return f.BinaryRef
	}
	if blob.IsHandle(f.Content) {
		return f.Content
	}
	return ""
}

// Deserialize rebuilds the tree and registry. Every payload gets a fresh handle.
// A payload that fails to decode leaves an empty, unregistered tree entry, as does
// a file with neither content nor payload.
func Deserialize(files []Node, objects ObjectStore) ([]vfs.Node, *vfs.Registry, Report) {
	var report Report
	reg := vfs.NewRegistry()
	nodes := deserializeNodes(files, reg, objects, &report)
	return nodes, reg, report
}

func deserializeNodes(files []Node, reg *vfs.Registry, objects ObjectStore, report *Report) []vfs.Node {
	out := make([]vfs.Node, 0, len(files))
	for _, n := range files {
		base := vfs.Base{ID: n.ID, Name: n.Name}
		if n.Type == vfs.KindFolder {
			out = append(out, &vfs.Folder{
				Base:     base,
				Children: deserializeNodes(n.Children, reg, objects, report),
			})
			continue
		}

		f := &vfs.File{Base: base}
		switch {
		case n.EncodedPayload != "":
			data, mime, err := Decode(n.EncodedPayload)
			if err != nil {
				werr := errors.NewDecodeFailed(n.ID, err)
				logging.L().Warn("asset not restored", zap.String("id", n.ID), zap.Error(werr))
				metrics.RecordDecodeFailure()
				report.Failed = append(report.Failed, n.ID)
				break
			}
			handle := objects.Create(data, mime)
			f.Content, f.BinaryRef = handle, handle
			reg.Put(vfs.Record{ID: n.ID, Content: handle, BinaryRef: handle})
		case n.Content != nil && !blob.IsHandle(*n.Content):
			f.Content = *n.Content
			reg.Put(vfs.Record{ID: n.ID, Content: f.Content})
		}
		out = append(out, f)
	}
	return out
}
