package ops

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"

	"github.com/koen666/MarkTex/internal/persist"
	"github.com/koen666/MarkTex/internal/vfs"
)

// StatusOutput contains the result of the Status operation.
type StatusOutput struct {
	Current  string          `json:"current"`
	Files    int             `json:"files"`
	Folders  int             `json:"folders"`
	Assets   int             `json:"assets"`
	Autosave persist.Status  `json:"autosave"`
	Stored   *StoredSnapshot `json:"stored,omitempty"`
}

// StoredSnapshot summarizes what is in the durable store without decoding the
// full snapshot.
type StoredSnapshot struct {
	Bytes       int       `json:"bytes"`
	Size        string    `json:"size"`
	Valid       bool      `json:"valid"`
	SavedAt     time.Time `json:"saved_at,omitzero"`
	Age         string    `json:"age,omitempty"`
	CurrentFile string    `json:"current_file,omitempty"`
	TopLevel    int       `json:"top_level"`
	Assets      int       `json:"assets"`
}

// Status reports the workspace shape, the autosave loop and the stored snapshot.
func Status(ctx context.Context, env *Env) (*StatusOutput, error) {
	out := &StatusOutput{
		Current:  env.Session.Current(),
		Autosave: env.Manager.Status(),
	}
	for _, e := range env.Session.Entries() {
		if e.Kind == vfs.KindFolder {
			out.Folders++
			continue
		}
		out.Files++
		if rec, ok := env.Session.Resolve(e.ID); ok && rec.ID == e.ID && rec.IsBinary() {
			out.Assets++
		}
	}

	data, err := env.Manager.Stored(ctx)
	if err != nil {
		return nil, err
	}
	if data != nil {
		out.Stored = PeekSnapshot(data, time.Now())
	}
	return out, nil
}

// PeekSnapshot reads the summary fields of a stored snapshot.
func PeekSnapshot(data []byte, now time.Time) *StoredSnapshot {
	s := &StoredSnapshot{
		Bytes: len(data),
		Size:  humanize.Bytes(uint64(len(data))),
		Valid: gjson.ValidBytes(data),
	}
	if !s.Valid {
		return s
	}

	res := gjson.GetManyBytes(data, "timestamp", "currentFile", "files.#", `files.#(id=="assets").children.#`)
	if ms := res[0].Int(); ms > 0 {
		s.SavedAt = time.UnixMilli(ms)
		s.Age = humanize.RelTime(s.SavedAt, now, "ago", "from now")
	}
	s.CurrentFile = res[1].String()
	s.TopLevel = int(res[2].Int())
	s.Assets = int(res[3].Int())
	return s
}
