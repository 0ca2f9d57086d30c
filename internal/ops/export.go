package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/koen666/MarkTex/internal/config"
	"github.com/koen666/MarkTex/internal/errors"
	"github.com/koen666/MarkTex/internal/snapshot"
	"github.com/koen666/MarkTex/internal/vfs"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: <home>/exports/<name>-<timestamp>.json
	Name string // optional file name prefix for the default path
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string   `json:"path"`
	Files      int      `json:"files"`
	Bytes      int      `json:"bytes"`
	Failed     []string `json:"failed,omitempty"`
	ExportedAt int64    `json:"exported_at"`
}

// Export writes the workspace snapshot to a file. The file has the same shape
// as the autosaved snapshot, so Import can restore it.
func Export(ctx context.Context, env *Env, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(input.Name, now)
		if err != nil {
			return nil, err
		}
	}
	// Default paths are validated too; the name prefix is user input.
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	ws, report := env.Session.Snapshot(now)
	data, err := snapshot.Marshal(ws)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}
	if err := writeFileAtomic(exportPath, data); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Files:      countFiles(ws.Files),
		Bytes:      len(data),
		Failed:     report.Failed,
		ExportedAt: now.Unix(),
	}, nil
}

// writeFileAtomic writes to a temp file next to path and renames it into
// place, so an existing file survives a failed write.
func writeFileAtomic(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	// On Windows os.Rename fails when the destination exists. Fail and keep
	// the existing file rather than delete-then-rename.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

// defaultExportPath is <home>/exports/<name>-<timestamp>.json.
func defaultExportPath(name string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	if name == "" {
		name = "workspace"
	}
	filename := fmt.Sprintf("%s-%s%s", SanitizeForFilename(name), now.Format("2006-01-02T150405"), ExportExt)
	return filepath.Join(dir, filename), nil
}

func countFiles(nodes []snapshot.Node) int {
	n := 0
	for _, node := range nodes {
		if node.Type == vfs.KindFile {
			n++
		}
		n += countFiles(node.Children)
	}
	return n
}
