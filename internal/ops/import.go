package ops

import (
	"context"
	"fmt"
	"io"

	"github.com/koen666/MarkTex/internal/config"
	"github.com/koen666/MarkTex/internal/errors"
	"github.com/koen666/MarkTex/internal/snapshot"
)

// MaxImportBytes bounds the size of an import file.
const MaxImportBytes = 256 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string // required
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Files   int      `json:"files"`
	Current string   `json:"current"`
	Failed  []string `json:"failed,omitempty"`
}

// Import replaces the workspace with an exported snapshot and saves it.
// Assets that cannot be decoded are kept as empty entries and listed in Failed.
func Import(ctx context.Context, env *Env, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrInvalidRequest) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImportBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > MaxImportBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("import file exceeds %d bytes", MaxImportBytes))
	}

	ws, err := snapshot.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	report, err := env.Manager.Import(ctx, ws)
	if err != nil {
		return nil, err
	}

	return &ImportOutput{
		Files:   countFiles(ws.Files),
		Current: env.Session.Current(),
		Failed:  report.Failed,
	}, nil
}
