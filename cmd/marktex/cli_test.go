package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/koen666/MarkTex/internal/blob"
	"github.com/koen666/MarkTex/internal/config"
	"github.com/koen666/MarkTex/internal/ops"
	"github.com/koen666/MarkTex/internal/persist"
	"github.com/koen666/MarkTex/internal/workspace"
)

type testCLI struct {
	env   *ops.Env
	cfg   *config.Config
	store *persist.MemoryStore
}

// setupTestCLI hydrates an in-memory workspace for the commands to act on.
func setupTestCLI(t *testing.T) *testCLI {
	t.Helper()
	store := persist.NewMemoryStore()
	objects := blob.NewStore()
	session := workspace.New(objects)
	manager := persist.New(store, session, objects, persist.WithDebounce(time.Hour))
	if err := manager.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	t.Cleanup(func() { manager.Close(context.Background()) })
	return &testCLI{env: ops.NewEnv(session, manager), cfg: config.DefaultConfig(), store: store}
}

// run executes one command line with stdin and returns what it printed.
func (tc *testCLI) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(tc.env, tc.cfg)
	var out bytes.Buffer
	app.Writer = &out
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"marktex"}, args...))
	return out.String(), err
}

func (tc *testCLI) mustRun(t *testing.T, v any, stdin string, args ...string) {
	t.Helper()
	out, err := tc.run(t, stdin, args...)
	if err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	if v == nil {
		return
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("failed to parse output of %v: %v\nOutput: %s", args, err, out)
	}
}

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"marktex"}, false},
		{[]string{"marktex", "tree"}, true},
		{[]string{"marktex", "ls"}, true},
		{[]string{"marktex", "serve"}, true},
		{[]string{"marktex", "--version"}, true},
		{[]string{"marktex", "bogus"}, false},
	}
	for _, tt := range tests {
		if got := isCLIMode(tt.args); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestCLITree(t *testing.T) {
	tc := setupTestCLI(t)

	var output ops.TreeOutput
	tc.mustRun(t, &output, "", "tree")
	if output.Current != "main.md" || output.Count != 2 {
		t.Errorf("expected main.md current with 2 items, got %+v", output)
	}

	tc.mustRun(t, &output, "", "ls", "--match", "*.md")
	if output.Count != 1 || output.Items[0].ID != "main.md" {
		t.Errorf("expected only main.md, got %+v", output.Items)
	}
}

func TestCLIWriteAndCat(t *testing.T) {
	tc := setupTestCLI(t)

	var written ops.WriteOutput
	tc.mustRun(t, &written, "# Title\n\n你好\n", "write")
	if written.ID != "main.md" || written.Chars != 11 {
		t.Errorf("expected main.md with 11 chars, got %+v", written)
	}

	out, err := tc.run(t, "", "cat", "--raw")
	if err != nil {
		t.Fatalf("cat failed: %v", err)
	}
	if out != "# Title\n\n你好" {
		t.Errorf("expected written text, got %q", out)
	}

	// The After hook saved the edit
	if tc.store.Writes() == 0 {
		t.Error("expected the write to be flushed to the store")
	}
}

func TestCLICreateRenameDelete(t *testing.T) {
	tc := setupTestCLI(t)

	tc.mustRun(t, nil, "", "mkdir", "notes")
	tc.mustRun(t, nil, "", "new", "--parent", "notes", "--content", "draft", "a.md")

	var renamed ops.RenameOutput
	tc.mustRun(t, &renamed, "", "mv", "notes", "journal")
	if renamed.ID != "journal" {
		t.Errorf("expected journal, got %+v", renamed)
	}

	var read ops.ReadOutput
	tc.mustRun(t, &read, "", "cat", "journal/a.md")
	if read.Content != "draft" {
		t.Errorf("expected draft, got %q", read.Content)
	}

	var deleted ops.DeleteOutput
	tc.mustRun(t, &deleted, "", "rm", "journal")
	if len(deleted.Deleted) != 2 {
		t.Errorf("expected folder and file deleted, got %v", deleted.Deleted)
	}
}

func TestCLIErrors(t *testing.T) {
	tc := setupTestCLI(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"rm main", []string{"rm", "main.md"}, "[PROTECTED]"},
		{"select missing", []string{"select", "nope.md"}, "[NOT_FOUND]"},
		{"select folder", []string{"select", "assets"}, "[NOT_A_DOCUMENT]"},
		{"mv wrong arity", []string{"mv", "main.md"}, "[INVALID_REQUEST]"},
		{"import wrong extension", []string{"import", "/tmp/x.txt"}, "[INVALID_REQUEST]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tc.run(t, "", tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestCLISelectOutlineRender(t *testing.T) {
	tc := setupTestCLI(t)
	tc.mustRun(t, nil, "", "new", "--content", "# One\n## Two\n\n```go\nfunc main() {}\n```\n", "b.md")

	var selected ops.ReadOutput
	tc.mustRun(t, &selected, "", "select", "b.md")
	if !selected.Current {
		t.Error("expected b.md to be current")
	}

	var outline ops.OutlineOutput
	tc.mustRun(t, &outline, "", "outline", "--flat")
	if outline.ID != "b.md" || len(outline.Headings) != 2 {
		t.Errorf("expected 2 flat headings for b.md, got %+v", outline)
	}

	html, err := tc.run(t, "", "render", "--raw")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(html, `<h1 id="one">One</h1>`) {
		t.Errorf("expected heading anchor, got %s", html)
	}
	if !strings.Contains(html, `class="chroma"`) {
		t.Errorf("expected highlighted code, got %s", html)
	}
}

func TestCLIUpload(t *testing.T) {
	tc := setupTestCLI(t)

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 6))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	dir := t.TempDir()
	pic := filepath.Join(dir, "chart.png")
	if err := os.WriteFile(pic, buf.Bytes(), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("plain"), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var output ops.UploadOutput
	tc.mustRun(t, &output, "", "upload", pic, txt)
	if len(output.Created) != 1 || output.Created[0].ID != "assets/chart.png" {
		t.Fatalf("expected assets/chart.png, got %+v", output.Created)
	}
	if output.Created[0].Width != 8 || output.Created[0].Height != 6 {
		t.Errorf("expected 8x6, got %dx%d", output.Created[0].Width, output.Created[0].Height)
	}
	if len(output.Skipped) != 1 || output.Skipped[0] != "notes.txt" {
		t.Errorf("expected notes.txt skipped, got %v", output.Skipped)
	}
}

func TestCLIStatusAndReset(t *testing.T) {
	tc := setupTestCLI(t)
	tc.mustRun(t, nil, "saved text", "write")

	var status ops.StatusOutput
	tc.mustRun(t, &status, "", "status")
	if status.Stored == nil || !status.Stored.Valid {
		t.Fatalf("expected a valid stored snapshot, got %+v", status.Stored)
	}
	if status.Stored.CurrentFile != "main.md" {
		t.Errorf("expected stored current main.md, got %q", status.Stored.CurrentFile)
	}

	tc.mustRun(t, nil, "", "reset")
	var after ops.StatusOutput
	tc.mustRun(t, &after, "", "status")
	if after.Stored != nil {
		t.Errorf("expected no stored snapshot after reset, got %+v", after.Stored)
	}
}

func TestCLIExportImport(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)

	tc := setupTestCLI(t)
	tc.mustRun(t, nil, "exported text", "write")

	exportPath := filepath.Join(home, "exports", "backup.json")
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var exported ops.ExportOutput
	tc.mustRun(t, &exported, "", "export", "--path", exportPath)
	if exported.Files != 1 {
		t.Errorf("expected 1 file exported, got %d", exported.Files)
	}

	tc.mustRun(t, nil, "changed", "write")

	var imported ops.ImportOutput
	tc.mustRun(t, &imported, "", "import", exportPath)
	if imported.Current != "main.md" {
		t.Errorf("expected main.md current, got %q", imported.Current)
	}

	out, err := tc.run(t, "", "cat", "--raw")
	if err != nil {
		t.Fatalf("cat failed: %v", err)
	}
	if out != "exported text" {
		t.Errorf("expected imported text, got %q", out)
	}
}

func TestOpenWorkspace_PersistsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	ctx := context.Background()

	ws, err := openWorkspace(ctx, dir, cfg)
	if err != nil {
		t.Fatalf("openWorkspace: %v", err)
	}
	app := newCLIApp(ws.env, cfg)
	app.Writer = &bytes.Buffer{}
	app.Reader = strings.NewReader("durable")
	if err := app.Run([]string{"marktex", "write"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ws, err = openWorkspace(ctx, dir, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ws.Close()
	if got := ws.env.Session.Buffer(); got != "durable" {
		t.Errorf("expected durable, got %q", got)
	}
}
