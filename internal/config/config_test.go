package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AutosaveDebounceMs != 1000 {
		t.Fatalf("AutosaveDebounceMs = %d, want 1000", cfg.AutosaveDebounceMs)
	}
	if cfg.AutosaveDebounce() != time.Second {
		t.Fatalf("AutosaveDebounce() = %v, want 1s", cfg.AutosaveDebounce())
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"autosave_debounce_ms": 250, "log_level": "debug"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AutosaveDebounceMs != 250 {
		t.Fatalf("AutosaveDebounceMs = %d, want 250", cfg.AutosaveDebounceMs)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Untouched fields keep defaults
	if cfg.ServePort != 8765 {
		t.Fatalf("ServePort = %d, want 8765", cfg.ServePort)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["workspace_delete", " workspace_upload "]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[1] != "workspace_upload" {
		t.Errorf("DisabledTools[1] = %q, want trimmed %q", cfg.DisabledTools[1], "workspace_upload")
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	globalConfig := `{"autosave_debounce_ms": 2000, "disabled_tools": ["workspace_delete"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	repoDir := filepath.Join(repoRoot, ".marktex")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"autosave_debounce_ms": 500, "disabled_tools": ["workspace_upload"]}`
	if err := os.WriteFile(filepath.Join(repoDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.AutosaveDebounceMs != 500 {
		t.Errorf("AutosaveDebounceMs = %d, want 500 (repo override)", cfg.AutosaveDebounceMs)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	def := DefaultConfig()
	if cfg.AutosaveDebounceMs != def.AutosaveDebounceMs {
		t.Errorf("AutosaveDebounceMs = %d, want %d", cfg.AutosaveDebounceMs, def.AutosaveDebounceMs)
	}
	if cfg.MaxAssetBytes != def.MaxAssetBytes {
		t.Errorf("MaxAssetBytes = %d, want %d", cfg.MaxAssetBytes, def.MaxAssetBytes)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{AutosaveDebounceMs: 1000, DBMaxOpenConns: 5, LogFormat: "json"}
	overlay := &Config{AutosaveDebounceMs: 300}

	result := Merge(base, overlay)

	if result.AutosaveDebounceMs != 300 {
		t.Errorf("AutosaveDebounceMs = %d, want 300 (overlay)", result.AutosaveDebounceMs)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
	if result.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json (base, overlay is empty)", result.LogFormat)
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"workspace_delete", "workspace_upload"}}
	overlay := &Config{DisabledTools: []string{"workspace_upload", "workspace_rename"}}

	result := Merge(base, overlay)

	if len(result.DisabledTools) != 3 {
		t.Errorf("DisabledTools length = %d, want 3 (merged, deduped)", len(result.DisabledTools))
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	repoDir := filepath.Join(tmpDir, ".marktex")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(repoDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	found := FindRepoConfig(subdir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	found := FindRepoConfig(t.TempDir())
	if found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
}

func TestMerge_PathSettings(t *testing.T) {
	base := &Config{AllowedPaths: []string{"/srv/backups"}}
	overlay := &Config{AllowedPaths: []string{"/srv/backups", "/mnt/share"}, AllowUnsafePaths: true}

	result := Merge(base, overlay)

	if len(result.AllowedPaths) != 2 {
		t.Errorf("AllowedPaths = %v, want 2 entries", result.AllowedPaths)
	}
	if !result.AllowUnsafePaths {
		t.Error("AllowUnsafePaths = false, want true (overlay opted in)")
	}
}

func TestHomeDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	got, err := HomeDir()
	if err != nil {
		t.Fatalf("HomeDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("HomeDir() = %q, want %q", got, dir)
	}
}
