package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GUIDEBOOK_DB_PATH", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Oracle.Provider != "claude" || cfg.Pipeline.SuggestionLevel != 3 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if len(cfg.GitHub.GuidelinePaths) != 9 || cfg.GitHub.GuidelinePaths[0] != "CONTRIBUTING.md" {
		t.Fatalf("unexpected guideline paths: %v", cfg.GitHub.GuidelinePaths)
	}
}

func TestLoadOverridesAndRedefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `oracle:
  provider: openai
  model: gpt-4o
  timeout: 45s
pipeline:
  max_parallel: 2
  suggestion_level: 9
diff:
  max_files: 0
server:
  addr: ":8080"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(dir, "custom.db")
	t.Setenv("GUIDEBOOK_DB_PATH", dbPath)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Oracle.Provider != "openai" || cfg.Oracle.Model != "gpt-4o" {
		t.Fatalf("oracle not loaded: %#v", cfg.Oracle)
	}
	if cfg.Oracle.Timeout != 45*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Oracle.Timeout)
	}
	if cfg.Oracle.Command != "claude" {
		t.Fatalf("expected command default to survive, got %q", cfg.Oracle.Command)
	}
	if cfg.Pipeline.MaxParallel != 2 {
		t.Fatalf("unexpected max_parallel: %d", cfg.Pipeline.MaxParallel)
	}
	if cfg.Pipeline.SuggestionLevel != 3 {
		t.Fatalf("out of range level should fall back to 3, got %d", cfg.Pipeline.SuggestionLevel)
	}
	if cfg.Diff.MaxFiles != 50 {
		t.Fatalf("zero max_files should be re-defaulted, got %d", cfg.Diff.MaxFiles)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %q", cfg.Server.Addr)
	}
	if cfg.Store.Path != dbPath {
		t.Fatalf("expected env override, got %q", cfg.Store.Path)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("oracle: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
