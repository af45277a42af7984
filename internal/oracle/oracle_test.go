package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/dhakalaashish/pr-guidebook/internal/config"
	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
)

func TestFakeOracleByStage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "steps.txt"), []byte(`["a"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "default.txt"), []byte("fallback"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewFakeOracle(dir)
	out, err := f.Generate(guidebook.WithStage(context.Background(), "steps"), "prompt")
	if err != nil || out != `["a"]` {
		t.Fatalf("unexpected answer %q: %v", out, err)
	}
	out, err = f.Generate(guidebook.WithStage(context.Background(), "tests"), "prompt")
	if err != nil || out != "fallback" {
		t.Fatalf("expected default fixture, got %q: %v", out, err)
	}
}

func TestFakeOracleSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.txt")
	if err := os.WriteFile(path, []byte("feature"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := NewFakeOracle(path).Generate(context.Background(), "anything")
	if err != nil || out != "feature" {
		t.Fatalf("unexpected answer %q: %v", out, err)
	}
	if _, err := NewFakeOracle(filepath.Join(t.TempDir(), "missing")).Generate(context.Background(), ""); err == nil {
		t.Fatalf("expected error for missing fixture")
	}
}

func TestOpenAIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Model != "gpt-test" || len(req.Messages) != 1 || req.Messages[0].Content != "classify" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" bug \n"}}]}`))
	}))
	defer srv.Close()

	cfg := config.OracleConfig{Endpoint: srv.URL, Model: "gpt-test"}
	out, err := NewOpenAIClient(cfg, "secret", srv.Client()).Generate(context.Background(), "classify")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "bug" {
		t.Fatalf("unexpected output %q", out)
	}

	_, err = NewOpenAIClient(cfg, "wrong", srv.Client()).Generate(context.Background(), "classify")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

type slowOracle struct{}

func (slowOracle) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(time.Second):
		return "late", nil
	}
}

func TestLimitedTimeout(t *testing.T) {
	l := NewLimited(slowOracle{}, 0, 20*time.Millisecond)
	_, err := l.Generate(context.Background(), "p")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLimitedPassesThrough(t *testing.T) {
	calls := 0
	next := guidebook.OracleFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "ok", nil
	})
	l := NewLimited(next, 6000, 0)
	for i := 0; i < 2; i++ {
		if out, err := l.Generate(context.Background(), "p"); err != nil || out != "ok" {
			t.Fatalf("unexpected %q, %v", out, err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestClaudeRunnerUsesStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	script := filepath.Join(t.TempDir(), "fake-claude")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nprintf 'got: '\ncat\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	r := NewClaudeRunner(config.OracleConfig{Command: script})
	out, err := r.Generate(context.Background(), "it's a 'quoted' prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "got: it's a 'quoted' prompt" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFromConfig(t *testing.T) {
	if _, err := FromConfig(config.OracleConfig{Provider: "nope"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	t.Setenv("TEST_ORACLE_KEY", "")
	if _, err := FromConfig(config.OracleConfig{Provider: "openai", APIKeyEnv: "TEST_ORACLE_KEY"}); err == nil {
		t.Fatalf("expected error for missing key")
	}
	o, err := FromConfig(config.OracleConfig{Provider: "fake", Fixture: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := o.(*FakeOracle); !ok {
		t.Fatalf("expected fake oracle, got %T", o)
	}
}
