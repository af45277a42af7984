package diff

import (
	"strings"
	"testing"
)

const sampleDiff = "diff --git a/file.txt b/file.txt\nindex 123..456 100644\n--- a/file.txt\n+++ b/file.txt\n@@ -1,2 +1,2 @@\n-hello\n+hello world\n"

func TestParseUnified(t *testing.T) {
	files, err := ParseUnified(sampleDiff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Path != "file.txt" {
		t.Fatalf("unexpected path: %s", files[0].Path)
	}
}

func TestBuildChunks(t *testing.T) {
	files, _ := ParseUnified(sampleDiff)
	chunks, err := BuildChunks(files, nil, 10, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestTrimIgnoresFiles(t *testing.T) {
	raw := sampleDiff + "diff --git a/go.sum b/go.sum\n+junk\n"
	out, err := Trim(raw, Options{Ignore: []string{"go.sum"}, MaxFiles: 10, MaxChunkChars: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "File: file.txt") {
		t.Fatalf("expected file.txt chunk, got %q", out)
	}
	if strings.Contains(out, "go.sum") {
		t.Fatalf("go.sum should be ignored, got %q", out)
	}
}

func TestTrimSplitsLargeFiles(t *testing.T) {
	out, err := Trim(sampleDiff, Options{MaxFiles: 1, MaxChunkChars: 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(out, "File: file.txt") < 2 {
		t.Fatalf("expected several chunks, got %q", out)
	}
}

func TestTrimPassesThroughNonDiff(t *testing.T) {
	out, err := Trim("not a diff", Options{MaxFiles: 1, MaxChunkChars: 10})
	if err != nil || out != "not a diff" {
		t.Fatalf("unexpected result %q, %v", out, err)
	}
}
