package diff

import (
	"fmt"
	"path/filepath"
	"strings"
)

type FileDiff struct {
	Path string
	Text string
}

// ParseUnified splits a git diff into per-file sections. Lines before the
// first "diff --git" header are dropped.
func ParseUnified(input string) ([]FileDiff, error) {
	var files []FileDiff
	var path string
	var text strings.Builder
	started := false
	flush := func() {
		if started {
			files = append(files, FileDiff{Path: path, Text: text.String()})
		}
		text.Reset()
	}
	for _, line := range strings.Split(input, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			flush()
			started = true
			path = parsePath(line)
		}
		if !started {
			continue
		}
		text.WriteString(line)
		text.WriteString("\n")
	}
	flush()
	return files, nil
}

func parsePath(line string) string {
	parts := strings.Split(line, " ")
	if len(parts) < 4 {
		return ""
	}
	return strings.TrimPrefix(parts[3], "b/")
}

func BuildChunks(files []FileDiff, ignoreGlobs []string, maxFiles int, maxChunkChars int) ([]string, error) {
	if maxFiles <= 0 {
		return nil, fmt.Errorf("maxFiles must be > 0")
	}
	if maxChunkChars <= 0 {
		return nil, fmt.Errorf("maxChunkChars must be > 0")
	}
	chunks := []string{}
	count := 0
	for _, file := range files {
		if count >= maxFiles {
			break
		}
		if file.Path == "" {
			continue
		}
		if isIgnored(file.Path, ignoreGlobs) {
			continue
		}
		chunks = append(chunks, splitChunk(file.Path, file.Text, maxChunkChars)...)
		count++
	}
	return chunks, nil
}

func isIgnored(path string, globs []string) bool {
	for _, glob := range globs {
		match, err := filepath.Match(glob, path)
		if err == nil && match {
			return true
		}
	}
	return false
}

func splitChunk(path string, text string, maxChunkChars int) []string {
	if len(text) <= maxChunkChars {
		return []string{formatChunk(path, text)}
	}
	var chunks []string
	remaining := text
	for len(remaining) > 0 {
		limit := maxChunkChars
		if len(remaining) < limit {
			limit = len(remaining)
		}
		piece := remaining[:limit]
		chunks = append(chunks, formatChunk(path, piece))
		remaining = remaining[limit:]
	}
	return chunks
}

func formatChunk(path string, text string) string {
	return fmt.Sprintf("File: %s\n%s", path, text)
}

type Options struct {
	Ignore        []string
	MaxFiles      int
	MaxChunkChars int
}

// Trim drops ignored files and caps the number of files and the size of
// each chunk. Input that is not a git diff is returned unchanged.
func Trim(raw string, opts Options) (string, error) {
	files, err := ParseUnified(raw)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return raw, nil
	}
	chunks, err := BuildChunks(files, opts.Ignore, opts.MaxFiles, opts.MaxChunkChars)
	if err != nil {
		return "", err
	}
	return strings.Join(chunks, "\n"), nil
}
