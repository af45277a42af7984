package oracle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
)

// FakeOracle answers from fixture files. When Path is a directory the
// answer is read from <stage>.txt, falling back to default.txt; when it is
// a file every call returns its content.
type FakeOracle struct {
	Path string
}

func NewFakeOracle(path string) *FakeOracle {
	return &FakeOracle{Path: path}
}

func (f *FakeOracle) Generate(ctx context.Context, _ string) (string, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read oracle fixture: %w", err)
	}
	if !info.IsDir() {
		return readFixture(f.Path)
	}
	stage := guidebook.StageFromContext(ctx)
	if stage != "" {
		path := filepath.Join(f.Path, stage+".txt")
		if _, err := os.Stat(path); err == nil {
			return readFixture(path)
		}
	}
	return readFixture(filepath.Join(f.Path, "default.txt"))
}

func readFixture(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read oracle fixture: %w", err)
	}
	return string(data), nil
}
