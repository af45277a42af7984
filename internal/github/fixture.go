package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dhakalaashish/pr-guidebook/internal/diff"
	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
)

// FixtureSource serves recorded GitHub data from a directory:
//
//	issue.json       title, body and repo_description
//	guidelines.md    guideline text (optional)
//	duplicates.json  array of {title, url, status} (optional)
//	pr_diff.txt      unified diff
type FixtureSource struct {
	Root string
	Diff diff.Options
}

func NewFixtureSource(root string, diffOpts diff.Options) FixtureSource {
	return FixtureSource{Root: root, Diff: diffOpts}
}

func (f FixtureSource) read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.Root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("fixture %s: %w", name, guidebook.ErrNotFound)
	}
	return data, err
}

func (f FixtureSource) FetchIssue(ctx context.Context, ref guidebook.IssueRef) (guidebook.IssueContext, error) {
	data, err := f.read("issue.json")
	if err != nil {
		return guidebook.IssueContext{}, err
	}
	var issue guidebook.IssueContext
	if err := json.Unmarshal(data, &issue); err != nil {
		return guidebook.IssueContext{}, fmt.Errorf("failed to decode issue fixture: %w", err)
	}
	return issue, nil
}

func (f FixtureSource) Guidelines(ctx context.Context, owner, repo string) (string, error) {
	data, err := f.read("guidelines.md")
	if errors.Is(err, guidebook.ErrNotFound) {
		return "", nil
	}
	return string(data), err
}

func (f FixtureSource) FindDuplicates(ctx context.Context, owner, repo, title string) ([]guidebook.Duplicate, error) {
	data, err := f.read("duplicates.json")
	if errors.Is(err, guidebook.ErrNotFound) {
		return []guidebook.Duplicate{}, nil
	}
	if err != nil {
		return nil, err
	}
	var dups []guidebook.Duplicate
	if err := json.Unmarshal(data, &dups); err != nil {
		return nil, fmt.Errorf("failed to decode duplicates fixture: %w", err)
	}
	if len(dups) > duplicateLimit {
		dups = dups[:duplicateLimit]
	}
	return dups, nil
}

func (f FixtureSource) PRDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	data, err := f.read("pr_diff.txt")
	if err != nil {
		return "", err
	}
	return diff.Trim(string(data), f.Diff)
}
