package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "guidebook.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestIssueRoundTripAndOverwrite(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	ref := guidebook.IssueRef{Owner: "acme", Repo: "app", Number: 1}

	if _, err := st.GetIssue(ctx, ref); !errors.Is(err, guidebook.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	first := guidebook.IssueContext{Title: "t", Body: "b", RepoDescription: "d", Guidelines: "g"}
	if err := st.PutIssue(ctx, ref, first); err != nil {
		t.Fatalf("put issue: %v", err)
	}
	got, err := st.GetIssue(ctx, ref)
	if err != nil {
		t.Fatalf("get issue: %v", err)
	}
	if got != first {
		t.Fatalf("unexpected issue: %#v", got)
	}
	second := guidebook.IssueContext{Title: "t2", Body: "b2"}
	if err := st.PutIssue(ctx, ref, second); err != nil {
		t.Fatalf("overwrite issue: %v", err)
	}
	got, _ = st.GetIssue(ctx, ref)
	if got != second {
		t.Fatalf("expected overwrite, got %#v", got)
	}
}

func TestPRChoiceAndNumber(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	ref := guidebook.IssueRef{Owner: "acme", Repo: "app", Number: 2}

	if _, err := st.GetPRChoice(ctx, ref); !errors.Is(err, guidebook.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	choice := guidebook.PRChoice{Title: "Toggle", Description: "Add toggle (Addresses Issue #2)"}
	if err := st.PutPRChoice(ctx, ref, choice); err != nil {
		t.Fatalf("put choice: %v", err)
	}
	got, err := st.GetPRChoice(ctx, ref)
	if err != nil || got != choice {
		t.Fatalf("unexpected choice %#v: %v", got, err)
	}

	if err := st.SavePRNumber(ctx, ref, 0); err == nil {
		t.Fatalf("expected error for zero pr number")
	}
	if err := st.SavePRNumber(ctx, ref, 31251); err != nil {
		t.Fatalf("save pr number: %v", err)
	}
	n, err := st.GetPRNumber(ctx, ref)
	if err != nil || n != 31251 {
		t.Fatalf("unexpected pr number %d: %v", n, err)
	}
}

func TestRecordAndListRuns(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	ref := guidebook.IssueRef{Owner: "acme", Repo: "app", Number: 3}

	steps := guidebook.Phase{
		guidebook.StageSteps: {Stage: guidebook.StageSteps, Kind: guidebook.KindList, Status: guidebook.StatusOK, Items: []string{"fork"}},
	}
	if err := st.RecordRun(ctx, ref, guidebook.PhaseImplementation, steps); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := st.RecordRun(ctx, ref, guidebook.PhaseReview, guidebook.Phase{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	runs, err := st.ListRuns(ctx, ref, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Phase != guidebook.PhaseReview {
		t.Fatalf("expected newest first, got %s", runs[0].Phase)
	}
	if !strings.Contains(runs[1].PayloadJSON, `"steps":["fork"]`) {
		t.Fatalf("unexpected payload: %s", runs[1].PayloadJSON)
	}
	limited, _ := st.ListRuns(ctx, ref, 1)
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply")
	}
}

func TestLatestRun(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	ref := guidebook.IssueRef{Owner: "acme", Repo: "app", Number: 4}

	if _, err := st.LatestRun(ctx, ref, guidebook.PhaseGettingStarted); !errors.Is(err, guidebook.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.RecordRun(ctx, ref, guidebook.PhaseGettingStarted, guidebook.Phase{}); err != nil {
		t.Fatal(err)
	}
	if err := st.RecordRun(ctx, ref, guidebook.PhaseImplementation, guidebook.Phase{}); err != nil {
		t.Fatal(err)
	}
	run, err := st.LatestRun(ctx, ref, guidebook.PhaseGettingStarted)
	if err != nil {
		t.Fatal(err)
	}
	if run.Phase != guidebook.PhaseGettingStarted || run.PayloadJSON != "{}" {
		t.Fatalf("unexpected run %#v", run)
	}
}
