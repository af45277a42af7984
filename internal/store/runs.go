package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
	"github.com/google/uuid"
)

type Run struct {
	ID          string
	IssueID     string
	Phase       string
	CreatedAt   time.Time
	PayloadJSON string
}

// RecordRun keeps the JSON form of one phase result.
func (s *Store) RecordRun(ctx context.Context, ref guidebook.IssueRef, phase string, results guidebook.Phase) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, issue_id, phase, created_at, payload_json)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), issueID(ref), phase, time.Now().UTC(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// ListRuns returns the newest runs for an issue first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, ref guidebook.IssueRef, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, phase, created_at, payload_json
		FROM runs
		WHERE issue_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, issueID(ref), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.IssueID, &r.Phase, &r.CreatedAt, &r.PayloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the newest run of phase for an issue.
func (s *Store) LatestRun(ctx context.Context, ref guidebook.IssueRef, phase string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, issue_id, phase, created_at, payload_json
		FROM runs
		WHERE issue_id = ? AND phase = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, issueID(ref), phase).Scan(&r.ID, &r.IssueID, &r.Phase, &r.CreatedAt, &r.PayloadJSON)
	if err != nil {
		return Run{}, notFound(err)
	}
	return r, nil
}
