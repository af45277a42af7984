package store

import (
	"context"
	"fmt"

	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
)

// PutIssue stores the issue context, replacing any earlier fetch.
func (s *Store) PutIssue(ctx context.Context, ref guidebook.IssueRef, issue guidebook.IssueContext) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issues (id, owner, repo, number, title, body, repo_description, guidelines, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			repo_description = excluded.repo_description,
			guidelines = excluded.guidelines,
			fetched_at = excluded.fetched_at
	`, issueID(ref), ref.Owner, ref.Repo, ref.Number, issue.Title, issue.Body, issue.RepoDescription, issue.Guidelines)
	if err != nil {
		return fmt.Errorf("failed to upsert issue: %w", err)
	}
	return nil
}

func (s *Store) GetIssue(ctx context.Context, ref guidebook.IssueRef) (guidebook.IssueContext, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT title, body, repo_description, guidelines
		FROM issues
		WHERE id = ?
	`, issueID(ref))
	var issue guidebook.IssueContext
	if err := row.Scan(&issue.Title, &issue.Body, &issue.RepoDescription, &issue.Guidelines); err != nil {
		if err := notFound(err); err == guidebook.ErrNotFound {
			return guidebook.IssueContext{}, err
		}
		return guidebook.IssueContext{}, fmt.Errorf("failed to read issue: %w", err)
	}
	return issue, nil
}

func (s *Store) PutPRChoice(ctx context.Context, ref guidebook.IssueRef, choice guidebook.PRChoice) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pr_choices (issue_id, title, description, chosen_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(issue_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			chosen_at = excluded.chosen_at
	`, issueID(ref), choice.Title, choice.Description)
	if err != nil {
		return fmt.Errorf("failed to upsert pr choice: %w", err)
	}
	return nil
}

func (s *Store) GetPRChoice(ctx context.Context, ref guidebook.IssueRef) (guidebook.PRChoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT title, description
		FROM pr_choices
		WHERE issue_id = ?
	`, issueID(ref))
	var choice guidebook.PRChoice
	if err := row.Scan(&choice.Title, &choice.Description); err != nil {
		if err := notFound(err); err == guidebook.ErrNotFound {
			return guidebook.PRChoice{}, err
		}
		return guidebook.PRChoice{}, fmt.Errorf("failed to read pr choice: %w", err)
	}
	return choice, nil
}

func (s *Store) SavePRNumber(ctx context.Context, ref guidebook.IssueRef, prNumber int) error {
	if prNumber <= 0 {
		return fmt.Errorf("prNumber must be positive")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pr_numbers (issue_id, pr_number, recorded_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(issue_id) DO UPDATE SET
			pr_number = excluded.pr_number,
			recorded_at = excluded.recorded_at
	`, issueID(ref), prNumber)
	if err != nil {
		return fmt.Errorf("failed to save pr number: %w", err)
	}
	return nil
}

func (s *Store) GetPRNumber(ctx context.Context, ref guidebook.IssueRef) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT pr_number FROM pr_numbers WHERE issue_id = ?`, issueID(ref)).Scan(&n)
	if err != nil {
		if err := notFound(err); err == guidebook.ErrNotFound {
			return 0, err
		}
		return 0, fmt.Errorf("failed to read pr number: %w", err)
	}
	return n, nil
}
