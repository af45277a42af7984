package github

import (
	"context"
	"fmt"

	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
	"github.com/google/go-github/v57/github"
)

const duplicateLimit = 3

// FindDuplicates searches the repository for the newest issues matching
// title. Closed issues are reported as merged when a pull request
// cross-references them.
func (c *Client) FindDuplicates(ctx context.Context, owner, repo, title string) ([]guidebook.Duplicate, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("%s repo:%s/%s type:issue", title, owner, repo)
	res, _, err := c.gh.Search.Issues(ctx, query, &github.SearchOptions{
		Sort:        "created",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: duplicateLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search issues: %w", err)
	}
	out := make([]guidebook.Duplicate, 0, duplicateLimit)
	for _, issue := range res.Issues {
		if len(out) == duplicateLimit {
			break
		}
		out = append(out, guidebook.Duplicate{
			Title:  issue.GetTitle(),
			URL:    issue.GetHTMLURL(),
			Status: c.issueStatus(ctx, owner, repo, issue),
		})
	}
	return out, nil
}

func (c *Client) issueStatus(ctx context.Context, owner, repo string, issue *github.Issue) string {
	if issue.GetState() != "closed" {
		return "open"
	}
	if err := c.wait(ctx); err != nil {
		return "closed"
	}
	events, _, err := c.gh.Issues.ListIssueTimeline(ctx, owner, repo, issue.GetNumber(), &github.ListOptions{PerPage: 100})
	if err != nil {
		c.logger.Debug("failed to read issue timeline", "issue", issue.GetNumber(), "error", err)
		return "closed"
	}
	if linkedToPR(events) {
		return "merged"
	}
	return "outdated"
}

func linkedToPR(events []*github.Timeline) bool {
	for _, e := range events {
		if e.GetEvent() != "cross-referenced" {
			continue
		}
		src := e.GetSource()
		if src.GetType() == "pull_request" || (src.GetIssue() != nil && src.GetIssue().IsPullRequest()) {
			return true
		}
	}
	return false
}
