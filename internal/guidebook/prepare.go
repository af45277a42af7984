package guidebook

import (
	"context"
	"fmt"
	"strings"
)

// Prepare fetches the issue and its repository guidelines, restructures the
// guidelines with one oracle call and stores the result. Calling it again
// overwrites the stored context.
func (p *Pipeline) Prepare(ctx context.Context, ref IssueRef) (IssueContext, error) {
	if err := ref.Validate(); err != nil {
		return IssueContext{}, err
	}
	if p.issues == nil {
		return IssueContext{}, fmt.Errorf("no issue source configured")
	}
	issue, err := p.issues.FetchIssue(ctx, ref)
	if err != nil {
		return IssueContext{}, fmt.Errorf("fetch issue %s: %w", ref, err)
	}

	guidelines := noGuidelines
	if p.guidelines != nil {
		text, err := p.guidelines.Guidelines(ctx, ref.Owner, ref.Repo)
		switch {
		case err != nil:
			p.logger.Warn("failed to gather guidelines", "issue", ref.String(), "error", err)
		case strings.TrimSpace(text) != "":
			guidelines = text
		}
	}

	issue.Title = strings.TrimSpace(issue.Title)
	issue.Body = p.scrub(issue.Body)
	issue.Guidelines = p.scrub(guidelines)
	if issue.Guidelines != noGuidelines {
		issue.Guidelines = p.restructure(ctx, ref, issue)
	}

	if err := p.store.PutIssue(ctx, ref, issue); err != nil {
		return IssueContext{}, fmt.Errorf("save issue %s: %w", ref, err)
	}
	if p.observer != nil {
		p.observer.Observe(Event{Phase: "prepare", Stage: StageRestructure, Status: StatusOK, Issue: ref, At: p.now()})
	}
	return issue, nil
}

// restructure rewrites aggregated guideline text into fixed sections. The
// raw text is kept when the oracle fails.
func (p *Pipeline) restructure(ctx context.Context, ref IssueRef, issue IssueContext) string {
	if p.promptsErr != nil {
		return issue.Guidelines
	}
	raw, _, fail := ask(ctx, p.deps(), StageRestructure, Input{Ref: ref, Issue: issue})
	if fail != nil {
		return issue.Guidelines
	}
	return strings.TrimSpace(raw)
}
