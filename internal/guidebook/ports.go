package guidebook

import "context"

// Oracle turns a prompt into free text. An empty answer counts as a failure.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(ctx context.Context, prompt string) (string, error)

func (f OracleFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Store persists per-issue artifacts. Absent records return ErrNotFound.
type Store interface {
	GetIssue(ctx context.Context, ref IssueRef) (IssueContext, error)
	PutIssue(ctx context.Context, ref IssueRef, issue IssueContext) error
	GetPRChoice(ctx context.Context, ref IssueRef) (PRChoice, error)
	PutPRChoice(ctx context.Context, ref IssueRef, choice PRChoice) error
}

// PRRecorder is implemented by stores that remember which PR was reviewed
// for an issue.
type PRRecorder interface {
	SavePRNumber(ctx context.Context, ref IssueRef, prNumber int) error
}

type DiffFetcher interface {
	PRDiff(ctx context.Context, owner, repo string, number int) (string, error)
}

type DuplicateFinder interface {
	FindDuplicates(ctx context.Context, owner, repo, title string) ([]Duplicate, error)
}

// IssueFetcher and GuidelineSource feed Prepare.
type IssueFetcher interface {
	FetchIssue(ctx context.Context, ref IssueRef) (IssueContext, error)
}

type GuidelineSource interface {
	Guidelines(ctx context.Context, owner, repo string) (string, error)
}

// Scrubber removes secrets from text before it is stored or sent to the oracle.
type Scrubber interface {
	Scrub(text string) string
}
