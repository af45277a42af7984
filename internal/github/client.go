package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dhakalaashish/pr-guidebook/internal/config"
	"github.com/dhakalaashish/pr-guidebook/internal/diff"
	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client reads issues, guidelines and pull request diffs from the GitHub
// REST API. Every API call waits on a shared rate limiter.
type Client struct {
	gh      *github.Client
	web     *http.Client
	limiter *rate.Limiter
	cfg     config.GitHubConfig
	diff    diff.Options
	logger  *slog.Logger
}

// NewClient builds an API client. An empty token gives anonymous access.
// The token is never sent to hosts linked from guideline files.
func NewClient(cfg config.GitHubConfig, token string, diffOpts diff.Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), ts)
	}
	gh := github.NewClient(hc)
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		gh.BaseURL = base
	}
	perSecond := cfg.APIRatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	return &Client{
		gh:      gh,
		web:     &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		cfg:     cfg,
		diff:    diffOpts,
		logger:  logger,
	}, nil
}

func (c *Client) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// FetchIssue returns the issue title and body plus the repository description.
func (c *Client) FetchIssue(ctx context.Context, ref guidebook.IssueRef) (guidebook.IssueContext, error) {
	if err := c.wait(ctx); err != nil {
		return guidebook.IssueContext{}, err
	}
	issue, _, err := c.gh.Issues.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		if isNotFound(err) {
			return guidebook.IssueContext{}, fmt.Errorf("issue %s: %w", ref, guidebook.ErrNotFound)
		}
		return guidebook.IssueContext{}, fmt.Errorf("failed to get issue %s: %w", ref, err)
	}
	out := guidebook.IssueContext{Title: issue.GetTitle(), Body: issue.GetBody()}

	if err := c.wait(ctx); err != nil {
		return guidebook.IssueContext{}, err
	}
	repo, _, err := c.gh.Repositories.Get(ctx, ref.Owner, ref.Repo)
	if err != nil {
		c.logger.Warn("failed to get repository", "repo", ref.Owner+"/"+ref.Repo, "error", err)
		return out, nil
	}
	out.RepoDescription = repo.GetDescription()
	return out, nil
}

// PRDiff downloads the unified diff of a pull request and trims it to the
// configured file and chunk limits.
func (c *Client) PRDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	raw, _, err := c.gh.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", fmt.Errorf("failed to get diff for %s/%s#%d: %w", owner, repo, number, err)
	}
	return diff.Trim(raw, c.diff)
}

func isNotFound(err error) bool {
	var ge *github.ErrorResponse
	return errors.As(err, &ge) && ge.Response != nil && ge.Response.StatusCode == http.StatusNotFound
}
