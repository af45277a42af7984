package github

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
)

var shortRefRe = regexp.MustCompile(`^([^/\s]+)/([^#\s]+)#([0-9]+)$`)

// ParseIssueURL accepts https://github.com/owner/repo/issues/N or owner/repo#N.
func ParseIssueURL(ref string) (guidebook.IssueRef, error) {
	owner, repo, n, err := parseRef(ref, "issues")
	if err != nil {
		return guidebook.IssueRef{}, fmt.Errorf("invalid issue reference %q", ref)
	}
	return guidebook.IssueRef{Owner: owner, Repo: repo, Number: n}, nil
}

// ParsePRURL accepts https://github.com/owner/repo/pull/N or owner/repo#N.
func ParsePRURL(ref string) (owner, repo string, number int, err error) {
	owner, repo, number, err = parseRef(ref, "pull")
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid pull request reference %q", ref)
	}
	return owner, repo, number, nil
}

// PRNumberFor resolves a pull request argument for issue. A bare number or
// #N is taken as is; a URL or owner/repo#N must name the issue's repository.
func PRNumberFor(issue guidebook.IssueRef, ref string) (int, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("pull request number must be positive")
		}
		return n, nil
	}
	owner, repo, n, err := ParsePRURL(ref)
	if err != nil {
		return 0, err
	}
	if !strings.EqualFold(owner, issue.Owner) || !strings.EqualFold(repo, issue.Repo) {
		return 0, fmt.Errorf("pull request %s/%s#%d is not in %s/%s", owner, repo, n, issue.Owner, issue.Repo)
	}
	return n, nil
}

func parseRef(ref, kind string) (string, string, int, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		parsed, err := url.Parse(ref)
		if err != nil {
			return "", "", 0, err
		}
		parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		if len(parts) < 4 || parts[2] != kind {
			return "", "", 0, fmt.Errorf("unexpected path %s", parsed.Path)
		}
		n, err := strconv.Atoi(parts[3])
		if err != nil || n <= 0 {
			return "", "", 0, fmt.Errorf("bad number %s", parts[3])
		}
		return parts[0], parts[1], n, nil
	}
	m := shortRefRe.FindStringSubmatch(ref)
	if len(m) != 4 {
		return "", "", 0, fmt.Errorf("unrecognised reference")
	}
	n, err := strconv.Atoi(m[3])
	if err != nil || n <= 0 {
		return "", "", 0, fmt.Errorf("bad number %s", m[3])
	}
	return m[1], m[2], n, nil
}
