package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var linkRe = regexp.MustCompile(`https?://[^\s\)\]]+`)

// skipped elements never contribute text
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"noscript": true,
}

// Guidelines returns the first guideline file found in the repository, or
// "" when there is none. When link following is enabled, the visible text
// of pages it links to is appended after it.
func (c *Client) Guidelines(ctx context.Context, owner, repo string) (string, error) {
	for _, path := range c.cfg.GuidelinePaths {
		if err := c.wait(ctx); err != nil {
			return "", err
		}
		file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		if file == nil {
			continue
		}
		text, err := file.GetContent()
		if err != nil {
			c.logger.Warn("failed to decode guideline file", "path", path, "error", err)
			continue
		}
		c.logger.Debug("guideline file found", "repo", owner+"/"+repo, "path", path)
		if c.cfg.FollowLinks {
			text += c.linkedText(ctx, text)
		}
		return text, nil
	}
	return "", nil
}

func (c *Client) linkedText(ctx context.Context, text string) string {
	var b strings.Builder
	for _, link := range Links(text, c.cfg.MaxLinks) {
		page, err := c.fetchPage(ctx, link)
		if err != nil {
			c.logger.Debug("skipping linked page", "url", link, "error", err)
			continue
		}
		if page = strings.TrimSpace(page); page != "" {
			b.WriteString("\n\n")
			b.WriteString(page)
		}
	}
	return b.String()
}

// Links returns the distinct http(s) links in text, at most max of them.
// max <= 0 means no limit.
func Links(text string, max int) []string {
	seen := map[string]bool{}
	var out []string
	for _, link := range linkRe.FindAllString(text, -1) {
		link = strings.TrimRight(link, ".,;:'\">")
		if seen[link] {
			continue
		}
		seen[link] = true
		out = append(out, link)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

func (c *Client) fetchPage(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.web.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body := io.LimitReader(resp.Body, 1<<20)
	if !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		data, err := io.ReadAll(body)
		return string(data), err
	}
	return PageText(body)
}

// PageText extracts the visible text of an HTML document, one block per line.
func PageText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if s := strings.Join(strings.Fields(n.Data), " "); s != "" {
				lines = append(lines, s)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n"), nil
}
