package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/dhakalaashish/pr-guidebook/internal/config"
)

// ClaudeRunner shells out to the claude CLI in print mode. The prompt is
// written to stdin so large diffs never hit argument length limits.
type ClaudeRunner struct {
	command string
	args    []string
}

func NewClaudeRunner(cfg config.OracleConfig) *ClaudeRunner {
	command := cfg.Command
	if command == "" {
		command = "claude"
	}
	return &ClaudeRunner{command: command, args: cfg.Args}
}

func (c *ClaudeRunner) argv() []string {
	args := []string{"-p", "--output-format", "text"}
	return append(args, c.args...)
}

func (c *ClaudeRunner) Generate(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, c.command, c.argv()...)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("oracle timed out: %w", ctx.Err())
		}
		return "", fmt.Errorf("oracle failed: %w\n%s", err, stderr.String())
	}
	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("oracle returned empty output\n%s", stderr.String())
	}
	return out, nil
}

func (c *ClaudeRunner) HealthCheck(ctx context.Context) error {
	if _, err := exec.LookPath(c.command); err != nil {
		return fmt.Errorf("oracle command not found: %s", c.command)
	}
	out, err := c.Generate(ctx, "Reply with the single word OK.")
	if err != nil {
		return fmt.Errorf("oracle health check failed: %w", err)
	}
	if !strings.Contains(strings.ToUpper(out), "OK") {
		return fmt.Errorf("oracle health check got unexpected output: %q", out)
	}
	return nil
}
