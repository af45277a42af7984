package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func goldenPath(name string) string {
	return filepath.Join(repoRoot(), "testdata", "golden", name)
}

func readGolden(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(goldenPath(name))
	if err != nil {
		t.Fatalf("failed to read golden file: %v", err)
	}
	return string(data)
}

func assertGolden(t *testing.T, name, output string) {
	t.Helper()
	expected := readGolden(t, name)
	if output != expected {
		t.Fatalf("%s mismatch\n--- expected\n%s\n--- got\n%s", name, expected, output)
	}
}

func TestStartGolden(t *testing.T) {
	withMockEnv(t)
	runRoot(t, "fetch", issueArg)
	assertGolden(t, "start.txt", runRoot(t, "start", issueArg))
}

func TestImplementGolden(t *testing.T) {
	withMockEnv(t)
	runRoot(t, "fetch", issueArg)
	output := runRoot(t, "implement", issueArg, "--level", "4", "--title", "Add dark mode toggle", "--description", "Settings toggle")
	assertGolden(t, "implement.txt", output)
}

func TestReviewGolden(t *testing.T) {
	withMockEnv(t)
	runRoot(t, "fetch", issueArg)
	assertGolden(t, "review_no_plan.txt", runRoot(t, "review", issueArg, "7"))

	runRoot(t, "choose", issueArg, "--title", "Add dark mode toggle", "--description", "Settings toggle")
	assertGolden(t, "review.txt", runRoot(t, "review", issueArg, "https://github.com/octo/widgets/pull/7"))
}
