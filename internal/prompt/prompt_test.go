package prompt

import (
	"strings"
	"testing"
	"testing/fstest"
)

var allStages = []string{
	"issue_type",
	"feature_uniqueness",
	"align_with_project_vision",
	"issue_scope",
	"tune_contribution_guidelines",
	"guidebook_checklist",
	"steps",
	"tests",
	"validate_issue_resolution",
	"enforce_contribution_guidelines",
	"clear_pr_description",
	"tests_presence",
	"restructure_guidelines",
}

func sampleData() Data {
	return Data{
		Owner:           "octo",
		Repo:            "widgets",
		IssueNumber:     42,
		Title:           "Add dark mode",
		Body:            "The UI should support a dark theme.",
		RepoDescription: "A widget toolkit",
		Guidelines:      "Run make test before opening a PR.",
		PRTitle:         "Theme switcher",
		PRDescription:   "Adds a toggle in settings",
		Diff:            "diff --git a/theme.go b/theme.go",
		Level:           3,
	}
}

func TestEveryStageRenders(t *testing.T) {
	for _, stage := range allStages {
		out, err := Build(stage, sampleData())
		if err != nil {
			t.Fatalf("%s: %v", stage, err)
		}
		if !strings.Contains(out, "Add dark mode") && stage != "restructure_guidelines" {
			t.Fatalf("%s: missing issue title", stage)
		}
		if strings.Contains(out, "<no value>") {
			t.Fatalf("%s: unresolved template value:\n%s", stage, out)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a, err := Build("steps", sampleData())
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Build("steps", sampleData())
	if a != b {
		t.Fatalf("expected identical prompts")
	}
}

func TestObjectContractListsKeys(t *testing.T) {
	c, ok := ContractFor("enforce_contribution_guidelines")
	if !ok {
		t.Fatalf("missing contract")
	}
	if c.Shape != ShapeObject || len(c.Keys) != 6 {
		t.Fatalf("unexpected contract: %#v", c)
	}
	out, err := Build("enforce_contribution_guidelines", sampleData())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range c.Keys {
		if !strings.Contains(out, `"`+key+`"`) {
			t.Fatalf("prompt does not name key %s", key)
		}
	}
}

func TestChecklistNamesHeadingsVerbatim(t *testing.T) {
	c, _ := ContractFor("guidebook_checklist")
	if len(c.Headings) != 6 {
		t.Fatalf("expected 6 headings, got %d", len(c.Headings))
	}
	out, err := Build("guidebook_checklist", sampleData())
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range c.Headings {
		if !strings.Contains(out, "**"+h+"**") {
			t.Fatalf("missing heading %q", h)
		}
	}
}

func TestOptionalBlocksOmitted(t *testing.T) {
	data := sampleData()
	data.PRTitle = ""
	data.PRDescription = ""
	data.Guidelines = ""
	out, err := Build("steps", data)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "chose this plan") {
		t.Fatalf("plan block should be omitted:\n%s", out)
	}
	if strings.Contains(out, "Contribution guidelines:") {
		t.Fatalf("guidelines block should be omitted:\n%s", out)
	}
}

func TestDetailTierFollowsLevel(t *testing.T) {
	data := sampleData()
	data.Level = 5
	out, _ := Build("steps", data)
	if !strings.Contains(out, detailTiers[5]) {
		t.Fatalf("expected tier 5 text")
	}
	data.Level = 9
	out, _ = Build("tests", data)
	if !strings.Contains(out, detailTiers[3]) {
		t.Fatalf("expected default tier for out of range level")
	}
}

func TestLoadFromCustomFS(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/custom.md": {Data: []byte("---\nstage: custom\nshape: token\ntokens: [yes, no]\n---\nQ: {{.Title}}\n\n\n\n{{.OutputContract}}\n")},
	}
	lib, err := Load(fsys)
	if err != nil {
		t.Fatal(err)
	}
	out, err := lib.Build("custom", Data{Title: "ok?"})
	if err != nil {
		t.Fatal(err)
	}
	want := "Q: ok?\n\nAnswer with exactly one word, one of: yes, no. Nothing else.\n"
	if out != want {
		t.Fatalf("unexpected prompt: %q", out)
	}
	if _, err := lib.Build("missing", Data{}); err == nil {
		t.Fatalf("expected error for unknown stage")
	}
}
