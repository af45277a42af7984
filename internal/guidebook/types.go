package guidebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrPlanNotSelected = errors.New("plan not selected: choose a PR plan first")
)

// IssueRef identifies one issue a contributor is working on.
type IssueRef struct {
	Owner  string `json:"repo_author"`
	Repo   string `json:"repo_name"`
	Number int    `json:"issue_number"`
}

func (r IssueRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

func (r IssueRef) Validate() error {
	if strings.TrimSpace(r.Owner) == "" || strings.TrimSpace(r.Repo) == "" {
		return fmt.Errorf("owner and repo are required")
	}
	if r.Number <= 0 {
		return fmt.Errorf("issue number must be positive")
	}
	return nil
}

type IssueContext struct {
	Title           string `json:"title"`
	Body            string `json:"body"`
	RepoDescription string `json:"repo_description"`
	Guidelines      string `json:"contribution_guidelines"`
}

type IssueType string

const (
	IssueFeature IssueType = "feature"
	IssueBug     IssueType = "bug"
	IssueUnknown IssueType = "unknown"
)

// PRChoice is the implementation plan the contributor committed to.
type PRChoice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (c PRChoice) IsZero() bool {
	return strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.Description) == ""
}

type SuggestionLevel int

const DefaultSuggestionLevel SuggestionLevel = 3

// Normalize maps anything outside [1,5] to the default level.
func (l SuggestionLevel) Normalize() SuggestionLevel {
	if l < 1 || l > 5 {
		return DefaultSuggestionLevel
	}
	return l
}

type ResultKind string

const (
	KindList     ResultKind = "list"
	KindFields   ResultKind = "fields"
	KindSections ResultKind = "sections"
	KindText     ResultKind = "text"
	KindToken    ResultKind = "token"
	KindRecords  ResultKind = "records"
)

type Status string

const (
	StatusOK              Status = "ok"
	StatusDegraded        Status = "degraded"
	StatusNotApplicable   Status = "not_applicable"
	StatusFailed          Status = "failed"
	StatusPlanNotSelected Status = "plan_not_selected"
)

// Result is the outcome of one stage. Exactly one payload field is
// meaningful for a given Kind; Error is set for failed and
// plan_not_selected results.
type Result struct {
	Stage    string            `json:"-"`
	Kind     ResultKind        `json:"-"`
	Status   Status            `json:"-"`
	Items    []string          `json:"-"`
	Fields   map[string]any    `json:"-"`
	Sections map[string]string `json:"-"`
	Text     string            `json:"-"`
	Records  []Duplicate       `json:"-"`
	Error    string            `json:"-"`
}

func (r Result) Failed() bool {
	return r.Status == StatusFailed || r.Status == StatusPlanNotSelected
}

// MarshalJSON emits the payload itself so callers see the same per-stage
// shapes regardless of how the oracle answer was parsed.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(map[string]string{"error": r.Error})
	}
	switch r.Kind {
	case KindList:
		items := r.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	case KindFields:
		return json.Marshal(r.Fields)
	case KindSections:
		return json.Marshal(r.Sections)
	case KindRecords:
		records := r.Records
		if records == nil {
			records = []Duplicate{}
		}
		return json.Marshal(records)
	default:
		return json.Marshal(r.Text)
	}
}

// Phase maps stage names to their results.
type Phase map[string]Result

const (
	PhaseGettingStarted = "getting_started"
	PhaseImplementation = "implementation"
	PhaseReview         = "pr_review"
)

// Stage keys in the phase maps.
const (
	StageDuplicates   = "issue_duplicates"
	StageClassify     = "issue_type"
	StageUniqueness   = "feature_uniqueness"
	StageAlignment    = "align_with_project_vision"
	StageGuidelines   = "tune_contribution_guidelines"
	StageScope        = "issue_scope"
	StageChecklist    = "guidebook_checklist"
	StageSteps        = "steps"
	StageTests        = "tests"
	StageResolution   = "validate_issue_resolution"
	StageEnforcement  = "enforce_contribution_guidelines"
	StageDescription  = "clear_pr_description"
	StageTestPresence = "tests_presence"
)

// Duplicate is a similar issue found in the same repository.
type Duplicate struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Status string `json:"status"`
}
