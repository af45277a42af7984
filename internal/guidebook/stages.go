package guidebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dhakalaashish/pr-guidebook/internal/normalize"
	"github.com/dhakalaashish/pr-guidebook/internal/prompt"
)

// StageRestructure rewrites aggregated guideline text during Prepare. It is
// not part of any phase map.
const StageRestructure = "restructure_guidelines"

const noGuidelines = "No contribution guidelines found."

// Deps are the collaborators a stage needs.
type Deps struct {
	Oracle  Oracle
	Prompts *prompt.Library
	Logger  *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Input is the context bundle shared by every stage of one phase.
type Input struct {
	Ref    IssueRef
	Issue  IssueContext
	Type   IssueType
	Choice *PRChoice
	Level  SuggestionLevel
	Diff   string
}

type stageKey struct{}

// WithStage tags ctx with the stage an oracle call belongs to.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFromContext returns the stage set by WithStage, or "".
func StageFromContext(ctx context.Context) string {
	s, _ := ctx.Value(stageKey{}).(string)
	return s
}

func promptData(in Input) prompt.Data {
	data := prompt.Data{
		Owner:           in.Ref.Owner,
		Repo:            in.Ref.Repo,
		IssueNumber:     in.Ref.Number,
		Title:           in.Issue.Title,
		Body:            in.Issue.Body,
		RepoDescription: in.Issue.RepoDescription,
		Guidelines:      in.Issue.Guidelines,
		Diff:            in.Diff,
		Level:           int(in.Level.Normalize()),
	}
	if in.Choice != nil {
		data.PRTitle = in.Choice.Title
		data.PRDescription = in.Choice.Description
	}
	return data
}

// ask builds the stage prompt and runs one oracle round trip. An error or
// an empty answer is returned as a failed Result.
func ask(ctx context.Context, d Deps, stage string, in Input) (string, prompt.Contract, *Result) {
	contract, ok := d.Prompts.ContractFor(stage)
	if !ok {
		r := failed(stage, fmt.Errorf("no prompt for stage %s", stage))
		return "", contract, &r
	}
	text, err := d.Prompts.Build(stage, promptData(in))
	if err != nil {
		r := failed(stage, err)
		return "", contract, &r
	}
	raw, err := d.Oracle.Generate(WithStage(ctx, stage), text)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		d.logger().Warn("oracle call failed", "stage", stage, "issue", in.Ref.String(), "error", err)
		r := failed(stage, err)
		return "", contract, &r
	}
	return raw, contract, nil
}

func failed(stage string, err error) Result {
	return Result{Stage: stage, Status: StatusFailed, Error: "failed to analyze: " + err.Error()}
}

func planNotSelected(stage string) Result {
	return Result{Stage: stage, Status: StatusPlanNotSelected, Error: ErrPlanNotSelected.Error()}
}

func statusFor(degraded bool) Status {
	if degraded {
		return StatusDegraded
	}
	return StatusOK
}

func fieldsStage(ctx context.Context, d Deps, stage string, in Input) Result {
	return parsedFieldsStage(ctx, d, stage, in, normalize.Object)
}

func verdictStage(ctx context.Context, d Deps, stage string, in Input) Result {
	return parsedFieldsStage(ctx, d, stage, in, normalize.Verdict)
}

func parsedFieldsStage(ctx context.Context, d Deps, stage string, in Input, parse func(string, []string) (map[string]any, bool)) Result {
	raw, contract, fail := ask(ctx, d, stage, in)
	if fail != nil {
		return *fail
	}
	fields, degraded := parse(raw, contract.Keys)
	if degraded {
		d.logger().Debug("stage output degraded", "stage", stage, "issue", in.Ref.String())
	}
	return Result{Stage: stage, Kind: KindFields, Status: statusFor(degraded), Fields: fields}
}

func listStage(ctx context.Context, d Deps, stage string, in Input) Result {
	raw, _, fail := ask(ctx, d, stage, in)
	if fail != nil {
		return *fail
	}
	items, degraded := normalize.List(raw)
	if len(items) == 0 {
		return failed(stage, errors.New("no items in response"))
	}
	return Result{Stage: stage, Kind: KindList, Status: statusFor(degraded), Items: items}
}

func textStage(ctx context.Context, d Deps, stage string, in Input) Result {
	raw, _, fail := ask(ctx, d, stage, in)
	if fail != nil {
		return *fail
	}
	return Result{Stage: stage, Kind: KindText, Status: StatusOK, Text: strings.TrimSpace(raw)}
}

func notApplicable(stage string, fields map[string]any) Result {
	return Result{Stage: stage, Kind: KindFields, Status: StatusNotApplicable, Fields: fields}
}

// Classify asks whether the issue is a feature request or a bug report.
// Anything else, including an oracle failure, is IssueUnknown.
func Classify(ctx context.Context, d Deps, in Input) (IssueType, Result) {
	raw, contract, fail := ask(ctx, d, StageClassify, in)
	if fail != nil {
		return IssueUnknown, Result{Stage: StageClassify, Kind: KindToken, Status: StatusDegraded, Text: string(IssueUnknown), Error: fail.Error}
	}
	tok := normalize.Token(raw, contract.Tokens...)
	if tok == "" {
		return IssueUnknown, Result{Stage: StageClassify, Kind: KindToken, Status: StatusDegraded, Text: string(IssueUnknown)}
	}
	return IssueType(tok), Result{Stage: StageClassify, Kind: KindToken, Status: StatusOK, Text: tok}
}

func Uniqueness(ctx context.Context, d Deps, in Input) Result {
	if in.Type == IssueBug {
		return notApplicable(StageUniqueness, map[string]any{
			"status": "not applicable",
			"reason": "Uniqueness is only checked for feature requests; this issue is a bug report.",
		})
	}
	return verdictStage(ctx, d, StageUniqueness, in)
}

func Alignment(ctx context.Context, d Deps, in Input) Result {
	if in.Type == IssueBug {
		return notApplicable(StageAlignment, map[string]any{
			"status": "not applicable",
			"reason": "Vision alignment is only checked for feature requests; this issue is a bug report.",
		})
	}
	return verdictStage(ctx, d, StageAlignment, in)
}

// Scope proposes one or more PR plans. Every plan description ends with a
// back-reference to the issue.
func Scope(ctx context.Context, d Deps, in Input) Result {
	n := in.Ref.Number
	if in.Type == IssueBug {
		plans := []PRChoice{{Title: in.Issue.Title, Description: "Fix the reported bug."}}
		return notApplicable(StageScope, map[string]any{
			"status": "single-pr",
			"reason": "Bug reports are fixed in a single pull request.",
			"prs":    withBackReference(plans, n),
		})
	}
	r := fieldsStage(ctx, d, StageScope, in)
	if r.Failed() {
		return r
	}
	plans, ok := plansFrom(r.Fields["prs"])
	if !ok {
		raw := in.Issue.Body
		if s, isString := r.Fields["prs"].(string); isString && s != "" {
			raw = s
		}
		plans = []PRChoice{{Title: in.Issue.Title, Description: strings.TrimSpace(raw)}}
		r.Status = StatusDegraded
	}
	if _, has := r.Fields["reason"]; !has {
		r.Fields["reason"] = ""
	}
	r.Fields["prs"] = withBackReference(plans, n)
	return r
}

func backReference(n int) string {
	return fmt.Sprintf("(Addresses Issue #%d)", n)
}

func withBackReference(plans []PRChoice, n int) []PRChoice {
	ref := backReference(n)
	out := make([]PRChoice, 0, len(plans))
	for _, p := range plans {
		desc := strings.TrimSpace(p.Description)
		if !strings.HasSuffix(desc, ref) {
			if desc == "" {
				desc = ref
			} else {
				desc = desc + " " + ref
			}
		}
		out = append(out, PRChoice{Title: strings.TrimSpace(p.Title), Description: desc})
	}
	return out
}

func plansFrom(v any) ([]PRChoice, bool) {
	switch plans := v.(type) {
	case []PRChoice:
		return plans, len(plans) > 0
	case []any:
		out := make([]PRChoice, 0, len(plans))
		for _, item := range plans {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			title, _ := m["title"].(string)
			desc, _ := m["description"].(string)
			if strings.TrimSpace(title) == "" && strings.TrimSpace(desc) == "" {
				continue
			}
			out = append(out, PRChoice{Title: title, Description: desc})
		}
		return out, len(out) > 0
	}
	return nil, false
}

// ScopePlans returns the PR plans held by a scope result.
func ScopePlans(r Result) []PRChoice {
	plans, _ := plansFrom(r.Fields["prs"])
	return plans
}

func Digest(ctx context.Context, d Deps, in Input) Result {
	if strings.TrimSpace(in.Issue.Guidelines) == "" {
		in.Issue.Guidelines = noGuidelines
	}
	return fieldsStage(ctx, d, StageGuidelines, in)
}

// Checklist produces the six-heading contribution checklist.
func Checklist(ctx context.Context, d Deps, in Input) Result {
	raw, contract, fail := ask(ctx, d, StageChecklist, in)
	if fail != nil {
		return *fail
	}
	sections, err := normalize.Sections(raw, contract.Headings)
	if err != nil {
		return Result{Stage: StageChecklist, Status: StatusFailed, Error: err.Error()}
	}
	return Result{Stage: StageChecklist, Kind: KindSections, Status: StatusOK, Sections: sections}
}

func Steps(ctx context.Context, d Deps, in Input) Result {
	return listStage(ctx, d, StageSteps, in)
}

func Tests(ctx context.Context, d Deps, in Input) Result {
	return listStage(ctx, d, StageTests, in)
}

func Resolution(ctx context.Context, d Deps, in Input) Result {
	if in.Choice == nil {
		return planNotSelected(StageResolution)
	}
	return fieldsStage(ctx, d, StageResolution, in)
}

func Enforcement(ctx context.Context, d Deps, in Input) Result {
	if in.Choice == nil {
		return planNotSelected(StageEnforcement)
	}
	return fieldsStage(ctx, d, StageEnforcement, in)
}

func DescriptionClarity(ctx context.Context, d Deps, in Input) Result {
	if in.Choice == nil {
		return planNotSelected(StageDescription)
	}
	return textStage(ctx, d, StageDescription, in)
}

func TestPresence(ctx context.Context, d Deps, in Input) Result {
	if in.Choice == nil {
		return planNotSelected(StageTestPresence)
	}
	return textStage(ctx, d, StageTestPresence, in)
}

// Duplicates lists similar issues. A lookup error yields an empty list.
func Duplicates(ctx context.Context, finder DuplicateFinder, in Input, logger *slog.Logger) Result {
	dups, err := finder.FindDuplicates(ctx, in.Ref.Owner, in.Ref.Repo, in.Issue.Title)
	if err != nil {
		logger.Warn("duplicate search failed", "issue", in.Ref.String(), "error", err)
		return Result{Stage: StageDuplicates, Kind: KindRecords, Status: StatusDegraded, Records: []Duplicate{}}
	}
	return Result{Stage: StageDuplicates, Kind: KindRecords, Status: StatusOK, Records: dups}
}
