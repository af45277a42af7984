package guidebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dhakalaashish/pr-guidebook/internal/prompt"
	"golang.org/x/sync/errgroup"
)

// Event reports one finished stage.
type Event struct {
	Phase  string    `json:"phase"`
	Stage  string    `json:"stage"`
	Status Status    `json:"status"`
	Issue  IssueRef  `json:"issue"`
	At     time.Time `json:"at"`
}

type Observer interface {
	Observe(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// RunRecorder is implemented by stores that keep a history of phase runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, ref IssueRef, phase string, results Phase) error
}

type ImplementationOptions struct {
	Level  SuggestionLevel
	Choice *PRChoice
}

// Pipeline runs the guidebook phases for one issue at a time. It holds no
// per-issue state; everything is read from the Store.
type Pipeline struct {
	oracle      Oracle
	store       Store
	prompts     *prompt.Library
	promptsErr  error
	diffs       DiffFetcher
	duplicates  DuplicateFinder
	issues      IssueFetcher
	guidelines  GuidelineSource
	scrubber    Scrubber
	observer    Observer
	logger      *slog.Logger
	maxParallel int
	checklist   bool
	now         func() time.Time
}

type Option func(*Pipeline)

func WithDiffFetcher(f DiffFetcher) Option {
	return func(p *Pipeline) { p.diffs = f }
}

func WithDuplicateFinder(f DuplicateFinder) Option {
	return func(p *Pipeline) { p.duplicates = f }
}

func WithIssueFetcher(f IssueFetcher) Option {
	return func(p *Pipeline) { p.issues = f }
}

func WithGuidelineSource(s GuidelineSource) Option {
	return func(p *Pipeline) { p.guidelines = s }
}

func WithScrubber(s Scrubber) Option {
	return func(p *Pipeline) { p.scrubber = s }
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithPrompts(lib *prompt.Library) Option {
	return func(p *Pipeline) { p.prompts = lib }
}

// WithMaxParallel bounds concurrent stages within a wave. n <= 0 means no limit.
func WithMaxParallel(n int) Option {
	return func(p *Pipeline) { p.maxParallel = n }
}

// WithChecklist toggles the guidebook checklist stage in getting_started.
func WithChecklist(enabled bool) Option {
	return func(p *Pipeline) { p.checklist = enabled }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(oracle Oracle, store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		oracle:      oracle,
		store:       store,
		maxParallel: 4,
		checklist:   true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.prompts == nil {
		p.prompts, p.promptsErr = prompt.Default()
	}
	return p
}

func (p *Pipeline) deps() Deps {
	return Deps{Oracle: p.oracle, Prompts: p.prompts, Logger: p.logger}
}

// collector gathers stage results of one phase and reports each one.
type collector struct {
	p     *Pipeline
	phase string
	ref   IssueRef
	mu    sync.Mutex
	out   Phase
}

func (p *Pipeline) collect(phase string, ref IssueRef) *collector {
	return &collector{p: p, phase: phase, ref: ref, out: Phase{}}
}

func (c *collector) set(r Result) {
	c.mu.Lock()
	c.out[r.Stage] = r
	c.mu.Unlock()
	if r.Status == StatusFailed {
		c.p.logger.Warn("stage failed", "phase", c.phase, "stage", r.Stage, "issue", c.ref.String(), "error", r.Error)
	}
	if c.p.observer != nil {
		c.p.observer.Observe(Event{Phase: c.phase, Stage: r.Stage, Status: r.Status, Issue: c.ref, At: c.p.now()})
	}
}

func (p *Pipeline) group() *errgroup.Group {
	g := &errgroup.Group{}
	if p.maxParallel > 0 {
		g.SetLimit(p.maxParallel)
	}
	return g
}

func (p *Pipeline) load(ctx context.Context, ref IssueRef) (Input, error) {
	if p.promptsErr != nil {
		return Input{}, fmt.Errorf("load prompts: %w", p.promptsErr)
	}
	if err := ref.Validate(); err != nil {
		return Input{}, err
	}
	issue, err := p.store.GetIssue(ctx, ref)
	if err != nil {
		return Input{}, fmt.Errorf("issue context for %s: %w", ref, err)
	}
	return Input{Ref: ref, Issue: issue, Type: IssueUnknown, Level: DefaultSuggestionLevel}, nil
}

func (p *Pipeline) record(ctx context.Context, ref IssueRef, phase string, out Phase) {
	rec, ok := p.store.(RunRecorder)
	if !ok {
		return
	}
	if err := rec.RecordRun(ctx, ref, phase, out); err != nil {
		p.logger.Warn("failed to record run", "phase", phase, "issue", ref.String(), "error", err)
	}
}

// GettingStarted runs the pre-implementation analysis. Classification
// finishes before the stages that branch on the issue type start.
func (p *Pipeline) GettingStarted(ctx context.Context, ref IssueRef) (Phase, error) {
	in, err := p.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	d := p.deps()
	c := p.collect(PhaseGettingStarted, ref)

	var issueType IssueType
	g := p.group()
	if p.duplicates != nil {
		g.Go(func() error {
			c.set(Duplicates(ctx, p.duplicates, in, p.logger))
			return nil
		})
	}
	g.Go(func() error {
		t, r := Classify(ctx, d, in)
		issueType = t
		c.set(r)
		return nil
	})
	g.Go(func() error {
		c.set(Digest(ctx, d, in))
		return nil
	})
	if p.checklist {
		g.Go(func() error {
			c.set(Checklist(ctx, d, in))
			return nil
		})
	}
	_ = g.Wait()

	in.Type = issueType
	g = p.group()
	for _, stage := range []func(context.Context, Deps, Input) Result{Uniqueness, Alignment, Scope} {
		g.Go(func() error {
			c.set(stage(ctx, d, in))
			return nil
		})
	}
	_ = g.Wait()

	if scope, ok := c.out[StageScope]; ok && !scope.Failed() {
		if plans := ScopePlans(scope); len(plans) == 1 {
			if err := p.store.PutPRChoice(ctx, ref, plans[0]); err != nil {
				p.logger.Warn("failed to persist single plan", "issue", ref.String(), "error", err)
			}
		}
	}
	p.record(ctx, ref, PhaseGettingStarted, c.out)
	return c.out, nil
}

// Implementation generates the step and test plans. An explicit choice is
// persisted before any stage runs.
func (p *Pipeline) Implementation(ctx context.Context, ref IssueRef, opts ImplementationOptions) (Phase, error) {
	in, err := p.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	in.Level = opts.Level.Normalize()
	if opts.Choice != nil && !opts.Choice.IsZero() {
		if err := p.store.PutPRChoice(ctx, ref, *opts.Choice); err != nil {
			return nil, fmt.Errorf("save plan choice: %w", err)
		}
		choice := *opts.Choice
		in.Choice = &choice
	} else {
		choice, err := p.store.GetPRChoice(ctx, ref)
		switch {
		case err == nil:
			in.Choice = &choice
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("read plan choice: %w", err)
		}
	}

	d := p.deps()
	c := p.collect(PhaseImplementation, ref)
	g := p.group()
	g.Go(func() error {
		c.set(Steps(ctx, d, in))
		return nil
	})
	g.Go(func() error {
		c.set(Tests(ctx, d, in))
		return nil
	})
	_ = g.Wait()
	p.record(ctx, ref, PhaseImplementation, c.out)
	return c.out, nil
}

var reviewStages = []struct {
	name string
	run  func(context.Context, Deps, Input) Result
}{
	{StageResolution, Resolution},
	{StageEnforcement, Enforcement},
	{StageDescription, DescriptionClarity},
	{StageTestPresence, TestPresence},
}

// Review checks a submitted pull request against the chosen plan and the
// project's guidelines. Without a chosen plan no diff is fetched and no
// oracle call is made.
func (p *Pipeline) Review(ctx context.Context, ref IssueRef, prNumber int) (Phase, error) {
	in, err := p.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	c := p.collect(PhaseReview, ref)

	choice, err := p.store.GetPRChoice(ctx, ref)
	if errors.Is(err, ErrNotFound) {
		for _, s := range reviewStages {
			c.set(planNotSelected(s.name))
		}
		return c.out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plan choice: %w", err)
	}
	in.Choice = &choice

	if prNumber <= 0 {
		return nil, fmt.Errorf("pull request number must be positive")
	}
	if rec, ok := p.store.(PRRecorder); ok {
		if err := rec.SavePRNumber(ctx, ref, prNumber); err != nil {
			p.logger.Warn("failed to save pr number", "issue", ref.String(), "pr", prNumber, "error", err)
		}
	}
	if p.diffs == nil {
		return nil, fmt.Errorf("no diff source configured")
	}
	diff, err := p.diffs.PRDiff(ctx, ref.Owner, ref.Repo, prNumber)
	if err == nil && diff == "" {
		err = errors.New("empty diff")
	}
	if err != nil {
		for _, s := range reviewStages {
			c.set(failed(s.name, fmt.Errorf("fetch diff: %w", err)))
		}
		p.record(ctx, ref, PhaseReview, c.out)
		return c.out, nil
	}
	in.Diff = p.scrub(diff)

	d := p.deps()
	g := p.group()
	for _, s := range reviewStages {
		run := s.run
		g.Go(func() error {
			c.set(run(ctx, d, in))
			return nil
		})
	}
	_ = g.Wait()
	p.record(ctx, ref, PhaseReview, c.out)
	return c.out, nil
}

// RunChecklist regenerates only the guidebook checklist, regardless of the
// WithChecklist setting.
func (p *Pipeline) RunChecklist(ctx context.Context, ref IssueRef) (Result, error) {
	in, err := p.load(ctx, ref)
	if err != nil {
		return Result{}, err
	}
	c := p.collect(PhaseGettingStarted, ref)
	c.set(Checklist(ctx, p.deps(), in))
	return c.out[StageChecklist], nil
}

// Choose persists the contributor's plan selection.
func (p *Pipeline) Choose(ctx context.Context, ref IssueRef, choice PRChoice) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if choice.IsZero() {
		return fmt.Errorf("plan title or description is required")
	}
	if err := p.store.PutPRChoice(ctx, ref, choice); err != nil {
		return fmt.Errorf("save plan choice: %w", err)
	}
	return nil
}

func (p *Pipeline) scrub(text string) string {
	if p.scrubber == nil {
		return text
	}
	return p.scrubber.Scrub(text)
}
