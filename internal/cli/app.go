package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dhakalaashish/pr-guidebook/internal/config"
	"github.com/dhakalaashish/pr-guidebook/internal/diff"
	"github.com/dhakalaashish/pr-guidebook/internal/github"
	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
	"github.com/dhakalaashish/pr-guidebook/internal/oracle"
	"github.com/dhakalaashish/pr-guidebook/internal/redact"
	"github.com/dhakalaashish/pr-guidebook/internal/store"
	"github.com/dhakalaashish/pr-guidebook/internal/web"
)

type appKey struct{}

// Source is everything the pipeline reads from GitHub.
type Source interface {
	guidebook.IssueFetcher
	guidebook.GuidelineSource
	guidebook.DuplicateFinder
	guidebook.DiffFetcher
}

type App struct {
	Config   config.Config
	Source   Source
	Oracle   guidebook.Oracle
	Store    *store.Store
	Pipeline *guidebook.Pipeline
	Hub      *web.Hub
	Logger   *slog.Logger
	Mock     bool
}

func withApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

func getApp(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appKey{}).(*App)
	if !ok || app == nil {
		return nil, fmt.Errorf("internal error: app not initialized")
	}
	return app, nil
}

func initApp(configPath string, logger *slog.Logger) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	diffOpts := diff.Options{
		Ignore:        cfg.Diff.Ignore,
		MaxFiles:      cfg.Diff.MaxFiles,
		MaxChunkChars: cfg.Diff.MaxChunkChars,
	}

	var src Source
	var orc guidebook.Oracle
	mock := os.Getenv("GUIDEBOOK_MOCK") == "1"
	if mock {
		fixtures := os.Getenv("GUIDEBOOK_MOCK_DIR")
		if fixtures == "" {
			fixtures = filepath.Join("testdata", "github")
		}
		src = github.NewFixtureSource(fixtures, diffOpts)
		oracleFixture := os.Getenv("GUIDEBOOK_ORACLE_FIXTURE")
		if oracleFixture == "" {
			oracleFixture = filepath.Join("testdata", "oracle")
		}
		orc = oracle.NewFakeOracle(oracleFixture)
	} else {
		gh, err := github.NewClient(cfg.GitHub, os.Getenv(cfg.GitHub.TokenEnv), diffOpts, logger)
		if err != nil {
			return nil, err
		}
		src = gh
		orc, err = oracle.FromConfig(cfg.Oracle)
		if err != nil {
			return nil, err
		}
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	hub := web.NewHub(logger)
	observer := guidebook.ObserverFunc(func(e guidebook.Event) {
		logger.Debug("stage finished", "phase", e.Phase, "stage", e.Stage, "status", e.Status, "issue", e.Issue.String())
		hub.Observe(e)
	})
	pipeline := guidebook.New(orc, st,
		guidebook.WithIssueFetcher(src),
		guidebook.WithGuidelineSource(src),
		guidebook.WithDuplicateFinder(src),
		guidebook.WithDiffFetcher(src),
		guidebook.WithScrubber(redact.New(cfg.Redaction.Enabled)),
		guidebook.WithObserver(observer),
		guidebook.WithLogger(logger),
		guidebook.WithMaxParallel(cfg.Pipeline.MaxParallel),
		guidebook.WithChecklist(cfg.Pipeline.Checklist),
	)

	return &App{
		Config:   cfg,
		Source:   src,
		Oracle:   orc,
		Store:    st,
		Pipeline: pipeline,
		Hub:      hub,
		Logger:   logger,
		Mock:     mock,
	}, nil
}

func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// parseIssue accepts an issue URL or OWNER/REPO#N.
func parseIssue(arg string) (guidebook.IssueRef, error) {
	return github.ParseIssueURL(arg)
}
