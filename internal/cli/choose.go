package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
	"github.com/spf13/cobra"
)

type chooseOptions struct {
	plan        int
	title       string
	description string
	yes         bool
}

func NewChooseCmd() *cobra.Command {
	var opts chooseOptions

	cmd := &cobra.Command{
		Use:   "choose <issue>",
		Short: "Pick the PR plan to implement",
		Long:  "Pick one of the PR plans proposed by the last `start` run, or give your own with --title and --description.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			ref, err := parseIssue(args[0])
			if err != nil {
				return err
			}
			return runChoose(cmd, app, ref, opts)
		},
	}

	cmd.Flags().IntVar(&opts.plan, "plan", 0, "Plan number from the last start run")
	cmd.Flags().StringVar(&opts.title, "title", "", "Custom plan title")
	cmd.Flags().StringVar(&opts.description, "description", "", "Custom plan description")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Replace an existing choice without asking")
	return cmd
}

func runChoose(cmd *cobra.Command, app *App, ref guidebook.IssueRef, opts chooseOptions) error {
	ctx := cmd.Context()
	choice := guidebook.PRChoice{Title: opts.title, Description: opts.description}
	if choice.IsZero() {
		plans, err := lastScopePlans(cmd, app, ref)
		if err != nil {
			return err
		}
		switch {
		case opts.plan > 0:
			if opts.plan > len(plans) {
				return fmt.Errorf("plan %d does not exist; the last start run proposed %d", opts.plan, len(plans))
			}
			choice = plans[opts.plan-1]
		case len(plans) == 1:
			choice = plans[0]
		case app.Config.TUI.Enabled:
			picked, ok, err := runChooseTUI(plans)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No plan chosen.")
				return nil
			}
			choice = picked
		default:
			for i, p := range plans {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, p.Title)
				writeIndented(cmd.OutOrStdout(), p.Description, "   ")
			}
			return fmt.Errorf("several plans were proposed; pass --plan N")
		}
	}

	current, err := app.Store.GetPRChoice(ctx, ref)
	switch {
	case err == nil && current != choice && !opts.yes:
		ok, err := confirm(cmd, fmt.Sprintf("Replace current plan %q? [y/N] ", current.Title))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Kept current plan.")
			return nil
		}
	case err != nil && !errors.Is(err, guidebook.ErrNotFound):
		return err
	}

	if err := app.Pipeline.Choose(ctx, ref, choice); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved plan: %s\n", choice.Title)
	return nil
}

// lastScopePlans reads the PR plans proposed by the newest getting_started run.
func lastScopePlans(cmd *cobra.Command, app *App, ref guidebook.IssueRef) ([]guidebook.PRChoice, error) {
	run, err := app.Store.LatestRun(cmd.Context(), ref, guidebook.PhaseGettingStarted)
	if errors.Is(err, guidebook.ErrNotFound) {
		return nil, fmt.Errorf("no plans for %s yet; run `guidebook start` first", ref)
	}
	if err != nil {
		return nil, err
	}
	return scopePlans(run.PayloadJSON)
}

func scopePlans(payload string) ([]guidebook.PRChoice, error) {
	var stages map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &stages); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	raw, ok := stages[guidebook.StageScope]
	if !ok {
		return nil, fmt.Errorf("the last start run has no scope result")
	}
	var scope struct {
		PRs   []guidebook.PRChoice `json:"prs"`
		Error string               `json:"error"`
	}
	if err := json.Unmarshal(raw, &scope); err != nil {
		return nil, fmt.Errorf("failed to decode scope result: %w", err)
	}
	if scope.Error != "" {
		return nil, fmt.Errorf("the last scope analysis failed: %s", scope.Error)
	}
	if len(scope.PRs) == 0 {
		return nil, fmt.Errorf("the last start run proposed no plans")
	}
	return scope.PRs, nil
}
