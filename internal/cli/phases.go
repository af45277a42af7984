package cli

import (
	"fmt"

	"github.com/dhakalaashish/pr-guidebook/internal/github"
	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
	"github.com/spf13/cobra"
)

func NewFetchCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "fetch <issue-url|OWNER/REPO#N>",
		Short: "Fetch an issue and its contribution guidelines",
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
			issue, err := app.Pipeline.Prepare(cmd.Context(), ref)
			if err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), ref)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prepared %s: %s\n", ref, issue.Title)
			if issue.RepoDescription != "" {
				fmt.Fprintf(out, "Repository: %s\n", issue.RepoDescription)
			}
			fmt.Fprintln(out, "Guidelines:")
			writeIndented(out, issue.Guidelines, "  ")
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "text|json")
	return cmd
}

func NewStartCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "start <issue>",
		Short: "Run the getting started analysis for a fetched issue",
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
			out, err := app.Pipeline.GettingStarted(cmd.Context(), ref)
			if err != nil {
				return err
			}
			return writePhase(cmd.OutOrStdout(), guidebook.PhaseGettingStarted, out, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "text|json")
	return cmd
}

func NewImplementCmd() *cobra.Command {
	var format string
	var level int
	var title string
	var description string

	cmd := &cobra.Command{
		Use:   "implement <issue>",
		Short: "Generate implementation steps and tests for the chosen plan",
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
			if !cmd.Flags().Changed("level") {
				level = app.Config.Pipeline.SuggestionLevel
			}
			opts := guidebook.ImplementationOptions{Level: guidebook.SuggestionLevel(level)}
			if choice := (guidebook.PRChoice{Title: title, Description: description}); !choice.IsZero() {
				opts.Choice = &choice
			}
			out, err := app.Pipeline.Implementation(cmd.Context(), ref, opts)
			if err != nil {
				return err
			}
			return writePhase(cmd.OutOrStdout(), guidebook.PhaseImplementation, out, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "text|json")
	cmd.Flags().IntVar(&level, "level", int(guidebook.DefaultSuggestionLevel), "Suggestion detail from 1 (hints) to 5 (full walkthrough)")
	cmd.Flags().StringVar(&title, "title", "", "Plan title; saved as the chosen plan")
	cmd.Flags().StringVar(&description, "description", "", "Plan description; saved as the chosen plan")
	return cmd
}

func NewReviewCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "review <issue> <pr-url|OWNER/REPO#N|N>",
		Short: "Review a pull request against the chosen plan and guidelines",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			ref, err := parseIssue(args[0])
			if err != nil {
				return err
			}
			number, err := github.PRNumberFor(ref, args[1])
			if err != nil {
				return err
			}
			out, err := app.Pipeline.Review(cmd.Context(), ref, number)
			if err != nil {
				return err
			}
			return writePhase(cmd.OutOrStdout(), guidebook.PhaseReview, out, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "text|json")
	return cmd
}

func NewChecklistCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "checklist <issue>",
		Short: "Regenerate the contribution checklist",
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
			r, err := app.Pipeline.RunChecklist(cmd.Context(), ref)
			if err != nil {
				return err
			}
			return writePhase(cmd.OutOrStdout(), guidebook.PhaseGettingStarted, guidebook.Phase{r.Stage: r}, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "text|json")
	return cmd
}
