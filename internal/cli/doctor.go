package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
	"github.com/dhakalaashish/pr-guidebook/internal/oracle"
	"github.com/dhakalaashish/pr-guidebook/internal/prompt"
	"github.com/spf13/cobra"
)

func NewDoctorCmd() *cobra.Command {
	var skipOracle bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "guidebook doctor")
			fmt.Fprintf(out, "- store: ok (%s)\n", app.Config.Store.Path)

			lib, err := prompt.Default()
			if err != nil {
				return fmt.Errorf("prompt templates: %w", err)
			}
			fmt.Fprintf(out, "- prompts: ok (%d stages)\n", len(lib.Stages()))

			if app.Mock {
				fmt.Fprintln(out, "- github: mock fixtures")
			} else if os.Getenv(app.Config.GitHub.TokenEnv) == "" {
				fmt.Fprintf(out, "- github: %s not set, using anonymous access\n", app.Config.GitHub.TokenEnv)
			} else {
				fmt.Fprintln(out, "- github token: ok")
			}

			if skipOracle {
				fmt.Fprintln(out, "- oracle: skipped")
			} else {
				ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
				defer cancel()
				if err := checkOracle(ctx, app); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "- oracle: failed\n%v\n", err)
					return err
				}
				provider := app.Config.Oracle.Provider
				if app.Mock {
					provider = "mock fixtures"
				}
				fmt.Fprintf(out, "- oracle: ok (%s)\n", provider)
			}
			fmt.Fprintln(out, "doctor checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipOracle, "skip-oracle", false, "Do not send a test prompt")
	return cmd
}

func checkOracle(ctx context.Context, app *App) error {
	if !app.Mock && (app.Config.Oracle.Provider == "" || app.Config.Oracle.Provider == "claude") {
		return oracle.NewClaudeRunner(app.Config.Oracle).HealthCheck(ctx)
	}
	reply, err := app.Oracle.Generate(guidebook.WithStage(ctx, "doctor"), "Reply with the single word OK.")
	if err != nil {
		return err
	}
	if strings.TrimSpace(reply) == "" {
		return fmt.Errorf("oracle returned an empty reply")
	}
	return nil
}
