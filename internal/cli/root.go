package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/dhakalaashish/pr-guidebook/internal/logging"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var configPath string
	var logLevel string
	var debug bool

	root := &cobra.Command{
		Use:           "guidebook",
		Short:         "Contribution guidebook for GitHub issues",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.ParseLevel(logLevel)
			if debug {
				level = slog.LevelDebug
			}
			app, err := initApp(configPath, logging.New(os.Stderr, level))
			if err != nil {
				return err
			}
			cmd.SetContext(withApp(context.Background(), app))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return nil
			}
			return app.Close()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Override config path")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug|info|warn|error")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Shorthand for --log-level debug")

	root.AddCommand(NewFetchCmd())
	root.AddCommand(NewStartCmd())
	root.AddCommand(NewChooseCmd())
	root.AddCommand(NewImplementCmd())
	root.AddCommand(NewReviewCmd())
	root.AddCommand(NewChecklistCmd())
	root.AddCommand(NewHistoryCmd())
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewDoctorCmd())
	root.AddCommand(NewConfigCmd())

	return root
}
