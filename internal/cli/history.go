package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func NewHistoryCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "history <issue>",
		Short: "List previous phase runs for an issue",
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
			runs, err := app.Store.ListRuns(cmd.Context(), ref, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				type runView struct {
					ID        string    `json:"id"`
					Phase     string    `json:"phase"`
					CreatedAt time.Time `json:"created_at"`
				}
				views := make([]runView, 0, len(runs))
				for _, r := range runs {
					views = append(views, runView{ID: r.ID, Phase: r.Phase, CreatedAt: r.CreatedAt})
				}
				return writeJSON(out, views)
			}
			if len(runs) == 0 {
				fmt.Fprintf(out, "No runs for %s.\n", ref)
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %-16s  %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Phase, r.ID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Max runs, 0 for all")
	cmd.Flags().StringVar(&format, "format", "text", "text|json")
	return cmd
}
