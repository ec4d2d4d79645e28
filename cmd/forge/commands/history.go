package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/toolforge/toolforge/pkg/history"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past installation runs",
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())

	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			store, err := history.NewStore(env.cfg.History)
			if err != nil {
				return err
			}
			if err := store.Open(cmd.Context()); err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}
			for _, run := range runs {
				profile := run.Profile
				if profile == "" {
					profile = "-"
				}
				fmt.Printf("%s  %-10s  profile=%-15s  %d/%d ok  %s\n",
					run.ID, run.Status, profile, run.Succeeded+run.Skipped, run.Total,
					run.StartedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's component outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			store, err := history.NewStore(env.cfg.History)
			if err != nil {
				return err
			}
			if err := store.Open(cmd.Context()); err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			records, err := store.ListComponents(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(struct {
					Run        *history.Run               `json:"run"`
					Components []*history.ComponentRecord `json:"components"`
				}{run, records})
			}

			fmt.Printf("Run %s (%s), started %s\n\n", run.ID, run.Status, run.StartedAt.Format(time.RFC3339))
			for _, rec := range records {
				line := fmt.Sprintf("  %-30s %s", rec.ComponentID, rec.Status)
				if rec.Method != "" {
					line += " via " + rec.Method
				}
				if rec.Version != "" {
					line += " (" + rec.Version + ")"
				}
				fmt.Println(line)
				if rec.ErrorMessage != "" {
					fmt.Printf("      error: %s\n", rec.ErrorMessage)
				}
			}
			return nil
		},
	}

	return cmd
}
