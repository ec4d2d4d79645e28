package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toolforge/toolforge/pkg/hostinfo"
	"github.com/toolforge/toolforge/pkg/resolver"
	"github.com/toolforge/toolforge/pkg/resource"
)

func newCheckCommand() *cobra.Command {
	var profileName string

	cmd := &cobra.Command{
		Use:   "check [component-id...]",
		Short: "Check whether this host can install the requested components",
		Long: `Capture a host snapshot and validate it against the combined resource
requirements of the requested components and their dependencies. Every
failing dimension is reported, not just the first.`,
		Example: `  # Check a profile against this host
  forge check --profile ml-dev

  # Check specific components
  forge check framework.pytorch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			cat, profiles, err := env.loadCatalog()
			if err != nil {
				return err
			}
			ids, err := selectIDs(profiles, profileName, args)
			if err != nil {
				return err
			}
			requested, err := cat.Select(ids)
			if err != nil {
				return err
			}
			order, err := resolver.New(cat).Resolve(requested)
			if err != nil {
				return err
			}

			snap, err := hostinfo.New(env.cfg.InstallPath, env.logger).Collect(cmd.Context())
			if err != nil {
				return err
			}

			results := resource.ValidateCombined(env.requirementsFor(order), snap)
			agg := results[resource.AggregateKey]

			if jsonOutput {
				if err := printJSON(struct {
					Snapshot resource.Snapshot          `json:"snapshot"`
					Results  map[string]resource.Result `json:"results"`
				}{snap, results}); err != nil {
					return err
				}
			} else {
				printCheckReport(results, agg)
			}

			if !agg.SafeToInstall {
				return fmt.Errorf("host does not meet the combined requirements")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile to check")

	return cmd
}

func printCheckReport(results map[string]resource.Result, agg resource.Result) {
	if agg.SafeToInstall {
		fmt.Println("Host check passed.")
	} else {
		fmt.Println("Host check FAILED.")
	}
	for _, issue := range agg.Blocking {
		fmt.Printf("  blocking [%s]: %s\n", issue.Dimension, issue.Message)
	}
	for _, issue := range agg.Warnings {
		fmt.Printf("  warning  [%s]: %s\n", issue.Dimension, issue.Message)
	}
	for _, rec := range agg.Recommendations {
		fmt.Printf("  hint: %s\n", rec)
	}

	// Per-component blockers, so the user knows what to drop.
	for id, res := range results {
		if id == resource.AggregateKey || res.SafeToInstall {
			continue
		}
		for _, issue := range res.Blocking {
			fmt.Printf("  %s [%s]: %s\n", id, issue.Dimension, issue.Message)
		}
	}
}
