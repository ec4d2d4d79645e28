package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toolforge/toolforge/pkg/catalog"
	"github.com/toolforge/toolforge/pkg/resolver"
	"github.com/toolforge/toolforge/pkg/resource"
)

func newPlanCommand() *cobra.Command {
	var profileName string

	cmd := &cobra.Command{
		Use:   "plan [component-id...]",
		Short: "Resolve components into an ordered installation plan",
		Long: `Resolve the requested components, pull in their dependencies, and print
the order they would be installed in. Nothing is installed.`,
		Example: `  # Plan a profile
  forge plan --profile ml-dev

  # Plan individual components
  forge plan language.python.3.11 tool.git`,
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

			combined := combinedRequirement(env, order)
			if jsonOutput {
				return printJSON(struct {
					Order       []catalog.Component  `json:"order"`
					Requirement resource.Requirement `json:"requirement"`
				}{order, combined})
			}

			fmt.Printf("Installation plan (%d components):\n\n", len(order))
			for i, comp := range order {
				optional := ""
				if comp.Optional {
					optional = " (optional)"
				}
				fmt.Printf("  %2d. %s%s\n      methods: %s\n",
					i+1, comp.ID, optional, strings.Join(comp.InstallMethods, ", "))
			}
			if combined.DownloadSizeGB > 0 {
				fmt.Printf("\nProjected download: %.1f GB\n", combined.DownloadSizeGB)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile to plan")

	return cmd
}

func combinedRequirement(env *environment, order []catalog.Component) resource.Requirement {
	reqs := env.requirementsFor(order)
	all := make([]resource.Requirement, 0, len(reqs))
	for _, req := range reqs {
		all = append(all, req)
	}
	return resource.Combine(all...)
}
