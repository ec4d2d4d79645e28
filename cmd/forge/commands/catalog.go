package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toolforge/toolforge/pkg/catalog"
)

func newCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate the component catalog",
	}

	cmd.AddCommand(newCatalogValidateCommand())
	cmd.AddCommand(newCatalogListCommand())

	return cmd
}

func newCatalogValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a catalog document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			path := env.cfg.CatalogPath
			if len(args) > 0 {
				path = args[0]
			}

			cat, profiles, err := catalog.LoadFile(path)
			if err != nil {
				return err
			}

			fmt.Printf("Catalog %s is valid: %d components, %d profiles\n", path, cat.Len(), len(profiles))
			return nil
		},
	}

	return cmd
}

func newCatalogListCommand() *cobra.Command {
	var categoryName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog components and profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			cat, profiles, err := env.loadCatalog()
			if err != nil {
				return err
			}

			var components []catalog.Component
			if categoryName != "" {
				components = cat.ByCategory(catalog.Category(categoryName))
			} else {
				selected, err := cat.Select(cat.IDs())
				if err != nil {
					return err
				}
				components = selected
			}

			if jsonOutput {
				return printJSON(struct {
					Components []catalog.Component `json:"components"`
					Profiles   []catalog.Profile   `json:"profiles,omitempty"`
				}{components, profiles})
			}

			for _, comp := range components {
				fmt.Printf("  %-30s %s\n", comp.ID, comp.Category)
			}
			if len(profiles) > 0 && categoryName == "" {
				fmt.Println("\nProfiles:")
				for _, p := range profiles {
					fmt.Printf("  %-20s %d components  %s\n", p.Name, len(p.Components), p.Description)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryName, "category", "", "only list components in this category")

	return cmd
}
