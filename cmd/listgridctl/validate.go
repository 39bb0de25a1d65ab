package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/listgrid/internal/catalog"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Validate grid definitions",
		Long: `Validate every definition in the definitions directory, or only the
files given as arguments.`,
		Example: `  listgridctl validate
  listgridctl validate grids/open_accounts.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				defs := make([]catalog.Definition, 0, len(args))
				for _, path := range args {
					def, err := catalog.LoadFile(path)
					if err != nil {
						return err
					}
					defs = append(defs, def)
				}
				if _, err := catalog.New(defs...); err != nil {
					return err
				}
				for _, def := range defs {
					fmt.Fprintf(out, "ok  %s (%d columns)\n", def.Name, len(def.Columns))
				}
				return nil
			}
			dir, _ := cmd.Flags().GetString("dir")
			c, err := catalog.LoadDir(dir)
			if err != nil {
				return err
			}
			for _, name := range c.Names() {
				fmt.Fprintf(out, "ok  %s\n", name)
			}
			return nil
		},
	}
}
