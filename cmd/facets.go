package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var facetsCmd = &cobra.Command{
	Use:   "facets",
	Short: "List the selectable filter values",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		province, _ := cmd.Flags().GetString("province")
		format, _ := cmd.Flags().GetString("format")

		env, err := initEnv(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		facets, err := env.Service.Facets(ctx, province)
		if err != nil {
			return eris.Wrap(err, "facets")
		}
		return writeStructured(os.Stdout, format, facets)
	},
}

func init() {
	facetsCmd.Flags().String("province", "", "scope district options to this province")
	facetsCmd.Flags().String("format", formatJSON, "output format: json or yaml")
	rootCmd.AddCommand(facetsCmd)
}
