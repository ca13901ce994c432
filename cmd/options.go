package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	optionsFormat string
	optionsSource string
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List views and the parameter values each one accepts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if optionsFormat != "json" && optionsFormat != "yaml" {
			return eris.Errorf("options: unknown format %q (allowed: json, yaml)", optionsFormat)
		}
		h, err := initHandle(cmd.Context(), cfg, "view", optionsSource)
		if err != nil {
			return err
		}
		return writeValue(cmd.OutOrStdout(), optionsFormat, h.Options())
	},
}

func init() {
	optionsCmd.Flags().StringVar(&optionsFormat, "format", "yaml", "output format: json or yaml")
	optionsCmd.Flags().StringVar(&optionsSource, "source", "", "census source URI (default from config)")
	rootCmd.AddCommand(optionsCmd)
}
