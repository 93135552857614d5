package cmd

import (
	"github.com/spf13/cobra"

	"github.com/civicgrid/grievd/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize grievd configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure grievd and writes the result to the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
