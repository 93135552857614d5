package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "grievd",
	Short: "Citizen grievance routing, SLA tracking, and escalation engine",
	Long: `grievd ingests unstructured citizen grievances, classifies them,
routes each to the responsible municipal department through a
specificity-ranked rule resolver, tracks an urgency-adjusted SLA
deadline per grievance, and automatically escalates breaches to an
overflow department.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "grievd.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger builds the process logger, honoring --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
