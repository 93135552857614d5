package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one SLA breach scan and exit",
	Long: `Finds every open complaint past its deadline, escalates each to the
overflow department, and prints what happened. The same scan the serve
command runs periodically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStack(newLogger())
		if err != nil {
			return err
		}
		defer s.close()

		stats, err := s.engine.Scan(cmd.Context(), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("running breach scan: %w", err)
		}

		fmt.Printf("Examined:  %d\n", stats.Examined)
		fmt.Printf("Escalated: %d\n", stats.Escalated)
		fmt.Printf("Skipped:   %d\n", stats.Skipped)
		fmt.Printf("Failed:    %d\n", stats.Failed)
		fmt.Printf("Duration:  %s\n", stats.Duration)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
