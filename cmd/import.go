package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/civicgrid/grievd/internal/complaint"
	"github.com/civicgrid/grievd/internal/csvio"
	"github.com/civicgrid/grievd/internal/progress"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Batch-import complaints from a CSV file",
	Long: `Reads complaints from a CSV file with a "text" column (plus optional
"submitter_id" and "location" columns), classifies each, and runs it
through the normal intake path: routing, SLA deadline, and the manual
review gate.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStack(newLogger())
		if err != nil {
			return err
		}
		defer s.close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		rows, err := csvio.Parse(f)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}
		if len(rows) == 0 {
			fmt.Println("No complaints to import")
			return nil
		}

		reporter := progress.NewReporter()
		reporter.Start(len(rows))

		imported, failed := 0, 0
		ctx := cmd.Context()
		for i, row := range rows {
			c := s.classifier.Classify(ctx, row.Text)
			_, err := s.service.Create(ctx, complaint.CreateRequest{
				Text:        row.Text,
				SubmitterID: row.SubmitterID,
				Location:    row.Location,
			}, c)
			if err != nil {
				failed++
				s.logger.Error("import failed", "line", i+2, "error", err)
			} else {
				imported++
			}
			reporter.Update(i+1, fmt.Sprintf("%s (%s)", truncate(row.Text, 40), c.Category))
		}
		reporter.Finish()

		fmt.Printf("Imported %d complaints, %d failed\n", imported, failed)
		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func init() {
	rootCmd.AddCommand(importCmd)
}
