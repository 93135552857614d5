package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/civicgrid/grievd/internal/audit"
	"github.com/civicgrid/grievd/internal/complaint"
	"github.com/civicgrid/grievd/internal/department"
	"github.com/civicgrid/grievd/internal/escalation"
	"github.com/civicgrid/grievd/internal/review"
	"github.com/civicgrid/grievd/internal/routing"
	"github.com/civicgrid/grievd/internal/server"
	"github.com/civicgrid/grievd/internal/sla"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the grievance API server and breach scanner",
	Long: `Starts the grievd HTTP API and the periodic SLA breach scanner in one
process. The scanner runs once shortly after start and then on the
configured interval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		s, err := openStack(logger)
		if err != nil {
			return err
		}
		defer s.close()

		port := s.cfg.Port
		if servePort != 0 {
			port = servePort
		}

		srv := server.New(server.Config{
			Port:     port,
			AllowAll: s.cfg.AllowAllOrigins,
		}, s.db, logger)

		r := srv.Router()
		department.RegisterRoutes(r, s.departments)
		routing.RegisterRoutes(r, s.rules, s.resolver)
		complaint.RegisterRoutes(r, s.service, s.classifier)
		review.RegisterRoutes(r, s.reviews, s.service)
		escalation.RegisterRoutes(r, s.escalations, s.engine)
		sla.RegisterRoutes(r, s.slaStore, time.Duration(s.cfg.ApproachingHours)*time.Hour)
		audit.RegisterRoutes(r, s.audits)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go s.engine.Run(ctx)

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "grievd v%s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", s.cfg.DatabasePath)
		fmt.Fprintf(os.Stderr, "  Provider: %s\n", s.cfg.Provider)
		fmt.Fprintf(os.Stderr, "  Scan interval: %dm\n", s.cfg.ScanIntervalMinutes)

		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
