package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/civicgrid/grievd/internal/audit"
	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/complaint"
	"github.com/civicgrid/grievd/internal/config"
	"github.com/civicgrid/grievd/internal/db"
	"github.com/civicgrid/grievd/internal/department"
	"github.com/civicgrid/grievd/internal/escalation"
	"github.com/civicgrid/grievd/internal/explain"
	"github.com/civicgrid/grievd/internal/llm"
	"github.com/civicgrid/grievd/internal/review"
	"github.com/civicgrid/grievd/internal/routing"
	"github.com/civicgrid/grievd/internal/sla"
)

// stack holds one fully wired set of grievd components. Commands build
// it once and share it across the features they touch.
type stack struct {
	cfg    *config.Config
	db     *db.DB
	logger *slog.Logger

	departments *department.Store
	rules       *routing.Store
	resolver    *routing.Resolver
	complaints  *complaint.Store
	reviews     *review.Store
	audits      *audit.Store
	escalations *escalation.Store
	slaStore    *sla.Store

	classifier *classify.Classifier
	explainer  *explain.Explainer
	service    *complaint.Service
	engine     *escalation.Engine
}

// openStack loads configuration, opens the database, and wires every
// component.
func openStack(logger *slog.Logger) (*stack, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var provider llm.Provider
	if cfg.Provider != config.ProviderNone {
		provider, err = llm.NewProvider(string(cfg.Provider), cfg.Model)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
	}

	s := &stack{
		cfg:         cfg,
		db:          database,
		logger:      logger,
		departments: department.NewStore(database),
		rules:       routing.NewStore(database),
		complaints:  complaint.NewStore(database),
		reviews:     review.NewStore(database),
		audits:      audit.NewStore(database),
		escalations: escalation.NewStore(database),
		slaStore:    sla.NewStore(database),
		classifier:  classify.NewClassifier(provider, cfg.Model, logger),
		explainer:   explain.NewExplainer(provider, cfg.Model, logger),
	}
	s.resolver = routing.NewResolver(database, s.departments, cfg.DefaultDepartment)
	s.service = complaint.NewService(database, s.complaints, s.departments, s.resolver,
		s.reviews, s.audits, s.explainer, cfg.ReviewThreshold, logger)
	s.engine = escalation.NewEngine(database, s.complaints, s.departments, s.escalations,
		s.slaStore, s.audits, s.explainer, cfg.OverflowDepartment,
		time.Duration(cfg.ScanIntervalMinutes)*time.Minute, logger)

	return s, nil
}

func (s *stack) close() {
	s.db.Close()
}
