package escalation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/civicgrid/grievd/internal/audit"
	"github.com/civicgrid/grievd/internal/complaint"
	"github.com/civicgrid/grievd/internal/db"
	"github.com/civicgrid/grievd/internal/department"
	"github.com/civicgrid/grievd/internal/explain"
	"github.com/civicgrid/grievd/internal/sla"
)

// ErrAlreadyEscalated guards idempotency: a complaint already in the
// escalated state is rejected without mutating anything.
var ErrAlreadyEscalated = errors.New("complaint already escalated")

// ErrScanInProgress means a scan tick fired while the previous scan was
// still running; the new tick is skipped, never queued.
var ErrScanInProgress = errors.New("breach scan already in progress")

// errOvertaken means a concurrent transaction moved the complaint out
// of the breached set between selection and the escalation write.
var errOvertaken = errors.New("complaint state changed concurrently")

// DefaultScanInterval is the reference policy for how often the breach
// scan runs.
const DefaultScanInterval = 15 * time.Minute

// startupDelay gives the process a moment to finish wiring before the
// first scan.
const startupDelay = 10 * time.Second

// Engine is the breach scanner and escalator. It periodically finds
// complaints past their deadline and still open, and drives each
// through the escalation transition exactly once per breach. The
// engine is self-excluding: overlapping scans are skipped, not queued.
type Engine struct {
	db          *db.DB
	complaints  *complaint.Store
	departments *department.Store
	escalations *Store
	slaStore    *sla.Store
	audits      *audit.Store
	explainer   *explain.Explainer

	overflowDept string
	interval     time.Duration
	logger       *slog.Logger

	running atomic.Bool

	mu        sync.Mutex
	lastStats *ScanStats
}

// NewEngine wires the breach scanner. overflowDept names the department
// that receives escalated complaints; a zero interval selects
// DefaultScanInterval.
func NewEngine(database *db.DB, complaints *complaint.Store, departments *department.Store, escalations *Store, slaStore *sla.Store, audits *audit.Store, explainer *explain.Explainer, overflowDept string, interval time.Duration, logger *slog.Logger) *Engine {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:           database,
		complaints:   complaints,
		departments:  departments,
		escalations:  escalations,
		slaStore:     slaStore,
		audits:       audits,
		explainer:    explainer,
		overflowDept: overflowDept,
		interval:     interval,
		logger:       logger,
	}
}

// IsRunning reports whether a scan is currently executing.
func (e *Engine) IsRunning() bool { return e.running.Load() }

// LastRunStats returns the outcome of the most recent completed scan,
// or nil if none has run yet.
func (e *Engine) LastRunStats() *ScanStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastStats
}

// Run executes the scan on a fixed interval until the context is
// cancelled, with one initial scan shortly after start.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("breach scanner started", "interval", e.interval)

	select {
	case <-time.After(startupDelay):
		e.runScan(ctx)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.runScan(ctx)
		case <-ctx.Done():
			e.logger.Info("breach scanner stopped")
			return
		}
	}
}

func (e *Engine) runScan(ctx context.Context) {
	stats, err := e.Scan(ctx, time.Now().UTC())
	if err != nil {
		if !errors.Is(err, ErrScanInProgress) {
			e.logger.Error("breach scan failed", "error", err)
		}
		return
	}
	if stats.Examined > 0 {
		e.logger.Info("breach scan finished",
			"examined", stats.Examined, "escalated", stats.Escalated,
			"failed", stats.Failed, "skipped", stats.Skipped,
			"duration", stats.Duration)
	}
}

// Scan finds every open complaint past its deadline at the given
// instant and escalates each, oldest deadline first. Per-complaint
// failures are logged and skipped; they never abort the rest of the
// batch. Scan refuses to overlap itself.
func (e *Engine) Scan(ctx context.Context, now time.Time) (*ScanStats, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer e.running.Store(false)

	start := time.Now()
	stats := &ScanStats{StartedAt: now}

	breached, err := e.slaStore.Breached(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("selecting breached complaints: %w", err)
	}
	stats.Examined = len(breached)

	for _, b := range breached {
		_, err := e.escalate(ctx, b.ComplaintID, "SLA deadline breached", now, true)
		switch {
		case err == nil:
			stats.Escalated++
		case errors.Is(err, errOvertaken) || errors.Is(err, ErrAlreadyEscalated):
			stats.Skipped++
		default:
			stats.Failed++
			e.logger.Error("escalation failed", "complaint", b.ComplaintID, "error", err)
		}
	}

	stats.Duration = time.Since(start)
	e.mu.Lock()
	e.lastStats = stats
	e.mu.Unlock()
	return stats, nil
}

// TriggerEscalation escalates one complaint outside the scheduled scan.
// It reuses the same atomic transition but does not require the
// deadline to have passed. A complaint already escalated is rejected
// with ErrAlreadyEscalated; nothing is written.
func (e *Engine) TriggerEscalation(ctx context.Context, complaintID, reason string) (*Escalation, error) {
	if reason == "" {
		reason = "manually escalated by administrator"
	}
	return e.escalate(ctx, complaintID, reason, time.Now().UTC(), false)
}

// escalate drives one complaint through the escalation transition. The
// justification is generated before the transaction so no external call
// happens inside it; the complaint is re-read inside the transaction
// and abandoned if a concurrent writer got there first.
func (e *Engine) escalate(ctx context.Context, complaintID, reason string, now time.Time, requireBreach bool) (*Escalation, error) {
	cur, err := e.complaints.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("complaint %s not found", complaintID)
	}
	if cur.Status == complaint.StatusEscalated {
		return nil, ErrAlreadyEscalated
	}
	if cur.Status.Terminal() {
		return nil, fmt.Errorf("complaint %s is %s and cannot be escalated", complaintID, cur.Status)
	}

	target, fromName, err := e.resolveTarget(ctx, cur.DepartmentID)
	if err != nil {
		return nil, err
	}

	justification := e.explainer.EscalationJustification(ctx,
		cur.Text, cur.Category, fromName, target.Name, cur.SLADeadline, now)

	rec := &Escalation{
		ComplaintID:   complaintID,
		Reason:        reason,
		EscalatedFrom: cur.DepartmentID,
		EscalatedTo:   target.ID,
		Justification: justification,
	}

	err = e.db.WithTx(ctx, func(tx *sql.Tx) error {
		fresh, err := e.complaints.GetTx(ctx, tx, complaintID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return fmt.Errorf("complaint %s not found", complaintID)
		}
		if fresh.Status == complaint.StatusEscalated {
			return ErrAlreadyEscalated
		}
		if fresh.Status.Terminal() {
			return errOvertaken
		}
		if requireBreach && !fresh.SLADeadline.Before(now) {
			return errOvertaken
		}

		if err := e.escalations.InsertTx(ctx, tx, rec); err != nil {
			return err
		}
		if err := e.complaints.ReassignTx(ctx, tx, complaintID,
			fresh.Category, fresh.Urgency, target.ID,
			complaint.StatusEscalated, fresh.AssignedBy,
			fresh.SLADeadline, now); err != nil {
			return err
		}

		return e.audits.Log(ctx, tx, audit.Record{
			EntityType: audit.EntityComplaint,
			EntityID:   complaintID,
			Action:     audit.ActionEscalated,
			OldValue: audit.Snapshot(map[string]any{
				"status": fresh.Status, "department_id": fresh.DepartmentID,
			}),
			NewValue: audit.Snapshot(map[string]any{
				"status": complaint.StatusEscalated, "department_id": target.ID,
			}),
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// resolveTarget picks the escalation target: the configured overflow
// department, or, when that is missing or inactive, the oldest active
// department other than the complaint's current one.
func (e *Engine) resolveTarget(ctx context.Context, currentDeptID string) (*department.Department, string, error) {
	fromName := currentDeptID
	if from, err := e.departments.GetByID(ctx, currentDeptID); err == nil && from != nil {
		fromName = from.Name
	}

	target, err := e.departments.GetActiveByName(ctx, e.db, e.overflowDept)
	if err != nil {
		return nil, "", err
	}
	if target == nil {
		target, err = e.departments.AnyActive(ctx, e.db, currentDeptID)
		if err != nil {
			return nil, "", err
		}
	}
	if target == nil {
		return nil, "", fmt.Errorf("no active department available as escalation target")
	}
	return target, fromName, nil
}
