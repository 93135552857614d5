// Package sla computes service-level deadlines and exposes read-only
// breach and performance projections over the complaint store.
package sla

import (
	"time"

	"github.com/civicgrid/grievd/internal/classify"
)

// AdjustDays scales a department's baseline SLA by urgency. Critical
// complaints get a quarter of the allowance, high half, medium the
// baseline, and low one and a half times. The result never drops below
// one day, so a deadline is always strictly in the future.
func AdjustDays(baseDays int, urgency classify.Urgency) int {
	var adjusted int
	switch urgency {
	case classify.UrgencyCritical:
		adjusted = baseDays / 4
	case classify.UrgencyHigh:
		adjusted = baseDays / 2
	case classify.UrgencyLow:
		// ceil(baseDays * 1.5) without floating point.
		adjusted = (baseDays*3 + 1) / 2
	default:
		adjusted = baseDays
	}
	if adjusted < 1 {
		adjusted = 1
	}
	return adjusted
}

// ComputeDeadline returns the absolute SLA deadline for a complaint
// created at now. Calendar days, not business days. Pure: now is
// injected so deadlines are reproducible in tests.
func ComputeDeadline(baseDays int, urgency classify.Urgency, now time.Time) time.Time {
	return now.AddDate(0, 0, AdjustDays(baseDays, urgency))
}
