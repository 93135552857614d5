package sla

import (
	"testing"
	"time"

	"github.com/civicgrid/grievd/internal/classify"
)

func TestAdjustDays(t *testing.T) {
	tests := []struct {
		base    int
		urgency classify.Urgency
		want    int
	}{
		{8, classify.UrgencyCritical, 2},
		{8, classify.UrgencyHigh, 4},
		{8, classify.UrgencyMedium, 8},
		{8, classify.UrgencyLow, 12},
		{2, classify.UrgencyCritical, 1},  // floor(0.5) clamped to 1
		{2, classify.UrgencyHigh, 1},      // floor(1.0) = 1
		{3, classify.UrgencyLow, 5},       // ceil(4.5) = 5
		{1, classify.UrgencyCritical, 1},  // never zero
		{1, classify.UrgencyHigh, 1},
		{1, classify.UrgencyLow, 2},       // ceil(1.5) = 2
	}
	for _, tt := range tests {
		if got := AdjustDays(tt.base, tt.urgency); got != tt.want {
			t.Errorf("AdjustDays(%d, %s) = %d, want %d", tt.base, tt.urgency, got, tt.want)
		}
	}
}

func TestComputeDeadline(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	got := ComputeDeadline(2, classify.UrgencyCritical, now)
	want := now.AddDate(0, 0, 1)
	if !got.Equal(want) {
		t.Errorf("deadline = %v, want %v", got, want)
	}

	got = ComputeDeadline(7, classify.UrgencyMedium, now)
	want = now.AddDate(0, 0, 7)
	if !got.Equal(want) {
		t.Errorf("deadline = %v, want %v", got, want)
	}
}

func TestDeadlineMonotonicInUrgency(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for base := 1; base <= 30; base++ {
		critical := ComputeDeadline(base, classify.UrgencyCritical, now)
		high := ComputeDeadline(base, classify.UrgencyHigh, now)
		medium := ComputeDeadline(base, classify.UrgencyMedium, now)
		low := ComputeDeadline(base, classify.UrgencyLow, now)

		if critical.After(high) || high.After(medium) || medium.After(low) {
			t.Errorf("base %d: deadlines not monotonic: critical=%v high=%v medium=%v low=%v",
				base, critical, high, medium, low)
		}
	}
}

func TestDeadlineAlwaysFuture(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, u := range classify.Urgencies {
		if d := ComputeDeadline(1, u, now); !d.After(now) {
			t.Errorf("deadline for base=1 urgency=%s is not in the future: %v", u, d)
		}
	}
}
