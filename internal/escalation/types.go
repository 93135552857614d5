package escalation

import "time"

// Escalation records one forced reassignment of a breached complaint.
// Rows are append-only; a complaint escalated, reassigned, and breached
// again accumulates a second record.
type Escalation struct {
	ID            string    `json:"id"`
	ComplaintID   string    `json:"complaint_id"`
	Reason        string    `json:"reason"`
	EscalatedFrom string    `json:"escalated_from,omitempty"`
	EscalatedTo   string    `json:"escalated_to,omitempty"`
	Justification string    `json:"justification"`
	CreatedAt     time.Time `json:"created_at"`
}

// ScanStats summarizes one breach scan.
type ScanStats struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Examined  int           `json:"examined"`
	Escalated int           `json:"escalated"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
}
