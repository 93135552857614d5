package department

import "time"

// Department is a municipal department that receives complaints. A
// department is never hard-deleted: deactivating it removes it from
// future routing and escalation targeting but keeps history intact.
type Department struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	SLADays      int       `json:"sla_days"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UpdateRequest carries optional field updates for a department.
// Nil fields keep their current value.
type UpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	SLADays      *int    `json:"sla_days,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}
