package consultation

import (
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/resource"
)

// Consultation statuses and their allowed transitions.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var transitions = map[string][]string{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether a consultation may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known consultation status.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// Consultation maps to the consultation table.
type Consultation struct {
	resource.Meta
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	ProviderName *string   `db:"provider_name" json:"provider_name,omitempty"`
	Reason       *string   `db:"reason" json:"reason,omitempty"`
	ScheduledAt  time.Time `db:"scheduled_at" json:"scheduled_at"`
	Status       string    `db:"status" json:"status"`
}

// ParentScope scopes cache invalidation to the consultation's patient.
func (c *Consultation) ParentScope() string { return c.PatientID.String() }

// ProviderDisplay renders the provider with the standard fallback.
func (c *Consultation) ProviderDisplay() string {
	return resource.Display(c.ProviderName, resource.FallbackUnknown)
}
