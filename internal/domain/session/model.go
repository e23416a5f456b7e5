package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/resource"
)

// Session statuses.
const (
	StatusScheduled = "scheduled"
	StatusActive    = "active"
	StatusEnded     = "ended"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{
	StatusScheduled: true,
	StatusActive:    true,
	StatusEnded:     true,
	StatusCancelled: true,
}

// Session maps to the telehealth_session table.
type Session struct {
	resource.Meta
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	ConsultationID *uuid.UUID `db:"consultation_id" json:"consultation_id,omitempty"`
	ScheduledAt    time.Time  `db:"scheduled_at" json:"scheduled_at"`
	StartedAt      *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt        *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	RoomURL        *string    `db:"room_url" json:"room_url,omitempty"`
	Status         string     `db:"status" json:"status"`
}

// ParentScope scopes cache invalidation to the session's patient.
func (s *Session) ParentScope() string { return s.PatientID.String() }

// Duration reports the session length once it has ended.
func (s *Session) Duration() (time.Duration, bool) {
	if s.StartedAt == nil || s.EndedAt == nil {
		return 0, false
	}
	return s.EndedAt.Sub(*s.StartedAt), true
}
