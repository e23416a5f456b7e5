package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/platform/notification"
	"github.com/telecare/telecare/internal/resource"
)

// Service implements the telehealth session workflow: a session is
// scheduled against a patient, goes live, and is ended with its
// start and end times stamped server-side.
type Service struct {
	res      *resource.Resource[*Session]
	notifier *notification.Notifier
	now      func() time.Time
}

func NewService(res *resource.Resource[*Session], notifier *notification.Notifier) *Service {
	return &Service{res: res, notifier: notifier, now: time.Now}
}

func (s *Service) ListSessions(ctx context.Context, q resource.Query) ([]*Session, int, error) {
	return s.res.List(ctx, q, "")
}

func (s *Service) ListSessionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	q := resource.Query{}.
		Eq("patient_id", patientID.String()).
		OrderBy("scheduled_at", true).
		Page(limit, offset)
	return s.res.List(ctx, q, patientID.String())
}

// GetSession returns nil with no error when the session does not exist.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.res.Get(ctx, id)
}

func (s *Service) CreateSession(ctx context.Context, sess *Session) error {
	if sess.PatientID == uuid.Nil {
		return resource.Validation("patient_id", "patient_id is required")
	}
	if sess.ScheduledAt.IsZero() {
		return resource.Validation("scheduled_at", "scheduled_at is required")
	}
	if sess.Status == "" {
		sess.Status = StatusScheduled
	}
	if !validStatuses[sess.Status] {
		return resource.Validation("status", fmt.Sprintf("invalid status: %s", sess.Status))
	}
	err := s.res.Create(ctx, sess)
	return s.notifier.Outcome(ctx, s.res.Name(), "Session scheduled", "Could not schedule session", err)
}

// UpdateSession applies a general patch. Lifecycle fields move only
// through Start, End and Cancel.
func (s *Service) UpdateSession(ctx context.Context, id uuid.UUID, patch map[string]any) (*Session, error) {
	delete(patch, "status")
	delete(patch, "started_at")
	delete(patch, "ended_at")
	sess, err := s.res.Update(ctx, id, patch)
	if err := s.notifier.Outcome(ctx, s.res.Name(), "Session updated", "Could not update session", err); err != nil {
		return nil, err
	}
	return sess, nil
}

// Start moves a scheduled session to active and stamps started_at.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.advance(ctx, id, StatusScheduled, map[string]any{
		"status":     StatusActive,
		"started_at": s.now().UTC(),
	}, "Session started", "Could not start session")
}

// End moves an active session to ended and stamps ended_at.
func (s *Service) End(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.advance(ctx, id, StatusActive, map[string]any{
		"status":   StatusEnded,
		"ended_at": s.now().UTC(),
	}, "Session ended", "Could not end session")
}

// Cancel aborts a session that has not ended yet.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.res.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, resource.ErrNotFound
	}
	if sess.Status != StatusScheduled && sess.Status != StatusActive {
		return nil, resource.Validation("status", fmt.Sprintf("cannot cancel a session in status %s", sess.Status))
	}
	updated, err := s.res.Update(ctx, id, map[string]any{"status": StatusCancelled})
	if err := s.notifier.Outcome(ctx, s.res.Name(), "Session cancelled", "Could not cancel session", err); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) advance(ctx context.Context, id uuid.UUID, from string, patch map[string]any, okTitle, errTitle string) (*Session, error) {
	sess, err := s.res.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, resource.ErrNotFound
	}
	if sess.Status != from {
		return nil, resource.Validation("status", fmt.Sprintf("cannot transition from %s", sess.Status))
	}
	updated, err := s.res.Update(ctx, id, patch)
	if err := s.notifier.Outcome(ctx, s.res.Name(), okTitle, errTitle, err); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.res.Delete(ctx, id)
	return s.notifier.Outcome(ctx, s.res.Name(), "Session deleted", "Could not delete session", err)
}
