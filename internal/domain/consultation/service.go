package consultation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/platform/notification"
	"github.com/telecare/telecare/internal/resource"
)

type Service struct {
	res      *resource.Resource[*Consultation]
	notifier *notification.Notifier
}

func NewService(res *resource.Resource[*Consultation], notifier *notification.Notifier) *Service {
	return &Service{res: res, notifier: notifier}
}

func (s *Service) ListConsultationsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	q := resource.Query{}.
		Eq("patient_id", patientID.String()).
		OrderBy("scheduled_at", true).
		Page(limit, offset)
	return s.res.List(ctx, q, patientID.String())
}

func (s *Service) ListConsultations(ctx context.Context, q resource.Query) ([]*Consultation, int, error) {
	return s.res.List(ctx, q, "")
}

// GetConsultation returns nil with no error when the consultation does not
// exist.
func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.res.Get(ctx, id)
}

func (s *Service) CreateConsultation(ctx context.Context, con *Consultation) error {
	if con.PatientID == uuid.Nil {
		return resource.Validation("patient_id", "patient_id is required")
	}
	if con.ScheduledAt.IsZero() {
		return resource.Validation("scheduled_at", "scheduled_at is required")
	}
	if con.Status == "" {
		con.Status = StatusScheduled
	}
	if !ValidStatus(con.Status) {
		return resource.Validation("status", fmt.Sprintf("invalid status: %s", con.Status))
	}
	err := s.res.Create(ctx, con)
	return s.notifier.Outcome(ctx, s.res.Name(), "Consultation scheduled", "Could not schedule consultation", err)
}

func (s *Service) UpdateConsultation(ctx context.Context, id uuid.UUID, patch map[string]any) (*Consultation, error) {
	// Status changes go through UpdateStatus so transitions are enforced.
	delete(patch, "status")
	con, err := s.res.Update(ctx, id, patch)
	if err := s.notifier.Outcome(ctx, s.res.Name(), "Consultation updated", "Could not update consultation", err); err != nil {
		return nil, err
	}
	return con, nil
}

// UpdateStatus moves a consultation along its lifecycle. The status-only
// patch invalidates the same cache scopes as any other update.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus string) (*Consultation, error) {
	if !ValidStatus(newStatus) {
		return nil, resource.Validation("status", fmt.Sprintf("invalid status: %s", newStatus))
	}
	con, err := s.res.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if con == nil {
		return nil, resource.ErrNotFound
	}
	if !CanTransition(con.Status, newStatus) {
		return nil, resource.Validation("status", fmt.Sprintf("cannot transition from %s to %s", con.Status, newStatus))
	}

	updated, err := s.res.Update(ctx, id, map[string]any{"status": newStatus})
	if err := s.notifier.Outcome(ctx, s.res.Name(), "Consultation "+newStatus, "Could not update consultation status", err); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) DeleteConsultation(ctx context.Context, id uuid.UUID) error {
	_, err := s.res.Delete(ctx, id)
	return s.notifier.Outcome(ctx, s.res.Name(), "Consultation removed", "Could not remove consultation", err)
}
