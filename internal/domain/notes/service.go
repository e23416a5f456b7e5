package notes

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/platform/notification"
	"github.com/telecare/telecare/internal/resource"
)

type Service struct {
	res      *resource.Resource[*Note]
	validate *validator.Validate
	notifier *notification.Notifier
}

func NewService(res *resource.Resource[*Note], notifier *notification.Notifier) *Service {
	return &Service{
		res:      res,
		validate: validator.New(),
		notifier: notifier,
	}
}

// ListNotesByPatient returns a patient's notes, newest first. The cache key is
// scoped under the patient so writes elsewhere leave it untouched.
func (s *Service) ListNotesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Note, int, error) {
	q := resource.Query{}.
		Eq("patient_id", patientID.String()).
		OrderBy("created_at", true).
		Page(limit, offset)
	return s.res.List(ctx, q, patientID.String())
}

// GetNote returns nil with no error when the note does not exist.
func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*Note, error) {
	return s.res.Get(ctx, id)
}

// CreateNote validates before anything reaches the store: a note without a
// patient is unreachable from every listing and must be rejected up front.
func (s *Service) CreateNote(ctx context.Context, n *Note) error {
	if n.PatientID == uuid.Nil {
		return resource.Validation("patient_id", "patient_id is required")
	}
	if n.Status == "" {
		n.Status = "draft"
	}
	if !validStatuses[n.Status] {
		return resource.Validation("status", fmt.Sprintf("invalid status: %s", n.Status))
	}
	if err := s.validate.Struct(n); err != nil {
		return resource.Validation("note", err.Error())
	}
	err := s.res.Create(ctx, n)
	return s.notifier.Outcome(ctx, s.res.Name(), "Note saved", "Could not save note", err)
}

func (s *Service) UpdateNote(ctx context.Context, id uuid.UUID, patch map[string]any) (*Note, error) {
	if status, ok := patch["status"].(string); ok && !validStatuses[status] {
		return nil, resource.Validation("status", fmt.Sprintf("invalid status: %s", status))
	}
	n, err := s.res.Update(ctx, id, patch)
	if err := s.notifier.Outcome(ctx, s.res.Name(), "Note updated", "Could not update note", err); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) DeleteNote(ctx context.Context, id uuid.UUID) error {
	_, err := s.res.Delete(ctx, id)
	return s.notifier.Outcome(ctx, s.res.Name(), "Note deleted", "Could not delete note", err)
}
