package patient

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/platform/notification"
	"github.com/telecare/telecare/internal/resource"
)

type Service struct {
	res      *resource.Resource[*Patient]
	validate *validator.Validate
	notifier *notification.Notifier
}

func NewService(res *resource.Resource[*Patient], notifier *notification.Notifier) *Service {
	return &Service{
		res:      res,
		validate: validator.New(),
		notifier: notifier,
	}
}

func (s *Service) ListPatients(ctx context.Context, q resource.Query) ([]*Patient, int, error) {
	return s.res.List(ctx, q, "")
}

// GetPatient returns nil with no error when the patient does not exist.
func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.res.Get(ctx, id)
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.Status == "" {
		p.Status = "active"
	}
	if !validStatuses[p.Status] {
		return resource.Validation("status", fmt.Sprintf("invalid status: %s", p.Status))
	}
	if err := s.validate.Struct(p); err != nil {
		return resource.Validation("patient", err.Error())
	}
	err := s.res.Create(ctx, p)
	return s.notifier.Outcome(ctx, s.res.Name(), "Patient created", "Could not create patient", err)
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, patch map[string]any) (*Patient, error) {
	if status, ok := patch["status"].(string); ok && !validStatuses[status] {
		return nil, resource.Validation("status", fmt.Sprintf("invalid status: %s", status))
	}
	p, err := s.res.Update(ctx, id, patch)
	if err := s.notifier.Outcome(ctx, s.res.Name(), "Patient updated", "Could not update patient", err); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	_, err := s.res.Delete(ctx, id)
	return s.notifier.Outcome(ctx, s.res.Name(), "Patient deleted", "Could not delete patient", err)
}
