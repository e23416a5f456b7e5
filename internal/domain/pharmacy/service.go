package pharmacy

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/platform/notification"
	"github.com/telecare/telecare/internal/resource"
)

type Service struct {
	res      *resource.Resource[*Pharmacy]
	validate *validator.Validate
	notifier *notification.Notifier
}

func NewService(res *resource.Resource[*Pharmacy], notifier *notification.Notifier) *Service {
	return &Service{
		res:      res,
		validate: validator.New(),
		notifier: notifier,
	}
}

func (s *Service) ListPharmacies(ctx context.Context, q resource.Query) ([]*Pharmacy, int, error) {
	return s.res.List(ctx, q, "")
}

// GetPharmacy returns nil with no error when the pharmacy does not exist.
// A missing directory entry is an ordinary answer, not a failure: no error
// surfaces and no notification fires.
func (s *Service) GetPharmacy(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	return s.res.Get(ctx, id)
}

func (s *Service) CreatePharmacy(ctx context.Context, p *Pharmacy) error {
	if err := s.validate.Struct(p); err != nil {
		return resource.Validation("pharmacy", err.Error())
	}
	p.Active = true
	err := s.res.Create(ctx, p)
	return s.notifier.Outcome(ctx, s.res.Name(), "Pharmacy added", "Could not add pharmacy", err)
}

func (s *Service) UpdatePharmacy(ctx context.Context, id uuid.UUID, patch map[string]any) (*Pharmacy, error) {
	p, err := s.res.Update(ctx, id, patch)
	if err := s.notifier.Outcome(ctx, s.res.Name(), "Pharmacy updated", "Could not update pharmacy", err); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePharmacy(ctx context.Context, id uuid.UUID) error {
	_, err := s.res.Delete(ctx, id)
	return s.notifier.Outcome(ctx, s.res.Name(), "Pharmacy removed", "Could not remove pharmacy", err)
}
