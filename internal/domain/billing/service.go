package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/platform/notification"
	"github.com/telecare/telecare/internal/resource"
)

// Service covers subscriptions and the invoices raised against them.
// All amounts are integer cents.
type Service struct {
	subs     *resource.Resource[*Subscription]
	invoices *resource.Resource[*Invoice]
	validate *validator.Validate
	notifier *notification.Notifier
	now      func() time.Time
}

func NewService(subs *resource.Resource[*Subscription], invoices *resource.Resource[*Invoice], notifier *notification.Notifier) *Service {
	return &Service{
		subs:     subs,
		invoices: invoices,
		validate: validator.New(),
		notifier: notifier,
		now:      time.Now,
	}
}

// ---------------------------------------------------------------------------
// Subscriptions
// ---------------------------------------------------------------------------

func (s *Service) ListSubscriptionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Subscription, int, error) {
	q := resource.Query{}.
		Eq("patient_id", patientID.String()).
		OrderBy("created_at", true).
		Page(limit, offset)
	return s.subs.List(ctx, q, patientID.String())
}

func (s *Service) ListSubscriptions(ctx context.Context, q resource.Query) ([]*Subscription, int, error) {
	return s.subs.List(ctx, q, "")
}

// GetSubscription returns nil with no error when the subscription does not
// exist.
func (s *Service) GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return s.subs.Get(ctx, id)
}

func (s *Service) CreateSubscription(ctx context.Context, sub *Subscription) error {
	if sub.PatientID == uuid.Nil {
		return resource.Validation("patient_id", "patient_id is required")
	}
	if sub.PriceCents < 0 {
		return resource.Validation("price_cents", "price_cents must not be negative")
	}
	if sub.Status == "" {
		sub.Status = SubActive
	}
	if !subStatuses[sub.Status] {
		return resource.Validation("status", fmt.Sprintf("invalid status: %s", sub.Status))
	}
	if err := s.validate.Struct(sub); err != nil {
		return resource.Validation("subscription", err.Error())
	}
	err := s.subs.Create(ctx, sub)
	return s.notifier.Outcome(ctx, s.subs.Name(), "Subscription created", "Could not create subscription", err)
}

func (s *Service) UpdateSubscription(ctx context.Context, id uuid.UUID, patch map[string]any) (*Subscription, error) {
	if status, ok := patch["status"].(string); ok && !subStatuses[status] {
		return nil, resource.Validation("status", fmt.Sprintf("invalid status: %s", status))
	}
	sub, err := s.subs.Update(ctx, id, patch)
	if err := s.notifier.Outcome(ctx, s.subs.Name(), "Subscription updated", "Could not update subscription", err); err != nil {
		return nil, err
	}
	return sub, nil
}

// CancelSubscription marks the subscription canceled. Canceling twice is a
// validation error; past invoices are left untouched.
func (s *Service) CancelSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	sub, err := s.subs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, resource.ErrNotFound
	}
	if sub.Status == SubCanceled {
		return nil, resource.Validation("status", "subscription is already canceled")
	}
	updated, err := s.subs.Update(ctx, id, map[string]any{"status": SubCanceled})
	if err := s.notifier.Outcome(ctx, s.subs.Name(), "Subscription canceled", "Could not cancel subscription", err); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	_, err := s.subs.Delete(ctx, id)
	return s.notifier.Outcome(ctx, s.subs.Name(), "Subscription deleted", "Could not delete subscription", err)
}

// ---------------------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------------------

// ListInvoices returns a subscription's invoices, scoped under the
// subscription.
func (s *Service) ListInvoices(ctx context.Context, subscriptionID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	q := resource.Query{}.
		Eq("subscription_id", subscriptionID.String()).
		OrderBy("created_at", true).
		Page(limit, offset)
	return s.invoices.List(ctx, q, subscriptionID.String())
}

// GetInvoice returns nil with no error when the invoice does not exist.
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.invoices.Get(ctx, id)
}

// CreateInvoice raises an invoice against an existing subscription.
func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if inv.SubscriptionID == uuid.Nil {
		return resource.Validation("subscription_id", "subscription_id is required")
	}
	if inv.AmountCents <= 0 {
		return resource.Validation("amount_cents", "amount_cents must be positive")
	}
	sub, err := s.subs.Get(ctx, inv.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		return resource.Validation("subscription_id", "subscription does not exist")
	}
	if inv.Status == "" {
		inv.Status = InvDraft
	}
	if !ValidInvoiceStatus(inv.Status) {
		return resource.Validation("status", fmt.Sprintf("invalid status: %s", inv.Status))
	}
	err = s.invoices.Create(ctx, inv)
	return s.notifier.Outcome(ctx, s.invoices.Name(), "Invoice created", "Could not create invoice", err)
}

// UpdateInvoiceStatus moves an invoice along its lifecycle. Marking an
// invoice paid stamps paid_at.
func (s *Service) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, newStatus string) (*Invoice, error) {
	if !ValidInvoiceStatus(newStatus) {
		return nil, resource.Validation("status", fmt.Sprintf("invalid status: %s", newStatus))
	}
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, resource.ErrNotFound
	}
	if !CanTransitionInvoice(inv.Status, newStatus) {
		return nil, resource.Validation("status", fmt.Sprintf("cannot transition from %s to %s", inv.Status, newStatus))
	}

	patch := map[string]any{"status": newStatus}
	if newStatus == InvPaid {
		patch["paid_at"] = s.now().UTC()
	}
	updated, err := s.invoices.Update(ctx, id, patch)
	if err := s.notifier.Outcome(ctx, s.invoices.Name(), "Invoice "+newStatus, "Could not update invoice status", err); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) UpdateInvoice(ctx context.Context, id uuid.UUID, patch map[string]any) (*Invoice, error) {
	delete(patch, "status")
	delete(patch, "paid_at")
	inv, err := s.invoices.Update(ctx, id, patch)
	if err := s.notifier.Outcome(ctx, s.invoices.Name(), "Invoice updated", "Could not update invoice", err); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv == nil {
		return s.notifier.Outcome(ctx, s.invoices.Name(), "", "Could not delete invoice", resource.ErrNotFound)
	}
	if inv.Status == InvPaid {
		return resource.Validation("status", "paid invoices cannot be deleted")
	}
	_, err = s.invoices.Delete(ctx, id)
	return s.notifier.Outcome(ctx, s.invoices.Name(), "Invoice deleted", "Could not delete invoice", err)
}
