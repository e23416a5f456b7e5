package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/telecare/internal/platform/notification"
	"github.com/telecare/telecare/internal/platform/querycache"
	"github.com/telecare/telecare/internal/resource"
)

func newTestService() (*Service, *notification.MemorySink) {
	subStore := resource.NewMemStore[*Subscription]()
	invStore := resource.NewMemStore[*Invoice]()
	cache := querycache.New(querycache.NewMemoryStore(), time.Minute, zerolog.Nop())
	subs := resource.New(resource.Descriptor{Name: "subscriptions", Immutable: []string{"patient_id"}}, subStore, cache)
	invoices := resource.New(resource.Descriptor{Name: "invoices", Immutable: []string{"subscription_id"}}, invStore, cache)
	feed := notification.NewMemorySink(50)
	return NewService(subs, invoices, notification.NewNotifier(feed)), feed
}

func activeSubscription(t *testing.T, svc *Service) *Subscription {
	t.Helper()
	sub := &Subscription{
		PatientID:        uuid.New(),
		Plan:             "monthly-care",
		PriceCents:       4900,
		CurrentPeriodEnd: time.Now().AddDate(0, 1, 0).UTC(),
	}
	if err := svc.CreateSubscription(context.Background(), sub); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return sub
}

func openInvoice(t *testing.T, svc *Service, subID uuid.UUID) *Invoice {
	t.Helper()
	inv := &Invoice{SubscriptionID: subID, AmountCents: 4900, Status: InvOpen}
	if err := svc.CreateInvoice(context.Background(), inv); err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv
}

func TestCreateSubscription_Defaults(t *testing.T) {
	svc, _ := newTestService()
	sub := activeSubscription(t, svc)

	if sub.Status != SubActive {
		t.Errorf("expected default status active, got %s", sub.Status)
	}
	if sub.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
}

func TestCreateSubscription_RequiresPlan(t *testing.T) {
	svc, _ := newTestService()

	err := svc.CreateSubscription(context.Background(), &Subscription{PatientID: uuid.New()})
	if !resource.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelSubscription_Twice(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sub := activeSubscription(t, svc)

	canceled, err := svc.CancelSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != SubCanceled {
		t.Errorf("expected canceled, got %s", canceled.Status)
	}

	_, err = svc.CancelSubscription(ctx, sub.ID)
	if !resource.IsValidation(err) {
		t.Fatalf("expected validation error on double cancel, got %v", err)
	}
}

func TestCreateInvoice_RequiresExistingSubscription(t *testing.T) {
	svc, feed := newTestService()

	err := svc.CreateInvoice(context.Background(), &Invoice{SubscriptionID: uuid.New(), AmountCents: 100})
	if !resource.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(feed.Recent("", "", 10)) != 0 {
		t.Error("expected no notification for a rejected invoice")
	}
}

func TestCreateInvoice_RejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newTestService()
	sub := activeSubscription(t, svc)

	err := svc.CreateInvoice(context.Background(), &Invoice{SubscriptionID: sub.ID, AmountCents: 0})
	if !resource.IsValidation(err) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
}

func TestInvoiceTransitions(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{InvDraft, InvOpen, true},
		{InvDraft, InvVoid, true},
		{InvDraft, InvPaid, false},
		{InvOpen, InvPaid, true},
		{InvOpen, InvVoid, true},
		{InvPaid, InvVoid, false},
		{InvVoid, InvOpen, false},
	}
	for _, tt := range tests {
		if got := CanTransitionInvoice(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionInvoice(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestMarkInvoicePaid_StampsPaidAt(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	paidAt := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return paidAt }
	sub := activeSubscription(t, svc)
	inv := openInvoice(t, svc, sub.ID)

	paid, err := svc.UpdateInvoiceStatus(ctx, inv.ID, InvPaid)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != InvPaid {
		t.Errorf("expected paid, got %s", paid.Status)
	}
	if paid.PaidAt == nil || !paid.PaidAt.Equal(paidAt) {
		t.Errorf("expected paid_at %v, got %v", paidAt, paid.PaidAt)
	}
}

func TestUpdateInvoice_CannotTouchStatus(t *testing.T) {
	svc, _ := newTestService()
	sub := activeSubscription(t, svc)
	inv := openInvoice(t, svc, sub.ID)

	due := time.Now().AddDate(0, 0, 14).UTC().Truncate(time.Second)
	updated, err := svc.UpdateInvoice(context.Background(), inv.ID, map[string]any{
		"due_date": due,
		"status":   InvPaid,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != InvOpen {
		t.Errorf("expected status untouched by general patch, got %s", updated.Status)
	}
	if updated.DueDate == nil || !updated.DueDate.Equal(due) {
		t.Error("expected due_date applied")
	}
}

func TestDeleteInvoice_PaidInvoiceRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sub := activeSubscription(t, svc)
	inv := openInvoice(t, svc, sub.ID)

	if _, err := svc.UpdateInvoiceStatus(ctx, inv.ID, InvPaid); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	err := svc.DeleteInvoice(ctx, inv.ID)
	if !resource.IsValidation(err) {
		t.Fatalf("expected validation error deleting a paid invoice, got %v", err)
	}
}

func TestInvoicePaid_RefreshesSubscriptionList(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sub := activeSubscription(t, svc)
	inv := openInvoice(t, svc, sub.ID)

	// Prime the subscription's invoice list cache.
	listed, _, err := svc.ListInvoices(ctx, sub.ID, 10, 0)
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected 1 invoice, got %d (%v)", len(listed), err)
	}

	if _, err := svc.UpdateInvoiceStatus(ctx, inv.ID, InvPaid); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	listed, _, err = svc.ListInvoices(ctx, sub.ID, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listed[0].Status != InvPaid {
		t.Errorf("expected list to reflect the paid invoice, got %s", listed[0].Status)
	}
}
