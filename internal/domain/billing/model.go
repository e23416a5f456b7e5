package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/resource"
)

// Subscription statuses.
const (
	SubActive   = "active"
	SubPastDue  = "past_due"
	SubCanceled = "canceled"
)

var subStatuses = map[string]bool{
	SubActive:   true,
	SubPastDue:  true,
	SubCanceled: true,
}

// Invoice statuses and their allowed transitions.
const (
	InvDraft = "draft"
	InvOpen  = "open"
	InvPaid  = "paid"
	InvVoid  = "void"
)

var invTransitions = map[string][]string{
	InvDraft: {InvOpen, InvVoid},
	InvOpen:  {InvPaid, InvVoid},
	InvPaid:  {},
	InvVoid:  {},
}

// CanTransitionInvoice reports whether an invoice may move between statuses.
func CanTransitionInvoice(from, to string) bool {
	for _, allowed := range invTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidInvoiceStatus reports whether s is a known invoice status.
func ValidInvoiceStatus(s string) bool {
	_, ok := invTransitions[s]
	return ok
}

// Subscription maps to the subscription table.
type Subscription struct {
	resource.Meta
	PatientID        uuid.UUID `db:"patient_id" json:"patient_id"`
	Plan             string    `db:"plan" json:"plan" validate:"required"`
	Status           string    `db:"status" json:"status"`
	PriceCents       int       `db:"price_cents" json:"price_cents"`
	CurrentPeriodEnd time.Time `db:"current_period_end" json:"current_period_end"`
}

// ParentScope scopes cache invalidation to the subscription's patient.
func (s *Subscription) ParentScope() string { return s.PatientID.String() }

// Invoice maps to the invoice table. Amounts are integer cents.
type Invoice struct {
	resource.Meta
	SubscriptionID uuid.UUID  `db:"subscription_id" json:"subscription_id"`
	AmountCents    int        `db:"amount_cents" json:"amount_cents"`
	Status         string     `db:"status" json:"status"`
	DueDate        *time.Time `db:"due_date" json:"due_date,omitempty"`
	PaidAt         *time.Time `db:"paid_at" json:"paid_at,omitempty"`
}

// ParentScope scopes cache invalidation to the invoice's subscription.
func (i *Invoice) ParentScope() string { return i.SubscriptionID.String() }
