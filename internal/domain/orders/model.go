package orders

import (
	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/resource"
)

// Order statuses and their allowed transitions.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var transitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// Order maps to the orders table.
type Order struct {
	resource.Meta
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Status    string    `db:"status" json:"status"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
}

// ParentScope scopes cache invalidation to the order's patient.
func (o *Order) ParentScope() string { return o.PatientID.String() }

// Item maps to the order_item table.
type Item struct {
	resource.Meta
	OrderID     uuid.UUID `db:"order_id" json:"order_id"`
	Description string    `db:"description" json:"description" validate:"required"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitCents   int       `db:"unit_cents" json:"unit_cents"`
}

// ParentScope scopes cache invalidation to the item's order.
func (i *Item) ParentScope() string { return i.OrderID.String() }

// TotalCents sums line totals over items.
func TotalCents(items []*Item) int {
	total := 0
	for _, it := range items {
		total += it.Quantity * it.UnitCents
	}
	return total
}
