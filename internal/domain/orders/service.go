package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telecare/telecare/internal/platform/db"
	"github.com/telecare/telecare/internal/platform/notification"
	"github.com/telecare/telecare/internal/resource"
)

// TxRunner runs fn as one unit of work. The Postgres runner opens a
// transaction and places it in the context so both stores join it; tests
// substitute a pass-through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PgTxRunner returns the production runner backed by a pgx transaction.
func PgTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
}

type Service struct {
	orders   *resource.Resource[*Order]
	items    *resource.Resource[*Item]
	runTx    TxRunner
	notifier *notification.Notifier
}

func NewService(orders *resource.Resource[*Order], items *resource.Resource[*Item], runTx TxRunner, notifier *notification.Notifier) *Service {
	return &Service{orders: orders, items: items, runTx: runTx, notifier: notifier}
}

func (s *Service) ListOrdersByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	q := resource.Query{}.
		Eq("patient_id", patientID.String()).
		OrderBy("created_at", true).
		Page(limit, offset)
	return s.orders.List(ctx, q, patientID.String())
}

func (s *Service) ListOrders(ctx context.Context, q resource.Query) ([]*Order, int, error) {
	return s.orders.List(ctx, q, "")
}

// GetOrder returns nil with no error when the order does not exist.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// ListItems returns an order's line items, scoped under the order.
func (s *Service) ListItems(ctx context.Context, orderID uuid.UUID) ([]*Item, int, error) {
	q := resource.Query{}.
		Eq("order_id", orderID.String()).
		OrderBy("created_at", false)
	return s.items.List(ctx, q, orderID.String())
}

// CreateOrder writes the order and all of its line items in one unit of work:
// either everything lands or nothing does. Cache scopes are invalidated only
// after the work committed.
func (s *Service) CreateOrder(ctx context.Context, o *Order, items []*Item) error {
	if o.PatientID == uuid.Nil {
		return resource.Validation("patient_id", "patient_id is required")
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if !ValidStatus(o.Status) {
		return resource.Validation("status", fmt.Sprintf("invalid status: %s", o.Status))
	}
	for i, it := range items {
		if it.Description == "" {
			return resource.Validation("items", fmt.Sprintf("item %d: description is required", i))
		}
		if it.Quantity <= 0 {
			return resource.Validation("items", fmt.Sprintf("item %d: quantity must be positive", i))
		}
	}

	resource.StampNew(o)
	for _, it := range items {
		resource.StampNew(it)
		it.OrderID = o.ID
	}

	err := s.runTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Store().Insert(ctx, o); err != nil {
			return err
		}
		for _, it := range items {
			if err := s.items.Store().Insert(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.orders.InvalidateRecord(ctx, o)
		for _, it := range items {
			s.items.InvalidateRecord(ctx, it)
		}
	}
	return s.notifier.Outcome(ctx, s.orders.Name(), "Order placed", "Could not place order", err)
}

// UpdateStatus moves an order along its lifecycle. A status-only patch
// invalidates the order's detail key and list scopes like any other update.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus string) (*Order, error) {
	if !ValidStatus(newStatus) {
		return nil, resource.Validation("status", fmt.Sprintf("invalid status: %s", newStatus))
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, resource.ErrNotFound
	}
	if !CanTransition(o.Status, newStatus) {
		return nil, resource.Validation("status", fmt.Sprintf("cannot transition from %s to %s", o.Status, newStatus))
	}

	updated, err := s.orders.Update(ctx, id, map[string]any{"status": newStatus})
	if err := s.notifier.Outcome(ctx, s.orders.Name(), "Order "+newStatus, "Could not update order status", err); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) UpdateOrder(ctx context.Context, id uuid.UUID, patch map[string]any) (*Order, error) {
	delete(patch, "status")
	o, err := s.orders.Update(ctx, id, patch)
	if err := s.notifier.Outcome(ctx, s.orders.Name(), "Order updated", "Could not update order", err); err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteOrder removes the order and its items in one unit of work.
func (s *Service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return err
	}
	if o == nil {
		return s.notifier.Outcome(ctx, s.orders.Name(), "", "Could not delete order", resource.ErrNotFound)
	}

	items, _, err := s.ListItems(ctx, id)
	if err != nil {
		return err
	}
	err = s.runTx(ctx, func(ctx context.Context) error {
		for _, it := range items {
			if err := s.items.Store().Delete(ctx, it.ID); err != nil {
				return err
			}
		}
		return s.orders.Store().Delete(ctx, id)
	})
	if err == nil {
		s.orders.RemoveRecord(ctx, o)
		for _, it := range items {
			s.items.RemoveRecord(ctx, it)
		}
	}
	return s.notifier.Outcome(ctx, s.orders.Name(), "Order deleted", "Could not delete order", err)
}
