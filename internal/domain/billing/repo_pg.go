package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telecare/telecare/internal/platform/db"
	"github.com/telecare/telecare/internal/resource"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// ---------------------------------------------------------------------------
// Subscriptions
// ---------------------------------------------------------------------------

type subscriptionStore struct {
	pool *pgxpool.Pool
}

// NewSubscriptionStore creates the Postgres-backed store for subscriptions.
func NewSubscriptionStore(pool *pgxpool.Pool) resource.Store[*Subscription] {
	return &subscriptionStore{pool: pool}
}

const subCols = `id, patient_id, plan, status, price_cents, current_period_end, created_at, updated_at`

func (s *subscriptionStore) List(ctx context.Context, q resource.Query) ([]*Subscription, int, error) {
	dataSQL, dataArgs, countSQL, countArgs := resource.SelectSQL("subscription", subCols, q)

	var total int
	if err := conn(ctx, s.pool).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, s.pool).Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, sub)
	}
	return subs, total, rows.Err()
}

func (s *subscriptionStore) Get(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	sub, err := scanSubscription(conn(ctx, s.pool).QueryRow(ctx, `SELECT `+subCols+` FROM subscription WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return sub, err
}

func (s *subscriptionStore) Insert(ctx context.Context, sub *Subscription) error {
	_, err := conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO subscription (id, patient_id, plan, status, price_cents, current_period_end, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		sub.ID, sub.PatientID, sub.Plan, sub.Status, sub.PriceCents, sub.CurrentPeriodEnd, sub.CreatedAt, sub.UpdatedAt,
	)
	if db.IsForeignKeyViolation(err) {
		return resource.Validation("patient_id", "referenced patient does not exist")
	}
	return err
}

func (s *subscriptionStore) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*Subscription, error) {
	sql, args := db.BuildUpdate("subscription", patch, id, subCols)
	sub, err := scanSubscription(conn(ctx, s.pool).QueryRow(ctx, sql, args...))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return sub, err
}

func (s *subscriptionStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, s.pool).Exec(ctx, `DELETE FROM subscription WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(&sub.ID, &sub.PatientID, &sub.Plan, &sub.Status, &sub.PriceCents, &sub.CurrentPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ---------------------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------------------

type invoiceStore struct {
	pool *pgxpool.Pool
}

// NewInvoiceStore creates the Postgres-backed store for invoices.
func NewInvoiceStore(pool *pgxpool.Pool) resource.Store[*Invoice] {
	return &invoiceStore{pool: pool}
}

const invCols = `id, subscription_id, amount_cents, status, due_date, paid_at, created_at, updated_at`

func (s *invoiceStore) List(ctx context.Context, q resource.Query) ([]*Invoice, int, error) {
	dataSQL, dataArgs, countSQL, countArgs := resource.SelectSQL("invoice", invCols, q)

	var total int
	if err := conn(ctx, s.pool).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, s.pool).Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (s *invoiceStore) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(conn(ctx, s.pool).QueryRow(ctx, `SELECT `+invCols+` FROM invoice WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return inv, err
}

func (s *invoiceStore) Insert(ctx context.Context, inv *Invoice) error {
	_, err := conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO invoice (id, subscription_id, amount_cents, status, due_date, paid_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		inv.ID, inv.SubscriptionID, inv.AmountCents, inv.Status, inv.DueDate, inv.PaidAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if db.IsForeignKeyViolation(err) {
		return resource.Validation("subscription_id", "referenced subscription does not exist")
	}
	return err
}

func (s *invoiceStore) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*Invoice, error) {
	sql, args := db.BuildUpdate("invoice", patch, id, invCols)
	inv, err := scanInvoice(conn(ctx, s.pool).QueryRow(ctx, sql, args...))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return inv, err
}

func (s *invoiceStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, s.pool).Exec(ctx, `DELETE FROM invoice WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.SubscriptionID, &inv.AmountCents, &inv.Status, &inv.DueDate, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
