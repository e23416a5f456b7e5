package orders

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
// Orders
// ---------------------------------------------------------------------------

type orderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates the Postgres-backed store for orders.
func NewOrderStore(pool *pgxpool.Pool) resource.Store[*Order] {
	return &orderStore{pool: pool}
}

const orderCols = `id, patient_id, status, notes, created_at, updated_at`

func (s *orderStore) List(ctx context.Context, q resource.Query) ([]*Order, int, error) {
	dataSQL, dataArgs, countSQL, countArgs := resource.SelectSQL("orders", orderCols, q)

	var total int
	if err := conn(ctx, s.pool).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, s.pool).Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

func (s *orderStore) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(conn(ctx, s.pool).QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return o, err
}

func (s *orderStore) Insert(ctx context.Context, o *Order) error {
	_, err := conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO orders (id, patient_id, status, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.PatientID, o.Status, o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if db.IsForeignKeyViolation(err) {
		return resource.Validation("patient_id", "referenced patient does not exist")
	}
	return err
}

func (s *orderStore) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*Order, error) {
	sql, args := db.BuildUpdate("orders", patch, id, orderCols)
	o, err := scanOrder(conn(ctx, s.pool).QueryRow(ctx, sql, args...))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return o, err
}

func (s *orderStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, s.pool).Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.PatientID, &o.Status, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ---------------------------------------------------------------------------
// Order items
// ---------------------------------------------------------------------------

type itemStore struct {
	pool *pgxpool.Pool
}

// NewItemStore creates the Postgres-backed store for order line items.
func NewItemStore(pool *pgxpool.Pool) resource.Store[*Item] {
	return &itemStore{pool: pool}
}

const itemCols = `id, order_id, description, quantity, unit_cents, created_at, updated_at`

func (s *itemStore) List(ctx context.Context, q resource.Query) ([]*Item, int, error) {
	dataSQL, dataArgs, countSQL, countArgs := resource.SelectSQL("order_item", itemCols, q)

	var total int
	if err := conn(ctx, s.pool).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, s.pool).Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

func (s *itemStore) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	it, err := scanItem(conn(ctx, s.pool).QueryRow(ctx, `SELECT `+itemCols+` FROM order_item WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return it, err
}

func (s *itemStore) Insert(ctx context.Context, it *Item) error {
	_, err := conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO order_item (id, order_id, description, quantity, unit_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		it.ID, it.OrderID, it.Description, it.Quantity, it.UnitCents, it.CreatedAt, it.UpdatedAt,
	)
	if db.IsForeignKeyViolation(err) {
		return resource.Validation("order_id", "referenced order does not exist")
	}
	return err
}

func (s *itemStore) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*Item, error) {
	sql, args := db.BuildUpdate("order_item", patch, id, itemCols)
	it, err := scanItem(conn(ctx, s.pool).QueryRow(ctx, sql, args...))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return it, err
}

func (s *itemStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, s.pool).Exec(ctx, `DELETE FROM order_item WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.OrderID, &it.Description, &it.Quantity, &it.UnitCents, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}
