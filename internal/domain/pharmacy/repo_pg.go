package pharmacy

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telecare/telecare/internal/platform/db"
	"github.com/telecare/telecare/internal/resource"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore creates the Postgres-backed store for pharmacies.
func NewStore(pool *pgxpool.Pool) resource.Store[*Pharmacy] {
	return &pgStore{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (s *pgStore) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

const cols = `id, name, address, phone, fax, active, created_at, updated_at`

func (s *pgStore) List(ctx context.Context, q resource.Query) ([]*Pharmacy, int, error) {
	dataSQL, dataArgs, countSQL, countArgs := resource.SelectSQL("pharmacy", cols, q)

	var total int
	if err := s.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var pharmacies []*Pharmacy
	for rows.Next() {
		p, err := scanPharmacy(rows)
		if err != nil {
			return nil, 0, err
		}
		pharmacies = append(pharmacies, p)
	}
	return pharmacies, total, rows.Err()
}

func (s *pgStore) Get(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	p, err := scanPharmacy(s.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM pharmacy WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return p, err
}

func (s *pgStore) Insert(ctx context.Context, p *Pharmacy) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO pharmacy (id, name, address, phone, fax, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.Name, p.Address, p.Phone, p.Fax, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (s *pgStore) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*Pharmacy, error) {
	sql, args := db.BuildUpdate("pharmacy", patch, id, cols)
	p, err := scanPharmacy(s.conn(ctx).QueryRow(ctx, sql, args...))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return p, err
}

func (s *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM pharmacy WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func scanPharmacy(row pgx.Row) (*Pharmacy, error) {
	var p Pharmacy
	err := row.Scan(&p.ID, &p.Name, &p.Address, &p.Phone, &p.Fax, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
