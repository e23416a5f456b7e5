package patient

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

// NewStore creates the Postgres-backed store for patients.
func NewStore(pool *pgxpool.Pool) resource.Store[*Patient] {
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

const cols = `id, first_name, last_name, date_of_birth, email, phone, address, status, created_at, updated_at`

func (s *pgStore) List(ctx context.Context, q resource.Query) ([]*Patient, int, error) {
	dataSQL, dataArgs, countSQL, countArgs := resource.SelectSQL("patient", cols, q)

	var total int
	if err := s.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (s *pgStore) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(s.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM patient WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return p, err
}

func (s *pgStore) Insert(ctx context.Context, p *Patient) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, first_name, last_name, date_of_birth, email, phone, address, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Email, p.Phone, p.Address, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	return constraintErr(err)
}

// constraintErr maps a duplicate email on write to a validation error so the
// caller answers 400, not 500. The patient table enforces email uniqueness.
func constraintErr(err error) error {
	if db.IsUniqueViolation(err) {
		return resource.Validation("email", "a patient with this email already exists")
	}
	return err
}

func (s *pgStore) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*Patient, error) {
	sql, args := db.BuildUpdate("patient", patch, id, cols)
	p, err := scanPatient(s.conn(ctx).QueryRow(ctx, sql, args...))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return p, constraintErr(err)
}

func (s *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Email, &p.Phone, &p.Address, &p.Status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
