package consultation

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

// NewStore creates the Postgres-backed store for consultations.
func NewStore(pool *pgxpool.Pool) resource.Store[*Consultation] {
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

const cols = `id, patient_id, provider_name, reason, scheduled_at, status, created_at, updated_at`

func (s *pgStore) List(ctx context.Context, q resource.Query) ([]*Consultation, int, error) {
	dataSQL, dataArgs, countSQL, countArgs := resource.SelectSQL("consultation", cols, q)

	var total int
	if err := s.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var consults []*Consultation
	for rows.Next() {
		con, err := scanConsultation(rows)
		if err != nil {
			return nil, 0, err
		}
		consults = append(consults, con)
	}
	return consults, total, rows.Err()
}

func (s *pgStore) Get(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	con, err := scanConsultation(s.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM consultation WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return con, err
}

func (s *pgStore) Insert(ctx context.Context, con *Consultation) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO consultation (id, patient_id, provider_name, reason, scheduled_at, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		con.ID, con.PatientID, con.ProviderName, con.Reason, con.ScheduledAt, con.Status, con.CreatedAt, con.UpdatedAt,
	)
	if db.IsForeignKeyViolation(err) {
		return resource.Validation("patient_id", "referenced patient does not exist")
	}
	return err
}

func (s *pgStore) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*Consultation, error) {
	sql, args := db.BuildUpdate("consultation", patch, id, cols)
	con, err := scanConsultation(s.conn(ctx).QueryRow(ctx, sql, args...))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return con, err
}

func (s *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM consultation WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var con Consultation
	err := row.Scan(
		&con.ID, &con.PatientID, &con.ProviderName, &con.Reason, &con.ScheduledAt, &con.Status,
		&con.CreatedAt, &con.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &con, nil
}
