package session

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

// NewStore creates the Postgres-backed store for telehealth sessions.
func NewStore(pool *pgxpool.Pool) resource.Store[*Session] {
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

const cols = `id, patient_id, consultation_id, scheduled_at, started_at, ended_at, room_url, status, created_at, updated_at`

func (s *pgStore) List(ctx context.Context, q resource.Query) ([]*Session, int, error) {
	dataSQL, dataArgs, countSQL, countArgs := resource.SelectSQL("telehealth_session", cols, q)

	var total int
	if err := s.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, total, rows.Err()
}

func (s *pgStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := scanSession(s.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM telehealth_session WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return sess, err
}

func (s *pgStore) Insert(ctx context.Context, sess *Session) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO telehealth_session (id, patient_id, consultation_id, scheduled_at, started_at, ended_at, room_url, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		sess.ID, sess.PatientID, sess.ConsultationID, sess.ScheduledAt, sess.StartedAt, sess.EndedAt, sess.RoomURL, sess.Status,
		sess.CreatedAt, sess.UpdatedAt,
	)
	if db.IsForeignKeyViolation(err) {
		return resource.Validation("patient_id", "referenced patient or consultation does not exist")
	}
	return err
}

func (s *pgStore) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*Session, error) {
	sql, args := db.BuildUpdate("telehealth_session", patch, id, cols)
	sess, err := scanSession(s.conn(ctx).QueryRow(ctx, sql, args...))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return sess, err
}

func (s *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM telehealth_session WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var sess Session
	err := row.Scan(
		&sess.ID, &sess.PatientID, &sess.ConsultationID, &sess.ScheduledAt, &sess.StartedAt, &sess.EndedAt,
		&sess.RoomURL, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
