package notes

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

// NewStore creates the Postgres-backed store for clinical notes.
func NewStore(pool *pgxpool.Pool) resource.Store[*Note] {
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

// Reads join the practitioner table so the author name travels with the note.
const (
	noteTable = `clinical_note n LEFT JOIN practitioner p ON p.id = n.author_id`
	noteCols  = `n.id, n.patient_id, n.author_id, p.full_name AS author_name, n.category, n.content, n.status, n.created_at, n.updated_at`
)

func (s *pgStore) List(ctx context.Context, q resource.Query) ([]*Note, int, error) {
	dataSQL, dataArgs, countSQL, countArgs := resource.SelectSQL(noteTable, noteCols, q)

	var total int
	if err := s.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, n)
	}
	return notes, total, rows.Err()
}

func (s *pgStore) Get(ctx context.Context, id uuid.UUID) (*Note, error) {
	n, err := scanNote(s.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM `+noteTable+` WHERE n.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, resource.ErrNotFound
	}
	return n, err
}

func (s *pgStore) Insert(ctx context.Context, n *Note) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_note (id, patient_id, author_id, category, content, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		n.ID, n.PatientID, n.AuthorID, n.Category, n.Content, n.Status, n.CreatedAt, n.UpdatedAt,
	)
	return constraintErr(err)
}

// constraintErr maps referential failures on write to validation errors so a
// note pointing at an unknown patient or author answers 400, not 500.
func constraintErr(err error) error {
	if db.IsForeignKeyViolation(err) {
		return resource.Validation("patient_id", "referenced patient or author does not exist")
	}
	return err
}

func (s *pgStore) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*Note, error) {
	sql, args := db.BuildUpdate("clinical_note", patch, id, "id")
	var updated uuid.UUID
	if err := s.conn(ctx).QueryRow(ctx, sql, args...).Scan(&updated); err != nil {
		if db.IsNoRows(err) {
			return nil, resource.ErrNotFound
		}
		return nil, err
	}
	// Re-read through the join so the author name stays populated.
	return s.Get(ctx, id)
}

func (s *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM clinical_note WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(
		&n.ID, &n.PatientID, &n.AuthorID, &n.AuthorName, &n.Category, &n.Content, &n.Status,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
