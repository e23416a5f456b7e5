package notes

import (
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/telecare/telecare/internal/resource"
)

func TestConstraintErrMapsForeignKeyToValidation(t *testing.T) {
	fk := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}

	err := constraintErr(fk)
	if !resource.IsValidation(err) {
		t.Fatalf("foreign key violation should surface as a validation error, got %v", err)
	}

	err = constraintErr(fmt.Errorf("insert note: %w", fk))
	if !resource.IsValidation(err) {
		t.Errorf("wrapped foreign key violation should surface as a validation error, got %v", err)
	}
}

func TestConstraintErrPassesThroughOtherErrors(t *testing.T) {
	if err := constraintErr(nil); err != nil {
		t.Errorf("nil should stay nil, got %v", err)
	}

	plain := fmt.Errorf("connection refused")
	if got := constraintErr(plain); got != plain {
		t.Errorf("unrelated error should pass through unchanged, got %v", got)
	}

	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	if got := constraintErr(unique); resource.IsValidation(got) {
		t.Errorf("unique violation is not a reference failure here, got %v", got)
	}
}
