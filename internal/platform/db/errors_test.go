package db

import (
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	if !IsUniqueViolation(err) {
		t.Error("expected unique violation to be detected")
	}
	if !IsUniqueViolation(fmt.Errorf("insert patient: %w", err)) {
		t.Error("wrapped unique violation should still be detected")
	}
	if IsUniqueViolation(fmt.Errorf("connection refused")) {
		t.Error("plain error should not be a unique violation")
	}
	if IsUniqueViolation(nil) {
		t.Error("nil should not be a unique violation")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	err := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
	if !IsForeignKeyViolation(err) {
		t.Error("expected foreign key violation to be detected")
	}
	if !IsForeignKeyViolation(fmt.Errorf("insert note: %w", err)) {
		t.Error("wrapped foreign key violation should still be detected")
	}
	if IsForeignKeyViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}) {
		t.Error("unique violation should not classify as foreign key")
	}
}
