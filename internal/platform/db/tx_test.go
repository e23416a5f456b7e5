package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx from bare context, got %v", tx)
	}
}

func TestBuildUpdate_SortedColumns(t *testing.T) {
	id := uuid.New()
	patch := map[string]any{
		"status":     "processing",
		"content":    "hello",
		"updated_at": "now",
	}

	sql, args := BuildUpdate("orders", patch, id, "id, status")

	want := "UPDATE orders SET content = $1, status = $2, updated_at = $3 WHERE id = $4 RETURNING id, status"
	if sql != want {
		t.Errorf("unexpected SQL:\n got: %s\nwant: %s", sql, want)
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
	if args[0] != "hello" || args[1] != "processing" || args[3] != id {
		t.Errorf("args out of order: %v", args)
	}
}

func TestBuildUpdate_NoReturning(t *testing.T) {
	sql, args := BuildUpdate("patient", map[string]any{"first_name": "Ada"}, "p1", "")
	want := "UPDATE patient SET first_name = $1 WHERE id = $2"
	if sql != want {
		t.Errorf("unexpected SQL: %s", sql)
	}
	if len(args) != 2 {
		t.Errorf("expected 2 args, got %d", len(args))
	}
}

func TestIsNoRows_PlainError(t *testing.T) {
	if IsNoRows(context.Canceled) {
		t.Error("unrelated error classified as no-rows")
	}
	if IsUniqueViolation(context.Canceled) || IsForeignKeyViolation(context.Canceled) {
		t.Error("unrelated error classified as constraint violation")
	}
}
