package resource

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/telecare/internal/platform/querycache"
)

type testNote struct {
	Meta
	PatientID uuid.UUID `json:"patient_id"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
}

func (n *testNote) ParentScope() string { return n.PatientID.String() }

func newTestResource(t *testing.T) (*Resource[*testNote], *MemStore[*testNote], *querycache.Cache) {
	t.Helper()
	store := NewMemStore[*testNote]()
	cache := querycache.New(querycache.NewMemoryStore(), 0, zerolog.Nop())
	desc := Descriptor{Name: "notes", Immutable: []string{"patient_id"}}
	return New(desc, store, cache), store, cache
}

func TestCreateStampsIdentityAndTimestamps(t *testing.T) {
	r, _, _ := newTestResource(t)
	ctx := context.Background()

	// Caller-supplied values must not survive.
	note := &testNote{Content: "hello"}
	note.ID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	note.CreatedAt = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := r.Create(ctx, note); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if note.ID == uuid.MustParse("11111111-1111-1111-1111-111111111111") {
		t.Error("caller-supplied id was trusted")
	}
	if note.CreatedAt.Year() == 1999 {
		t.Error("caller-supplied created_at was trusted")
	}
	if !note.CreatedAt.Equal(note.UpdatedAt) {
		t.Errorf("created_at and updated_at should be equal at creation: %v vs %v", note.CreatedAt, note.UpdatedAt)
	}
	if note.CreatedAt.IsZero() {
		t.Error("created_at not stamped")
	}
}

func TestGetMissingReturnsNilNotError(t *testing.T) {
	r, _, _ := newTestResource(t)

	got, err := r.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("missing record must not error, got %v", err)
	}
	if got != nil {
		t.Errorf("missing record must yield nil, got %+v", got)
	}
}

func TestUpdateStripsImmutableFields(t *testing.T) {
	r, store, _ := newTestResource(t)
	ctx := context.Background()

	note := &testNote{PatientID: uuid.New(), Content: "v1", Status: "draft"}
	if err := r.Create(ctx, note); err != nil {
		t.Fatal(err)
	}
	created := note.CreatedAt

	otherPatient := uuid.New()
	updated, err := r.Update(ctx, note.ID, map[string]any{
		"id":         uuid.New().String(),
		"created_at": time.Now().Add(time.Hour),
		"patient_id": otherPatient.String(),
		"content":    "v2",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.ID != note.ID {
		t.Error("id changed by update payload")
	}
	if !updated.CreatedAt.Equal(created) {
		t.Error("created_at changed by update payload")
	}
	if updated.PatientID == otherPatient {
		t.Error("immutable foreign key changed by update payload")
	}
	if updated.Content != "v2" {
		t.Errorf("mutable field not applied: %q", updated.Content)
	}
	if !updated.UpdatedAt.After(created) && !updated.UpdatedAt.Equal(created) {
		t.Error("updated_at not bumped")
	}

	raw, _ := store.Raw(note.ID)
	if raw["patient_id"] == otherPatient.String() {
		t.Error("stripped field reached the backing store")
	}
}

func TestUpdateMissingRecordErrors(t *testing.T) {
	r, _, _ := newTestResource(t)
	if _, err := r.Update(context.Background(), uuid.New(), map[string]any{"content": "x"}); !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateInvalidatesParentListScope(t *testing.T) {
	r, _, _ := newTestResource(t)
	ctx := context.Background()
	patient := uuid.New()

	q := Query{}.Eq("patient_id", patient.String()).OrderBy("created_at", true)

	items, total, err := r.List(ctx, q, patient.String())
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatalf("expected empty list, got %d", total)
	}

	note := &testNote{PatientID: patient, Content: "first"}
	if err := r.Create(ctx, note); err != nil {
		t.Fatal(err)
	}

	items, total, err = r.List(ctx, q, patient.String())
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("stale list served after create: total=%d", total)
	}
	if items[0].Content != "first" {
		t.Errorf("unexpected item: %+v", items[0])
	}
}

func TestCreateInvalidatesUnscopedListToo(t *testing.T) {
	r, _, _ := newTestResource(t)
	ctx := context.Background()

	if _, total, _ := r.List(ctx, Query{}, ""); total != 0 {
		t.Fatalf("expected empty unscoped list, got %d", total)
	}

	note := &testNote{PatientID: uuid.New(), Content: "x"}
	if err := r.Create(ctx, note); err != nil {
		t.Fatal(err)
	}

	if _, total, _ := r.List(ctx, Query{}, ""); total != 1 {
		t.Errorf("unscoped list stale after scoped create, total=%d", total)
	}
}

func TestUpdateInvalidatesDetailScope(t *testing.T) {
	r, _, _ := newTestResource(t)
	ctx := context.Background()

	note := &testNote{PatientID: uuid.New(), Status: "pending"}
	if err := r.Create(ctx, note); err != nil {
		t.Fatal(err)
	}
	if got, _ := r.Get(ctx, note.ID); got.Status != "pending" {
		t.Fatalf("unexpected status %q", got.Status)
	}

	// Status-only update invalidates the same scopes as a full update.
	if _, err := r.Update(ctx, note.ID, map[string]any{"status": "processing"}); err != nil {
		t.Fatal(err)
	}
	got, err := r.Get(ctx, note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "processing" {
		t.Errorf("stale detail served after update: %q", got.Status)
	}
}

func TestDeleteRemovesDetailEntry(t *testing.T) {
	r, store, _ := newTestResource(t)
	ctx := context.Background()
	patient := uuid.New()

	note := &testNote{PatientID: patient, Content: "bye"}
	if err := r.Create(ctx, note); err != nil {
		t.Fatal(err)
	}
	if got, _ := r.Get(ctx, note.ID); got == nil {
		t.Fatal("expected record before delete")
	}

	parent, err := r.Delete(ctx, note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if parent != patient.String() {
		t.Errorf("delete should return parent scope, got %q", parent)
	}
	if store.Len() != 0 {
		t.Error("record still in store after delete")
	}

	// Fresh fetch, not the old cached value.
	got, err := r.Get(ctx, note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("cached detail survived delete: %+v", got)
	}
}

func TestDeleteMissingRecordErrors(t *testing.T) {
	r, _, _ := newTestResource(t)
	if _, err := r.Delete(context.Background(), uuid.New()); !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryFilterMapOrderIndependent(t *testing.T) {
	q1 := Query{}.Eq("status", "active").Eq("patient_id", "p1").Page(20, 0)
	q2 := Query{}.Eq("patient_id", "p1").Eq("status", "active").Page(20, 0)

	k1 := querycache.BuildScopedListKey("notes", "p1", q1.FilterMap())
	k2 := querycache.BuildScopedListKey("notes", "p1", q2.FilterMap())
	if k1 != k2 {
		t.Errorf("equivalent queries built different keys: %q vs %q", k1, k2)
	}
}

func TestDisplayFallbacks(t *testing.T) {
	blank := "  "
	name := "Ada"
	last := "Lovelace"

	if got := Display(nil, FallbackNA); got != "N/A" {
		t.Errorf("nil: got %q", got)
	}
	if got := Display(&blank, FallbackUnknown); got != "Unknown" {
		t.Errorf("blank: got %q", got)
	}
	if got := Display(&name, FallbackNA); got != "Ada" {
		t.Errorf("value: got %q", got)
	}
	if got := DisplayName(&name, &last, FallbackSystem); got != "Ada Lovelace" {
		t.Errorf("full name: got %q", got)
	}
	if got := DisplayName(nil, nil, FallbackSystem); got != "System" {
		t.Errorf("fallback name: got %q", got)
	}
	if got := DisplayName(&name, nil, FallbackSystem); got != "Ada" {
		t.Errorf("first only: got %q", got)
	}
}
