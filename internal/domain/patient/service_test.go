package patient

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/telecare/internal/platform/notification"
	"github.com/telecare/telecare/internal/platform/querycache"
	"github.com/telecare/telecare/internal/resource"
)

func newTestService() (*Service, *resource.MemStore[*Patient], *notification.MemorySink) {
	store := resource.NewMemStore[*Patient]()
	cache := querycache.New(querycache.NewMemoryStore(), time.Minute, zerolog.Nop())
	res := resource.New(resource.Descriptor{Name: "patients"}, store, cache)
	feed := notification.NewMemorySink(50)
	return NewService(res, notification.NewNotifier(feed)), store, feed
}

func TestCreatePatient_StampsAndDefaults(t *testing.T) {
	svc, store, feed := newTestService()
	ctx := context.Background()

	p := &Patient{FirstName: "Ada", LastName: "Green"}
	if err := svc.CreatePatient(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if p.Status != "active" {
		t.Errorf("expected default status active, got %s", p.Status)
	}
	if !p.CreatedAt.Equal(p.UpdatedAt) {
		t.Error("expected created_at to equal updated_at at creation")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 stored record, got %d", store.Len())
	}
	if got := feed.Recent("", notification.LevelSuccess, 10); len(got) != 1 {
		t.Errorf("expected a success notification, got %d", len(got))
	}
}

func TestCreatePatient_ValidationBeforeStore(t *testing.T) {
	svc, store, _ := newTestService()

	err := svc.CreatePatient(context.Background(), &Patient{FirstName: "Ada"})
	if !resource.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.Len() != 0 {
		t.Error("expected nothing to reach the store on validation failure")
	}
}

func TestCreatePatient_RejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.CreatePatient(context.Background(), &Patient{FirstName: "Ada", LastName: "Green", Status: "archived"})
	if !resource.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetPatient_MissingReturnsNil(t *testing.T) {
	svc, _, feed := newTestService()

	p, err := svc.GetPatient(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("expected no error for missing patient, got %v", err)
	}
	if p != nil {
		t.Errorf("expected nil for missing patient, got %+v", p)
	}
	if got := feed.Recent("", "", 10); len(got) != 0 {
		t.Errorf("expected no notification for a missing read, got %d", len(got))
	}
}

func TestUpdatePatient_FailureNotifies(t *testing.T) {
	svc, _, feed := newTestService()

	_, err := svc.UpdatePatient(context.Background(), uuid.New(), map[string]any{"phone": "555-0100"})
	if !resource.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	errs := feed.Recent("", notification.LevelError, 10)
	if len(errs) != 1 {
		t.Fatalf("expected an error notification, got %d", len(errs))
	}
	if errs[0].Title != "Could not update patient" {
		t.Errorf("unexpected notification title: %s", errs[0].Title)
	}
}

func TestUpdatePatient_ListRefreshesAfterWrite(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p := &Patient{FirstName: "Ada", LastName: "Green"}
	if err := svc.CreatePatient(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	q := resource.Query{}.Eq("status", "active")
	listed, _, err := svc.ListPatients(ctx, q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 active patient, got %d", len(listed))
	}

	if _, err := svc.UpdatePatient(ctx, p.ID, map[string]any{"status": "inactive"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// The cached active list was invalidated by the write, so it refetches
	// and no longer includes the patient.
	listed, _, err = svc.ListPatients(ctx, q)
	if err != nil {
		t.Fatalf("list after update: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("expected no active patients after status change, got %d", len(listed))
	}
}

func TestDeletePatient_RemovesDetail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p := &Patient{FirstName: "Ada", LastName: "Green"}
	if err := svc.CreatePatient(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.DeletePatient(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := svc.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestDisplayName_Fallback(t *testing.T) {
	p := &Patient{}
	if got := p.DisplayName(); got != resource.FallbackUnknown {
		t.Errorf("expected %q for empty name, got %q", resource.FallbackUnknown, got)
	}
	p = &Patient{FirstName: "Ada", LastName: "Green"}
	if got := p.DisplayName(); got != "Ada Green" {
		t.Errorf("expected full name, got %q", got)
	}
}
