package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// recordingSink captures delivered messages for assertions.
type recordingSink struct {
	mu       sync.Mutex
	messages []Message
}

func (s *recordingSink) Deliver(_ context.Context, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *recordingSink) all() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func TestPublish_StampsIdentity(t *testing.T) {
	sink := &recordingSink{}
	n := NewNotifier(sink)

	msg := n.Publish(context.Background(), Message{Title: "saved"})

	if msg.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("expected created_at to be stamped")
	}
	if msg.Level != LevelInfo {
		t.Errorf("expected default level info, got %s", msg.Level)
	}
	got := sink.all()
	if len(got) != 1 || got[0].ID != msg.ID {
		t.Fatalf("expected sink to receive the published message, got %+v", got)
	}
}

func TestPublish_FansOutToAllSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	n := NewNotifier(a)
	n.AddSink(b)

	n.Success(context.Background(), "patient", "patient created")

	if len(a.all()) != 1 {
		t.Error("expected first sink to receive the message")
	}
	if len(b.all()) != 1 {
		t.Error("expected second sink to receive the message")
	}
}

func TestOutcome_SuccessAndError(t *testing.T) {
	sink := &recordingSink{}
	n := NewNotifier(sink)
	ctx := context.Background()

	if err := n.Outcome(ctx, "note", "note saved", "could not save note", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cause := errors.New("connection refused")
	if err := n.Outcome(ctx, "note", "note saved", "could not save note", cause); err != cause {
		t.Fatalf("expected original error back, got %v", err)
	}

	got := sink.all()
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Level != LevelSuccess || got[0].Title != "note saved" {
		t.Errorf("unexpected success message: %+v", got[0])
	}
	if got[1].Level != LevelError || got[1].Detail != "connection refused" {
		t.Errorf("expected error message carrying the failure detail, got %+v", got[1])
	}
}

func TestLogSink_Delivers(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	sink := LogSink{Logger: logger}
	// Must not panic on either level.
	sink.Deliver(context.Background(), Message{Level: LevelSuccess, Title: "ok"})
	sink.Deliver(context.Background(), Message{Level: LevelError, Title: "failed", Detail: "boom"})
}

func TestMemorySink_RecentNewestFirst(t *testing.T) {
	sink := NewMemorySink(10)
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		sink.Deliver(context.Background(), Message{
			ID:        fmt.Sprintf("m%d", i),
			Level:     LevelSuccess,
			Title:     "saved",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	got := sink.Recent("", "", 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[0].ID != "m2" || got[2].ID != "m0" {
		t.Errorf("expected newest first, got order %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestMemorySink_FiltersAndLimit(t *testing.T) {
	sink := NewMemorySink(10)
	ctx := context.Background()
	sink.Deliver(ctx, Message{ID: "a", Level: LevelError, Recipient: "dr-green", CreatedAt: time.Now()})
	sink.Deliver(ctx, Message{ID: "b", Level: LevelSuccess, Recipient: "dr-green", CreatedAt: time.Now()})
	sink.Deliver(ctx, Message{ID: "c", Level: LevelSuccess, Recipient: "dr-patel", CreatedAt: time.Now()})

	byRecipient := sink.Recent("dr-green", "", 10)
	if len(byRecipient) != 2 {
		t.Errorf("expected 2 messages for dr-green, got %d", len(byRecipient))
	}

	errorsOnly := sink.Recent("", LevelError, 10)
	if len(errorsOnly) != 1 || errorsOnly[0].ID != "a" {
		t.Errorf("expected only the error message, got %+v", errorsOnly)
	}

	limited := sink.Recent("", "", 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to cap results, got %d", len(limited))
	}
}

func TestMemorySink_DropsOldestAtCapacity(t *testing.T) {
	sink := NewMemorySink(2)
	ctx := context.Background()
	sink.Deliver(ctx, Message{ID: "old", CreatedAt: time.Now()})
	sink.Deliver(ctx, Message{ID: "mid", CreatedAt: time.Now()})
	sink.Deliver(ctx, Message{ID: "new", CreatedAt: time.Now()})

	if _, ok := sink.Get("old"); ok {
		t.Error("expected oldest message to be evicted")
	}
	if _, ok := sink.Get("new"); !ok {
		t.Error("expected newest message to be retained")
	}
}

func TestMemorySink_Stats(t *testing.T) {
	sink := NewMemorySink(10)
	ctx := context.Background()
	sink.Deliver(ctx, Message{ID: "1", Level: LevelSuccess})
	sink.Deliver(ctx, Message{ID: "2", Level: LevelSuccess})
	sink.Deliver(ctx, Message{ID: "3", Level: LevelError})

	stats := sink.Stats()
	if stats["success"] != 2 || stats["error"] != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func newTestHandler() (*Handler, *MemorySink) {
	feed := NewMemorySink(50)
	notifier := NewNotifier(feed)
	return NewHandler(notifier, feed), feed
}

func TestHandlePublish_CreatesMessage(t *testing.T) {
	h, feed := newTestHandler()
	e := echo.New()

	body := `{"level":"success","title":"patient created","resource":"patient"}`
	req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandlePublish(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var msg Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if msg.ID == "" {
		t.Error("expected assigned id in response")
	}
	if _, ok := feed.Get(msg.ID); !ok {
		t.Error("expected message to be stored in the feed")
	}
}

func TestHandlePublish_RequiresTitle(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(`{"level":"info"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandlePublish(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleList_EmptyFeedReturnsEmptyArray(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleList(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("expected empty JSON array, got %q", got)
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/notifications/nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	if err := h.HandleGet(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
