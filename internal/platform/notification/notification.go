// Package notification delivers user-facing outcome messages for mutations.
// Every create, update, delete or cancel produces a message: a success toast
// when the write lands, an error toast when it fails. Messages fan out to
// pluggable sinks (in-memory for the API feed, structured log for operators)
// and are retrievable over HTTP so clients can poll a recipient's feed.
package notification

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Level classifies an outcome message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Message is a single user-facing outcome notification.
type Message struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink receives every published message. Implementations must be safe for
// concurrent use and must not block the publisher.
type Sink interface {
	Deliver(ctx context.Context, msg Message)
}

// ---------------------------------------------------------------------------
// Sinks
// ---------------------------------------------------------------------------

// LogSink writes messages to the structured log. Errors log at error level so
// a failed mutation is never silent, successes at info.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Deliver(_ context.Context, msg Message) {
	evt := s.Logger.Info()
	if msg.Level == LevelError {
		evt = s.Logger.Error()
	}
	evt.
		Str("notification_id", msg.ID).
		Str("level", string(msg.Level)).
		Str("resource", msg.Resource).
		Str("recipient", msg.Recipient).
		Str("detail", msg.Detail).
		Msg(msg.Title)
}

// MemorySink retains the most recent messages for retrieval over the API.
// Oldest messages are dropped once capacity is reached.
type MemorySink struct {
	mu       sync.RWMutex
	messages []Message
	capacity int
}

// NewMemorySink creates a sink holding up to capacity messages.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemorySink{capacity: capacity}
}

func (s *MemorySink) Deliver(_ context.Context, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if len(s.messages) > s.capacity {
		s.messages = s.messages[len(s.messages)-s.capacity:]
	}
}

// Recent returns up to limit messages, newest first, optionally filtered by
// recipient and level.
func (s *MemorySink) Recent(recipient string, level Level, limit int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Message
	for _, m := range s.messages {
		if recipient != "" && m.Recipient != recipient {
			continue
		}
		if level != "" && m.Level != level {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Get returns a message by id.
func (s *MemorySink) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Stats returns message counts grouped by level.
func (s *MemorySink) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make(map[string]int)
	for _, m := range s.messages {
		stats[string(m.Level)]++
	}
	return stats
}

// ---------------------------------------------------------------------------
// Notifier
// ---------------------------------------------------------------------------

// Notifier publishes outcome messages to all registered sinks.
type Notifier struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewNotifier constructs a Notifier over the given sinks.
func NewNotifier(sinks ...Sink) *Notifier {
	return &Notifier{sinks: sinks}
}

// AddSink registers an additional sink.
func (n *Notifier) AddSink(s Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, s)
}

// Publish stamps the message and delivers it to every sink.
func (n *Notifier) Publish(ctx context.Context, msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Level == "" {
		msg.Level = LevelInfo
	}

	n.mu.RLock()
	sinks := n.sinks
	n.mu.RUnlock()
	for _, s := range sinks {
		s.Deliver(ctx, msg)
	}
	return msg
}

// Success publishes a success message for a completed mutation.
func (n *Notifier) Success(ctx context.Context, resource, title string) Message {
	return n.Publish(ctx, Message{Level: LevelSuccess, Resource: resource, Title: title})
}

// Error publishes an error message carrying the failure detail. The detail is
// what the user sees, so callers pass a human-readable reason, not a wrapped
// error chain.
func (n *Notifier) Error(ctx context.Context, resource, title, detail string) Message {
	return n.Publish(ctx, Message{Level: LevelError, Resource: resource, Title: title, Detail: detail})
}

// Outcome publishes either a success or an error message depending on err,
// and returns err unchanged so it can be used inline at mutation call sites.
func (n *Notifier) Outcome(ctx context.Context, resource, successTitle, errorTitle string, err error) error {
	if err != nil {
		n.Error(ctx, resource, errorTitle, err.Error())
		return err
	}
	n.Success(ctx, resource, successTitle)
	return nil
}

// ---------------------------------------------------------------------------
// HTTP Handler
// ---------------------------------------------------------------------------

// Handler exposes the notification feed over HTTP via Echo.
type Handler struct {
	notifier *Notifier
	feed     *MemorySink
}

// NewHandler creates a Handler over the notifier and its in-memory feed.
func NewHandler(notifier *Notifier, feed *MemorySink) *Handler {
	return &Handler{notifier: notifier, feed: feed}
}

// RegisterRoutes registers the notification routes on the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.HandleList)
	g.GET("/notifications/stats", h.HandleStats)
	g.GET("/notifications/:id", h.HandleGet)
	g.POST("/notifications", h.HandlePublish)
}

// publishRequest is the JSON body for POST /notifications.
type publishRequest struct {
	Level     Level  `json:"level"`
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	Resource  string `json:"resource"`
	Recipient string `json:"recipient"`
}

// HandlePublish handles POST /notifications.
func (h *Handler) HandlePublish(c echo.Context) error {
	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}

	msg := h.notifier.Publish(c.Request().Context(), Message{
		Level:     req.Level,
		Title:     req.Title,
		Detail:    req.Detail,
		Resource:  req.Resource,
		Recipient: req.Recipient,
	})
	return c.JSON(http.StatusCreated, msg)
}

// HandleList handles GET /notifications?recipient=...&level=...&limit=...
func (h *Handler) HandleList(c echo.Context) error {
	limit := 50
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	msgs := h.feed.Recent(c.QueryParam("recipient"), Level(c.QueryParam("level")), limit)
	if msgs == nil {
		msgs = []Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

// HandleGet handles GET /notifications/:id.
func (h *Handler) HandleGet(c echo.Context) error {
	msg, ok := h.feed.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "notification not found"})
	}
	return c.JSON(http.StatusOK, msg)
}

// HandleStats handles GET /notifications/stats.
func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.feed.Stats())
}
