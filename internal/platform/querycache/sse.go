package querycache

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type sseEvent struct {
	Key  string    `json:"key"`
	Type EventType `json:"type"`
}

// SSEHandler streams cache invalidation events to the client as server-sent
// events. Clients use it to drop their own copies of records the moment a
// mutation lands, instead of polling. The optional ?prefix= query parameter
// narrows the stream to one key prefix, e.g. "patients/" for a single
// resource; empty subscribes to everything. The stream runs until the client
// disconnects.
func SSEHandler(cache *Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set(echo.HeaderContentType, "text/event-stream")
		h.Set(echo.HeaderCacheControl, "no-cache")
		h.Set(echo.HeaderConnection, "keep-alive")
		c.Response().WriteHeader(http.StatusOK)
		c.Response().Flush()

		events, cancel := cache.Subscribe(c.QueryParam("prefix"))
		defer cancel()

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				data, err := json.Marshal(sseEvent{Key: ev.Key, Type: ev.Type})
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
					return err
				}
				c.Response().Flush()
			}
		}
	}
}
