package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDHeader is the header used to correlate requests across services.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the echo context key the id is stored under. Logger and
// Recovery read it back through RequestIDFromContext.
const requestIDKey = "request_id"

// RequestID assigns each request an identifier. An incoming X-Request-ID is
// preserved so upstream callers can correlate their own logs; otherwise a new
// UUID is generated. The id is stored in the echo context and echoed back in
// the response header.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(requestIDKey, rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}

// RequestIDFromContext returns the id assigned by RequestID, or "" when the
// middleware did not run for this request.
func RequestIDFromContext(c echo.Context) string {
	rid, _ := c.Get(requestIDKey).(string)
	return rid
}
