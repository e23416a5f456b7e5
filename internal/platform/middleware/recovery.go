package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery converts a panicking handler into a logged 500 response so one
// bad request cannot take the server down. The goroutine's stack is captured
// at recovery time and attached to the log line.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				stack := make([]byte, 4096)
				stack = stack[:runtime.Stack(stack, false)]

				logger.Error().
					Str("request_id", RequestIDFromContext(c)).
					Str("panic", fmt.Sprint(r)).
					Str("stack", string(stack)).
					Msg("panic recovered")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}
