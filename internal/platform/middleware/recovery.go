package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery returns middleware that recovers from panics, logs the stack trace,
// and returns a 500 response.
func Recovery(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := make([]byte, 4<<10)
					length := runtime.Stack(stack, false)

					requestID, _ := c.Get("request_id").(string)

					log.Error().
						Interface("panic", r).
						Str("stack", string(stack[:length])).
						Str("method", c.Request().Method).
						Str("path", c.Request().URL.Path).
						Str("request_id", requestID).
						Msg("panic recovered")

					err = echo.NewHTTPError(http.StatusInternalServerError,
						fmt.Sprintf("internal server error (request_id: %s)", requestID))
				}
			}()
			return next(c)
		}
	}
}
