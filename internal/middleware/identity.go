package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// userID returns a string identity for cache and rate-limit keys. It
// prefers the "user_id" claim stored by JWTAuth and falls back to
// "guest" for unauthenticated requests (the public catalog routes).
func userID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "guest"
	}
	switch id := v.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return fmt.Sprintf("%.0f", id)
	}
	return "guest"
}
