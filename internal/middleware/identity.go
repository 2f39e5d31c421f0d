package middleware

// identity.go defines helpers for reading the authenticated identity that
// JWTAuth stored in the Echo context. JWT numeric claims arrive as
// float64 after JSON decoding, so the user id needs a conversion.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// CurrentUserID returns the authenticated user id as a string, or "anon"
// for unauthenticated requests. Used for rate-limit keys.
func CurrentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

// UserID extracts the numeric user id stored by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Username extracts the username claim stored by JWTAuth.
func Username(c echo.Context) string {
	if s, ok := c.Get("username").(string); ok {
		return s
	}
	return ""
}
