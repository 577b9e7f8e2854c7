package middleware

import (
	"strings"

	utils "github.com/fathima-sithara/mycloud/internal/utils"
	"github.com/gofiber/fiber/v2"
)

const (
	UserIDKey = "user_id"
	MediaKey  = "media"
)

// TokenVerifier is satisfied by *auth.JWTVerifier.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// JWTAuth rejects requests without a valid bearer token and stores the caller id in locals.
// Websocket upgrades cannot set headers from a browser, so access_token is accepted as a query parameter.
func JWTAuth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearer(c)
		if token == "" {
			return utils.JSONError(c, fiber.StatusUnauthorized, "missing authorization")
		}
		userID, err := v.VerifyToken(token)
		if err != nil {
			return utils.JSONError(c, fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets anonymous requests through.
func OptionalAuth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearer(c); token != "" {
			if userID, err := v.VerifyToken(token); err == nil {
				c.Locals(UserIDKey, userID)
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated caller or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}

func bearer(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return h
	}
	return c.Query("access_token")
}
