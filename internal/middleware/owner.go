package middleware

import (
	"context"

	models "github.com/fathima-sithara/mycloud/internal/media"
	utils "github.com/fathima-sithara/mycloud/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// Authorizer is satisfied by *service.MediaService.
type Authorizer interface {
	Authorize(ctx context.Context, caller, id string) (*models.Media, error)
}

// Owner loads the record named by :id and lets the request through only for its owner.
// Must run after JWTAuth. The loaded record is available through Media(c).
func Owner(a Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := a.Authorize(c.UserContext(), UserID(c), c.Params("id"))
		if err != nil {
			return utils.JSONFromError(c, err)
		}
		c.Locals(MediaKey, m)
		return c.Next()
	}
}

func Media(c *fiber.Ctx) *models.Media {
	m, _ := c.Locals(MediaKey).(*models.Media)
	return m
}
