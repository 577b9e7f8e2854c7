package middleware

import (
	"fmt"

	utils "github.com/fathima-sithara/mycloud/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func Recovery(log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("panic recovered", "panic", fmt.Sprint(r), "path", c.Path())
				err = utils.JSONError(c, fiber.StatusInternalServerError, "internal error")
			}
		}()
		return c.Next()
	}
}
