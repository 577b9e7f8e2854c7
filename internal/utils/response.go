package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func JSONSuccess(c *fiber.Ctx, status int, message string, payload fiber.Map) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

func JSONError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": msg})
}

// JSONFromError writes the envelope for err. Internal and storage causes are not echoed.
func JSONFromError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	switch {
	case status == fiber.StatusInternalServerError:
		msg = "internal error"
	case errors.Is(err, ErrStorage):
		msg = ErrStorage.Error()
	}
	return JSONError(c, status, msg)
}
