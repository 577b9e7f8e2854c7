package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, h fiber.Handler) (int, map[string]any) {
	t.Helper()
	app := fiber.New()
	app.Get("/", h)
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestJSONSuccess(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return JSONSuccess(c, fiber.StatusCreated, "uploaded", fiber.Map{"file": fiber.Map{"_id": "1"}})
	})
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "uploaded", body["message"])
	assert.NotNil(t, body["file"])

	_, body = call(t, func(c *fiber.Ctx) error { return JSONSuccess(c, 200, "", nil) })
	_, has := body["message"]
	assert.False(t, has)
}

func TestJSONFromError(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return JSONFromError(c, fmt.Errorf("%w: keywords required", ErrValidation))
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "validation failed: keywords required", body["message"])

	status, body = call(t, func(c *fiber.Ctx) error {
		return JSONFromError(c, fmt.Errorf("%w: %w", ErrStorage, errors.New("dial tcp 10.0.0.1:443")))
	})
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, "storage backend failure", body["message"])

	status, body = call(t, func(c *fiber.Ctx) error { return JSONFromError(c, errors.New("mongo exploded")) })
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body["message"])
}
