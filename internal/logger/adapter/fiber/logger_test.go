package fiber_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-job-readiness/jobready/internal/logger"
	adapter "github.com/ai-job-readiness/jobready/internal/logger/adapter/fiber"
)

func TestAccessLogPassthrough(t *testing.T) {
	app := fiber.New()
	app.Use(adapter.New(adapter.Config{
		Config: logger.Log{
			AppName:     "test",
			ServiceName: "test",
		},
	}))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAccessLogSkipsCheckAlive(t *testing.T) {
	app := fiber.New()
	app.Use(adapter.New(adapter.Config{
		Config: logger.Log{
			AppName:           "test",
			ServiceName:       "test",
			DisableCheckAlive: true,
		},
		CheckAliveURI: "/checkalive",
	}))
	app.Get("/checkalive", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/checkalive", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
