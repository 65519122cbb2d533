package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func authTestApp() *fiber.App {
	app := fiber.New()
	app.Use(ServiceAuthMiddleware())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestServiceAuthOpenWithoutToken(t *testing.T) {
	t.Setenv("SERVICE_TOKEN", "")
	app := authTestApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServiceAuthEnforced(t *testing.T) {
	t.Setenv("SERVICE_TOKEN", "secret")
	app := authTestApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
