package server

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutual-feedback/mutual_feedback/internal/config"
	"github.com/mutual-feedback/mutual_feedback/internal/logging"
)

func TestNewDevelopmentServerWithoutBackends(t *testing.T) {
	cfg := config.Config{AppName: "test", AppEnv: "development", Port: "0", JWTSecret: "s", TxMaxAttempts: 3}
	srv, err := New(cfg, nil, nil, logging.Discard())
	require.NoError(t, err)

	resp, err := srv.App().Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestNewProductionServerRequiresBackends(t *testing.T) {
	cfg := config.Config{AppName: "test", AppEnv: "production", Port: "0", JWTSecret: "s"}
	_, err := New(cfg, nil, nil, logging.Discard())
	assert.ErrorContains(t, err, "database is required")
}
