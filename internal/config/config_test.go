package config

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"classlens/internal/middleware"
	"classlens/pkg/handlerUtil"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestFiberErrorShape(t *testing.T) {
	app := NewFiber(quietLogger())
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("kaput") })

	tests := []struct {
		path   string
		status int
	}{
		{"/nope", http.StatusNotFound},
		{"/boom", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode, tt.path)

		var body handlerUtil.ErrorResponse
		require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&body))
		assert.NotEmpty(t, body.Error)
		assert.NotContains(t, body.Error, "kaput")
	}
}

func TestNewValidatorUsesJSONNames(t *testing.T) {
	t.Parallel()

	type payload struct {
		SessionID string `json:"session_id" validate:"required"`
	}
	err := NewValidator().Struct(payload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_id")
}

func TestNewServerRequirements(t *testing.T) {
	t.Parallel()

	_, err := NewServer(WithLogger(quietLogger()))
	assert.ErrorContains(t, err, "fiber app is required")

	_, err = NewServer(WithFiber(fiber.New()), WithLogger(quietLogger()))
	assert.ErrorContains(t, err, "database is required")

	_, err = NewServer(WithMiddleware(middleware.DefaultConfig()))
	assert.ErrorContains(t, err, "logger must be initialized")

	_, err = NewServer(WithAttentionStore("redis", 0))
	assert.ErrorContains(t, err, "requires a redis server")

	_, err = NewServer(WithAttentionStore("disk", 0))
	assert.ErrorContains(t, err, "unknown attention store")

	_, err = NewServer(WithScoringConfig("/nonexistent/scoring.yaml"))
	assert.ErrorContains(t, err, "failed to load scoring config")
}
