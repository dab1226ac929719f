package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	contextPkg "classlens/pkg/context"
	jwtPkg "classlens/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	m := New(quietLogger(), Config{RateLimit: 1, Burst: 2})
	app := fiber.New()
	app.Get("/", m.NewRateLimiter, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	var codes []int
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	t.Parallel()

	r := newRateLimiter(10, 10)
	r.GetLimiterFrom("10.0.0.1")
	r.bucket["10.0.0.1"].lastSeen = time.Now().Add(-2 * limiterIdleTTL)
	r.lastSweep = time.Now().Add(-2 * limiterIdleTTL)

	r.GetLimiterFrom("10.0.0.2")
	assert.NotContains(t, r.bucket, "10.0.0.1")
	assert.Contains(t, r.bucket, "10.0.0.2")
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	m := New(quietLogger(), DefaultConfig())
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(m.GetRequestID(c)) })
	app.Get("/ctx", func(c *fiber.Ctx) error { return c.SendString(contextPkg.GetRequestID(c.UserContext())) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Len(t, string(body), 26)
	assert.Equal(t, string(body), resp.Header.Get(RequestIDKey))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDKey, "client-supplied")
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "client-supplied", string(body))

	req = httptest.NewRequest("GET", "/ctx", nil)
	req.Header.Set(RequestIDKey, strings.Repeat("x", 65))
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Len(t, string(body), 26)
}

func TestTokenMiddleware(t *testing.T) {
	t.Setenv(AccessTokenSecret, "test-secret")

	m := New(quietLogger(), DefaultConfig())
	app := fiber.New()
	app.Get("/", m.NewTokenMiddleware, func(c *fiber.Ctx) error {
		user, err := jwtPkg.GetUserLoginData(c)
		if err != nil {
			return err
		}
		return c.SendString(user.Username)
	})

	good, _, err := jwtPkg.Sign(map[string]interface{}{"id": "stu-1", "username": "Ayu"}, time.Hour, AccessTokenSecret)
	require.NoError(t, err)
	noName, _, err := jwtPkg.Sign(map[string]interface{}{"id": "stu-1"}, time.Hour, AccessTokenSecret)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+good)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ayu", string(body))

	for _, header := range []string{"", "Bearer " + noName, "Token " + good} {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, header)
	}
}

func TestSanitizeRequestBody(t *testing.T) {
	t.Parallel()

	frame := strings.Repeat("A", 4096)
	got := sanitizeRequestBody(fiber.MIMEApplicationJSON, []byte(`{"image_base64":"`+frame+`","session_id":"s1","token":"abc"}`))
	assert.NotContains(t, got, frame)
	assert.Contains(t, got, "4KB elided")
	assert.Contains(t, got, `"session_id":"s1"`)
	assert.Contains(t, got, `"token":"[SECRET]"`)

	assert.Equal(t, "[multipart body]", sanitizeRequestBody("multipart/form-data; boundary=x", []byte("--x")))
	assert.Equal(t, "[non-JSON body]", sanitizeRequestBody("text/plain", []byte("hello")))
}
