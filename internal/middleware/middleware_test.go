package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PanoGuard/internal/entity"
	jwtPkg "PanoGuard/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestApp(m Middleware) *fiber.App {
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/limited", m.NewRateLimiter, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/me", m.NewTokenMiddleware, func(c *fiber.Ctx) error {
		p, err := jwtPkg.GetProfileLoginData(c)
		if err != nil {
			return err
		}
		return c.SendString(p.ID + "|" + p.Name)
	})
	return app
}

func TestRateLimiterRejectsAfterBurst(t *testing.T) {
	app := newTestApp(New(quietLogger(), 0.001, 2))

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	r := newRateLimiter(1, 1)
	now := time.Unix(0, 0)
	r.now = func() time.Time { return now }

	first := r.GetLimiterFrom("10.0.0.1")
	require.Same(t, first, r.GetLimiterFrom("10.0.0.1"))

	now = now.Add(2 * idleLimiterTTL)
	r.GetLimiterFrom("10.0.0.2")
	require.Len(t, r.bucket, 1)
	require.NotSame(t, first, r.GetLimiterFrom("10.0.0.1"))
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	app := newTestApp(New(quietLogger(), 100, 100))

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.Header.Set(RequestIDKey, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-123", resp.Header.Get(RequestIDKey))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.NoError(t, err)
	require.Len(t, resp.Header.Get(RequestIDKey), 26)

	req = httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.Header.Set(RequestIDKey, strings.Repeat("x", 65))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Len(t, resp.Header.Get(RequestIDKey), 26)
}

func TestValidRequestID(t *testing.T) {
	require.True(t, validRequestID("01HZX3-abc"))
	require.False(t, validRequestID(""))
	require.False(t, validRequestID("has space"))
	require.False(t, validRequestID(strings.Repeat("a", maxRequestIDLen+1)))
}

func TestTokenMiddleware(t *testing.T) {
	t.Setenv(jwtPkg.AccessTokenSecret, "middleware-secret")
	app := newTestApp(New(quietLogger(), 100, 100))

	token, _, err := jwtPkg.Sign(map[string]interface{}{
		"id":    "01HPROFILE",
		"email": "dr@clinic.test",
		"name":  "Dr. Rahma",
	}, time.Hour)
	require.NoError(t, err)

	incomplete, _, err := jwtPkg.Sign(map[string]interface{}{"id": "01HPROFILE"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{name: "bearer", header: "Bearer " + token, status: http.StatusOK, body: "01HPROFILE|Dr. Rahma"},
		{name: "query token", query: "?token=" + token, status: http.StatusOK, body: "01HPROFILE|Dr. Rahma"},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc.def.ghi", status: http.StatusUnauthorized},
		{name: "missing claims", header: "Bearer " + incomplete, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)

			if tt.body != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				require.Equal(t, tt.body, string(body))
			}
		})
	}
}

func TestGetProfileLoginDataWithoutToken(t *testing.T) {
	var (
		missingErr error
		found      entity.ProfileLoginData
		foundErr   error
	)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		_, missingErr = jwtPkg.GetProfileLoginData(c)

		c.Locals(jwtPkg.LocalsKey, entity.ProfileLoginData{ID: "p"})
		found, foundErr = jwtPkg.GetProfileLoginData(c)
		return nil
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.ErrorIs(t, missingErr, fiber.ErrUnauthorized)
	require.NoError(t, foundErr)
	require.Equal(t, "p", found.ID)
}

func TestSanitizeRequestBody(t *testing.T) {
	out := sanitizeRequestBody(fiber.MIMEApplicationJSON,
		[]byte(`{"email":"dr@clinic.test","password":"hunter2","image_base64":"AAAA"}`))
	require.Contains(t, out, `"password":"[SECRET]"`)
	require.Contains(t, out, `"image_base64":"[IMAGE]"`)
	require.Contains(t, out, "dr@clinic.test")

	require.Equal(t, "[multipart body]", sanitizeRequestBody("multipart/form-data; boundary=x", []byte("--x")))
	require.Equal(t, "[non-JSON body]", sanitizeRequestBody(fiber.MIMETextPlain, []byte("hello")))

	long := `{"note":"` + strings.Repeat("a", 3*maxLoggedBody) + `"}`
	require.True(t, strings.HasSuffix(sanitizeRequestBody(fiber.MIMEApplicationJSON, []byte(long)), "..."))
}
