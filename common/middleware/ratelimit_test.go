package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/pledgekit/patronage/common/ratelimit"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

func newRateLimitedEcho(t *testing.T, limit int64) (*echo.Echo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	e := echo.New()
	limiter := ratelimit.NewLimiter(client, nopLogger{})
	e.POST("/webhook", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, WebhookRateLimit(limiter, limit, 60))
	return e, mr
}

func post(e *echo.Echo) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	return rec
}

func TestWebhookRateLimitAllowsUnderLimit(t *testing.T) {
	e, _ := newRateLimitedEcho(t, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(e).Code)
	}
}

func TestWebhookRateLimitBlocksOverLimit(t *testing.T) {
	e, _ := newRateLimitedEcho(t, 2)

	post(e)
	post(e)

	rec := post(e)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "retry_after_seconds")
}

func TestWebhookRateLimitFailsOpen(t *testing.T) {
	e, mr := newRateLimitedEcho(t, 1)
	mr.Close()

	assert.Equal(t, http.StatusOK, post(e).Code)
	assert.Equal(t, http.StatusOK, post(e).Code)
}
