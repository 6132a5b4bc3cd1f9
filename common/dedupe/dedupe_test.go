package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

func newSuppressor(t *testing.T, ttl time.Duration) (*Suppressor, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl, nopLogger{}), mr
}

func TestSeenAfterRecord(t *testing.T) {
	s, _ := newSuppressor(t, time.Minute)
	ctx := context.Background()
	body := []byte(`{"data":{"type":"member"}}`)

	assert.False(t, s.Seen(ctx, body))

	s.Record(ctx, body)
	assert.True(t, s.Seen(ctx, body))
	assert.False(t, s.Seen(ctx, []byte(`{"data":{"type":"other"}}`)))
}

func TestSeenDoesNotRecord(t *testing.T) {
	s, _ := newSuppressor(t, time.Minute)
	ctx := context.Background()
	body := []byte("payload")

	// Checking alone must leave no trace; only an applied delivery is
	// remembered.
	assert.False(t, s.Seen(ctx, body))
	assert.False(t, s.Seen(ctx, body))
}

func TestSeenWindowExpires(t *testing.T) {
	s, mr := newSuppressor(t, time.Minute)
	ctx := context.Background()
	body := []byte("payload")

	s.Record(ctx, body)
	mr.FastForward(2 * time.Minute)
	assert.False(t, s.Seen(ctx, body))
}

func TestSeenFailsOpen(t *testing.T) {
	s, mr := newSuppressor(t, time.Minute)
	mr.Close()

	body := []byte("payload")
	s.Record(context.Background(), body)
	assert.False(t, s.Seen(context.Background(), body))
}
