package dedupe

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	redisWrapper "github.com/pledgekit/patronage/common/redis"
	"github.com/redis/go-redis/v9"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Suppressor remembers recently applied webhook bodies so redeliveries of the
// same payload are acknowledged without re-applying them. Reconciliation is
// idempotent anyway; this just skips pointless store round-trips. It fails
// open: if Redis is down, duplicates get processed, not dropped.
type Suppressor struct {
	redis *redisWrapper.Client
	ttl   time.Duration
	log   Logger
}

// New creates a suppressor with the given remembrance window.
func New(redisClient *redis.Client, ttl time.Duration, log Logger) *Suppressor {
	return &Suppressor{
		redis: redisWrapper.NewClient(redisClient, log),
		ttl:   ttl,
		log:   log,
	}
}

func (s *Suppressor) key(body []byte) string {
	return fmt.Sprintf("webhook:delivery:%x", sha256.Sum256(body))
}

// Seen reports whether an identical body was recorded within the window. It
// never records: a delivery is only remembered via Record once it has been
// fully applied, so a failed apply stays retryable.
func (s *Suppressor) Seen(ctx context.Context, body []byte) bool {
	_, err := s.redis.Get(ctx, s.key(body))
	if errors.Is(err, redisWrapper.ErrNotFound) {
		return false
	}
	if err != nil {
		s.log.Warn("dedupe check failed, processing anyway", "error", err)
		return false
	}
	return true
}

// Record remembers the body for the window. Failures are logged and dropped;
// the worst case is re-applying an idempotent event.
func (s *Suppressor) Record(ctx context.Context, body []byte) {
	if err := s.redis.SetWithExpiry(ctx, s.key(body), "1", s.ttl); err != nil {
		s.log.Warn("dedupe record failed", "error", err)
	}
}
