package bootstrap

import (
	"github.com/pledgekit/patronage/common/config"
	"github.com/pledgekit/patronage/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipRedis     bool
	skipStore     bool
	skipTelemetry bool
	customLogger  *logger.Logger
	customConfig  *config.Config
}

// WithoutRedis skips the Redis connection. Only valid when the store backend
// is not redis and dedupe/rate limiting are disabled.
func WithoutRedis() Option {
	return func(o *options) {
		o.skipRedis = true
	}
}

// WithoutStore skips store construction
func WithoutStore() Option {
	return func(o *options) {
		o.skipStore = true
	}
}

// WithoutTelemetry skips telemetry initialization
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithLogger uses a pre-built logger instead of constructing one from config
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = l
	}
}

// WithConfig uses a pre-built config instead of loading from the environment
func WithConfig(c *config.Config) Option {
	return func(o *options) {
		o.customConfig = c
	}
}

func defaultOptions() *options {
	return &options{}
}
