package lrucache

import (
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type options struct {
	clock  clockwork.Clock
	logger *zap.Logger
}

// Option configures a Cache.
type Option func(*options)

// WithClock sets the clock used for last access timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the logger that receives eviction events at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func defaultOptions() options {
	return options{
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
}
