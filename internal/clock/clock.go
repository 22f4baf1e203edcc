package clock

import (
	"context"
	"sync"
	"time"

	"github.com/aatumaykin/microbot/internal/logger"
)

// DefaultCacheTTL bounds how long a resolved timezone value is reused.
const DefaultCacheTTL = 30 * time.Second

// Clock resolves "now" for a timezone. It never fails: any error from the
// source falls back to host local time.
type Clock struct {
	source TimeSource
	ttl    time.Duration
	host   func() time.Time
	logger *logger.Logger

	mu       sync.Mutex
	cachedTZ string
	cachedAt time.Time
	cached   TimeValue
	hasCache bool
}

// Option configures a Clock.
type Option func(*Clock)

// WithHostTime replaces the host wall clock (tests).
func WithHostTime(fn func() time.Time) Option {
	return func(c *Clock) { c.host = fn }
}

// WithCacheTTL overrides DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Clock) { c.ttl = ttl }
}

// WithLogger attaches a logger for fallback diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(c *Clock) { c.logger = l }
}

// New creates a Clock. A nil source always yields host local time.
func New(source TimeSource, opts ...Option) *Clock {
	c := &Clock{
		source: source,
		ttl:    DefaultCacheTTL,
		host:   time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the current TimeValue in tz.
func (c *Clock) Now(ctx context.Context, tz string) TimeValue {
	if tz == "" || c.source == nil {
		return FromTime(c.host())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hostNow := c.host()
	if c.hasCache && c.cachedTZ == tz && hostNow.Sub(c.cachedAt) < c.ttl {
		return c.cached
	}

	tv, err := c.source.Lookup(ctx, tz)
	if err != nil {
		c.logger.DebugCtx(ctx, "timezone lookup failed, using local time",
			logger.Field{Key: "timezone", Value: tz},
			logger.Field{Key: "error", Value: err.Error()})
		return FromTime(hostNow)
	}

	c.cachedTZ = tz
	c.cachedAt = hostNow
	c.cached = tv
	c.hasCache = true
	return tv
}

// Fixed returns a source that always reports tv (tests and dry runs).
func Fixed(tv TimeValue) TimeSource {
	return TimeSourceFunc(func(context.Context, string) (TimeValue, error) {
		return tv, nil
	})
}
