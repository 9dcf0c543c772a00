package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// DefaultAttempts bounds generation tries per page, first call
	// included.
	DefaultAttempts = 3

	// DefaultRateLimitCap bounds the exponential rate-limit backoff.
	DefaultRateLimitCap = 30 * time.Second

	// DefaultTransientCap bounds the linear transient backoff.
	DefaultTransientCap = 5 * time.Second
)

// RetryPolicy drives bounded retries around a Backend. Rate-limit
// failures back off exponentially (2^attempt units), transient failures
// linearly (attempt units), fatal failures abort immediately.
//
// Exhaustion is not an error: Execute returns (nil, nil) and the caller
// decides what stands in for the page.
type RetryPolicy struct {
	Attempts     uint
	Unit         time.Duration // backoff time base, shrunk in tests
	RateLimitCap time.Duration
	TransientCap time.Duration
	Logger       *slog.Logger
}

// NewRetryPolicy creates a policy with production defaults.
func NewRetryPolicy(attempts int, logger *slog.Logger) *RetryPolicy {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	return &RetryPolicy{
		Attempts:     uint(attempts),
		Unit:         time.Second,
		RateLimitCap: DefaultRateLimitCap,
		TransientCap: DefaultTransientCap,
		Logger:       logger,
	}
}

// Execute runs b.Generate under the policy. A nil, nil return means the
// page could not be generated and the caller should fall back; a non-nil
// error only ever reflects context cancellation.
func (p *RetryPolicy) Execute(ctx context.Context, b Backend, req *Request) (*Result, error) {
	var result *Result
	err := retry.Do(
		func() error {
			res, err := b.Generate(ctx, req)
			if err != nil {
				return err
			}
			if res == nil || len(res.Image) == 0 {
				return Fatal("backend returned no image data", nil)
			}
			result = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(p.attempts()),
		retry.DelayType(p.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return KindOf(err) != KindFatal
		}),
		retry.OnRetry(func(n uint, err error) {
			p.logger().Warn("page generation attempt failed",
				"backend", b.Name(),
				"page", req.Page,
				"attempt", n+1,
				"kind", string(KindOf(err)),
				"error", err,
			)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger().Warn("page generation gave up",
			"backend", b.Name(),
			"page", req.Page,
			"kind", string(KindOf(err)),
			"error", err,
		)
		return nil, nil
	}
	return result, nil
}

// delay computes the sleep before retry n+2 given failed attempt n+1.
func (p *RetryPolicy) delay(n uint, err error, _ *retry.Config) time.Duration {
	unit := p.Unit
	if unit <= 0 {
		unit = time.Second
	}

	switch KindOf(err) {
	case KindRateLimited:
		d := unit << n
		var be *Error
		if errors.As(err, &be) && be.RetryAfter > d {
			d = be.RetryAfter
		}
		return capDelay(d, p.RateLimitCap, DefaultRateLimitCap)
	default:
		d := unit * time.Duration(n+1)
		return capDelay(d, p.TransientCap, DefaultTransientCap)
	}
}

func (p *RetryPolicy) attempts() uint {
	if p.Attempts == 0 {
		return DefaultAttempts
	}
	return p.Attempts
}

func (p *RetryPolicy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func capDelay(d, configured, fallback time.Duration) time.Duration {
	limit := configured
	if limit <= 0 {
		limit = fallback
	}
	if d > limit {
		return limit
	}
	return d
}
