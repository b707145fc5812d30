// Package retry provides bounded exponential-backoff retry with jitter
// for the fallible network operations in the sync pipeline.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/snitinshk/notion-supabase-sync/pkg/syncerrors"
)

// Policy defines retry behavior
type Policy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64

	logger *zap.Logger
}

// BatchResult holds the outcome of one operation in a batch run.
type BatchResult struct {
	Index int
	Err   error
}

// NewPolicy creates a retry policy with exponential backoff defaults.
func NewPolicy(maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Policy {
	return &Policy{
		MaxAttempts:  maxAttempts,
		BaseDelay:    baseDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.10,
		logger:       logger,
	}
}

// DefaultPolicy returns the policy used for source and destination calls.
func DefaultPolicy(logger *zap.Logger) *Policy {
	return NewPolicy(3, time.Second, logger)
}

// DelayFor returns the backoff delay before attempt n (0-indexed).
// The delay is baseDelay * multiplier^n plus up to jitterFactor of that
// value, capped at MaxDelay. Pure aside from the jitter draw.
func (p *Policy) DelayFor(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))

	if p.JitterFactor > 0 {
		delay += rand.Float64() * p.JitterFactor * delay
	}

	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	return time.Duration(delay)
}

// Execute runs a function with the retry policy, retrying every failure.
func (p *Policy) Execute(ctx context.Context, fn func() error) error {
	return p.ExecuteWithCondition(ctx, fn, func(error) bool { return true })
}

// ExecuteWithCondition runs a function with retry only if shouldRetry
// accepts the failure. The final underlying error is returned after
// MaxAttempts failed attempts, or immediately for a non-retryable error.
func (p *Policy) ExecuteWithCondition(ctx context.Context, fn func() error, shouldRetry func(error) bool) error {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !shouldRetry(err) {
			return err
		}

		// Don't retry on the last attempt
		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := p.DelayFor(attempt)

		if p.logger != nil {
			p.logger.Warn("retrying after failure",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", p.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(err))
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", p.MaxAttempts, lastErr)
}

// ExecuteBatch runs independent operations, each under the full retry
// policy, collecting per-index outcomes without aborting the batch on
// individual failures.
func (p *Policy) ExecuteBatch(ctx context.Context, ops []func() error) []BatchResult {
	results := make([]BatchResult, len(ops))

	for i, op := range ops {
		results[i] = BatchResult{
			Index: i,
			Err:   p.ExecuteWithCondition(ctx, op, IsRetryable),
		}
	}

	return results
}

// retryableStatuses are HTTP statuses worth retrying.
var retryableStatuses = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// RetryableStatus reports whether an HTTP status code is transient.
func RetryableStatus(status int) bool {
	return retryableStatuses[status]
}

// IsRetryable is the default classifier: structured transient sync errors,
// network timeouts, and reset or refused connections.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if syncerrors.IsRetryable(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}
