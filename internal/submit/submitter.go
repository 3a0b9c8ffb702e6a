package submit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wonhyungLee/hookingauto/internal/exchange"
	"github.com/wonhyungLee/hookingauto/internal/metrics"
)

// Attempt budgets per flow. Market entry/close flows retry harder than
// simple buy/sell and limit flows.
const (
	MarketFlowAttempts = 10
	SimpleFlowAttempts = 5

	// DefaultDelay is the fixed wait between attempts.
	DefaultDelay = 100 * time.Millisecond
)

// Submitter places one live order with a bounded retry policy. It is an
// interface so a classifying policy can replace the blind one without
// touching callers.
type Submitter interface {
	Submit(ctx context.Context, gw exchange.Gateway, p exchange.OrderParams, maxAttempts int) (*exchange.OrderResult, error)
}

// SubmissionError is the terminal failure after the retry budget is
// exhausted.
type SubmissionError struct {
	Exchange string
	Symbol   string
	Side     string
	Attempts int
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit: %s %s %s failed after %d attempts: %v",
		e.Exchange, e.Symbol, e.Side, e.Attempts, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// RetrySubmitter retries every fault with a fixed delay and no fault
// classification. Exhaustion is terminal for the caller. A fault whose
// real cause was a partial fill followed by a rejection is retried like
// any other, which can duplicate exposure; callers accept that tradeoff
// for simplicity.
type RetrySubmitter struct {
	delay  time.Duration
	logger *zap.Logger
}

// NewRetrySubmitter creates a RetrySubmitter. A non-positive delay falls
// back to DefaultDelay.
func NewRetrySubmitter(delay time.Duration, logger *zap.Logger) *RetrySubmitter {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrySubmitter{delay: delay, logger: logger}
}

// Submit places the order, retrying up to maxAttempts total attempts.
// Success on any attempt short-circuits the rest; the final fault is
// wrapped in *SubmissionError.
func (s *RetrySubmitter) Submit(ctx context.Context, gw exchange.Gateway, p exchange.OrderParams, maxAttempts int) (*exchange.OrderResult, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := gw.CreateOrder(ctx, p)
		if err == nil {
			if attempt > 1 {
				s.logger.Info("submit.succeeded_after_retry",
					zap.String("exchange", gw.Name()),
					zap.String("symbol", p.Symbol),
					zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		metrics.IncSubmitRetry(gw.Name())
		s.logger.Warn("submit.attempt_failed",
			zap.String("exchange", gw.Name()),
			zap.String("symbol", p.Symbol),
			zap.String("side", p.Side),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, &SubmissionError{
				Exchange: gw.Name(),
				Symbol:   p.Symbol,
				Side:     p.Side,
				Attempts: attempt,
				Err:      ctx.Err(),
			}
		case <-time.After(s.delay):
		}
	}

	s.logger.Error("submit.exhausted",
		zap.String("exchange", gw.Name()),
		zap.String("symbol", p.Symbol),
		zap.String("side", p.Side),
		zap.Int("attempts", maxAttempts),
		zap.Error(lastErr))

	return nil, &SubmissionError{
		Exchange: gw.Name(),
		Symbol:   p.Symbol,
		Side:     p.Side,
		Attempts: maxAttempts,
		Err:      lastErr,
	}
}
