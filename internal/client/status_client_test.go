package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mockexam-registration/config"
	"mockexam-registration/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream unreachable")

func testClientConfig() config.ClientConfig {
	return config.ClientConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  60 * time.Second,
		RetryAttempts:    3,
		RetryBaseBackoff: time.Second,
		RetryMaxBackoff:  8 * time.Second,
		AttemptTimeout:   5 * time.Second,
	}
}

// sleepRecorder captures requested backoff durations instead of waiting them out.
type sleepRecorder struct {
	mutex  sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sleeps = append(r.sleeps, d)
	return nil
}

// countingFetch fails a fixed number of times, then serves the given snapshot.
type countingFetch struct {
	mutex     sync.Mutex
	calls     int
	failFirst int
	snapshot  *status.AvailabilityStatus
}

func (f *countingFetch) fetch(ctx context.Context) (*status.AvailabilityStatus, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	if f.calls <= f.failFirst {
		return nil, errUpstream
	}
	copied := *f.snapshot
	return &copied, nil
}

func (f *countingFetch) callCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.calls
}

func availableSnapshot() *status.AvailabilityStatus {
	return &status.AvailabilityStatus{
		Status:              status.StatusAvailable,
		CanRegisterFree:     true,
		CanRegisterAdvanced: true,
		Message:             status.MessageFor(status.StatusAvailable),
		MessageTH:           status.MessageTHFor(status.StatusAvailable),
		AsOf:                time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func newTestClient(fetch FetchFunc) (*StatusClient, *CircuitBreaker, *sleepRecorder) {
	breaker := NewCircuitBreaker("morning-status", 3, 60*time.Second)
	c := NewStatusClient("morning-status", fetch, breaker, testClientConfig())
	recorder := &sleepRecorder{}
	c.sleep = recorder.sleep
	return c, breaker, recorder
}

func TestGet_SucceedsAfterTransientFailures(t *testing.T) {
	fetch := &countingFetch{failFirst: 2, snapshot: availableSnapshot()}
	c, breaker, recorder := newTestClient(fetch.fetch)

	got, err := c.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, status.StatusAvailable, got.Status)
	assert.Empty(t, got.Advisory, "fresh data carries no advisory")
	assert.Equal(t, 3, fetch.callCount())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, recorder.sleeps, "exponential backoff between attempts")
	assert.Equal(t, StateClosed, breaker.State(), "a recovered fetch is not a failure")
}

func TestGet_OneBreakerFailurePerExhaustedFetch(t *testing.T) {
	fetch := &countingFetch{failFirst: 1000, snapshot: availableSnapshot()}
	c, breaker, _ := newTestClient(fetch.fetch)

	got, err := c.Get(context.Background())

	require.NoError(t, err, "read paths degrade instead of erroring")
	assert.Equal(t, fallbackAdvisory, got.Advisory)
	assert.Equal(t, 3, fetch.callCount(), "the whole retry budget is one logical fetch")
	assert.Equal(t, StateClosed, breaker.State(), "one exhausted fetch is one failure, not three")

	_, _ = c.Get(context.Background())
	_, _ = c.Get(context.Background())
	assert.Equal(t, StateOpen, breaker.State(), "the third exhausted fetch trips the breaker")
}

func TestGet_OpenBreakerShortCircuitsWithoutFetching(t *testing.T) {
	fetch := &countingFetch{failFirst: 1000, snapshot: availableSnapshot()}
	c, breaker, _ := newTestClient(fetch.fetch)

	for i := 0; i < 3; i++ {
		_, _ = c.Get(context.Background())
	}
	require.Equal(t, StateOpen, breaker.State())
	callsWhenOpened := fetch.callCount()

	got, err := c.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, fallbackAdvisory, got.Advisory)
	assert.Equal(t, callsWhenOpened, fetch.callCount(), "open breaker must not touch the network")
}

func TestGet_FallbackServesLastKnownGood(t *testing.T) {
	fetch := &countingFetch{failFirst: 0, snapshot: availableSnapshot()}
	c, _, _ := newTestClient(fetch.fetch)

	fresh, err := c.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, status.StatusAvailable, fresh.Status)

	// upstream goes dark
	fetch.mutex.Lock()
	fetch.failFirst = 1000
	fetch.mutex.Unlock()

	stale, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fallbackAdvisory, stale.Advisory)
	assert.Contains(t, []status.Availability{status.StatusAvailable, status.StatusLimited}, stale.Status,
		"variance may downgrade AVAILABLE to LIMITED, nothing else")
	if stale.Status == status.StatusLimited {
		assert.Equal(t, status.MessageFor(status.StatusLimited), stale.Message)
	}
}

func TestGet_FallbackNeverUpgrades(t *testing.T) {
	snapshot := availableSnapshot()
	snapshot.Status = status.StatusFull
	snapshot.CanRegisterFree = false
	snapshot.CanRegisterAdvanced = false
	snapshot.ShowDisabledState = true
	snapshot.Message = status.MessageFor(status.StatusFull)
	snapshot.MessageTH = status.MessageTHFor(status.StatusFull)

	fetch := &countingFetch{failFirst: 0, snapshot: snapshot}
	c, _, _ := newTestClient(fetch.fetch)

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	fetch.mutex.Lock()
	fetch.failFirst = 1000
	fetch.mutex.Unlock()

	for i := 0; i < 20; i++ {
		stale, err := c.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, status.StatusFull, stale.Status, "a full session must never look open again from the fallback")
		assert.False(t, stale.CanRegisterFree)
		assert.False(t, stale.CanRegisterAdvanced)
	}
}

func TestGet_NoSnapshotYetServesConservativeDefault(t *testing.T) {
	fetch := &countingFetch{failFirst: 1000, snapshot: availableSnapshot()}
	c, _, _ := newTestClient(fetch.fetch)

	got, err := c.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, status.StatusAvailable, got.Status)
	assert.Equal(t, fallbackAdvisory, got.Advisory)
	assert.NotEmpty(t, got.Message)
	assert.NotEmpty(t, got.MessageTH)
}
