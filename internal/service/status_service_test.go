package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mockexam-registration/internal/model"
	"mockexam-registration/internal/repository"
	"mockexam-registration/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStatusCache is an in-memory StatusCache with a switchable failure mode.
type fakeStatusCache struct {
	entries map[string]*status.AvailabilityStatus
	fail    bool
	sets    int
}

func newFakeStatusCache() *fakeStatusCache {
	return &fakeStatusCache{entries: make(map[string]*status.AvailabilityStatus)}
}

func (c *fakeStatusCache) key(sessionTime model.SessionTime, examDate time.Time) string {
	return examDate.Format("2006-01-02") + ":" + string(sessionTime)
}

func (c *fakeStatusCache) Get(ctx context.Context, sessionTime model.SessionTime, examDate time.Time) (*status.AvailabilityStatus, bool, error) {
	if c.fail {
		return nil, false, errors.New("cache down")
	}
	st, ok := c.entries[c.key(sessionTime, examDate)]
	if !ok {
		return nil, false, nil
	}
	copied := *st
	return &copied, true, nil
}

func (c *fakeStatusCache) Set(ctx context.Context, sessionTime model.SessionTime, examDate time.Time, st *status.AvailabilityStatus, ttl time.Duration) error {
	if c.fail {
		return errors.New("cache down")
	}
	copied := *st
	c.entries[c.key(sessionTime, examDate)] = &copied
	c.sets++
	return nil
}

func (c *fakeStatusCache) Invalidate(ctx context.Context, sessionTime model.SessionTime, examDate time.Time) error {
	delete(c.entries, c.key(sessionTime, examDate))
	return nil
}

func setupStatusService(t *testing.T, totalOccupied int, statusCache *fakeStatusCache) (StatusService, *repository.MemoryLedgerRepository, *model.CapacityLedgerEntry) {
	t.Helper()
	ledger := repository.NewMemoryLedgerRepository()
	entry, err := ledger.Create(context.Background(), &model.CapacityLedgerEntry{
		SessionTime:      model.SessionMorning,
		ExamDate:         testExamDate,
		TotalOccupied:    totalOccupied,
		MaxCapacity:      300,
		FreeLimit:        150,
		RegistrationOpen: true,
	})
	require.NoError(t, err)

	var svc StatusService
	if statusCache != nil {
		svc = NewStatusService(ledger, statusCache, status.DefaultThresholds(), 3*time.Second)
	} else {
		svc = NewStatusService(ledger, nil, status.DefaultThresholds(), 3*time.Second)
	}
	return svc, ledger, entry
}

func TestGetStatus_ProjectsAndCaches(t *testing.T) {
	statusCache := newFakeStatusCache()
	svc, _, _ := setupStatusService(t, 250, statusCache)

	got, err := svc.GetStatus(context.Background(), model.SessionMorning, testExamDate)

	require.NoError(t, err)
	assert.Equal(t, status.StatusLimited, got.Status)
	assert.Equal(t, 1, statusCache.sets, "a miss fills the cache")
}

func TestGetStatus_ServesFromCacheWithinTTL(t *testing.T) {
	statusCache := newFakeStatusCache()
	svc, ledger, entry := setupStatusService(t, 10, statusCache)
	ctx := context.Background()

	first, err := svc.GetStatus(ctx, model.SessionMorning, testExamDate)
	require.NoError(t, err)
	require.Equal(t, status.StatusAvailable, first.Status)

	// ledger moves, but the cached projection is still served
	for i := 0; i < 5; i++ {
		fresh, ferr := ledger.FindByID(ctx, entry.ID)
		require.NoError(t, ferr)
		require.NoError(t, ledger.ReserveSeat(ctx, entry.ID, fresh.Version, model.TierAdvanced))
	}

	second, err := svc.GetStatus(ctx, model.SessionMorning, testExamDate)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, 1, statusCache.sets, "a hit must not re-project")
}

func TestGetStatus_CacheFailureDegradesToLedger(t *testing.T) {
	statusCache := newFakeStatusCache()
	statusCache.fail = true
	svc, _, _ := setupStatusService(t, 290, statusCache)

	got, err := svc.GetStatus(context.Background(), model.SessionMorning, testExamDate)

	require.NoError(t, err, "a broken cache must not break the read path")
	assert.Equal(t, status.StatusAdvancedOnly, got.Status)
}

func TestGetStatus_WorksWithoutCache(t *testing.T) {
	svc, _, _ := setupStatusService(t, 300, nil)

	got, err := svc.GetStatus(context.Background(), model.SessionMorning, testExamDate)

	require.NoError(t, err)
	assert.Equal(t, status.StatusFull, got.Status)
	assert.True(t, got.ShowDisabledState)
}

func TestGetStatus_UnknownSession(t *testing.T) {
	svc, _, _ := setupStatusService(t, 0, newFakeStatusCache())

	_, err := svc.GetStatus(context.Background(), model.SessionAfternoon, testExamDate)
	assert.Error(t, err)
}
