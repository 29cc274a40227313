package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mockexam-registration/config"
	"mockexam-registration/internal/codegen"
	"mockexam-registration/internal/model"
	"mockexam-registration/internal/queue"
	"mockexam-registration/internal/repository"
	apperrors "mockexam-registration/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testExamDate = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func setupAllocation(t *testing.T, maxCapacity, freeLimit, totalOccupied, freeOccupied, casRetries int) (AllocationService, *repository.MemoryLedgerRepository, *repository.MemoryCodeRepository, int) {
	t.Helper()

	ledger := repository.NewMemoryLedgerRepository()
	entry, err := ledger.Create(context.Background(), &model.CapacityLedgerEntry{
		SessionTime:      model.SessionMorning,
		ExamDate:         testExamDate,
		TotalOccupied:    totalOccupied,
		FreeOccupied:     freeOccupied,
		MaxCapacity:      maxCapacity,
		FreeLimit:        freeLimit,
		RegistrationOpen: true,
	})
	require.NoError(t, err)

	codes := repository.NewMemoryCodeRepository()
	issuer := codegen.NewIssuer(codes, config.CodeConfig{
		TokenLength:  4,
		IssueRetries: 10,
		Validity:     90 * 24 * time.Hour,
	})
	confirmations := queue.NewConfirmationQueue(1024)

	svc := NewAllocationService(ledger, issuer, confirmations, casRetries)
	return svc, ledger, codes, entry.ID
}

func freeReservation(subject model.Subject) model.ReservationRequest {
	return model.ReservationRequest{
		SessionTime: model.SessionMorning,
		ExamDate:    testExamDate,
		PackageTier: model.TierFree,
		Subject:     &subject,
	}
}

func advancedReservation() model.ReservationRequest {
	return model.ReservationRequest{
		SessionTime: model.SessionMorning,
		ExamDate:    testExamDate,
		PackageTier: model.TierAdvanced,
	}
}

func TestReserve_Success(t *testing.T) {
	svc, ledger, codes, entryID := setupAllocation(t, 300, 150, 0, 0, 5)
	ctx := context.Background()

	result, err := svc.Reserve(ctx, freeReservation(model.SubjectBiology))

	require.NoError(t, err)
	assert.NotEmpty(t, result.ReservationID)
	assert.Regexp(t, `^FREE-[A-Z0-9]{4}-BIOLOGY$`, result.ExamCode)

	entry, err := ledger.FindByID(ctx, entryID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.TotalOccupied)
	assert.Equal(t, 1, entry.FreeOccupied)
	assert.Equal(t, 1, codes.Count())
}

// Simulates real scenario: 50 users competing for the last 10 free-tier seats.
// CAS retry budget is raised so every caller resolves to a definite outcome
// instead of ErrContended under the artificial all-at-once burst.
func TestConcurrentReserve_FreeTierNoOverAllocation(t *testing.T) {
	freeSeatsLeft := 10
	svc, ledger, codes, entryID := setupAllocation(t, 300, 140+freeSeatsLeft, 140, 140, 100)
	ctx := context.Background()

	concurrentUsers := 50

	var wg sync.WaitGroup
	successCount := 0
	freeTierFullCount := 0
	var mu sync.Mutex

	for i := 0; i < concurrentUsers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := svc.Reserve(ctx, freeReservation(model.SubjectPhysics))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successCount++
			case errors.Is(err, apperrors.ErrFreeTierFull):
				freeTierFullCount++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	t.Logf("50 users competing for 10 free seats - Success: %d, FreeTierFull: %d", successCount, freeTierFullCount)

	entry, err := ledger.FindByID(ctx, entryID)
	require.NoError(t, err)
	assert.Equal(t, freeSeatsLeft, successCount, "successes must equal remaining free quota")
	assert.Equal(t, concurrentUsers-freeSeatsLeft, freeTierFullCount)
	assert.Equal(t, 150, entry.FreeOccupied, "free quota must be exactly exhausted, never exceeded")
	assert.Equal(t, 150, entry.TotalOccupied)
	assert.Equal(t, freeSeatsLeft, codes.Count(), "exactly one code per successful reservation")
}

func TestConcurrentReserve_TotalCapacityNoOverAllocation(t *testing.T) {
	svc, ledger, _, entryID := setupAllocation(t, 300, 150, 295, 100, 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	successCount := 0
	sessionFullCount := 0
	var mu sync.Mutex

	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := svc.Reserve(ctx, advancedReservation())

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successCount++
			case errors.Is(err, apperrors.ErrSessionFull):
				sessionFullCount++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	entry, err := ledger.FindByID(ctx, entryID)
	require.NoError(t, err)
	assert.Equal(t, 5, successCount)
	assert.Equal(t, 35, sessionFullCount)
	assert.Equal(t, 300, entry.TotalOccupied)
	assert.LessOrEqual(t, entry.FreeOccupied, entry.FreeLimit)
}

// ADVANCED keeps filling the shared pool after the FREE sub-quota is exhausted
func TestReserve_AdvancedContinuesAfterFreeTierFull(t *testing.T) {
	svc, _, _, _ := setupAllocation(t, 300, 150, 150, 150, 5)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, freeReservation(model.SubjectChemistry))
	assert.ErrorIs(t, err, apperrors.ErrFreeTierFull)

	result, err := svc.Reserve(ctx, advancedReservation())
	require.NoError(t, err)
	assert.Regexp(t, `^ADV-[A-Z0-9]{4}$`, result.ExamCode)
}

func TestReserve_CapacityExhaustedReasons(t *testing.T) {
	t.Run("FreeTierFull", func(t *testing.T) {
		svc, ledger, _, entryID := setupAllocation(t, 300, 150, 200, 150, 5)
		_, err := svc.Reserve(context.Background(), freeReservation(model.SubjectBiology))
		assert.ErrorIs(t, err, apperrors.ErrFreeTierFull)

		entry, _ := ledger.FindByID(context.Background(), entryID)
		assert.Equal(t, 200, entry.TotalOccupied, "no mutation on refusal")
	})

	t.Run("SessionFull", func(t *testing.T) {
		svc, _, _, _ := setupAllocation(t, 300, 150, 300, 100, 5)
		_, err := svc.Reserve(context.Background(), freeReservation(model.SubjectBiology))
		assert.ErrorIs(t, err, apperrors.ErrSessionFull)

		_, err = svc.Reserve(context.Background(), advancedReservation())
		assert.ErrorIs(t, err, apperrors.ErrSessionFull)
	})
}

func TestReserve_SessionClosed(t *testing.T) {
	svc, ledger, _, entryID := setupAllocation(t, 300, 150, 0, 0, 5)
	require.NoError(t, ledger.SetRegistrationOpen(context.Background(), entryID, false))

	_, err := svc.Reserve(context.Background(), advancedReservation())
	assert.ErrorIs(t, err, apperrors.ErrSessionClosed)
}

func TestReserve_SessionNotFound(t *testing.T) {
	svc, _, _, _ := setupAllocation(t, 300, 150, 0, 0, 5)

	req := advancedReservation()
	req.SessionTime = model.SessionAfternoon
	_, err := svc.Reserve(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestReserve_InvalidRequest(t *testing.T) {
	svc, ledger, _, entryID := setupAllocation(t, 300, 150, 0, 0, 5)
	ctx := context.Background()

	t.Run("FreeWithoutSubject", func(t *testing.T) {
		req := model.ReservationRequest{
			SessionTime: model.SessionMorning,
			ExamDate:    testExamDate,
			PackageTier: model.TierFree,
		}
		_, err := svc.Reserve(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	t.Run("AdvancedWithSubject", func(t *testing.T) {
		subject := model.SubjectBiology
		req := model.ReservationRequest{
			SessionTime: model.SessionMorning,
			ExamDate:    testExamDate,
			PackageTier: model.TierAdvanced,
			Subject:     &subject,
		}
		_, err := svc.Reserve(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	entry, _ := ledger.FindByID(ctx, entryID)
	assert.Equal(t, 0, entry.TotalOccupied, "invalid requests never touch the ledger")
}

// failingIssuer simulates a code store fault after the seat CAS has committed.
type failingIssuer struct{}

func (f *failingIssuer) Issue(ctx context.Context, reservationID uuid.UUID, req model.ReservationRequest) (*model.ExamCode, error) {
	return nil, apperrors.ErrStorageUnavailable
}

func TestReserve_RollbackWhenCodeIssuanceFails(t *testing.T) {
	ledger := repository.NewMemoryLedgerRepository()
	entry, err := ledger.Create(context.Background(), &model.CapacityLedgerEntry{
		SessionTime:      model.SessionMorning,
		ExamDate:         testExamDate,
		TotalOccupied:    42,
		FreeOccupied:     20,
		MaxCapacity:      300,
		FreeLimit:        150,
		RegistrationOpen: true,
	})
	require.NoError(t, err)

	svc := NewAllocationService(ledger, &failingIssuer{}, queue.NewConfirmationQueue(16), 5)

	_, err = svc.Reserve(context.Background(), freeReservation(model.SubjectBiology))
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	// seat increment and code are one unit of work: the increment must be compensated
	after, err := ledger.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, after.TotalOccupied)
	assert.Equal(t, 20, after.FreeOccupied)
}

// contendedLedger loses every CAS attempt, as if other registrants always commit first.
type contendedLedger struct {
	*repository.MemoryLedgerRepository
}

func (l *contendedLedger) ReserveSeat(ctx context.Context, id int, version int, tier model.PackageTier) error {
	return apperrors.ErrVersionConflict
}

func TestReserve_ContendedFailureAfterRetriesExhausted(t *testing.T) {
	memory := repository.NewMemoryLedgerRepository()
	_, err := memory.Create(context.Background(), &model.CapacityLedgerEntry{
		SessionTime:      model.SessionMorning,
		ExamDate:         testExamDate,
		MaxCapacity:      300,
		FreeLimit:        150,
		RegistrationOpen: true,
	})
	require.NoError(t, err)

	ledger := &contendedLedger{MemoryLedgerRepository: memory}
	issuer := codegen.NewIssuer(repository.NewMemoryCodeRepository(), config.GetCodeConfig())
	svc := NewAllocationService(ledger, issuer, queue.NewConfirmationQueue(16), 5)

	_, err = svc.Reserve(context.Background(), advancedReservation())
	assert.ErrorIs(t, err, apperrors.ErrContended)
}
