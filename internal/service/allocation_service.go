package service

import (
	"context"
	"errors"
	"fmt"

	"mockexam-registration/internal/codegen"
	"mockexam-registration/internal/model"
	"mockexam-registration/internal/monitoring"
	"mockexam-registration/internal/queue"
	"mockexam-registration/internal/repository"
	apperrors "mockexam-registration/pkg/app_errors"
	"mockexam-registration/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllocationService is the only writer of the capacity ledger. Reserve is one
// read-evaluate-CAS cycle per attempt; no lock is held across attempts, and the
// code issuance happens only after the CAS has committed, outside the contended window.
type AllocationService interface {
	Reserve(ctx context.Context, req model.ReservationRequest) (*model.ReservationResult, error)
}

type AllocationServiceImpl struct {
	ledger        repository.LedgerRepository
	issuer        codegen.Issuer
	confirmations queue.ConfirmationQueue
	casRetries    int
}

func NewAllocationService(
	ledger repository.LedgerRepository,
	issuer codegen.Issuer,
	confirmations queue.ConfirmationQueue,
	casRetries int,
) AllocationService {
	return &AllocationServiceImpl{
		ledger:        ledger,
		issuer:        issuer,
		confirmations: confirmations,
		casRetries:    casRetries,
	}
}

func (s *AllocationServiceImpl) Reserve(ctx context.Context, req model.ReservationRequest) (*model.ReservationResult, error) {
	if err := req.Validate(); err != nil {
		monitoring.TrackReservation(string(req.PackageTier), "invalid")
		return nil, err
	}

	for attempt := 0; attempt < s.casRetries; attempt++ {
		entry, err := s.ledger.FindBySession(ctx, req.SessionTime, req.ExamDate)
		if err != nil {
			if errors.Is(err, apperrors.ErrSessionNotFound) {
				monitoring.TrackReservation(string(req.PackageTier), "not_found")
				return nil, err
			}
			monitoring.TrackReservation(string(req.PackageTier), "storage_error")
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
		}

		if !entry.RegistrationOpen {
			monitoring.TrackReservation(string(req.PackageTier), "closed")
			return nil, apperrors.ErrSessionClosed
		}

		// 資格判定：FREE 同時受子配額與總量限制，ADVANCED 只受總量限制
		if err := checkEligibility(entry, req.PackageTier); err != nil {
			monitoring.TrackReservation(string(req.PackageTier), "exhausted")
			return nil, err
		}

		err = s.ledger.ReserveSeat(ctx, entry.ID, entry.Version, req.PackageTier)
		if err != nil {
			if errors.Is(err, apperrors.ErrVersionConflict) {
				// 其他預約先寫入成功；重新讀取、重新判定
				monitoring.TrackCASConflict()
				continue
			}
			monitoring.TrackReservation(string(req.PackageTier), "storage_error")
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
		}

		return s.finishReservation(ctx, entry.ID, req)
	}

	monitoring.TrackReservation(string(req.PackageTier), "contended")
	return nil, apperrors.ErrContended
}

// finishReservation 佔位已成立：簽發代碼，失敗則補償回退佔位
func (s *AllocationServiceImpl) finishReservation(ctx context.Context, entryID int, req model.ReservationRequest) (*model.ReservationResult, error) {
	reservationID := uuid.New()

	code, err := s.issuer.Issue(ctx, reservationID, req)
	if err != nil {
		// 佔位與代碼是同一個工作單元：回滾使用 context.Background()，
		// 確保即使呼叫端已取消，回退也一定執行
		if rbErr := s.ledger.ReleaseSeat(context.Background(), entryID, req.PackageTier); rbErr != nil {
			logger.WithComponent("allocation").Error("seat rollback failed after code issuance failure",
				zap.Int("entry_id", entryID),
				zap.String("tier", string(req.PackageTier)),
				zap.Error(rbErr),
			)
		}
		monitoring.TrackReservation(string(req.PackageTier), "code_failure")
		return nil, err
	}

	result := &model.ReservationResult{
		ReservationID: reservationID.String(),
		ExamCode:      code.Code,
		SessionTime:   req.SessionTime,
		ExamDate:      req.ExamDate.Format("2006-01-02"),
		PackageTier:   req.PackageTier,
		Subject:       req.Subject,
	}

	// 確認通知走隊列；發送失敗只記錄，不影響已成立的預約
	confirmation := &queue.Confirmation{
		ReservationID: result.ReservationID,
		ExamCode:      result.ExamCode,
		SessionTime:   result.SessionTime,
		ExamDate:      result.ExamDate,
		PackageTier:   result.PackageTier,
		Subject:       result.Subject,
	}
	if err := s.confirmations.PublishConfirmation(ctx, confirmation); err != nil {
		logger.WithComponent("allocation").Warn("failed to publish confirmation",
			zap.String("reservation_id", result.ReservationID),
			zap.Error(err),
		)
	}

	monitoring.TrackReservation(string(req.PackageTier), "success")
	return result, nil
}

func checkEligibility(entry *model.CapacityLedgerEntry, tier model.PackageTier) error {
	if !entry.HasTotalCapacity() {
		return apperrors.ErrSessionFull
	}
	if tier == model.TierFree && !entry.HasFreeCapacity() {
		return apperrors.ErrFreeTierFull
	}
	return nil
}
