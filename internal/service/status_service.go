package service

import (
	"context"
	"time"

	"mockexam-registration/internal/cache"
	"mockexam-registration/internal/model"
	"mockexam-registration/internal/repository"
	"mockexam-registration/internal/status"
	"mockexam-registration/pkg/logger"

	"go.uber.org/zap"
)

// StatusService is the read path: ledger snapshot -> projection -> cache. It never
// writes the ledger, and its output carries no occupancy numbers.
type StatusService interface {
	GetStatus(ctx context.Context, sessionTime model.SessionTime, examDate time.Time) (*status.AvailabilityStatus, error)
}

type StatusServiceImpl struct {
	ledger     repository.LedgerRepository
	cache      cache.StatusCache
	thresholds status.Thresholds
	cacheTTL   time.Duration
}

func NewStatusService(
	ledger repository.LedgerRepository,
	statusCache cache.StatusCache,
	thresholds status.Thresholds,
	cacheTTL time.Duration,
) StatusService {
	return &StatusServiceImpl{
		ledger:     ledger,
		cache:      statusCache,
		thresholds: thresholds,
		cacheTTL:   cacheTTL,
	}
}

func (s *StatusServiceImpl) GetStatus(ctx context.Context, sessionTime model.SessionTime, examDate time.Time) (*status.AvailabilityStatus, error) {
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, sessionTime, examDate)
		if err != nil {
			// 快取故障降級為直接讀 ledger
			logger.WithComponent("status").Warn("status cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	entry, err := s.ledger.FindBySession(ctx, sessionTime, examDate)
	if err != nil {
		return nil, err
	}

	projected := status.Project(entry, s.thresholds)

	if s.cache != nil {
		if err := s.cache.Set(ctx, sessionTime, examDate, &projected, s.cacheTTL); err != nil {
			logger.WithComponent("status").Warn("status cache write failed", zap.Error(err))
		}
	}

	return &projected, nil
}
