package service

import (
	"context"
	"time"

	"mockexam-registration/internal/model"
	"mockexam-registration/internal/repository"
	apperrors "mockexam-registration/pkg/app_errors"
)

// CodeService serves the downstream check-in flow: look up a code, use it once.
type CodeService interface {
	GetCodeDetails(ctx context.Context, code string) (*model.CodeDetails, error)
	UseCode(ctx context.Context, code string) error
}

type CodeServiceImpl struct {
	codes repository.CodeRepository
	now   func() time.Time
}

func NewCodeService(codes repository.CodeRepository) CodeService {
	return &CodeServiceImpl{
		codes: codes,
		now:   time.Now,
	}
}

func (s *CodeServiceImpl) GetCodeDetails(ctx context.Context, code string) (*model.CodeDetails, error) {
	ec, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	return &model.CodeDetails{
		Code:        ec.Code,
		PackageTier: ec.PackageTier,
		Subject:     ec.Subject,
		SessionTime: ec.SessionTime,
		ExamDate:    ec.ExamDate.Format("2006-01-02"),
		IsExpired:   ec.IsExpired(s.now()),
		IsUsed:      ec.IsUsed(),
	}, nil
}

func (s *CodeServiceImpl) UseCode(ctx context.Context, code string) error {
	ec, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		return err
	}

	if ec.IsExpired(s.now()) {
		return apperrors.ErrCodeExpired
	}
	if ec.IsUsed() {
		return apperrors.ErrCodeAlreadyUsed
	}

	return s.codes.MarkUsed(ctx, code, s.now().UTC())
}
