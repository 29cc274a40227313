package codegen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"mockexam-registration/config"
	"mockexam-registration/internal/model"
	"mockexam-registration/internal/monitoring"
	"mockexam-registration/internal/repository"
	apperrors "mockexam-registration/pkg/app_errors"
	"mockexam-registration/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Alphabet 代碼字元集，36^4 ≈ 1.68M 組合/每個 tier/subject bucket
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Issuer interface {
	// Issue mints a globally unique exam code for a committed reservation and persists it.
	// FREE -> FREE-XXXX-<SUBJECT>, ADVANCED -> ADV-XXXX.
	Issue(ctx context.Context, reservationID uuid.UUID, req model.ReservationRequest) (*model.ExamCode, error)
}

type IssuerImpl struct {
	codes    repository.CodeRepository
	tokenLen int
	retries  int
	validity time.Duration
	now      func() time.Time
}

func NewIssuer(codes repository.CodeRepository, cfg config.CodeConfig) Issuer {
	return &IssuerImpl{
		codes:    codes,
		tokenLen: cfg.TokenLength,
		retries:  cfg.IssueRetries,
		validity: cfg.Validity,
		now:      time.Now,
	}
}

func (i *IssuerImpl) Issue(ctx context.Context, reservationID uuid.UUID, req model.ReservationRequest) (*model.ExamCode, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < i.retries; attempt++ {
		token, err := RandomToken(i.tokenLen)
		if err != nil {
			return nil, err
		}

		issuedAt := i.now().UTC()
		code := &model.ExamCode{
			Code:          Format(req.PackageTier, req.Subject, token),
			ReservationID: reservationID,
			PackageTier:   req.PackageTier,
			Subject:       req.Subject,
			SessionTime:   req.SessionTime,
			ExamDate:      req.ExamDate,
			IssuedAt:      issuedAt,
			ExpiresAt:     issuedAt.Add(i.validity),
		}

		created, err := i.codes.Insert(ctx, code)
		if err != nil {
			if errors.Is(err, apperrors.ErrDuplicateCode) {
				monitoring.TrackCodeCollision()
				continue
			}
			return nil, err
		}
		return created, nil
	}

	// keyspace is large; exhausting the retry budget is an operational alarm
	logger.WithComponent("codegen").Error("exam code space exhausted",
		zap.String("tier", string(req.PackageTier)),
		zap.Int("attempts", i.retries),
	)
	return nil, apperrors.ErrCodeSpaceExhausted
}

// Format assembles the wire form of a code from its parts.
func Format(tier model.PackageTier, subject *model.Subject, token string) string {
	if tier == model.TierFree {
		return fmt.Sprintf("FREE-%s-%s", token, *subject)
	}
	return fmt.Sprintf("ADV-%s", token)
}

// RandomToken 以 crypto/rand 產生長度 n 的 [A-Z0-9] token
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := 0; i < n; i++ {
		buf[i] = Alphabet[int(buf[i])%len(Alphabet)]
	}
	return string(buf), nil
}
