package repository

import (
	"context"
	"errors"
	"time"

	"mockexam-registration/internal/model"
	apperrors "mockexam-registration/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CodeRepository interface {
	// Insert 依賴 code 欄位的 unique constraint 偵測碰撞，回傳 ErrDuplicateCode
	Insert(ctx context.Context, code *model.ExamCode) (*model.ExamCode, error)
	FindByCode(ctx context.Context, code string) (*model.ExamCode, error)
	// MarkUsed 只成功一次；重複呼叫回傳 ErrCodeAlreadyUsed
	MarkUsed(ctx context.Context, code string, usedAt time.Time) error
}

type CodeRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewCodeRepository(pool *pgxpool.Pool) CodeRepository {
	return &CodeRepositoryImpl{
		pool: pool,
	}
}

const uniqueViolationCode = "23505"

func (r *CodeRepositoryImpl) Insert(ctx context.Context, code *model.ExamCode) (*model.ExamCode, error) {
	query := `
		INSERT INTO exam_codes (
		code, reservation_id, package_tier, subject, session_time, exam_date, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		code.Code, code.ReservationID, code.PackageTier, code.Subject,
		code.SessionTime, code.ExamDate, code.IssuedAt, code.ExpiresAt,
	).Scan(&code.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, apperrors.ErrDuplicateCode
		}
		return nil, err
	}

	return code, nil
}

func (r *CodeRepositoryImpl) FindByCode(ctx context.Context, code string) (*model.ExamCode, error) {
	query := `
		SELECT id, code, reservation_id, package_tier, subject, session_time,
				exam_date, issued_at, expires_at, used_at
		FROM exam_codes
		WHERE code = $1
	`

	var ec model.ExamCode
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&ec.ID,
		&ec.Code,
		&ec.ReservationID,
		&ec.PackageTier,
		&ec.Subject,
		&ec.SessionTime,
		&ec.ExamDate,
		&ec.IssuedAt,
		&ec.ExpiresAt,
		&ec.UsedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrCodeNotFound
		}
		return nil, err
	}

	return &ec, nil
}

func (r *CodeRepositoryImpl) MarkUsed(ctx context.Context, code string, usedAt time.Time) error {
	query := `
		UPDATE exam_codes
		SET used_at = $1
		WHERE code = $2 AND used_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, usedAt, code)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		// distinguish missing code from already-used code
		if _, findErr := r.FindByCode(ctx, code); findErr != nil {
			return findErr
		}
		return apperrors.ErrCodeAlreadyUsed
	}

	return nil
}
