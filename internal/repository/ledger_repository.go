package repository

import (
	"context"
	"time"

	"mockexam-registration/internal/model"
	apperrors "mockexam-registration/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LedgerRepository interface {
	Create(ctx context.Context, entry *model.CapacityLedgerEntry) (*model.CapacityLedgerEntry, error)
	List(ctx context.Context) ([]*model.CapacityLedgerEntry, error)
	FindByID(ctx context.Context, id int) (*model.CapacityLedgerEntry, error)
	FindBySession(ctx context.Context, sessionTime model.SessionTime, examDate time.Time) (*model.CapacityLedgerEntry, error)

	// ReserveSeat 以 version 欄位做 CAS：version 不符或配額已滿時回傳 ErrVersionConflict
	ReserveSeat(ctx context.Context, id int, version int, tier model.PackageTier) error
	// ReleaseSeat 補償性回退：代碼簽發失敗時回滾佔位
	ReleaseSeat(ctx context.Context, id int, tier model.PackageTier) error
	SetRegistrationOpen(ctx context.Context, id int, open bool) error
}

type LedgerRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) LedgerRepository {
	return &LedgerRepositoryImpl{
		pool: pool,
	}
}

func (r *LedgerRepositoryImpl) Create(ctx context.Context, entry *model.CapacityLedgerEntry) (*model.CapacityLedgerEntry, error) {
	query := `
		INSERT INTO capacity_ledger (
		session_time, exam_date, total_occupied, free_occupied, max_capacity, free_limit, registration_open)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, session_time, exam_date, total_occupied, free_occupied,
			max_capacity, free_limit, version, registration_open, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		entry.SessionTime, entry.ExamDate, entry.TotalOccupied,
		entry.FreeOccupied, entry.MaxCapacity, entry.FreeLimit, entry.RegistrationOpen,
	).Scan(
		&entry.ID,
		&entry.SessionTime,
		&entry.ExamDate,
		&entry.TotalOccupied,
		&entry.FreeOccupied,
		&entry.MaxCapacity,
		&entry.FreeLimit,
		&entry.Version,
		&entry.RegistrationOpen,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (r *LedgerRepositoryImpl) List(ctx context.Context) ([]*model.CapacityLedgerEntry, error) {
	query := `
		SELECT id, session_time, exam_date, total_occupied, free_occupied,
				max_capacity, free_limit, version, registration_open,
				created_at, updated_at
		FROM capacity_ledger
		ORDER BY exam_date, session_time
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*model.CapacityLedgerEntry, 0)

	for rows.Next() {
		var entry model.CapacityLedgerEntry
		err := rows.Scan(
			&entry.ID,
			&entry.SessionTime,
			&entry.ExamDate,
			&entry.TotalOccupied,
			&entry.FreeOccupied,
			&entry.MaxCapacity,
			&entry.FreeLimit,
			&entry.Version,
			&entry.RegistrationOpen,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *LedgerRepositoryImpl) FindByID(ctx context.Context, id int) (*model.CapacityLedgerEntry, error) {
	query := `
		SELECT id, session_time, exam_date, total_occupied, free_occupied,
				max_capacity, free_limit, version, registration_open,
				created_at, updated_at
		FROM capacity_ledger
		WHERE id = $1
	`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *LedgerRepositoryImpl) FindBySession(ctx context.Context, sessionTime model.SessionTime, examDate time.Time) (*model.CapacityLedgerEntry, error) {
	query := `
		SELECT id, session_time, exam_date, total_occupied, free_occupied,
				max_capacity, free_limit, version, registration_open,
				created_at, updated_at
		FROM capacity_ledger
		WHERE session_time = $1 AND exam_date = $2
	`

	return r.scanOne(r.pool.QueryRow(ctx, query, sessionTime, examDate))
}

func (r *LedgerRepositoryImpl) scanOne(row pgx.Row) (*model.CapacityLedgerEntry, error) {
	var entry model.CapacityLedgerEntry
	err := row.Scan(
		&entry.ID,
		&entry.SessionTime,
		&entry.ExamDate,
		&entry.TotalOccupied,
		&entry.FreeOccupied,
		&entry.MaxCapacity,
		&entry.FreeLimit,
		&entry.Version,
		&entry.RegistrationOpen,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, err
	}

	return &entry, nil
}

// ReserveSeat 條件式 UPDATE：version 必須仍是讀取時的值，且 SQL 端再驗一次配額，
// 確保任何情況下都不會超過 max_capacity / free_limit
func (r *LedgerRepositoryImpl) ReserveSeat(ctx context.Context, id int, version int, tier model.PackageTier) error {
	isFree := tier == model.TierFree

	query := `
		UPDATE capacity_ledger
		SET total_occupied = total_occupied + 1,
			free_occupied = free_occupied + CASE WHEN $1 THEN 1 ELSE 0 END,
			version = version + 1,
			updated_at = $2
		WHERE id = $3 AND version = $4
			AND total_occupied < max_capacity
			AND ($1 = false OR free_occupied < free_limit)
	`

	result, err := r.pool.Exec(ctx, query, isFree, time.Now().UTC(), id, version)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrVersionConflict
	}

	return nil
}

func (r *LedgerRepositoryImpl) ReleaseSeat(ctx context.Context, id int, tier model.PackageTier) error {
	isFree := tier == model.TierFree

	query := `
		UPDATE capacity_ledger
		SET total_occupied = total_occupied - 1,
			free_occupied = free_occupied - CASE WHEN $1 THEN 1 ELSE 0 END,
			version = version + 1,
			updated_at = $2
		WHERE id = $3 AND total_occupied > 0
			AND ($1 = false OR free_occupied > 0)
	`

	result, err := r.pool.Exec(ctx, query, isFree, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrSessionNotFound
	}

	return nil
}

func (r *LedgerRepositoryImpl) SetRegistrationOpen(ctx context.Context, id int, open bool) error {
	query := `
		UPDATE capacity_ledger
		SET registration_open = $1, version = version + 1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, open, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrSessionNotFound
	}

	return nil
}
