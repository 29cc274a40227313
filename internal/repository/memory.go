package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mockexam-registration/internal/model"
	apperrors "mockexam-registration/pkg/app_errors"
)

// In-memory implementations of LedgerRepository and CodeRepository.
// They back the unit/concurrency tests and the no-database dev mode, the same way
// the channel-backed queue stands in for an external broker.

type MemoryLedgerRepository struct {
	mu      sync.Mutex
	nextID  int
	entries map[int]*model.CapacityLedgerEntry
}

func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		nextID:  1,
		entries: make(map[int]*model.CapacityLedgerEntry),
	}
}

func sessionKey(sessionTime model.SessionTime, examDate time.Time) string {
	return fmt.Sprintf("%s:%s", examDate.Format("2006-01-02"), sessionTime)
}

func (r *MemoryLedgerRepository) Create(ctx context.Context, entry *model.CapacityLedgerEntry) (*model.CapacityLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey(entry.SessionTime, entry.ExamDate)
	for _, existing := range r.entries {
		if sessionKey(existing.SessionTime, existing.ExamDate) == key {
			return nil, apperrors.ErrInvalidRequest
		}
	}

	now := time.Now().UTC()
	entry.ID = r.nextID
	entry.Version = 1
	entry.CreatedAt = now
	entry.UpdatedAt = now
	r.nextID++

	stored := *entry
	r.entries[entry.ID] = &stored
	return entry, nil
}

func (r *MemoryLedgerRepository) List(ctx context.Context) ([]*model.CapacityLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*model.CapacityLedgerEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		copied := *entry
		entries = append(entries, &copied)
	}
	return entries, nil
}

func (r *MemoryLedgerRepository) FindByID(ctx context.Context, id int) (*model.CapacityLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	copied := *entry
	return &copied, nil
}

func (r *MemoryLedgerRepository) FindBySession(ctx context.Context, sessionTime model.SessionTime, examDate time.Time) (*model.CapacityLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey(sessionTime, examDate)
	for _, entry := range r.entries {
		if sessionKey(entry.SessionTime, entry.ExamDate) == key {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, apperrors.ErrSessionNotFound
}

func (r *MemoryLedgerRepository) ReserveSeat(ctx context.Context, id int, version int, tier model.PackageTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return apperrors.ErrSessionNotFound
	}

	// mirrors the conditional UPDATE: stale version or exhausted quota both fail the CAS
	if entry.Version != version {
		return apperrors.ErrVersionConflict
	}
	if entry.TotalOccupied >= entry.MaxCapacity {
		return apperrors.ErrVersionConflict
	}
	if tier == model.TierFree && entry.FreeOccupied >= entry.FreeLimit {
		return apperrors.ErrVersionConflict
	}

	entry.TotalOccupied++
	if tier == model.TierFree {
		entry.FreeOccupied++
	}
	entry.Version++
	entry.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryLedgerRepository) ReleaseSeat(ctx context.Context, id int, tier model.PackageTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	if entry.TotalOccupied <= 0 {
		return apperrors.ErrSessionNotFound
	}
	if tier == model.TierFree && entry.FreeOccupied <= 0 {
		return apperrors.ErrSessionNotFound
	}

	entry.TotalOccupied--
	if tier == model.TierFree {
		entry.FreeOccupied--
	}
	entry.Version++
	entry.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryLedgerRepository) SetRegistrationOpen(ctx context.Context, id int, open bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	entry.RegistrationOpen = open
	entry.Version++
	entry.UpdatedAt = time.Now().UTC()
	return nil
}

type MemoryCodeRepository struct {
	mu     sync.Mutex
	nextID int
	codes  map[string]*model.ExamCode
}

func NewMemoryCodeRepository() *MemoryCodeRepository {
	return &MemoryCodeRepository{
		nextID: 1,
		codes:  make(map[string]*model.ExamCode),
	}
}

func (r *MemoryCodeRepository) Insert(ctx context.Context, code *model.ExamCode) (*model.ExamCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codes[code.Code]; exists {
		return nil, apperrors.ErrDuplicateCode
	}

	code.ID = r.nextID
	r.nextID++
	stored := *code
	r.codes[code.Code] = &stored
	return code, nil
}

func (r *MemoryCodeRepository) FindByCode(ctx context.Context, code string) (*model.ExamCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.codes[code]
	if !ok {
		return nil, apperrors.ErrCodeNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *MemoryCodeRepository) MarkUsed(ctx context.Context, code string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.codes[code]
	if !ok {
		return apperrors.ErrCodeNotFound
	}
	if stored.UsedAt != nil {
		return apperrors.ErrCodeAlreadyUsed
	}
	stored.UsedAt = &usedAt
	return nil
}

// Count 回傳已簽發代碼數，僅供測試驗證
func (r *MemoryCodeRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}
