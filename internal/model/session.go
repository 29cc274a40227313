package model

import (
	"time"

	apperrors "mockexam-registration/pkg/app_errors"
)

// SessionTime 時段
type SessionTime string

const (
	SessionMorning   SessionTime = "MORNING"
	SessionAfternoon SessionTime = "AFTERNOON"
)

func (s SessionTime) IsValid() bool {
	switch s {
	case SessionMorning, SessionAfternoon:
		return true
	}
	return false
}

// PackageTier 套餐類型
type PackageTier string

const (
	TierFree     PackageTier = "FREE"
	TierAdvanced PackageTier = "ADVANCED"
)

func (t PackageTier) IsValid() bool {
	switch t {
	case TierFree, TierAdvanced:
		return true
	}
	return false
}

// Subject FREE 考卷科目；ADVANCED 一碼涵蓋全部科目，不帶 subject
type Subject string

const (
	SubjectBiology   Subject = "BIOLOGY"
	SubjectChemistry Subject = "CHEMISTRY"
	SubjectPhysics   Subject = "PHYSICS"
)

func (s Subject) IsValid() bool {
	switch s {
	case SubjectBiology, SubjectChemistry, SubjectPhysics:
		return true
	}
	return false
}

// CapacityLedgerEntry is the durable occupancy record, one per (session time, exam date).
// Mutated only through LedgerRepository.ReserveSeat / ReleaseSeat; the version column is
// the optimistic-lock token for the reservation CAS loop.
type CapacityLedgerEntry struct {
	ID               int         `json:"id" db:"id"`
	SessionTime      SessionTime `json:"session_time" db:"session_time"`
	ExamDate         time.Time   `json:"exam_date" db:"exam_date"`
	TotalOccupied    int         `json:"total_occupied" db:"total_occupied"`
	FreeOccupied     int         `json:"free_occupied" db:"free_occupied"`
	MaxCapacity      int         `json:"max_capacity" db:"max_capacity"`
	FreeLimit        int         `json:"free_limit" db:"free_limit"`
	Version          int         `json:"version" db:"version"`
	RegistrationOpen bool        `json:"registration_open" db:"registration_open"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// HasTotalCapacity 檢查總名額是否還有空位
func (e *CapacityLedgerEntry) HasTotalCapacity() bool {
	return e.TotalOccupied < e.MaxCapacity
}

// HasFreeCapacity 檢查 FREE 子配額是否還有空位
func (e *CapacityLedgerEntry) HasFreeCapacity() bool {
	return e.FreeOccupied < e.FreeLimit
}

// ReservationRequest is the ephemeral input to Reserve; it is never persisted.
type ReservationRequest struct {
	SessionTime SessionTime `json:"session_time"`
	ExamDate    time.Time   `json:"exam_date"`
	PackageTier PackageTier `json:"package_tier"`
	Subject     *Subject    `json:"subject,omitempty"`
}

// Validate enforces the tier/subject pairing: FREE requires a subject, ADVANCED forbids one.
func (r *ReservationRequest) Validate() error {
	if !r.SessionTime.IsValid() || !r.PackageTier.IsValid() {
		return apperrors.ErrInvalidRequest
	}
	if r.ExamDate.IsZero() {
		return apperrors.ErrInvalidRequest
	}
	switch r.PackageTier {
	case TierFree:
		if r.Subject == nil || !r.Subject.IsValid() {
			return apperrors.ErrInvalidRequest
		}
	case TierAdvanced:
		if r.Subject != nil {
			return apperrors.ErrInvalidRequest
		}
	}
	return nil
}

// ReservationResult 預約成功響應
type ReservationResult struct {
	ReservationID string      `json:"reservation_id"`
	ExamCode      string      `json:"exam_code"`
	SessionTime   SessionTime `json:"session_time"`
	ExamDate      string      `json:"exam_date"`
	PackageTier   PackageTier `json:"package_tier"`
	Subject       *Subject    `json:"subject,omitempty"`
}
