package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamCode 考試代碼，一筆預約一碼，全域唯一、不重用
type ExamCode struct {
	ID            int         `json:"id" db:"id"`
	Code          string      `json:"code" db:"code"`
	ReservationID uuid.UUID   `json:"reservation_id" db:"reservation_id"`
	PackageTier   PackageTier `json:"package_tier" db:"package_tier"`
	Subject       *Subject    `json:"subject,omitempty" db:"subject"`
	SessionTime   SessionTime `json:"session_time" db:"session_time"`
	ExamDate      time.Time   `json:"exam_date" db:"exam_date"`
	IssuedAt      time.Time   `json:"issued_at" db:"issued_at"`
	ExpiresAt     time.Time   `json:"expires_at" db:"expires_at"`
	UsedAt        *time.Time  `json:"used_at,omitempty" db:"used_at"`
}

// IsUsed 檢查代碼是否已被使用
func (c *ExamCode) IsUsed() bool {
	return c.UsedAt != nil
}

// IsExpired 檢查代碼在指定時間點是否過期
func (c *ExamCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// CodeDetails is the check-in view of a code; it never exposes the reservation internals.
type CodeDetails struct {
	Code        string      `json:"code"`
	PackageTier PackageTier `json:"package_tier"`
	Subject     *Subject    `json:"subject,omitempty"`
	SessionTime SessionTime `json:"session_time"`
	ExamDate    string      `json:"exam_date"`
	IsExpired   bool        `json:"is_expired"`
	IsUsed      bool        `json:"is_used"`
}
