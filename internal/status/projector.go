// Package status projects a capacity ledger snapshot into the UI-safe availability
// shape. Raw occupancy numbers never leave this package: callers only ever see the
// status enum, the capability booleans and the display messages.
package status

import (
	"time"

	"mockexam-registration/internal/model"
)

type Availability string

const (
	StatusAvailable    Availability = "AVAILABLE"
	StatusLimited      Availability = "LIMITED"
	StatusAdvancedOnly Availability = "ADVANCED_ONLY"
	StatusFull         Availability = "FULL"
	StatusClosed       Availability = "CLOSED"
)

// AvailabilityStatus 對外唯一可見的場次狀態，不含任何人數或百分比
type AvailabilityStatus struct {
	Status              Availability `json:"status"`
	CanRegisterFree     bool         `json:"can_register_free"`
	CanRegisterAdvanced bool         `json:"can_register_advanced"`
	ShowDisabledState   bool         `json:"show_disabled_state"`
	Message             string       `json:"message"`
	MessageTH           string       `json:"message_th"`
	AsOf                time.Time    `json:"as_of"`
	// Advisory is set by the polling client when serving fallback data.
	Advisory string `json:"advisory,omitempty"`
}

// Thresholds 佔用率門檻；預設 0.80 / 0.95，見 config
type Thresholds struct {
	LimitedRatio      float64
	AdvancedOnlyRatio float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		LimitedRatio:      0.80,
		AdvancedOnlyRatio: 0.95,
	}
}

// Project is pure and side-effect free; it may be called on every read against a
// possibly stale snapshot without touching the ledger's write path.
func Project(entry *model.CapacityLedgerEntry, th Thresholds) AvailabilityStatus {
	s := availabilityOf(entry, th)

	canFree := s != StatusFull && s != StatusAdvancedOnly && s != StatusClosed &&
		entry.HasFreeCapacity()
	canAdvanced := s != StatusFull && s != StatusClosed

	return AvailabilityStatus{
		Status:              s,
		CanRegisterFree:     canFree,
		CanRegisterAdvanced: canAdvanced,
		ShowDisabledState:   !canFree && !canAdvanced,
		Message:             MessageFor(s),
		MessageTH:           MessageTHFor(s),
		AsOf:                time.Now().UTC(),
	}
}

func availabilityOf(entry *model.CapacityLedgerEntry, th Thresholds) Availability {
	if !entry.RegistrationOpen {
		return StatusClosed
	}

	pct := float64(entry.TotalOccupied) / float64(entry.MaxCapacity)
	switch {
	case pct >= 1.0:
		return StatusFull
	case pct >= th.AdvancedOnlyRatio:
		return StatusAdvancedOnly
	case pct >= th.LimitedRatio:
		return StatusLimited
	default:
		return StatusAvailable
	}
}
