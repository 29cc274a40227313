package apperrors

import "errors"

var (
	ErrSessionNotFound    = errors.New("exam session not found")
	ErrSessionClosed      = errors.New("registration closed for session")
	ErrFreeTierFull       = errors.New("free tier quota exhausted")
	ErrSessionFull        = errors.New("session capacity exhausted")
	ErrContended          = errors.New("reservation contention, retries exhausted")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrCodeSpaceExhausted = errors.New("exam code space exhausted")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCodeNotFound       = errors.New("exam code not found")
	ErrCodeAlreadyUsed    = errors.New("exam code already used")
	ErrCodeExpired        = errors.New("exam code expired")

	// ErrVersionConflict signals a lost CAS race; callers re-read and retry.
	ErrVersionConflict = errors.New("ledger version conflict")
	// ErrDuplicateCode signals a unique-constraint collision during code issuance.
	ErrDuplicateCode = errors.New("duplicate exam code")
)
