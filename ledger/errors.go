package ledger

import "errors"

// Workflow error kinds. Every workflow surfaces exactly one of these
// (possibly wrapped with detail); callers branch with errors.Is.
var (
	ErrNotFound         = errors.New("not_found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidState     = errors.New("invalid_state")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrAlreadyCheckedIn = errors.New("already_checked_in")
	ErrAlreadyClaimed   = errors.New("already_claimed")
	// ErrContended is returned when another workflow currently holds the
	// per-friendship lock. The caller decides whether to retry; the ledger
	// never retries on its own.
	ErrContended = errors.New("contended")
)
