package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySeatMap is returned by the seat matrix builder when the
	// backend reported no usable seat records.
	ErrEmptySeatMap = errors.New("seat map has no seats")

	// ErrSeatLimitExceeded is returned when a toggle would grow the
	// selection past the per-order seat limit.
	ErrSeatLimitExceeded = errors.New("seat limit exceeded")

	// ErrSeatConflict means a requested seat was sold between seat map
	// load and order submission.
	ErrSeatConflict = errors.New("seat already taken")

	// ErrAuthExpired means the account token was rejected; it must reach
	// re-authentication and is never retried silently.
	ErrAuthExpired = errors.New("account token expired")

	// ErrTransient is a network/5xx failure that survived one automatic
	// retry.
	ErrTransient = errors.New("transient backend failure")

	// ErrInsufficientBalance means a payment was declined; the order
	// stays open for the operator to retry or cancel.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrVoucherQuoteFailed means a price re-quote failed and the toggled
	// voucher was rolled back.
	ErrVoucherQuoteFailed = errors.New("voucher quote failed")

	// ErrNoActiveOrder is returned by order operations that need one.
	ErrNoActiveOrder = errors.New("no active order")
)

// SequenceError reports a selection made out of dependency order. It is a
// contract violation of the caller, fatal to the call but not the session.
type SequenceError struct {
	Op      string
	Missing string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("%s requires %s to be selected first", e.Op, e.Missing)
}

func sequenceErr(op, missing string) error {
	return &SequenceError{Op: op, Missing: missing}
}

// ErrorKind tags a surfaced error notification.
type ErrorKind string

const (
	KindSequence            ErrorKind = "sequence"
	KindSeatMapUnavailable  ErrorKind = "seat_map_unavailable"
	KindSeatLimitExceeded   ErrorKind = "seat_limit_exceeded"
	KindSeatConflict        ErrorKind = "seat_conflict"
	KindAuthExpired         ErrorKind = "auth_expired"
	KindTransient           ErrorKind = "transient"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindVoucherQuoteFailed  ErrorKind = "voucher_quote_failed"
	KindVoucherUnavailable  ErrorKind = "voucher_unavailable"
	KindUnknown             ErrorKind = "unknown"
)

// KindOf classifies an error for the notification stream.
func KindOf(err error) ErrorKind {
	var seqErr *SequenceError
	switch {
	case errors.As(err, &seqErr):
		return KindSequence
	case errors.Is(err, ErrEmptySeatMap):
		return KindSeatMapUnavailable
	case errors.Is(err, ErrSeatLimitExceeded):
		return KindSeatLimitExceeded
	case errors.Is(err, ErrSeatConflict):
		return KindSeatConflict
	case errors.Is(err, ErrAuthExpired):
		return KindAuthExpired
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ErrVoucherQuoteFailed):
		return KindVoucherQuoteFailed
	default:
		return KindUnknown
	}
}
