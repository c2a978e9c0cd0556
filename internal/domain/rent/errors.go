package rent

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation so callers can branch on it.
type Kind string

const (
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindNotFound            Kind = "NOT_FOUND"
	KindInvalidParameters   Kind = "INVALID_PARAMETERS"
	KindExpired             Kind = "EXPIRED"
	KindRateMismatch        Kind = "RATE_MISMATCH"
	KindFingerprintMismatch Kind = "FINGERPRINT_MISMATCH"
	KindInsufficientFunds   Kind = "INSUFFICIENT_FUNDS"
	KindTransferRejected    Kind = "TRANSFER_REJECTED"
	KindAlreadySigned       Kind = "ALREADY_SIGNED"
	KindNotYetDue           Kind = "NOT_YET_DUE"
	KindNotActive           Kind = "NOT_ACTIVE"
	KindNotAContract        Kind = "NOT_A_CONTRACT"
)

// Error is a rejected rent operation. Errors with the same Kind match under errors.Is.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	// ErrUnauthorized indicates the caller may not perform the operation.
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	// ErrNotFound indicates no matching rent exists for the key.
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrInvalidParameters indicates a bad rate, duration or expiry.
	ErrInvalidParameters = &Error{Kind: KindInvalidParameters}
	// ErrExpired indicates the offer can no longer be signed.
	ErrExpired = &Error{Kind: KindExpired}
	// ErrRateMismatch indicates the caller confirmed a different rate.
	ErrRateMismatch = &Error{Kind: KindRateMismatch}
	// ErrFingerprintMismatch indicates the composable asset changed.
	ErrFingerprintMismatch = &Error{Kind: KindFingerprintMismatch}
	// ErrInsufficientFunds indicates the payer cannot cover the rate.
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	// ErrTransferRejected indicates an asset or token transfer was refused.
	ErrTransferRejected = &Error{Kind: KindTransferRejected}
	// ErrAlreadySigned indicates the rent already has a tenant.
	ErrAlreadySigned = &Error{Kind: KindAlreadySigned}
	// ErrNotYetDue indicates the rental period has not ended.
	ErrNotYetDue = &Error{Kind: KindNotYetDue}
	// ErrNotActive indicates the rent is unsigned or past due.
	ErrNotActive = &Error{Kind: KindNotActive}
	// ErrNotAContract indicates a reference lacks the required capability.
	ErrNotAContract = &Error{Kind: KindNotAContract}
)

// KindOf extracts the kind of a rent error, or "" for infrastructure failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func fail(op string, kind Kind, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

func wrapKind(op string, kind Kind, err error) error {
	if KindOf(err) != "" {
		return err
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
