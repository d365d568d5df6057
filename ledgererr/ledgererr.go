// Package ledgererr defines the closed set of error kinds the ledger
// protocol can fail with, so callers can branch on what went wrong instead
// of matching error strings. It wraps errors the same way the rest of the
// module does (fmt.Errorf with %w) but adds a Kind that errors.As can pull
// out.
package ledgererr

import "fmt"

// Kind is a stable, named failure mode of the protocol (spec §7).
type Kind string

const (
	InvalidSignature     Kind = "invalid_signature"
	UnknownEntity        Kind = "unknown_entity"
	SigNumInUse          Kind = "sig_num_in_use"
	UnissuedSigNum       Kind = "unissued_sig_num"
	NoSigNumbersAvailable Kind = "no_sig_numbers_available"
	StaleDate            Kind = "stale_date"
	FutureDate           Kind = "future_date"
	BalanceDisagreement  Kind = "balance_disagreement"
	InsufficientFunds    Kind = "insufficient_funds"
	NotRequired          Kind = "not_required"
	UnknownAppliedTrx    Kind = "unknown_applied_trx"
	AlreadySigned        Kind = "already_signed"
	InvalidAssetNote     Kind = "invalid_asset_note"
	InvalidIdentity      Kind = "invalid_identity"
	UnknownAction        Kind = "unknown_action"
)

// Error is the concrete error type every protocol-level failure returns.
// An operation that fails this way leaves all state untouched (spec §7).
type Error struct {
	Kind Kind
	Msg  string
	err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is lets errors.Is(err, ledgererr.New(k, "")) match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), err: err}
}

// Sentinel returns a bare *Error usable only as an errors.Is() target.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Of reports the Kind of err if it is (or wraps) a *Error, and ok=true.
func Of(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
