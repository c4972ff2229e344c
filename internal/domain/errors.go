package domain

import "fmt"

// Kind classifies an error so callers can tell terminal failures from
// ones where retrying the whole operation is safe.
type Kind string

const (
	KindValidation   Kind = "validation"   // bad input, rejected before any I/O
	KindLinkage      Kind = "linkage"      // party has no linked account or no wallet
	KindResolution   Kind = "resolution"   // identity lookup failed transiently
	KindNotFound     Kind = "not_found"    // unknown intent id
	KindUnauthorized Kind = "unauthorized" // caller is not allowed to see or act
	KindConflict     Kind = "conflict"     // duplicate intent id
	KindStorage      Kind = "storage"      // store I/O failure
	KindDelivery     Kind = "delivery"     // notification could not be delivered
)

// Retryable reports whether repeating the whole operation can succeed.
func (k Kind) Retryable() bool {
	return k == KindResolution || k == KindStorage
}

// Error is the typed error used across the payment core.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any error of the same kind, so sentinel comparisons like
// errors.Is(err, ErrIntentNotFound) also hold for wrapped variants.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// NewError creates a typed error with no cause.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError attaches a cause to a typed error.
func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, walking the wrap chain.
// Unclassified errors report an empty Kind.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

var (
	ErrSelfPayment        = NewError(KindValidation, "sender and recipient are the same identity")
	ErrInvalidAmount      = NewError(KindValidation, "amount must be strictly positive")
	ErrNotLinked          = NewError(KindLinkage, "no linked account for identity")
	ErrSenderNotLinked    = NewError(KindLinkage, "sender has no linked account")
	ErrSenderNoWallet     = NewError(KindLinkage, "sender has no wallet account")
	ErrRecipientNotLinked = NewError(KindLinkage, "recipient has no linked account")
	ErrRecipientNoWallet  = NewError(KindLinkage, "recipient has no wallet account")
	ErrNoCompatibleWallet = NewError(KindLinkage, "no settlement wallet could be selected")
	ErrIntentNotFound     = NewError(KindNotFound, "intent not found")
	ErrDuplicateID        = NewError(KindConflict, "intent id already exists")
	ErrUnauthorized       = NewError(KindUnauthorized, "identity is not a party to this intent")
	ErrNotOperator        = NewError(KindUnauthorized, "caller is not an authorized operator")
	ErrUndeliverable      = NewError(KindDelivery, "notification could not be delivered")
)
