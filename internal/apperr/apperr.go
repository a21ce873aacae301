// Package apperr defines the small set of error kinds shared by the domain
// services and the transport layer.
package apperr

import (
	"github.com/go-faster/errors"
)

// Kind classifies an application error. The zero value is KindInternal.
type Kind uint8

const (
	// KindInternal covers unexpected storage or third-party failures.
	KindInternal Kind = iota
	// KindValidation is a missing or out-of-range input field.
	KindValidation
	// KindNotFound is an absent coupon, order or product.
	KindNotFound
	// KindConflict is a uniqueness violation, e.g. a duplicate coupon code.
	KindConflict
	// KindExpired is a coupon past its expiry instant.
	KindExpired
	// KindLimitReached is a coupon that exhausted its usage limit.
	KindLimitReached
	// KindUnauthorized is a missing or unknown admin credential.
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExpired:
		return "expired"
	case KindLimitReached:
		return "limit_reached"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is an error carrying a Kind and a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New returns an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an Error of the given kind wrapping err.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation is a shorthand for a KindValidation error with a formatted message.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, errors.Errorf(format, args...).Error())
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind implements the Kinded interface.
func (e *Error) ErrorKind() Kind { return e.Kind }

// Is matches another *Error with the same kind and message. A target with an
// empty message matches any error of its kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Kinded is implemented by errors that know their Kind.
type Kinded interface {
	error
	ErrorKind() Kind
}

// KindOf returns the Kind of the first Kinded error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var k Kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindInternal
}

// MessageOf returns the user-facing message of the first Kinded error in
// err's chain. Internal errors never expose their message.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	var k Kinded
	if errors.As(err, &k) && k.ErrorKind() != KindInternal {
		return k.Error()
	}
	return "internal server error"
}
