package domain

import "errors"

// Base kinds. Concrete errors wrap one of these so callers can classify with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

var (
	ErrCartNotFound    = wrap("cart", ErrNotFound)
	ErrItemNotFound    = wrap("cart item", ErrNotFound)
	ErrOrderNotFound   = wrap("order", ErrNotFound)
	ErrProductNotFound = wrap("product", ErrNotFound)

	ErrEmptyCart            = validation("cart is empty")
	ErrUnknownProduct       = validation("no product with this id is found")
	ErrInvalidQuantity      = validation("quantity must be at least 1")
	ErrInvalidPaymentStatus = validation("payment_status must be one of pending, complete, failed")

	ErrStaffOnly = &kindError{msg: "only staff members can update orders", kind: ErrForbidden}
)

type ErrorKind int

const (
	KindStorage ErrorKind = iota
	KindNotFound
	KindValidation
	KindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	default:
		return "storage_failure"
	}
}

// KindOf classifies err. Anything that is not a known client error is a storage failure.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindStorage
	}
}

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func wrap(subject string, kind error) error {
	return &kindError{msg: subject + " " + kind.Error(), kind: kind}
}

func validation(msg string) error {
	return &kindError{msg: msg, kind: ErrValidation}
}
