// Package apperror defines the closed set of failure kinds surfaced by the
// core services. Callers branch on Kind; messages are safe for display.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindBusinessRule      Kind = "business_rule"
	KindInsufficientStock Kind = "insufficient_stock"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func BusinessRulef(format string, args ...any) *Error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError carries the fields the caller needs to render a
// useful rejection: which product, how much was asked, how much is left.
type InsufficientStockError struct {
	Product   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Product, e.Requested, e.Available)
}

// KindOf reports the taxonomy kind of err, or "" for errors outside the
// taxonomy (storage failures and the like).
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return KindInsufficientStock
	}
	return ""
}
