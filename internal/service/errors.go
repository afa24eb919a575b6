package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a service error. Every kind except KindInternal is an
// expected business outcome that the caller caused.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindDuplicateEmail     Kind = "DUPLICATE_EMAIL"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindInvalidToken       Kind = "INVALID_OR_EXPIRED_TOKEN"
	KindInvalidReference   Kind = "INVALID_REFERENCE"
	KindInsufficientStock  Kind = "INSUFFICIENT_STOCK"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// Error is the error type returned by the service layer.
type Error struct {
	Kind    Kind
	Message string
	// Fields maps each invalid input field to what is wrong with it.
	Fields map[string]string
	// Product names the product that ran out of stock.
	Product string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err,
// ErrInvalidReference) holds for every unknown-product failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for kinds whose message never varies. InvalidCredentials and
// InvalidToken collapse several causes into one message on purpose.
var (
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail, Message: "Email is already registered"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken, Message: "Invalid or expired refresh token"}
	ErrInvalidReference   = &Error{Kind: KindInvalidReference, Message: "One or more product ids are invalid"}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock, Message: "Not enough stock"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "Validation failed"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "Not found"}
)

func invalidReference(missing []uint64) *Error {
	ids := make([]string, len(missing))
	for i, id := range missing {
		ids[i] = fmt.Sprint(id)
	}
	return &Error{
		Kind:    KindInvalidReference,
		Message: ErrInvalidReference.Message,
		Fields:  map[string]string{"productIds": "unknown: " + strings.Join(ids, ",")},
	}
}

func insufficientStock(product string) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("Not enough stock for product '%s'", product),
		Product: product,
	}
}

func notFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: op, Cause: err}
}

// KindOf returns the kind of err, or KindInternal when err is not a
// service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// ValidationError accumulates field violations.
type ValidationError struct {
	fields map[string]string
}

// Add records msg for field unless the field already has a violation.
func (v *ValidationError) Add(field, msg string) {
	if v.fields == nil {
		v.fields = map[string]string{}
	}
	if _, ok := v.fields[field]; !ok {
		v.fields[field] = msg
	}
}

// Err returns nil when nothing was recorded, otherwise a KindValidation
// error listing every violation.
func (v *ValidationError) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + v.fields[k]
	}
	return &Error{
		Kind:    KindValidation,
		Message: "Validation failed: " + strings.Join(parts, "; "),
		Fields:  v.fields,
	}
}
