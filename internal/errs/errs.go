// Package errs defines the error taxonomy shared by the auction, bid and
// settlement services. Handlers map these onto HTTP status codes; everything
// else stays a plain wrapped error.
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// NotFoundError: the referenced record does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError: malformed or insufficient input. For rejected bids,
// MinimumBid carries the computed minimum acceptable amount.
type ValidationError struct {
	Msg        string
	MinimumBid decimal.Decimal
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func BidTooLow(minimum decimal.Decimal) error {
	return &ValidationError{
		Msg:        fmt.Sprintf("minimum bid is %s", minimum.String()),
		MinimumBid: minimum,
	}
}

// BusinessRuleError: valid input against the wrong state, like a session
// that is not open or a bidder who is not enrolled.
type BusinessRuleError struct {
	Msg string
}

func (e *BusinessRuleError) Error() string { return e.Msg }

func BusinessRulef(format string, args ...interface{}) error {
	return &BusinessRuleError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError: a retryable race loss. The caller should re-fetch the
// current state and resubmit, never blindly retry the stale amount.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflictf(format string, args ...interface{}) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// AuthorizationError: the caller lacks the capability for this entry point.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

func Unauthorizedf(format string, args ...interface{}) error {
	return &AuthorizationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError: the attempted session-status edge is not in the
// lifecycle graph. Never a silent no-op.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid session transition %s -> %s", e.From, e.To)
}

func InvalidTransition(from, to string) error {
	return &InvalidTransitionError{From: from, To: to}
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// HTTPStatus maps a taxonomy error onto a status code; unknown errors are 500.
func HTTPStatus(err error) int {
	var (
		nf *NotFoundError
		ve *ValidationError
		br *BusinessRuleError
		ce *ConflictError
		ae *AuthorizationError
		te *InvalidTransitionError
	)
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &br), errors.As(err, &te):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ce):
		return http.StatusConflict
	case errors.As(err, &ae):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
