package apperrors

import (
	"fmt"
	"overtime-approval-backend/models"

	"github.com/pkg/errors"
)

type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(format string, args ...any) error {
	return ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	ID     string
	Entity string // "approval" when empty
}

func (e NotFoundError) Error() string {
	if e.Entity == "" {
		return "approval not found"
	}
	return e.Entity + " not found"
}

type InvalidStateError struct {
	Status models.ApprovalStatus
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("already %s", e.Status)
}

type ExpiredError struct{}

func (e ExpiredError) Error() string {
	return "approval deadline expired (7 days)"
}

type PermissionError struct {
	ActorID string
}

func (e PermissionError) Error() string {
	return "only the designated approver can decide this approval"
}

// TokenError carries a reason that is safe to show to an anonymous caller.
type TokenError struct {
	Reason string
}

func (e TokenError) Error() string {
	return e.Reason
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsInvalidState(err error) bool {
	var target InvalidStateError
	return errors.As(err, &target)
}

func IsExpired(err error) bool {
	var target ExpiredError
	return errors.As(err, &target)
}

func IsPermission(err error) bool {
	var target PermissionError
	return errors.As(err, &target)
}

func IsToken(err error) bool {
	var target TokenError
	return errors.As(err, &target)
}

// IsBusiness reports whether err belongs to the approval taxonomy,
// i.e. it was caused by the request rather than by infrastructure.
func IsBusiness(err error) bool {
	return IsValidation(err) || IsNotFound(err) || IsInvalidState(err) ||
		IsExpired(err) || IsPermission(err) || IsToken(err)
}
