package client

import (
	"errors"
	"fmt"
)

// Session errors
var (
	ErrPlatformUnavailable = errors.New("telegram data unavailable")   // no request issued
	ErrAuthRejected        = errors.New("authentication rejected")     // non-2xx from /auth/telegram
	ErrUnauthorized        = errors.New("session expired")             // 401
	ErrNoCredential        = errors.New("not authenticated")           // no request issued
	ErrForbidden           = errors.New("no admin rights")             // 403
	ErrRequestFailed       = errors.New("request failed")              // other non-2xx, or status != "ok"
)

// Transport errors
var (
	ErrTransport = errors.New("cannot connect to server")
	ErrTimeout   = errors.New("request timed out")
	ErrCanceled  = errors.New("request canceled")
)

// Client-side guards; none of these reach the network.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotOwner          = errors.New("not the owner")
	ErrOwnAuction        = errors.New("cannot buy your own auction")
	ErrAlreadyCompleted  = errors.New("task already completed")
	ErrNotFound          = errors.New("not found")
	ErrBusy              = errors.New("request already in progress")
)

// APIError is returned when the server answered but did not succeed.
type APIError struct {
	Status  int
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Message renders err as the inline text a view shows next to the control
// that triggered it.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}

	var apiErr *APIError
	switch {
	case errors.Is(err, ErrPlatformUnavailable):
		return "Telegram data unavailable. The app must run in Telegram"
	case errors.Is(err, ErrAuthRejected):
		if errors.As(err, &apiErr) {
			return fmt.Sprintf("Auth error: %d", apiErr.Status)
		}
		return "Auth error"
	case errors.Is(err, ErrUnauthorized):
		return "Session expired. Reopen the app to sign in again"
	case errors.Is(err, ErrForbidden):
		return "no admin rights"
	case errors.Is(err, ErrTimeout):
		return "Server did not respond in time"
	case errors.Is(err, ErrCanceled):
		return "Request canceled"
	case errors.Is(err, ErrTransport):
		return "Cannot connect to server"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient funds"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return err.Error()
}
