package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericErrorMessage is shown when the backend gives no usable message
const GenericErrorMessage = "request failed"

// ErrUnauthorized is returned for any 401 answer. The client runs its
// unauthorized hook before returning it.
var ErrUnauthorized = errors.New("backend: unauthorized")

// ValidationError reports empty or malformed input caught before any
// request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// APIError is a backend failure carrying the message to display
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
}

func required(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// Message extracts the text of the error banner for err
func Message(err error) string {
	var ve *ValidationError
	var ae *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &ae):
		return ae.Message
	case errors.Is(err, ErrUnauthorized):
		return "session expired, please sign in again"
	default:
		return GenericErrorMessage
	}
}

// HTTPStatus maps err onto the status used by the local API
func HTTPStatus(err error) int {
	var ve *ValidationError
	var ae *APIError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &ae):
		if ae.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
