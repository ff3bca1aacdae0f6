// Package apperr defines the error kinds shared by the services and the
// status codes the HTTP layer reports for them.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateAccount   = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("not found")
	ErrStorageFailure     = errors.New("storage failure")
)

// HTTPStatus maps an error to the status code the transport layer responds with.
// Errors of unknown kind are internal.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateAccount):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to show a client for err.
func PublicMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusConflict:
		return ErrDuplicateAccount.Error()
	case http.StatusUnauthorized:
		if errors.Is(err, ErrInvalidCredentials) {
			return ErrInvalidCredentials.Error()
		}
		return "unauthorized"
	case http.StatusNotFound:
		return "note not found"
	default:
		return "internal error"
	}
}
