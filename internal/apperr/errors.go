// Package apperr maps domain and backend errors onto HTTP responses.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-storefront-bff/internal/backend"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

// Error represents an application error
type Error struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

// From classifies err. The result is always a fresh *Error.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		cp := *appErr
		return &cp
	}

	var verr *storefront.ValidationError
	if errors.As(err, &verr) {
		return &Error{Code: http.StatusBadRequest, Message: "Validation error", Fields: verr.Fields, Err: err}
	}

	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return New(http.StatusUnauthorized, "Unauthorized", err)
	case errors.Is(err, backend.ErrNotFound):
		return New(http.StatusNotFound, "Not found", err)
	case errors.Is(err, storefront.ErrNoColors),
		errors.Is(err, storefront.ErrUnknownColor),
		errors.Is(err, storefront.ErrUnknownSize),
		errors.Is(err, storefront.ErrSoldOut),
		errors.Is(err, storefront.ErrInvalidQuantity),
		errors.Is(err, storefront.ErrQuantityExceedsStock):
		return New(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, backend.ErrUnavailable):
		return New(http.StatusBadGateway, "Backend unavailable", err)
	}

	var serr *backend.StatusError
	if errors.As(err, &serr) {
		msg := serr.Message
		if msg == "" {
			msg = http.StatusText(serr.Status)
		}
		return New(serr.Status, msg, err)
	}
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// Write renders err as {"code","message"} with the mapped status.
func Write(w http.ResponseWriter, err error) *Error {
	appErr := From(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code)
	_ = json.NewEncoder(w).Encode(appErr)
	return appErr
}
