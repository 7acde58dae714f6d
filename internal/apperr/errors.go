// Package apperr defines the error codes shared by the client, the
// controller and the edit sessions.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an AppError.
type Code string

const (
	// Malformed outgoing payload, caught before anything is sent.
	ErrInvalidRequestBody Code = "INVALID_REQUEST_BODY"
	// Network or connectivity failure.
	ErrTransport Code = "TRANSPORT_ERROR"
	// Payload could not be decoded into the expected shape.
	ErrDecode Code = "DECODE_ERROR"
	// Client-side validation failure; never reaches the network.
	ErrValidation Code = "VALIDATION_ERROR"
	// Error payload or non-success status from the server.
	ErrServer Code = "SERVER_ERROR"
)

// ErrEmptyField is wrapped by every EmptyField error.
var ErrEmptyField = errors.New("empty field")

// AppError is an error with a code. Status is set for ErrServer.
type AppError struct {
	Code    Code
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err != ErrEmptyField {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps err with a code.
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// EmptyField reports a required field left blank.
func EmptyField(field string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: field + " must not be empty",
		Err:     ErrEmptyField,
	}
}

// Server reports a failure decoded from a response. An empty message falls
// back to the status text.
func Server(status int, code, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = "request failed"
	}
	if code != "" {
		message = code + ": " + message
	}
	return &AppError{Code: ErrServer, Message: message, Status: status}
}

// Is reports whether err, or anything it wraps, is an AppError with code.
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Message returns the text a user should see for err: the AppError message
// when there is one, err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil && appErr.Err != ErrEmptyField && appErr.Code == ErrTransport {
			return appErr.Message + ": " + appErr.Err.Error()
		}
		return appErr.Message
	}
	return err.Error()
}
