package common

import "errors"

// AppError is the error currency of the API. Services wrap failures with a
// stable machine code (VALIDATION, NOT_FOUND, INSUFFICIENT_STOCK,
// SHOP_CLOSED, ...) and the HTTP status to respond with; WriteError turns it
// into the canonical error envelope. Message is what the kasir sees, Err is
// what the log sees.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError. Pass err nil when there is no
// underlying cause worth logging.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error chain carries an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
