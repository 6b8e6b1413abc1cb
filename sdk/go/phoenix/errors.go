// Package phoenix provides a Go client for the phoenix machine monitor API.
package phoenix

import (
	"errors"
	"fmt"
)

// Error represents an error from the monitor API with the HTTP status code
// and the server's error message.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("phoenix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == 404
	}
	return false
}

// IsValidation returns true if the error is a 422.
func IsValidation(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == 422
	}
	return false
}
