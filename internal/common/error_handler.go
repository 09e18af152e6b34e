package common

import (
	"errors"
	"fmt"
	"strings"
)

// The survey engine reports failures through prefixed sentinel errors; the
// API layer maps the prefix to an HTTP status. Operator and template
// evaluation never produce errors (they recover to false / the literal
// text); everything else aborts the surrounding transaction.

func NewErrNotFound(elementId string) error {
	return errors.New("404 Not Found: " + elementId)
}

func NewErrBadRequest(message string) error {
	return errors.New("400 Bad Request: " + message)
}

func NewInternalServerError(message string) error {
	return errors.New("500 Internal Server Error: " + message)
}

// NewErrMalformedKey reports a display key that failed to parse.
func NewErrMalformedKey(err error) error {
	return NewErrBadRequest("MALFORMED_KEY " + err.Error())
}

// NewErrUnknownRespondent reports a respondent id with no row.
func NewErrUnknownRespondent(id int64) error {
	return NewErrNotFound(fmt.Sprintf("respondent %d", id))
}

// NewErrUnknownAnswer reports an answer address with no non-deleted row.
func NewErrUnknownAnswer(displayKey string) error {
	return NewErrNotFound("answer '" + displayKey + "'")
}

// NewErrInvalidTextValue reports a text value that does not parse for its
// question type. No state change occurs.
func NewErrInvalidTextValue(message string) error {
	return NewErrBadRequest("INVALID_TEXT_VALUE " + message)
}

// NewErrStorageFailure reports an aborted transaction; callers may retry.
func NewErrStorageFailure(err error) error {
	return NewInternalServerError("STORAGE_FAILURE " + err.Error())
}

func IsErrNotFound(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "404 Not Found: ")
}

func IsErrBadRequest(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "400 Bad Request: ")
}

func IsInternalServerError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "500 Internal Server Error: ")
}
