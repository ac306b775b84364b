package normalizer

import (
	"errors"
	"fmt"
	"os"
)

var (
	// the target does not exist or refused the connection
	ErrSourceUnavailable = errors.New("source unavailable")
	// the target answered with a non-success status or denied access
	ErrSourceUnauthorized = errors.New("source unauthorized")
	// a single item of an otherwise valid source could not be parsed
	ErrParseFailure = errors.New("parse failure")
)

// SourceError ties one of the error kinds above to the location it happened at.
type SourceError struct {
	Kind     error
	Location string
	Err      error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Location, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Unavailable(location string, err error) error {
	return &SourceError{Kind: ErrSourceUnavailable, Location: location, Err: err}
}

func Unauthorized(location string, err error) error {
	return &SourceError{Kind: ErrSourceUnauthorized, Location: location, Err: err}
}

func ParseFailure(location string, err error) error {
	return &SourceError{Kind: ErrParseFailure, Location: location, Err: err}
}

// OpenFileError classifies the error of opening a local file.
func OpenFileError(path string, err error) error {
	if errors.Is(err, os.ErrPermission) {
		return Unauthorized(path, err)
	}
	return Unavailable(path, err)
}

// StatusError is returned for a non-success response status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("status %s", e.Status)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}
