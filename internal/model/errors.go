package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateFingerprint is returned by InsertListing when another row
	// already holds the fingerprint.
	ErrDuplicateFingerprint = errors.New("duplicate listing fingerprint")
	// ErrSourceNotFound is returned for unknown or inactive sources.
	ErrSourceNotFound = errors.New("source not found")
	// ErrInvalidSourceConfig marks a malformed or incomplete source config.
	ErrInvalidSourceConfig = errors.New("invalid source config")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// CollectionError means a source's fetch or parse step failed. It is scoped
// to that source.
type CollectionError struct {
	SourceID string
	Err      error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collecting source %s: %v", e.SourceID, e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// UnresolvedLocationError means a listing's location matched no province and
// no default is configured.
type UnresolvedLocationError struct {
	Location string
}

func (e *UnresolvedLocationError) Error() string {
	return fmt.Sprintf("unresolved location %q", e.Location)
}

// WriteError wraps a storage failure for a single listing.
type WriteError struct {
	Title string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing listing %q: %v", e.Title, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
