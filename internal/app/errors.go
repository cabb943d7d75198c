package app

import (
	"errors"

	"github.com/opentube/opentube/internal/ports"
)

var (
	ErrNotFound = ports.ErrNotFound
	ErrConflict = ports.ErrConflict

	// ErrAlreadySubscribed is returned when a subscription add names a
	// channel id that already exists in the store.
	ErrAlreadySubscribed = errors.New("already subscribed")

	// ErrChannelNotFound covers both a failed name lookup and an
	// unparsable channel page.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNotAvailable means no playable URL exists at or below the
	// requested quality ceiling.
	ErrNotAvailable = errors.New("no playable url at or below requested quality")

	// ErrVideoNotFound is returned when a video id resolves to nothing.
	ErrVideoNotFound = errors.New("video not found")
)

// CodedError carries a stable error code for transfer failures that
// cross the event bus.
//
// Codes in use: network_error, http_status, io_error.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }
