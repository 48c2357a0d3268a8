package session

import (
	"context"
	"errors"
	"fmt"

	"sheetsync/smartsheet"
	"sheetsync/uploader"
)

type Kind int

const (
	KindInput Kind = iota
	KindMapping
	KindTransientRemote
	KindFatalRemote
	KindCancelled
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindMapping:
		return "mapping"
	case KindTransientRemote:
		return "transient remote"
	case KindFatalRemote:
		return "fatal remote"
	case KindCancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

var (
	ErrAlreadyProcessing = errors.New("an upload is already in progress")
	ErrNoFile            = errors.New("no source file has been analyzed")
	ErrNotConnected      = errors.New("not connected to a sheet")
	ErrNoData            = errors.New("no data to upload")
	ErrMissingCredential = errors.New("access token is required")
	ErrNoConfirmer       = errors.New("no confirmation handler configured")
)

// Error attaches a failure kind and the phase it happened in.
type Error struct {
	Kind  Kind
	Phase string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Phase, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func inputError(phase string, err error) *Error {
	return &Error{Kind: KindInput, Phase: phase, Err: err}
}

// classify converts an error from a phase into a session Error.
func classify(phase string, err error) *Error {
	var sessionErr *Error
	if errors.As(err, &sessionErr) {
		return sessionErr
	}

	var fatal *uploader.FatalError
	switch {
	case errors.Is(err, uploader.ErrCancelled), errors.Is(err, context.Canceled):
		return &Error{Kind: KindCancelled, Phase: phase, Err: err}
	case errors.As(err, &fatal):
		return &Error{Kind: KindFatalRemote, Phase: phase, Err: err}
	case smartsheet.IsTransient(err):
		return &Error{Kind: KindTransientRemote, Phase: phase, Err: err}
	default:
		return &Error{Kind: KindFatalRemote, Phase: phase, Err: err}
	}
}

// KindOf returns the kind of a session error, or KindInternal for anything
// else.
func KindOf(err error) Kind {
	var sessionErr *Error
	if errors.As(err, &sessionErr) {
		return sessionErr.Kind
	}
	return KindInternal
}
