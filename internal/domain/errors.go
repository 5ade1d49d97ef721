package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when the user has no running quiz.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrTestNotFound indicates the requested test code is not in the registry.
	ErrTestNotFound = errors.New("test not found")
	// ErrTestLocked is returned when the prerequisite test has not been passed.
	ErrTestLocked = errors.New("test is locked")
	// ErrStaleEvent marks an event for an unknown, already finalized or outdated poll.
	ErrStaleEvent = errors.New("stale quiz event")
	// ErrQuestionSetNotFound indicates the content source has no document for a test.
	ErrQuestionSetNotFound = errors.New("question set not found")
)

// ContentError reports a missing or malformed question set.
type ContentError struct {
	TestCode string
	Reason   string
	Err      error
}

func (e *ContentError) Error() string {
	msg := fmt.Sprintf("question set %q: %s", e.TestCode, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ContentError) Unwrap() error { return e.Err }

// TransportError wraps a failed call to the chat transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "transport " + e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed call to the progress or reward store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "persistence " + e.Op + ": " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }
