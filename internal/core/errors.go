package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAnalysisInProgress is returned when a session submits while an analysis is pending
	ErrAnalysisInProgress = errors.New("an analysis is already in progress for this session")
	// ErrHistoryIndexOutOfRange is returned when restoring a history entry that does not exist
	ErrHistoryIndexOutOfRange = errors.New("history index out of range")
)

// ValidationError is raised for bad input before any analyzer call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RequestError is raised when the analyzer call fails or answers with a non-2xx status
type RequestError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("analysis request failed with status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("analysis request failed with status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("analysis request failed: %v", e.Err)
	}
	return "analysis request failed: " + e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is raised when the analyzer payload cannot be decoded
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed analysis response: %s: %v", e.Reason, e.Err)
	}
	return "malformed analysis response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
