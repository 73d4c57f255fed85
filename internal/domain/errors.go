package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// RemoteErrorKind classifies failures of calls to the external optimizer.
type RemoteErrorKind int

const (
	// Network failure, timeout, open circuit or unexpected HTTP status.
	KindTransport RemoteErrorKind = iota + 1
	// The service answered with success=false.
	KindService
	// The response is missing required fields or carries invalid geometry.
	KindMalformed
)

func (k RemoteErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindService:
		return "service"
	case KindMalformed:
		return "malformed response"
	default:
		return "unknown"
	}
}

// OptimizationError is returned by optimize. Callers never receive a partial result with it.
type OptimizationError struct {
	Kind RemoteErrorKind
	Msg  string
	Err  error
}

func (e *OptimizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("optimize routes: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("optimize routes: %s: %s", e.Kind, e.Msg)
}

func (e *OptimizationError) Unwrap() error { return e.Err }

// GeocodeError has the same shape as OptimizationError.
type GeocodeError struct {
	Kind RemoteErrorKind
	Msg  string
	Err  error
}

func (e *GeocodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geocode: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("geocode: %s: %s", e.Kind, e.Msg)
}

func (e *GeocodeError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure during reconciliation.
// WorkerID is empty when the failure is not tied to one worker.
type PersistenceError struct {
	Op       string
	WorkerID string
	Err      error
}

func (e *PersistenceError) Error() string {
	if e.WorkerID != "" {
		return fmt.Sprintf("save routes: %s worker_id=%s: %v", e.Op, e.WorkerID, e.Err)
	}
	return fmt.Sprintf("save routes: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ValidationError carries a human-readable message for the initiating caller.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}
