package schema

import (
	"context"
	"errors"
)

var (
	// ErrInvalidArgument indicates a malformed or missing command argument.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownMethod indicates a command method that is not part of the surface.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrNoSuchTab indicates a tab index outside the current sequence.
	ErrNoSuchTab = errors.New("no such tab")
	// ErrNoActiveTab indicates a command without a target while the registry is empty.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrNotFound indicates a selector, element id, or position that resolves to nothing.
	ErrNotFound = errors.New("element not found")
	// ErrBackendUnavailable indicates the tab's backend is not ready or has failed.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrTabBusy indicates the tab's pending queue is full.
	ErrTabBusy = errors.New("tab is busy")
	// ErrTimeout indicates no completion arrived within the command bound.
	ErrTimeout = errors.New("command timed out")
	// ErrWrongKind indicates an operation issued against a tab of another kind.
	ErrWrongKind = errors.New("operation not supported by tab kind")
)

// ErrorKind is the wire-stable error classification returned to callers.
type ErrorKind string

const (
	// KindInvalidArgument maps ErrInvalidArgument and ErrUnknownMethod.
	KindInvalidArgument ErrorKind = "invalid_argument"
	// KindNoSuchTab maps ErrNoSuchTab.
	KindNoSuchTab ErrorKind = "no_such_tab"
	// KindNoActiveTab maps ErrNoActiveTab.
	KindNoActiveTab ErrorKind = "no_active_tab"
	// KindNotFound maps ErrNotFound.
	KindNotFound ErrorKind = "not_found"
	// KindBackendUnavailable maps ErrBackendUnavailable and unclassified faults.
	KindBackendUnavailable ErrorKind = "backend_unavailable"
	// KindTabBusy maps ErrTabBusy.
	KindTabBusy ErrorKind = "tab_busy"
	// KindTimeout maps ErrTimeout.
	KindTimeout ErrorKind = "timeout"
)

// KindOf classifies an error into its wire kind. Unrecognized errors are
// reported as backend_unavailable so adapter faults never escape untyped.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrUnknownMethod), errors.Is(err, ErrWrongKind):
		return KindInvalidArgument
	case errors.Is(err, ErrNoSuchTab):
		return KindNoSuchTab
	case errors.Is(err, ErrNoActiveTab):
		return KindNoActiveTab
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTabBusy):
		return KindTabBusy
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindBackendUnavailable
	}
}
