package engine

import (
	"fmt"

	"mercator-hq/ropsim/pkg/remote"
)

// ConnectivityError means the remote store was unreachable. The call did no
// work; the caller may reconnect and retry.
type ConnectivityError struct {
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: remote store unreachable: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ConnectivityError) Unwrap() error {
	return e.Cause
}

// PublishError means the store reported a hard failure creating a link. The
// call stopped at Target; entries registered earlier in the call are kept.
type PublishError struct {
	Operation string
	Source    string
	Target    string
	Result    remote.SymlinkResult
	Cause     error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("%s: publish %s -> %s failed (%s): %v", e.Operation, e.Source, e.Target, e.Result, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PublishError) Unwrap() error {
	return e.Cause
}
