package fmclient

import (
	"errors"
	"fmt"
)

// FileMaker script/API error codes carried on Data API responses.
const (
	// CodeNoMatch is returned when a find request matches zero records.
	CodeNoMatch = 401
	// CodeSessionExpired is returned when the session token is invalid or
	// has timed out.
	CodeSessionExpired = 952
)

// Fault is a structured error reported by the remote record API. Faults are
// classified by code, never by substring matching on the message text.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("filemaker error %d: %s", f.Code, f.Message)
}

// SessionExpired reports whether the fault means the session token is no
// longer valid and a re-login may succeed.
func (f *Fault) SessionExpired() bool { return f.Code == CodeSessionExpired }

// NoMatch reports whether the fault means zero records satisfied the query.
// This is a valid empty result, not a failure.
func (f *Fault) NoMatch() bool { return f.Code == CodeNoMatch }

// ConnectivityError means the server could not be reached at all. Diagnosis
// distinguishes a dead server from a dead network path.
type ConnectivityError struct {
	URL string
	// NoNetwork is true when even a known-reachable external endpoint could
	// not be contacted, meaning the problem is the local network rather than
	// the FileMaker host.
	NoNetwork bool
	Err       error
}

func (e *ConnectivityError) Error() string {
	if e.NoNetwork {
		return fmt.Sprintf("no network path (probe failed while diagnosing %s): %v", e.URL, e.Err)
	}
	return fmt.Sprintf("filemaker server unreachable at %s: %v", e.URL, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// AuthError means the server was reachable but rejected the credentials.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("filemaker authentication failed: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// RemoteOperationError means the retry budget was exhausted on a fault that
// was neither a session expiry nor a no-match. It is fatal to the single
// operation only; batch callers skip the row and continue.
type RemoteOperationError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RemoteOperationError) Unwrap() error { return e.Err }

// AsFault extracts a structured Fault from an error chain, if present.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
