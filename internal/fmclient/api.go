// Package fmclient provides a session-transparent client for the FileMaker
// Data API. All remote operations route through one retry wrapper that
// refreshes expired sessions and converts no-match faults into empty results;
// no caller touches the raw API directly.
package fmclient

import "context"

// FieldQuery is one field-equality term; a slice of them is a conjunction
// ANDed together by the server.
type FieldQuery struct {
	Field string
	Value string
}

// SortSpec orders a fetched page by one field.
type SortSpec struct {
	Field      string
	Descending bool
}

// Record is one raw record as returned by the API: a session-scoped handle
// plus the layout's field data. Typed parsing happens above this package.
type Record struct {
	Handle string
	Fields map[string]any
}

// API is the raw remote record API. Implementations return *Fault for errors
// the server reports with a FileMaker error code and plain errors for
// transport-level failures.
type API interface {
	// Login establishes a session and returns its token.
	Login(ctx context.Context) (token string, err error)

	// Logout releases the session. Best effort.
	Logout(ctx context.Context, token string) error

	// Find executes a field-equality conjunction against a layout.
	Find(ctx context.Context, token, layout string, query []FieldQuery) ([]Record, error)

	// GetRecords fetches a sorted page of records from a layout.
	GetRecords(ctx context.Context, token, layout string, sort []SortSpec, limit int) ([]Record, error)

	// EditRecord applies field changes to the record named by handle.
	EditRecord(ctx context.Context, token, layout, handle string, fields map[string]any) error

	// Probe checks plain reachability of the given URL, used only for
	// connectivity diagnosis after a failed login.
	Probe(ctx context.Context, url string) error

	// BaseURL returns the server URL the API talks to.
	BaseURL() string
}
