package fmclient

import (
	"context"
	"log/slog"

	"fmsync/internal/metrics"
)

// DefaultMaxAttempts bounds the retry loop around each remote operation.
const DefaultMaxAttempts = 3

// DefaultProbeURL is the known-reachable endpoint used to tell a dead
// network path apart from a dead FileMaker host.
const DefaultProbeURL = "https://www.google.com"

// Client wraps the raw record API with session management and a bounded
// retry policy. It holds no record state, only the session token; the token
// is owned by exactly one caller at a time.
type Client struct {
	api         API
	maxAttempts int
	probeURL    string
	logger      *slog.Logger

	token string
}

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	MaxAttempts int
	ProbeURL    string
}

// NewClient creates a resilient client over the given API transport.
func NewClient(api API, opts Options, logger *slog.Logger) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.ProbeURL == "" {
		opts.ProbeURL = DefaultProbeURL
	}
	return &Client{
		api:         api,
		maxAttempts: opts.MaxAttempts,
		probeURL:    opts.ProbeURL,
		logger:      logger,
	}
}

// Authenticate establishes a session. When the host cannot be reached at all
// the failure is diagnosed by probing the server URL and then a known
// external endpoint, yielding a ConnectivityError; a reachable server that
// rejects the login yields an AuthError.
func (c *Client) Authenticate(ctx context.Context) error {
	token, err := c.api.Login(ctx)
	if err == nil {
		c.token = token
		return nil
	}

	if _, ok := AsFault(err); ok {
		// The server answered with a FileMaker error: credentials problem.
		return &AuthError{Err: err}
	}

	if probeErr := c.api.Probe(ctx, c.api.BaseURL()); probeErr != nil {
		if netErr := c.api.Probe(ctx, c.probeURL); netErr != nil {
			return &ConnectivityError{URL: c.api.BaseURL(), NoNetwork: true, Err: netErr}
		}
		return &ConnectivityError{URL: c.api.BaseURL(), Err: probeErr}
	}
	return &AuthError{Err: err}
}

// Close releases the session, if one exists. Best effort.
func (c *Client) Close(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	token := c.token
	c.token = ""
	return c.api.Logout(ctx, token)
}

// FindByQuery finds records on a layout matching the field-equality
// conjunction. A no-match response yields an empty slice and a nil error.
func (c *Client) FindByQuery(ctx context.Context, layout string, query []FieldQuery) ([]Record, error) {
	return c.invoke(ctx, "find", func(token string) ([]Record, error) {
		return c.api.Find(ctx, token, layout, query)
	})
}

// FetchPage fetches up to limit records from a layout in the given sort
// order.
func (c *Client) FetchPage(ctx context.Context, layout string, sort []SortSpec, limit int) ([]Record, error) {
	return c.invoke(ctx, "fetch", func(token string) ([]Record, error) {
		return c.api.GetRecords(ctx, token, layout, sort, limit)
	})
}

// EditByHandle applies field changes to one record. The handle must come
// from the current session; callers refetch rather than reuse handles across
// reconnects.
func (c *Client) EditByHandle(ctx context.Context, layout, handle string, fields map[string]any) error {
	_, err := c.invoke(ctx, "edit", func(token string) ([]Record, error) {
		return nil, c.api.EditRecord(ctx, token, layout, handle, fields)
	})
	if err == nil {
		metrics.Inc(metrics.RecordEdits)
	}
	return err
}

// invoke runs one remote operation under the retry policy: session-expired
// faults trigger a re-login and retry, no-match faults become an empty
// result, anything else retries until the shared attempt budget runs out.
func (c *Client) invoke(ctx context.Context, op string, fn func(token string) ([]Record, error)) ([]Record, error) {
	if c.token == "" {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	attempted := 0
	var lastErr error
	for {
		metrics.Inc(metrics.RemoteCalls)
		records, err := fn(c.token)
		if err == nil {
			return records, nil
		}

		attempted++
		lastErr = err

		if fault, ok := AsFault(err); ok && fault.NoMatch() {
			c.logger.Warn("no records match the request", "op", op)
			metrics.Inc(metrics.NoMatches)
			return nil, nil
		}

		if attempted >= c.maxAttempts {
			return nil, &RemoteOperationError{Op: op, Attempts: attempted, Err: lastErr}
		}

		if fault, ok := AsFault(err); ok && fault.SessionExpired() {
			c.logger.Info("session expired, re-authenticating", "op", op)
			metrics.Inc(metrics.Relogins)
			if authErr := c.Authenticate(ctx); authErr != nil {
				return nil, authErr
			}
			continue
		}

		c.logger.Warn("remote operation failed, retrying", "op", op, "attempt", attempted, "error", err)
	}
}
