// Package reconcile matches rows from the archive database against remote
// projects by business key and applies location updates where the match is
// unambiguous. One bad row never aborts the batch.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"fmsync/internal/metrics"
	"fmsync/internal/models"
	"fmsync/internal/pathmap"
)

// SourceRow is one source-of-truth row from the secondary database.
type SourceRow struct {
	BusinessKey string
	ForeignPath string
}

// Directory is the slice of the project directory the engine needs.
// Satisfied by *projects.Service.
type Directory interface {
	ProjectsByNumber(ctx context.Context, number string) ([]models.Project, error)
	ProjectsByID(ctx context.Context, id int64) ([]models.Project, error)
	SetFileLocation(ctx context.Context, handle, location string) error
}

// Tally is the engine's externally observable summary. Counters reset only
// when a new engine is created.
type Tally struct {
	Updated          int
	NotFoundInRemote int
	NotFoundInSource int
	Ambiguous        int
	IDNotConfirmed   int
	Failed           int

	// ModifiedKeys lists the business keys of updated projects in
	// processing order.
	ModifiedKeys []string
}

// String renders the tally in a fixed field order for audit logs.
func (t Tally) String() string {
	return fmt.Sprintf(
		"Project Locations Updated: %d\n"+
			"Projects Not Found in FileMaker: %d\n"+
			"Projects Not Found in Source: %d\n"+
			"Multiple Projects Found in FileMaker: %d\n"+
			"IDs Not Confirmed in FileMaker: %d\n"+
			"Rows Failed: %d",
		t.Updated, t.NotFoundInRemote, t.NotFoundInSource,
		t.Ambiguous, t.IDNotConfirmed, t.Failed)
}

// Engine applies source rows to the remote system sequentially, in retrieval
// order. It owns its tally; create a new engine to start a fresh run.
type Engine struct {
	dir         Directory
	mountPrefix string
	logger      *slog.Logger
	tally       Tally
}

// NewEngine creates an engine writing normalized locations rooted under
// mountPrefix. Log lines carry a run ID so interleaved runs stay separable.
func NewEngine(dir Directory, mountPrefix string, logger *slog.Logger) *Engine {
	runID := uuid.NewString()[:8]
	return &Engine{
		dir:         dir,
		mountPrefix: mountPrefix,
		logger:      logger.With("run_id", runID),
	}
}

// Run processes the rows strictly in order and returns the accumulated
// tally. It stops early only when ctx is cancelled; edits already applied
// stay applied.
func (e *Engine) Run(ctx context.Context, rows []SourceRow) (Tally, error) {
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return e.tally, err
		}
		e.processRow(ctx, row)
	}
	e.logger.Info("reconciliation run complete",
		"updated", e.tally.Updated,
		"not_found_remote", e.tally.NotFoundInRemote,
		"not_found_source", e.tally.NotFoundInSource,
		"ambiguous", e.tally.Ambiguous,
		"id_not_confirmed", e.tally.IDNotConfirmed,
		"failed", e.tally.Failed)
	return e.tally, nil
}

// Tally returns the summary accumulated so far.
func (e *Engine) Tally() Tally { return e.tally }

func (e *Engine) processRow(ctx context.Context, row SourceRow) {
	metrics.Inc(metrics.RowsProcessed)

	key := strings.TrimSpace(row.BusinessKey)
	if key == "" {
		e.logger.Warn("source row carries a blank project number, skipping")
		e.tally.NotFoundInSource++
		return
	}

	found, err := e.dir.ProjectsByNumber(ctx, key)
	if err != nil {
		e.logger.Error("querying project failed", "project", key, "error", err)
		e.tally.Failed++
		return
	}
	if len(found) == 0 {
		e.logger.Warn("project not found in FileMaker", "project", key)
		e.tally.NotFoundInRemote++
		return
	}

	// The find is an index lookup and may over-match; keep only exact
	// trimmed business-key matches.
	var matches []models.Project
	for _, p := range found {
		if p.Number == key {
			matches = append(matches, p)
		}
	}
	switch {
	case len(matches) == 0:
		e.logger.Warn("project not found in FileMaker", "project", key)
		e.tally.NotFoundInRemote++
		return
	case len(matches) > 1:
		// Ambiguity is never resolved automatically.
		e.logger.Warn("multiple projects share the project number", "project", key, "count", len(matches))
		e.tally.Ambiguous++
		return
	}
	target := matches[0]

	// Verify by internal primary key before mutating; the business-key
	// index may be stale or non-unique at the point of edit.
	confirmed, err := e.dir.ProjectsByID(ctx, target.ID)
	if err != nil {
		e.logger.Error("confirming project by id failed", "project", key, "id", target.ID, "error", err)
		e.tally.Failed++
		return
	}
	if len(confirmed) != 1 {
		e.logger.Warn("project id lookup did not confirm a single record",
			"project", key, "id", target.ID, "count", len(confirmed))
		e.tally.IDNotConfirmed++
		return
	}

	location := pathmap.Normalize(e.mountPrefix, row.ForeignPath)
	if err := e.dir.SetFileLocation(ctx, confirmed[0].Handle, location); err != nil {
		e.logger.Error("updating project location failed", "project", key, "error", err)
		e.tally.Failed++
		return
	}

	e.logger.Info("project location updated", "project", key, "location", location)
	e.tally.Updated++
	e.tally.ModifiedKeys = append(e.tally.ModifiedKeys, key)
}
