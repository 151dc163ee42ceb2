// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint when
// net/http/pprof is imported in the main binary.
package metrics

import "expvar"

// Operation counters.
var (
	RemoteCalls   = expvar.NewInt("fmsync_remote_calls_total")
	Relogins      = expvar.NewInt("fmsync_relogins_total")
	NoMatches     = expvar.NewInt("fmsync_nomatch_total")
	RowsProcessed = expvar.NewInt("fmsync_rows_processed_total")
	RecordEdits   = expvar.NewInt("fmsync_record_edits_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
