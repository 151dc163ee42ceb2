// Package auditnote builds the history lines recorded on a project whenever
// its manager assignment changes.
package auditnote

import (
	"fmt"
	"time"
)

// Timestamp layout for audit notes, local clock.
const timeLayout = "2006-01-02 15:04:05"

// Build returns the single-line note for a manager change. prevManager is
// empty when no manager was assigned before.
func Build(prevManager, newManager string, at time.Time) string {
	verb := "set to"
	if prevManager != "" {
		verb = fmt.Sprintf("changed from %s to", prevManager)
	}
	return fmt.Sprintf("Project PM %s %s on %s", verb, newManager, at.Format(timeLayout))
}

// Prepend places note above existing history, separated by a newline.
// History is append-only: prior content is never discarded.
func Prepend(existing, note string) string {
	if existing == "" {
		return note
	}
	return note + "\n" + existing
}
