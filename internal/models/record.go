// Package models defines the typed records exchanged with the FileMaker
// layouts. Records carry a fixed known field set plus an open extension map
// for fields the layouts expose but this tool does not interpret; parsing
// happens once at the API boundary.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Layout field names. These are the authoritative column names on the
// FileMaker layouts and appear verbatim in queries and edits.
const (
	FieldPrimaryID      = "ID_Primary"
	FieldProjectName    = "ProjectName"
	FieldProjectNumber  = "ProjectNumber"
	FieldProjectNotes   = "Notes"
	FieldProjectManager = "ID_ProjectManager"
	FieldFileLocation   = "FileServerLocation"
	FieldNameFirst      = "NameFirst"
	FieldNameLast       = "NameLast"
	FieldActive         = "Active_c"
)

// Project is a project row from the projects layout.
//
// Number is the business key: externally meaningful, potentially stale or
// duplicated. ID is the stable internal primary key used for cross-table
// relationships. Handle is the session-scoped record handle required for
// edits; it is only valid within the session that fetched it.
type Project struct {
	Handle       string
	ID           int64
	Number       string
	Name         string
	Notes        string
	ManagerID    int64 // 0 means no manager assigned
	FileLocation string
	Extra        map[string]any
}

// Person is a person row from the people layout. A single internal ID may
// resolve to several rows across time, of which at most one is active.
type Person struct {
	Handle    string
	ID        int64
	FirstName string
	LastName  string
	Active    bool
	Extra     map[string]any
}

// FullName returns "First Last" for display and audit notes.
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// SortName returns "Last, First" for manager selection tables.
func (p Person) SortName() string {
	return strings.TrimSpace(p.LastName + ", " + p.FirstName)
}

// ProjectFromFields builds a Project from raw layout field data. Unrecognized
// fields land in Extra untouched.
func ProjectFromFields(handle string, fields map[string]any) (Project, error) {
	id, err := coerceID(fields[FieldPrimaryID])
	if err != nil {
		return Project{}, fmt.Errorf("parsing %s: %w", FieldPrimaryID, err)
	}

	p := Project{
		Handle:       handle,
		ID:           id,
		Number:       strings.TrimSpace(coerceString(fields[FieldProjectNumber])),
		Name:         coerceString(fields[FieldProjectName]),
		Notes:        coerceString(fields[FieldProjectNotes]),
		FileLocation: coerceString(fields[FieldFileLocation]),
		Extra:        map[string]any{},
	}

	// An empty manager field means no manager assigned, not an error.
	if raw, ok := fields[FieldProjectManager]; ok && coerceString(raw) != "" {
		mid, err := coerceID(raw)
		if err != nil {
			return Project{}, fmt.Errorf("parsing %s: %w", FieldProjectManager, err)
		}
		p.ManagerID = mid
	}

	known := map[string]bool{
		FieldPrimaryID: true, FieldProjectNumber: true, FieldProjectName: true,
		FieldProjectNotes: true, FieldProjectManager: true, FieldFileLocation: true,
	}
	for k, v := range fields {
		if !known[k] {
			p.Extra[k] = v
		}
	}
	return p, nil
}

// PersonFromFields builds a Person from raw layout field data.
func PersonFromFields(handle string, fields map[string]any) (Person, error) {
	id, err := coerceID(fields[FieldPrimaryID])
	if err != nil {
		return Person{}, fmt.Errorf("parsing %s: %w", FieldPrimaryID, err)
	}

	p := Person{
		Handle:    handle,
		ID:        id,
		FirstName: coerceString(fields[FieldNameFirst]),
		LastName:  coerceString(fields[FieldNameLast]),
		Active:    coerceBool(fields[FieldActive]),
		Extra:     map[string]any{},
	}

	known := map[string]bool{
		FieldPrimaryID: true, FieldNameFirst: true, FieldNameLast: true, FieldActive: true,
	}
	for k, v := range fields {
		if !known[k] {
			p.Extra[k] = v
		}
	}
	return p, nil
}

// coerceString renders a layout field value as a string. The Data API returns
// numbers as float64 and everything else as string.
func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// coerceID parses an internal primary key, which the API may deliver as a
// JSON number or a numeric string.
func coerceID(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("empty id value")
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric id %q", t)
		}
		return id, nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}

func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		s := strings.TrimSpace(t)
		return s == "1" || strings.EqualFold(s, "true") || strings.EqualFold(s, "yes")
	default:
		return false
	}
}
