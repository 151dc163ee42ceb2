// Package projects exposes the domain operations the workflows need over the
// FileMaker layouts: project lookup by business key or internal ID, person
// resolution with active-row collapse, recent-manager discovery, and the
// manager reassignment edit.
package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"fmsync/internal/auditnote"
	"fmsync/internal/fmclient"
	"fmsync/internal/models"
)

var (
	// ErrNotFound means a lookup matched zero records.
	ErrNotFound = errors.New("no matching record")
	// ErrAmbiguous means a lookup expected one record and found several.
	ErrAmbiguous = errors.New("multiple records match")
)

// RecordClient is the slice of the resilient client this service needs.
// Satisfied by *fmclient.Client.
type RecordClient interface {
	FindByQuery(ctx context.Context, layout string, query []fmclient.FieldQuery) ([]fmclient.Record, error)
	FetchPage(ctx context.Context, layout string, sort []fmclient.SortSpec, limit int) ([]fmclient.Record, error)
	EditByHandle(ctx context.Context, layout, handle string, fields map[string]any) error
}

// Service bundles the layouts and the client into domain operations.
type Service struct {
	client         RecordClient
	projectsLayout string
	peopleLayout   string
	logger         *slog.Logger
}

// NewService creates a directory service over the given layouts.
func NewService(client RecordClient, projectsLayout, peopleLayout string, logger *slog.Logger) *Service {
	return &Service{
		client:         client,
		projectsLayout: projectsLayout,
		peopleLayout:   peopleLayout,
		logger:         logger,
	}
}

// ProjectsByNumber returns all projects whose business key matches number.
// An empty slice means no match.
func (s *Service) ProjectsByNumber(ctx context.Context, number string) ([]models.Project, error) {
	records, err := s.client.FindByQuery(ctx, s.projectsLayout,
		[]fmclient.FieldQuery{{Field: models.FieldProjectNumber, Value: number}})
	if err != nil {
		return nil, err
	}
	return parseProjects(records)
}

// ProjectsByID returns all projects carrying the given internal primary key.
// More than one row here means the remote index is in a bad state; callers
// decide how to react.
func (s *Service) ProjectsByID(ctx context.Context, id int64) ([]models.Project, error) {
	records, err := s.client.FindByQuery(ctx, s.projectsLayout,
		[]fmclient.FieldQuery{{Field: models.FieldPrimaryID, Value: strconv.FormatInt(id, 10)}})
	if err != nil {
		return nil, err
	}
	return parseProjects(records)
}

// ProjectByID returns exactly the project with the given internal ID.
func (s *Service) ProjectByID(ctx context.Context, id int64) (models.Project, error) {
	found, err := s.ProjectsByID(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	switch len(found) {
	case 0:
		return models.Project{}, fmt.Errorf("project id %d: %w", id, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return models.Project{}, fmt.Errorf("project id %d: %w", id, ErrAmbiguous)
	}
}

// PersonByID resolves one person by internal ID. When the ID resolves to
// several rows across time, the active row wins.
func (s *Service) PersonByID(ctx context.Context, id int64) (models.Person, error) {
	records, err := s.client.FindByQuery(ctx, s.peopleLayout,
		[]fmclient.FieldQuery{{Field: models.FieldPrimaryID, Value: strconv.FormatInt(id, 10)}})
	if err != nil {
		return models.Person{}, err
	}
	people, err := parsePeople(records)
	if err != nil {
		return models.Person{}, err
	}
	people = CollapseActive(people)
	if len(people) == 0 {
		return models.Person{}, fmt.Errorf("person id %d: %w", id, ErrNotFound)
	}
	return people[0], nil
}

// RecentManagers retrieves the managers referenced by the lookback most
// recent projects (by internal ID), duplicates collapsed.
func (s *Service) RecentManagers(ctx context.Context, lookback int) ([]models.Person, error) {
	records, err := s.client.FetchPage(ctx, s.projectsLayout,
		[]fmclient.SortSpec{{Field: models.FieldPrimaryID, Descending: true}}, lookback)
	if err != nil {
		return nil, err
	}
	recent, err := parseProjects(records)
	if err != nil {
		return nil, err
	}

	seen := map[int64]bool{}
	var managerIDs []int64
	for _, p := range recent {
		if p.ManagerID != 0 && !seen[p.ManagerID] {
			seen[p.ManagerID] = true
			managerIDs = append(managerIDs, p.ManagerID)
		}
	}
	if len(managerIDs) == 0 {
		return nil, fmt.Errorf("no project managers on the %d most recent projects: %w", lookback, ErrNotFound)
	}

	managers := make([]models.Person, 0, len(managerIDs))
	for _, id := range managerIDs {
		person, err := s.PersonByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("recent project references unknown manager", "manager_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		managers = append(managers, person)
	}
	return managers, nil
}

// Reassign writes the new manager onto the project along with a prepended
// audit note, in a single edit call. It returns the note for confirmation
// display. prevManagerName is empty when the project had no manager.
func (s *Service) Reassign(ctx context.Context, project models.Project, manager models.Person, prevManagerName string, at time.Time) (string, error) {
	note := auditnote.Build(prevManagerName, manager.FullName(), at)
	fields := map[string]any{
		models.FieldProjectNotes:   auditnote.Prepend(project.Notes, note),
		models.FieldProjectManager: manager.ID,
	}
	if err := s.client.EditByHandle(ctx, s.projectsLayout, project.Handle, fields); err != nil {
		return "", fmt.Errorf("reassigning project %s: %w", project.Number, err)
	}
	s.logger.Info("project manager changed",
		"project", project.Number, "manager", manager.FullName(), "manager_id", manager.ID)
	return note, nil
}

// SetFileLocation overwrites the project's file-location field. The write is
// unconditional; re-applying the same value is a no-op on the remote state.
func (s *Service) SetFileLocation(ctx context.Context, handle, location string) error {
	return s.client.EditByHandle(ctx, s.projectsLayout, handle,
		map[string]any{models.FieldFileLocation: location})
}

// CollapseActive removes duplicate person rows sharing an internal ID,
// preferring the active row; remaining ties break by ascending ID so the
// result is deterministic regardless of input order.
func CollapseActive(people []models.Person) []models.Person {
	sorted := make([]models.Person, len(people))
	copy(sorted, people)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ID != sorted[j].ID {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Active && !sorted[j].Active
	})

	var collapsed []models.Person
	for _, p := range sorted {
		if len(collapsed) > 0 && collapsed[len(collapsed)-1].ID == p.ID {
			continue
		}
		collapsed = append(collapsed, p)
	}
	return collapsed
}

func parseProjects(records []fmclient.Record) ([]models.Project, error) {
	out := make([]models.Project, 0, len(records))
	for _, r := range records {
		p, err := models.ProjectFromFields(r.Handle, r.Fields)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.Handle, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func parsePeople(records []fmclient.Record) ([]models.Person, error) {
	out := make([]models.Person, 0, len(records))
	for _, r := range records {
		p, err := models.PersonFromFields(r.Handle, r.Fields)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.Handle, err)
		}
		out = append(out, p)
	}
	return out, nil
}
