package projects

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmsync/internal/fmclient"
	"fmsync/internal/models"
)

// fakeClient serves canned records keyed by layout and query value, and
// records edits.
type fakeClient struct {
	findResults map[string][]fmclient.Record // key: layout + "/" + first query value
	pageResults []fmclient.Record
	edits       []edit
	editErr     error
}

type edit struct {
	layout, handle string
	fields         map[string]any
}

func (f *fakeClient) FindByQuery(ctx context.Context, layout string, query []fmclient.FieldQuery) ([]fmclient.Record, error) {
	key := layout
	if len(query) > 0 {
		key += "/" + query[0].Value
	}
	return f.findResults[key], nil
}

func (f *fakeClient) FetchPage(ctx context.Context, layout string, sort []fmclient.SortSpec, limit int) ([]fmclient.Record, error) {
	return f.pageResults, nil
}

func (f *fakeClient) EditByHandle(ctx context.Context, layout, handle string, fields map[string]any) error {
	f.edits = append(f.edits, edit{layout: layout, handle: handle, fields: fields})
	return f.editErr
}

func projectRecord(handle string, id int64, number, name string, managerID int64) fmclient.Record {
	fields := map[string]any{
		models.FieldPrimaryID:     float64(id),
		models.FieldProjectNumber: number,
		models.FieldProjectName:   name,
	}
	if managerID != 0 {
		fields[models.FieldProjectManager] = float64(managerID)
	}
	return fmclient.Record{Handle: handle, Fields: fields}
}

func personRecord(handle string, id int64, first, last, active string) fmclient.Record {
	return fmclient.Record{Handle: handle, Fields: map[string]any{
		models.FieldPrimaryID: float64(id),
		models.FieldNameFirst: first,
		models.FieldNameLast:  last,
		models.FieldActive:    active,
	}}
}

func newTestService(c RecordClient) *Service {
	return NewService(c, "projects_table", "people_table", slog.Default())
}

func TestProjectByID_ExactlyOne(t *testing.T) {
	fc := &fakeClient{findResults: map[string][]fmclient.Record{
		"projects_table/42": {projectRecord("r1", 42, "1234", "Science Hill", 7)},
	}}
	svc := newTestService(fc)

	p, err := svc.ProjectByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "1234", p.Number)
	assert.Equal(t, int64(7), p.ManagerID)
}

func TestProjectByID_NotFoundAndAmbiguous(t *testing.T) {
	fc := &fakeClient{findResults: map[string][]fmclient.Record{
		"projects_table/9": {
			projectRecord("r1", 9, "1111", "A", 0),
			projectRecord("r2", 9, "1111", "A copy", 0),
		},
	}}
	svc := newTestService(fc)

	_, err := svc.ProjectByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ProjectByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestPersonByID_CollapsesToActiveRow(t *testing.T) {
	fc := &fakeClient{findResults: map[string][]fmclient.Record{
		"people_table/77": {
			personRecord("p1", 77, "Jane", "Doe (old)", "0"),
			personRecord("p2", 77, "Jane", "Doe", "1"),
		},
	}}
	svc := newTestService(fc)

	person, err := svc.PersonByID(context.Background(), 77)
	require.NoError(t, err)
	assert.True(t, person.Active)
	assert.Equal(t, "Jane Doe", person.FullName())
}

func TestCollapseActive_OrderIndependent(t *testing.T) {
	active := models.Person{ID: 5, FirstName: "A", Active: true}
	stale := models.Person{ID: 5, FirstName: "A-old", Active: false}
	other := models.Person{ID: 3, FirstName: "B", Active: false}

	for _, input := range [][]models.Person{
		{active, stale, other},
		{stale, active, other},
		{other, stale, active},
	} {
		got := CollapseActive(input)
		require.Len(t, got, 2)
		assert.Equal(t, int64(3), got[0].ID)
		assert.Equal(t, "A", got[1].FirstName, "active row wins regardless of input order")
	}
}

func TestRecentManagers(t *testing.T) {
	fc := &fakeClient{
		pageResults: []fmclient.Record{
			projectRecord("r1", 100, "2001", "Newest", 7),
			projectRecord("r2", 99, "2000", "Older", 8),
			projectRecord("r3", 98, "1999", "Dup manager", 7),
			projectRecord("r4", 97, "1998", "No manager", 0),
		},
		findResults: map[string][]fmclient.Record{
			"people_table/7": {personRecord("p1", 7, "Jane", "Doe", "1")},
			"people_table/8": {personRecord("p2", 8, "John", "Smith", "1")},
		},
	}
	svc := newTestService(fc)

	managers, err := svc.RecentManagers(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, managers, 2, "duplicate and missing manager references collapse")
	assert.Equal(t, int64(7), managers[0].ID)
	assert.Equal(t, int64(8), managers[1].ID)
}

func TestRecentManagers_NoneFound(t *testing.T) {
	fc := &fakeClient{pageResults: []fmclient.Record{
		projectRecord("r1", 100, "2001", "Newest", 0),
	}}
	svc := newTestService(fc)

	_, err := svc.RecentManagers(context.Background(), 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReassign_PrependsNoteAndSetsManager(t *testing.T) {
	fc := &fakeClient{}
	svc := newTestService(fc)

	project := models.Project{Handle: "r7", Number: "1234", Notes: "older entry"}
	manager := models.Person{ID: 7, FirstName: "Jane", LastName: "Doe"}
	at := time.Date(2024, 1, 5, 10, 0, 0, 0, time.Local)

	note, err := svc.Reassign(context.Background(), project, manager, "John Smith", at)
	require.NoError(t, err)
	assert.Equal(t, "Project PM changed from John Smith to Jane Doe on 2024-01-05 10:00:00", note)

	require.Len(t, fc.edits, 1)
	assert.Equal(t, "r7", fc.edits[0].handle)
	assert.Equal(t, int64(7), fc.edits[0].fields[models.FieldProjectManager])
	assert.Equal(t, note+"\nolder entry", fc.edits[0].fields[models.FieldProjectNotes],
		"history is append-only, newest entry first")
}

func TestSetFileLocation(t *testing.T) {
	fc := &fakeClient{}
	svc := newTestService(fc)

	require.NoError(t, svc.SetFileLocation(context.Background(), "r9", `N:\PPDO\Records\2024`))
	require.Len(t, fc.edits, 1)
	assert.Equal(t, "projects_table", fc.edits[0].layout)
	assert.Equal(t, `N:\PPDO\Records\2024`, fc.edits[0].fields[models.FieldFileLocation])
}
