package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmsync/internal/models"
)

// fakeDirectory serves projects keyed by business key and by internal ID.
type fakeDirectory struct {
	byNumber map[string][]models.Project
	byID     map[int64][]models.Project
	editErr  error
	edits    []string // handles, in order
}

func (f *fakeDirectory) ProjectsByNumber(ctx context.Context, number string) ([]models.Project, error) {
	return f.byNumber[number], nil
}

func (f *fakeDirectory) ProjectsByID(ctx context.Context, id int64) ([]models.Project, error) {
	return f.byID[id], nil
}

func (f *fakeDirectory) SetFileLocation(ctx context.Context, handle, location string) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, handle)
	return nil
}

func project(handle string, id int64, number string) models.Project {
	return models.Project{Handle: handle, ID: id, Number: number}
}

func newTestEngine(dir Directory) *Engine {
	return NewEngine(dir, `N:\PPDO\Records\`, slog.Default())
}

func TestRun_SingleMatchIsUpdated(t *testing.T) {
	dir := &fakeDirectory{
		byNumber: map[string][]models.Project{"1234": {project("r1", 42, "1234")}},
		byID:     map[int64][]models.Project{42: {project("r1", 42, "1234")}},
	}
	e := newTestEngine(dir)

	tally, err := e.Run(context.Background(), []SourceRow{
		{BusinessKey: "1234", ForeignPath: "archives/2024/site-a"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Updated)
	assert.Equal(t, []string{"1234"}, tally.ModifiedKeys)
	assert.Equal(t, []string{"r1"}, dir.edits, "exactly one edit call issued")
}

func TestRun_TrimsSourceBusinessKey(t *testing.T) {
	dir := &fakeDirectory{
		byNumber: map[string][]models.Project{"1234": {project("r1", 42, "1234")}},
		byID:     map[int64][]models.Project{42: {project("r1", 42, "1234")}},
	}
	e := newTestEngine(dir)

	tally, err := e.Run(context.Background(), []SourceRow{
		{BusinessKey: "  1234 ", ForeignPath: "archives/2024"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Updated)
	assert.Equal(t, []string{"1234"}, tally.ModifiedKeys)
}

func TestRun_NotFoundInRemote(t *testing.T) {
	e := newTestEngine(&fakeDirectory{})

	tally, err := e.Run(context.Background(), []SourceRow{
		{BusinessKey: "9999", ForeignPath: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.NotFoundInRemote)
	assert.Zero(t, tally.Updated)
}

func TestRun_InexactMatchesFilteredOut(t *testing.T) {
	// The remote index over-matches ("123" finds "1234"); only exact
	// trimmed equality counts.
	dir := &fakeDirectory{
		byNumber: map[string][]models.Project{"123": {project("r1", 42, "1234")}},
	}
	e := newTestEngine(dir)

	tally, err := e.Run(context.Background(), []SourceRow{
		{BusinessKey: "123", ForeignPath: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.NotFoundInRemote)
	assert.Empty(t, dir.edits)
}

func TestRun_AmbiguousMatchSkipsWithoutEdit(t *testing.T) {
	dir := &fakeDirectory{
		byNumber: map[string][]models.Project{"5555": {
			project("r1", 1, "5555"),
			project("r2", 2, "5555"),
		}},
	}
	e := newTestEngine(dir)

	tally, err := e.Run(context.Background(), []SourceRow{
		{BusinessKey: "5555", ForeignPath: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Ambiguous)
	assert.Empty(t, dir.edits, "ambiguity is never resolved automatically")
}

func TestRun_IDNotConfirmed(t *testing.T) {
	dir := &fakeDirectory{
		byNumber: map[string][]models.Project{"1234": {project("r1", 42, "1234")}},
		byID: map[int64][]models.Project{42: {
			project("r1", 42, "1234"),
			project("r9", 42, "1234"),
		}},
	}
	e := newTestEngine(dir)

	tally, err := e.Run(context.Background(), []SourceRow{
		{BusinessKey: "1234", ForeignPath: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.IDNotConfirmed)
	assert.Empty(t, dir.edits)
}

func TestRun_BlankSourceKey(t *testing.T) {
	e := newTestEngine(&fakeDirectory{})

	tally, err := e.Run(context.Background(), []SourceRow{
		{BusinessKey: "   ", ForeignPath: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.NotFoundInSource)
}

func TestRun_EditFailureCountsAndContinues(t *testing.T) {
	dir := &fakeDirectory{
		byNumber: map[string][]models.Project{"1234": {project("r1", 42, "1234")}},
		byID:     map[int64][]models.Project{42: {project("r1", 42, "1234")}},
		editErr:  errors.New("edit rejected"),
	}
	e := newTestEngine(dir)

	tally, err := e.Run(context.Background(), []SourceRow{
		{BusinessKey: "1234", ForeignPath: "x"},
		{BusinessKey: "1234", ForeignPath: "x"},
	})
	require.NoError(t, err, "one bad row never aborts the batch")
	assert.Equal(t, 2, tally.Failed)
	assert.Zero(t, tally.Updated)
}

func TestRun_IdempotentAcrossRuns(t *testing.T) {
	newDir := func() *fakeDirectory {
		return &fakeDirectory{
			byNumber: map[string][]models.Project{"1234": {project("r1", 42, "1234")}},
			byID:     map[int64][]models.Project{42: {project("r1", 42, "1234")}},
		}
	}
	rows := []SourceRow{{BusinessKey: "1234", ForeignPath: "archives/2024"}}

	first, err := NewEngine(newDir(), `N:\`, slog.Default()).Run(context.Background(), rows)
	require.NoError(t, err)
	second, err := NewEngine(newDir(), `N:\`, slog.Default()).Run(context.Background(), rows)
	require.NoError(t, err)

	// Updates are unconditional overwrites, so an already-updated remote
	// state reconciles identically.
	assert.Equal(t, first.Updated, second.Updated)
	assert.Equal(t, first.ModifiedKeys, second.ModifiedKeys)
}

func TestRun_CancelledContextStopsEarly(t *testing.T) {
	dir := &fakeDirectory{
		byNumber: map[string][]models.Project{"1234": {project("r1", 42, "1234")}},
		byID:     map[int64][]models.Project{42: {project("r1", 42, "1234")}},
	}
	e := newTestEngine(dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, []SourceRow{{BusinessKey: "1234", ForeignPath: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dir.edits, "no further remote calls after cancellation")
}

func TestTally_StringFixedOrder(t *testing.T) {
	tally := Tally{Updated: 3, NotFoundInRemote: 2, Ambiguous: 1}
	want := "Project Locations Updated: 3\n" +
		"Projects Not Found in FileMaker: 2\n" +
		"Projects Not Found in Source: 0\n" +
		"Multiple Projects Found in FileMaker: 1\n" +
		"IDs Not Confirmed in FileMaker: 0\n" +
		"Rows Failed: 0"
	assert.Equal(t, want, tally.String())
}
