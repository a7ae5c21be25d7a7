package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"satupapan/internal/shape"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureArg matches any value and remembers it.
type captureArg struct {
	value driver.Value
}

func (c *captureArg) Match(v driver.Value) bool {
	c.value = v
	return true
}

func newRepo(t *testing.T) (*WhiteboardRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWhiteboardRepository(db), mock
}

func TestSaveThenLoadShapes(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()

	cp := shape.Point{X: 60, Y: -20}
	shapes := []shape.Shape{
		{ID: "r1", Tool: shape.Rectangle, Points: []shape.Point{{X: 10, Y: 10}, {X: 50, Y: 50}}, Color: "#FF0000", Selected: true},
		{ID: "c1", Tool: shape.CurvedArrow, Points: []shape.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}, ControlPoint: &cp},
		{ID: "t1", Tool: shape.Text, Points: []shape.Point{{X: 5, Y: 5}}, Text: "hello", IsEditing: true},
	}

	saved := &captureArg{}
	mock.ExpectExec("UPDATE whiteboards SET shapes = \\$1, updated_at = NOW\\(\\) WHERE id = \\$2").
		WithArgs(saved, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SaveShapes(ctx, "doc-1", shapes))

	mock.ExpectQuery("SELECT shapes FROM whiteboards WHERE id = \\$1").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"shapes"}).AddRow(saved.value))
	loaded, err := repo.LoadShapes(ctx, "doc-1")
	require.NoError(t, err)

	want := make([]shape.Shape, len(shapes))
	for i, s := range shapes {
		want[i] = s.Detached()
	}
	assert.Equal(t, shape.NormalizeAll(want), loaded)
	assert.False(t, loaded[0].Selected, "selection is not persisted")
	assert.False(t, loaded[2].IsEditing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadShapesOfMissingWhiteboard(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT shapes FROM whiteboards").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LoadShapes(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLoadShapesRepairsStoredData(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT shapes FROM whiteboards").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"shapes"}).AddRow([]byte(`[{"id":"a","tool":"laser","points":[{"x":1,"y":2}]}]`)))

	loaded, err := repo.LoadShapes(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, shape.Pen, loaded[0].Tool, "unknown tools fall back to pen")
	assert.Equal(t, shape.DefaultColor, loaded[0].Color)
}

func TestLoadShapesNullColumnIsEmpty(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT shapes FROM whiteboards").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"shapes"}).AddRow(nil))

	loaded, err := repo.LoadShapes(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestSaveShapesMissingWhiteboard(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectExec("UPDATE whiteboards SET shapes").
		WithArgs(sqlmock.AnyArg(), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveShapes(context.Background(), "gone", []shape.Shape{})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListByUser(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()
	mock.ExpectQuery("SELECT id, title, updated_at, owner_id, is_public").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "updated_at", "owner_id", "is_public", "count"}).
			AddRow("w1", "Mine", now, "u1", false, 3).
			AddRow("w2", "Shared", now, "u2", true, 0))

	boards, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, boards, 2)
	assert.True(t, boards[0].IsOwner)
	assert.Equal(t, 3, boards[0].ShapeCount)
	assert.False(t, boards[1].IsOwner)
	assert.True(t, boards[1].IsPublic)
}

func TestAddCollaboratorUpserts(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectExec("INSERT INTO collaborators \\(whiteboard_id, user_id, can_edit\\)").
		WithArgs("w1", "u2", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddCollaborator(context.Background(), "w1", "u2", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}
