package presentation

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (IPresentationService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPresentationService(db), mock
}

// arrayConverter lets []string reach the mock driver; the stock converter
// rejects it, while pgx binds it as a text array for `id = ANY($n)`.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newArrayMock(t *testing.T) (IPresentationService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPresentationService(db), mock
}

func TestListPresentations(t *testing.T) {
	svc, mock := newMock(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT p.id, p.title")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "title", "description", "count", "updated_at"},
		).AddRow("pres-1", "Q3 Review", "", 5, now).
			AddRow("pres-2", "Onboarding", "intro deck", 1, now.Add(-time.Hour)))

	out, err := svc.ListPresentations(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Q3 Review", out[0].Title)
	assert.Equal(t, 5, out[0].SlidesCount)
}

func TestGetPresentationNotFound(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, title")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.GetPresentation(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetPresentationWithSlides(t *testing.T) {
	svc, mock := newMock(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, title")).
		WithArgs("pres-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "owner_id", "title", "description", "theme", "is_public", "updated_at"},
		).AddRow("pres-1", "user-1", "Q3 Review", "", []byte(`{"primaryColor":"#111"}`), false, now))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, content")).
		WithArgs("pres-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "title", "content", "notes", "background_url", "background_color", "slide_order", "transition"},
		).AddRow("sl-1", "Intro", []byte(`{"elements":[]}`), "", "", "#fff", 0, "fade"))

	dto, err := svc.GetPresentation(context.Background(), "pres-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"primaryColor":"#111"}`, string(dto.Theme))
	require.Len(t, dto.Slides, 1)
	assert.Equal(t, "Intro", dto.Slides[0].Title)
	assert.JSONEq(t, `{"elements":[]}`, string(dto.Slides[0].Content))
}

func TestCreatePresentationSeedsTitleSlide(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO presentations")).
		WithArgs(sqlmock.AnyArg(), "user-1", "My Deck", "about things", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slides")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Title Slide", sqlmock.AnyArg(), "#3b82f6", 0, "fade").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	dto, err := svc.CreatePresentation(context.Background(), "user-1", "My Deck", "about things")
	require.NoError(t, err)
	require.Len(t, dto.Slides, 1)
	assert.Equal(t, 0, dto.Slides[0].Order)

	// Default title slide embeds the presentation title.
	var content struct {
		Elements []map[string]any `json:"elements"`
	}
	require.NoError(t, json.Unmarshal(dto.Slides[0].Content, &content))
	require.Len(t, content.Elements, 1)
	assert.Equal(t, "My Deck", content.Elements[0]["content"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePresentationRequiresTitle(t *testing.T) {
	svc, _ := newMock(t)

	_, err := svc.CreatePresentation(context.Background(), "user-1", "   ", "")
	assert.True(t, errors.Is(err, ErrEmptyTitle))
}

func TestUpdatePresentationNotFound(t *testing.T) {
	svc, mock := newMock(t)

	title := "New Title"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE presentations")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.UpdatePresentation(context.Background(), "missing", UpdateFields{Title: &title})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeletePresentation(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM presentations")).
		WithArgs("pres-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.DeletePresentation(context.Background(), "pres-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM presentations")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.DeletePresentation(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDuplicatePresentation(t *testing.T) {
	svc, mock := newMock(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, title")).
		WithArgs("pres-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "owner_id", "title", "description", "theme", "is_public", "updated_at"},
		).AddRow("pres-1", "user-1", "Q3 Review", "numbers", []byte(`{"primaryColor":"#111"}`), false, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, content")).
		WithArgs("pres-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "title", "content", "notes", "background_url", "background_color", "slide_order", "transition"},
		).AddRow("sl-1", "Intro", []byte(`{"elements":[]}`), "speaker notes", "", "#fff", 0, "fade"))

	mock.ExpectBegin()
	// Copy goes to the new owner under a fresh id, title suffixed.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO presentations")).
		WithArgs(sqlmock.AnyArg(), "user-2", "Q3 Review (Copy)", "numbers", []byte(`{"primaryColor":"#111"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slides")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Intro", []byte(`{"elements":[]}`),
			"speaker notes", "", "#fff", 0, "fade").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	newID, err := svc.DuplicatePresentation(context.Background(), "pres-1", "user-2")
	require.NoError(t, err)
	assert.NotEmpty(t, newID)
	assert.NotEqual(t, "pres-1", newID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSlidesUnknownPresentation(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := svc.ReplaceSlides(context.Background(), "missing", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReplaceSlidesMixedSubmission(t *testing.T) {
	svc, mock := newArrayMock(t)

	submitted := []SlideDTO{
		{ID: "sl-1", Title: "Intro v2", Content: json.RawMessage(`{"elements":[1]}`),
			Order: 0, Transition: "slide"},
		{ID: "temp-abc", Title: "Fresh", Content: json.RawMessage(`{"elements":[]}`),
			Order: 1}, // no transition submitted
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("pres-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectBegin()
	// Only the already-persisted id survives the delete filter.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM slides")).
		WithArgs("pres-1", []string{"sl-1"}).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slides")).
		WithArgs("sl-1", "pres-1", "Intro v2", []byte(`{"elements":[1]}`), "", "", "", 0, "slide").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The temp slide is inserted under a server-minted id with the default transition.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slides")).
		WithArgs(sqlmock.AnyArg(), "pres-1", "Fresh", []byte(`{"elements":[]}`), "", "", "", 1, "fade").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE presentations SET updated_at")).
		WithArgs("pres-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, content")).
		WithArgs("pres-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "title", "content", "notes", "background_url", "background_color", "slide_order", "transition"},
		).AddRow("sl-1", "Intro v2", []byte(`{"elements":[1]}`), "", "", "", 0, "slide").
			AddRow("srv-new", "Fresh", []byte(`{"elements":[]}`), "", "", "", 1, "fade"))

	out, err := svc.ReplaceSlides(context.Background(), "pres-1", submitted)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Intro v2", out[0].Title)
	assert.Equal(t, "fade", out[1].Transition)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSlidesEmptySubmissionDeletesAll(t *testing.T) {
	svc, mock := newArrayMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("pres-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectBegin()
	// Empty keep list: nothing is spared from the delete.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM slides")).
		WithArgs("pres-1", []string{}).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE presentations SET updated_at")).
		WithArgs("pres-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, content")).
		WithArgs("pres-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "title", "content", "notes", "background_url", "background_color", "slide_order", "transition"},
		))

	out, err := svc.ReplaceSlides(context.Background(), "pres-1", nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	assert.NoError(t, mock.ExpectationsWereMet())
}
