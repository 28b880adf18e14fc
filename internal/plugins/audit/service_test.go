package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/plugins/auth"
)

// --- Mock Repository ---

type memRepo struct {
	entries []Entry
	err     error
}

func (m *memRepo) Log(_ context.Context, e *Entry) error {
	if m.err != nil {
		return m.err
	}
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

// List returns newest first, like the SQL query.
func (m *memRepo) List(_ context.Context, limit, offset int) ([]Entry, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	out := []Entry{}
	for i := len(m.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, len(m.entries), nil
}

func (m *memRepo) ListByStation(_ context.Context, stationID string, limit int) ([]Entry, error) {
	out := []Entry{}
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].StationID == stationID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

// --- Service Tests ---

func TestLog_RequiresAction(t *testing.T) {
	svc := NewAuditService(&memRepo{})
	err := svc.Log(context.Background(), &Entry{StationID: "jazz"})
	assert.Equal(t, http.StatusBadRequest, apperror.SafeCode(err))
}

func TestLog_RepoFailureIsInternal(t *testing.T) {
	svc := NewAuditService(&memRepo{err: errors.New("connection refused")})
	err := svc.Log(context.Background(), &Entry{Action: ActionPlaybackStarted})
	assert.Equal(t, http.StatusInternalServerError, apperror.SafeCode(err))
}

func TestActivity_Pages(t *testing.T) {
	repo := &memRepo{}
	svc := NewAuditService(repo)
	for i := 0; i < perPage+5; i++ {
		require.NoError(t, svc.Log(context.Background(), &Entry{Action: ActionPlaybackStarted}))
	}

	first, err := svc.Activity(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page, "page numbers below 1 are clamped")
	assert.Len(t, first.Entries, perPage)
	assert.Equal(t, perPage+5, first.Total)
	assert.Equal(t, int64(perPage+5), first.Entries[0].ID)

	second, err := svc.Activity(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, second.Entries, 5)
}

func TestStationHistory(t *testing.T) {
	repo := &memRepo{}
	svc := NewAuditService(repo)
	ctx := context.Background()
	require.NoError(t, svc.Log(ctx, &Entry{Action: ActionStationCreated, StationID: "jazz"}))
	require.NoError(t, svc.Log(ctx, &Entry{Action: ActionStationCreated, StationID: "rock"}))
	require.NoError(t, svc.Log(ctx, &Entry{Action: ActionPlaybackStarted, StationID: "jazz"}))

	entries, err := svc.StationHistory(ctx, "jazz")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionPlaybackStarted, entries[0].Action)

	_, err = svc.StationHistory(ctx, "")
	assert.Equal(t, http.StatusBadRequest, apperror.SafeCode(err))
}

// --- Record ---

func sessionContext(userID string) echo.Context {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.Set("auth_session", &auth.Session{UserID: userID, CreatedAt: time.Now()})
	return c
}

func TestRecord_FillsUser(t *testing.T) {
	repo := &memRepo{}
	Record(sessionContext("u-1"), NewAuditService(repo), Entry{Action: ActionStationDeleted, StationID: "jazz"})

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "u-1", repo.entries[0].UserID)
}

func TestRecord_NilAndFailingLoggers(t *testing.T) {
	c := sessionContext("u-1")
	assert.NotPanics(t, func() { Record(c, nil, Entry{Action: ActionPlaybackStopped}) })

	failing := NewAuditService(&memRepo{err: errors.New("disk full")})
	assert.NotPanics(t, func() { Record(c, failing, Entry{Action: ActionPlaybackStopped}) })
}

// --- Handler ---

func TestHandler_Activity(t *testing.T) {
	repo := &memRepo{}
	svc := NewAuditService(repo)
	require.NoError(t, svc.Log(context.Background(), &Entry{
		Action: ActionSettingsUpdated, Details: map[string]any{"volume_percent": 40},
	}))
	h := NewHandler(svc)

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/activity?page=1", nil), rec)
	require.NoError(t, h.Activity(c))

	var page Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, ActionSettingsUpdated, page.Entries[0].Action)
	assert.Equal(t, float64(40), page.Entries[0].Details["volume_percent"])
}

func TestHandler_StationHistory(t *testing.T) {
	repo := &memRepo{}
	svc := NewAuditService(repo)
	require.NoError(t, svc.Log(context.Background(), &Entry{Action: ActionArtworkUpdated, StationID: "jazz"}))
	h := NewHandler(svc)

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("jazz")
	require.NoError(t, h.StationHistory(c))
	assert.Contains(t, rec.Body.String(), ActionArtworkUpdated)
}
