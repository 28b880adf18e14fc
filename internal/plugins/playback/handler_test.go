package playback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/notify"
	"github.com/keyxmakerx/radio/internal/player"
	"github.com/keyxmakerx/radio/internal/plugins/audit"
	"github.com/keyxmakerx/radio/internal/plugins/auth"
	"github.com/keyxmakerx/radio/internal/plugins/stations"
)

// --- Mocks ---

type mockController struct {
	playFn      func(ctx context.Context, s player.Station) error
	stopFn      func() error
	setVolumeFn func(percent int) error
	status      player.Status
	devices     []player.Device
}

func (m *mockController) Play(ctx context.Context, s player.Station) error {
	if m.playFn != nil {
		return m.playFn(ctx, s)
	}
	now := time.Now()
	m.status = player.Status{Playing: true, Station: &s, Since: &now}
	return nil
}

func (m *mockController) Stop() error {
	if m.stopFn != nil {
		return m.stopFn()
	}
	return nil
}

func (m *mockController) SetVolume(percent int) error {
	if m.setVolumeFn != nil {
		return m.setVolumeFn(percent)
	}
	m.status.Volume = percent
	return nil
}

func (m *mockController) Status() player.Status { return m.status }

func (m *mockController) Devices(context.Context) ([]player.Device, error) {
	return m.devices, nil
}

type mockStations struct {
	stations []stations.Station
}

func (m *mockStations) List(context.Context) ([]stations.Station, error) {
	return m.stations, nil
}

func (m *mockStations) Get(_ context.Context, id string) (*stations.Station, error) {
	for i := range m.stations {
		if m.stations[i].ID == id {
			return &m.stations[i], nil
		}
	}
	return nil, apperror.NewNotFound("station not found")
}

type savedVolume struct{ v int }

func (s *savedVolume) SaveVolume(_ context.Context, percent int) error {
	s.v = percent
	return nil
}

func jazz() stations.Station {
	return stations.Station{ID: "jazz", Name: "Jazz FM", URL: "http://example.com/jazz", Color: "#ffff00"}
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// --- Tests ---

func TestPlay_Started(t *testing.T) {
	ctrl := &mockController{}
	hub := notify.NewHub()
	h := NewHandler(ctrl, &mockStations{stations: []stations.Station{jazz()}}, nil, hub)

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(jsonRequest(http.MethodPost, "/api/play", `{"station_id":"jazz"}`), rec)
	require.NoError(t, h.Play(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"started playback"}`, rec.Body.String())
	require.NotNil(t, ctrl.status.Station)
	assert.Equal(t, "http://example.com/jazz", ctrl.status.Station.URL)
}

func TestPlay_UnknownStation(t *testing.T) {
	h := NewHandler(&mockController{}, &mockStations{}, nil, nil)

	c := echo.New().NewContext(jsonRequest(http.MethodPost, "/api/play", `{"station_id":"nope"}`), httptest.NewRecorder())
	err := h.Play(c)
	assert.Equal(t, http.StatusNotFound, apperror.SafeCode(err))
}

func TestPlay_MissingStationID(t *testing.T) {
	h := NewHandler(&mockController{}, &mockStations{}, nil, nil)

	c := echo.New().NewContext(jsonRequest(http.MethodPost, "/api/play", `{}`), httptest.NewRecorder())
	err := h.Play(c)
	assert.Equal(t, http.StatusUnprocessableEntity, apperror.SafeCode(err))
}

func TestPlay_BackendFailure(t *testing.T) {
	ctrl := &mockController{playFn: func(context.Context, player.Station) error {
		return player.ErrStreamConnectTimeout
	}}
	hub := notify.NewHub()
	msgs, cancel := hub.Subscribe(1)
	defer cancel()
	h := NewHandler(ctrl, &mockStations{stations: []stations.Station{jazz()}}, nil, hub)

	c := echo.New().NewContext(jsonRequest(http.MethodPost, "/api/play", `{"station_id":"jazz"}`), httptest.NewRecorder())
	err := h.Play(c)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Code)
	assert.Equal(t, "could not start playback", appErr.Message)
	assert.Equal(t, player.ErrStreamConnectTimeout.Error(), appErr.Detail)

	n := <-msgs
	assert.Equal(t, notify.LevelError, n.Level)
	assert.Contains(t, n.Message, "Jazz FM")
}

type auditLog struct{ entries []audit.Entry }

func (a *auditLog) Log(_ context.Context, e *audit.Entry) error {
	a.entries = append(a.entries, *e)
	return nil
}

func TestPlayAndStop_Audited(t *testing.T) {
	ctrl := &mockController{}
	log := &auditLog{}
	h := NewHandler(ctrl, &mockStations{stations: []stations.Station{jazz()}}, nil, nil)
	h.SetAuditLogger(log)

	c := echo.New().NewContext(jsonRequest(http.MethodPost, "/api/play", `{"station_id":"jazz"}`), httptest.NewRecorder())
	c.Set("auth_session", &auth.Session{UserID: "u-1"})
	require.NoError(t, h.Play(c))
	require.NoError(t, h.Stop(echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/api/stop", nil), httptest.NewRecorder())))

	require.Len(t, log.entries, 2)
	assert.Equal(t, audit.ActionPlaybackStarted, log.entries[0].Action)
	assert.Equal(t, "u-1", log.entries[0].UserID)
	assert.Equal(t, "Jazz FM", log.entries[0].StationName)
	assert.Equal(t, audit.ActionPlaybackStopped, log.entries[1].Action)
	assert.Equal(t, "jazz", log.entries[1].StationID)
}

func TestStop(t *testing.T) {
	tests := []struct {
		name    string
		stopErr error
		code    int
	}{
		{"stopped", nil, http.StatusOK},
		{"not playing", player.ErrNotPlaying, http.StatusBadRequest},
		{"backend failure", errors.New("closing stream: broken pipe"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &mockController{stopFn: func() error { return tt.stopErr }}
			h := NewHandler(ctrl, &mockStations{}, nil, nil)

			rec := httptest.NewRecorder()
			err := h.Stop(echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/api/stop", nil), rec))
			if tt.stopErr == nil {
				require.NoError(t, err)
				assert.JSONEq(t, `{"message":"stopped playing"}`, rec.Body.String())
				return
			}
			assert.Equal(t, tt.code, apperror.SafeCode(err))
		})
	}
}

func TestSetVolume_PersistsAndValidates(t *testing.T) {
	saved := &savedVolume{v: -1}
	ctrl := &mockController{}
	h := NewHandler(ctrl, &mockStations{}, saved, nil)
	e := echo.New()

	rec := httptest.NewRecorder()
	require.NoError(t, h.SetVolume(e.NewContext(jsonRequest(http.MethodPut, "/api/player/volume", `{"volume":40}`), rec)))
	assert.Equal(t, 40, saved.v)

	var st player.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 40, st.Volume)

	ctrl.setVolumeFn = func(int) error { return player.ErrInvalidVolume }
	err := h.SetVolume(e.NewContext(jsonRequest(http.MethodPut, "/api/player/volume", `{"volume":140}`), httptest.NewRecorder()))
	assert.Equal(t, http.StatusUnprocessableEntity, apperror.SafeCode(err))
	assert.Equal(t, 40, saved.v)

	err = h.SetVolume(e.NewContext(jsonRequest(http.MethodPut, "/api/player/volume", `{}`), httptest.NewRecorder()))
	assert.Equal(t, http.StatusUnprocessableEntity, apperror.SafeCode(err))
}

func TestDevices(t *testing.T) {
	ctrl := &mockController{devices: []player.Device{{Index: 0, Name: "auto", Description: "Autoselect device"}}}
	h := NewHandler(ctrl, &mockStations{}, nil, nil)

	rec := httptest.NewRecorder()
	require.NoError(t, h.Devices(echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/devices", nil), rec)))
	assert.JSONEq(t, `[{"index":0,"name":"auto","description":"Autoselect device"}]`, rec.Body.String())
}

func TestDashboard_MarksPlayingStation(t *testing.T) {
	j := jazz()
	ps := j.PlayerStation()
	since := time.Now().Add(-time.Hour)
	ctrl := &mockController{status: player.Status{Playing: true, Station: &ps, Since: &since, Volume: 70}}
	other := stations.Station{ID: "news", Name: "News", URL: "http://example.com/news"}
	h := NewHandler(ctrl, &mockStations{stations: []stations.Station{j, other}}, nil, nil)

	rec := httptest.NewRecorder()
	require.NoError(t, h.Dashboard(echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "Jazz FM")
	assert.Contains(t, body, "News")
	assert.Contains(t, body, "1 hour ago")
}

func TestCard(t *testing.T) {
	s := stations.Station{ID: "news", Name: "News"}
	c := card(&s, player.Status{})
	assert.Equal(t, stations.DefaultColor, c.Color)
	assert.Equal(t, "white", c.TextColor)
	assert.False(t, c.Playing)
}
