package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdeck/launchdeck/internal/config"
	"github.com/launchdeck/launchdeck/internal/discovery"
	"github.com/launchdeck/launchdeck/internal/hotkey"
	"github.com/launchdeck/launchdeck/internal/launcher"
	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/refresh"
)

type inline struct{ err error }

func (r inline) Call(_ context.Context, fn func()) error {
	if r.err != nil {
		return r.err
	}
	fn()
	return nil
}

type fakeController struct {
	view      refresh.View
	refreshed int
}

func (f *fakeController) View() refresh.View { return f.view }

func (f *fakeController) Refresh() refresh.View {
	f.refreshed++
	return f.view
}

func (f *fakeController) Status() string { return "Launching Notes" }

func (f *fakeController) HotkeyRegistration() hotkey.Registration {
	return hotkey.Registration{ID: 1, Modifiers: 6, Key: 0xC0, Registered: true}
}

func (f *fakeController) PendingLaunches() []launcher.PendingLaunch {
	return []launcher.PendingLaunch{{
		ID:         uuid.New(),
		Target:     "Notes",
		ScriptPath: "/tmp/x.sh",
		CreatedAt:  time.Date(2026, 3, 1, 11, 59, 59, 0, time.UTC),
		Delay:      3 * time.Second,
	}}
}

type fakeRecents []*models.LaunchRecord

func (f fakeRecents) Recent(limit int) ([]*models.LaunchRecord, error) {
	if len(f) > limit {
		return f[:limit], nil
	}
	return f, nil
}

func (f fakeRecents) GetLatest() (*models.LaunchRecord, error) {
	if len(f) == 0 {
		return nil, nil
	}
	return f[0], nil
}

func sampleView() refresh.View {
	live := refresh.LiveProcess{
		Group:  "bases",
		Handle: discovery.ProcessHandle{PID: 42, Window: 0x1010, Title: "ERP"},
		Label:  "🔴 ERP",
	}
	return refresh.View{
		Groups: []refresh.GroupView{
			{Name: "bases", Entries: []refresh.Entry{live}},
			{Name: "tools", Entries: []refresh.Entry{refresh.LaunchPlaceholder{Group: "tools", Target: launcher.LaunchTarget{Name: "Notes"}, Label: "Notes"}}},
		},
		Recent: []refresh.Entry{refresh.Other{Name: "ERP", Label: "ERP"}},
		Cursor: refresh.Cursor{Group: "bases", Entry: live},
	}
}

func newTestMux(runner Runner, ctrl Controller, recents Recents) (*http.ServeMux, *Handler) {
	h := NewHandler(config.Default(), runner, ctrl, recents, nil)
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	mux := http.NewServeMux()
	h.SetupRoutes(mux)
	return mux, h
}

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestViewEndpoint(t *testing.T) {
	ctrl := &fakeController{view: sampleView()}
	mux, _ := newTestMux(inline{}, ctrl, nil)

	rec := get(t, mux, "/api/view")
	require.Equal(t, http.StatusOK, rec.Code)

	var body viewJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Groups, 2)
	assert.Equal(t, entryJSON{Kind: "process", Key: "pid:42", Label: "🔴 ERP", PID: 42, Window: "0x1010"}, body.Groups[0].Entries[0])
	assert.Equal(t, "placeholder", body.Groups[1].Entries[0].Kind)
	assert.Equal(t, "recent", body.Recent[0].Kind)
	require.NotNil(t, body.Cursor)
	assert.Equal(t, "pid:42", body.Cursor.Key)
	assert.Equal(t, "Launching Notes", body.Status)
	assert.Zero(t, ctrl.refreshed)

	get(t, mux, "/api/view?refresh=1")
	assert.Equal(t, 1, ctrl.refreshed)
}

func TestViewLoopStopped(t *testing.T) {
	mux, _ := newTestMux(inline{err: errors.New("event loop stopped")}, &fakeController{}, nil)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, mux, "/api/view").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, mux, "/api/status").Code)
}

func TestRecentEndpoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC)
	recents := fakeRecents{
		{TargetName: "ERP", Mode: "primary", LastRunAt: at, RunCount: 3},
		{TargetName: "ZUP", Mode: "maintenance", LastRunAt: at.Add(-2 * time.Hour), RunCount: 1},
	}
	mux, _ := newTestMux(inline{}, &fakeController{}, recents)

	rec := get(t, mux, "/api/recent?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []recentJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "ERP", body[0].Target)
	assert.Equal(t, "30m ago", body[0].Ago)
	assert.Equal(t, int64(3), body[0].RunCount)
}

func TestStatusEndpoint(t *testing.T) {
	recents := fakeRecents{{TargetName: "ERP", LastRunAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}}
	mux, _ := newTestMux(inline{}, &fakeController{}, recents)

	rec := get(t, mux, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	hk := body["hotkey"].(map[string]interface{})
	assert.Equal(t, "Ctrl+Shift+Ё", hk["name"])
	assert.Equal(t, true, hk["registered"])
	require.Len(t, body["pending_scripts"], 1)
	script := body["pending_scripts"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "3s", script["delay"])
	assert.Equal(t, "2s", script["cleanup_in"])
	assert.Equal(t, map[string]interface{}{"target": "ERP", "ago": "2h ago"}, body["last_launch"])
}

func TestHealthAndIndex(t *testing.T) {
	mux, _ := newTestMux(inline{}, &fakeController{view: sampleView()}, nil)

	rec := get(t, mux, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	rec = get(t, mux, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<li class="process cursor">🔴 ERP</li>`)

	assert.Equal(t, http.StatusNotFound, get(t, mux, "/missing").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(inline{}, &fakeController{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/view", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestShutdownEndpoint(t *testing.T) {
	mux, h := newTestMux(inline{}, &fakeController{}, nil)

	post := func(header bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/shutdown", nil)
		if header {
			req.Header.Set(ShutdownHeader, "1")
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNotImplemented, post(true).Code)

	requested := 0
	h.OnShutdown(func() { requested++ })

	assert.Equal(t, http.StatusMethodNotAllowed, get(t, mux, "/api/shutdown").Code)
	assert.Equal(t, http.StatusForbidden, post(false).Code)
	assert.Zero(t, requested)

	rec := post(true)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stopping"`)
	assert.Equal(t, 1, requested)
}

func TestRequestShutdown(t *testing.T) {
	serve := func(hook func()) *config.Config {
		mux, h := newTestMux(inline{}, &fakeController{}, nil)
		if hook != nil {
			h.OnShutdown(hook)
		}
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		u, err := url.Parse(srv.URL)
		require.NoError(t, err)
		port, err := strconv.Atoi(u.Port())
		require.NoError(t, err)

		cfg := config.Default()
		cfg.Web.Host = u.Hostname()
		cfg.Web.Port = port
		return cfg
	}

	assert.Error(t, RequestShutdown(context.Background(), serve(nil)), "instance without a shutdown hook")

	stopped := make(chan struct{})
	require.NoError(t, RequestShutdown(context.Background(), serve(func() { close(stopped) })))

	select {
	case <-stopped:
	default:
		t.Fatal("shutdown hook was not called")
	}
}
