package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/config"
	"github.com/launchdeck/launchdeck/internal/hotkey"
	"github.com/launchdeck/launchdeck/internal/launcher"
	"github.com/launchdeck/launchdeck/internal/logging"
	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/refresh"
	"github.com/launchdeck/launchdeck/pkg/utils"
)

// Runner runs fn on the event loop and waits for it
type Runner interface {
	Call(ctx context.Context, fn func()) error
}

// Controller is the state the status API reports. It is only touched
// through Runner.
type Controller interface {
	View() refresh.View
	Refresh() refresh.View
	Status() string
	HotkeyRegistration() hotkey.Registration
	PendingLaunches() []launcher.PendingLaunch
}

// Recents reads launch history
type Recents interface {
	Recent(limit int) ([]*models.LaunchRecord, error)
	GetLatest() (*models.LaunchRecord, error)
}

type Handler struct {
	config  *config.Config
	runner  Runner
	ctrl    Controller
	recents Recents
	logger  *zap.Logger

	shutdown func()
	now      func() time.Time
}

func NewHandler(cfg *config.Config, runner Runner, ctrl Controller, recents Recents, logger *zap.Logger) *Handler {
	return &Handler{
		config:  cfg,
		runner:  runner,
		ctrl:    ctrl,
		recents: recents,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// OnShutdown sets what POST /api/shutdown triggers. fn must not block.
func (h *Handler) OnShutdown(fn func()) {
	h.shutdown = fn
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/view", h.handleView)
	mux.HandleFunc("/api/recent", h.handleRecent)
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/shutdown", h.handleShutdown)

	mux.HandleFunc("/health", h.handleHealth)

	mux.HandleFunc("/", h.handleIndex)
}

type entryJSON struct {
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Label  string `json:"label"`
	PID    int    `json:"pid,omitempty"`
	Window string `json:"window,omitempty"`
	Target string `json:"target,omitempty"`
}

type groupJSON struct {
	Name    string      `json:"name"`
	Entries []entryJSON `json:"entries"`
}

type viewJSON struct {
	Groups []groupJSON `json:"groups"`
	Recent []entryJSON `json:"recent"`
	Cursor *cursorJSON `json:"cursor,omitempty"`
	Status string      `json:"status,omitempty"`
}

type cursorJSON struct {
	Group string `json:"group,omitempty"`
	Key   string `json:"key"`
}

func toEntry(e refresh.Entry) entryJSON {
	return refresh.Match(e,
		func(lp refresh.LiveProcess) entryJSON {
			return entryJSON{Kind: "process", Key: lp.Key(), Label: lp.Label, PID: lp.Handle.PID, Window: lp.Handle.Window.String()}
		},
		func(p refresh.LaunchPlaceholder) entryJSON {
			return entryJSON{Kind: "placeholder", Key: p.Key(), Label: p.Label, Target: p.Target.Name}
		},
		func(o refresh.Other) entryJSON {
			return entryJSON{Kind: "recent", Key: o.Key(), Label: o.Label, Target: o.Name}
		},
	)
}

func toViewJSON(v refresh.View, status string) viewJSON {
	out := viewJSON{Groups: []groupJSON{}, Recent: []entryJSON{}, Status: status}
	for _, g := range v.Groups {
		gj := groupJSON{Name: g.Name, Entries: []entryJSON{}}
		for _, e := range g.Entries {
			gj.Entries = append(gj.Entries, toEntry(e))
		}
		out.Groups = append(out.Groups, gj)
	}
	for _, e := range v.Recent {
		out.Recent = append(out.Recent, toEntry(e))
	}
	if v.Cursor.Valid() {
		out.Cursor = &cursorJSON{Group: v.Cursor.Group, Key: v.Cursor.Entry.Key()}
	}
	return out
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	refreshNow := r.URL.Query().Get("refresh") == "1"

	var view refresh.View
	var status string
	err := h.runner.Call(r.Context(), func() {
		if refreshNow {
			view = h.ctrl.Refresh()
		} else {
			view = h.ctrl.View()
		}
		status = h.ctrl.Status()
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read view: %v", err), http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, h.logger, toViewJSON(view, status))
}

type recentJSON struct {
	Target    string    `json:"target"`
	Mode      string    `json:"mode"`
	LastRunAt time.Time `json:"last_run_at"`
	Ago       string    `json:"ago"`
	RunCount  int64     `json:"run_count"`
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.recents == nil {
		respondJSON(w, h.logger, []recentJSON{})
		return
	}

	limit := h.config.Refresh.RecentLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	records, err := h.recents.Recent(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch recent launches: %v", err), http.StatusInternalServerError)
		return
	}

	now := h.now()
	out := make([]recentJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, recentJSON{
			Target:    rec.TargetName,
			Mode:      rec.Mode,
			LastRunAt: rec.LastRunAt,
			Ago:       utils.FormatAgo(rec.LastRunAt, now),
			RunCount:  rec.RunCount,
		})
	}
	respondJSON(w, h.logger, out)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var reg hotkey.Registration
	var pending []launcher.PendingLaunch
	var message string
	err := h.runner.Call(r.Context(), func() {
		reg = h.ctrl.HotkeyRegistration()
		pending = h.ctrl.PendingLaunches()
		message = h.ctrl.Status()
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read status: %v", err), http.StatusServiceUnavailable)
		return
	}

	now := h.now()
	scripts := make([]map[string]interface{}, 0, len(pending))
	for _, p := range pending {
		left := p.CreatedAt.Add(p.Delay).Sub(now)
		if left < 0 {
			left = 0
		}
		scripts = append(scripts, map[string]interface{}{
			"id":         p.ID.String(),
			"target":     p.Target,
			"script":     p.ScriptPath,
			"created_at": p.CreatedAt,
			"delay":      p.Delay.String(),
			"cleanup_in": utils.FormatRoundedUnit(int64(left / time.Second)),
		})
	}

	status := map[string]interface{}{
		"running":         true,
		"message":         message,
		"database_path":   h.config.Database.Path,
		"pending_scripts": scripts,
		"hotkey": map[string]interface{}{
			"enabled":    h.config.Hotkey.Enabled,
			"registered": reg.Registered,
			"name":       hotkey.Describe(h.config.Hotkey.Modifiers, h.config.Hotkey.Key),
		},
	}
	if h.recents != nil {
		latest, err := h.recents.GetLatest()
		if err != nil {
			h.logger.Warn("failed to read latest launch", zap.Error(err))
		} else if latest != nil {
			status["last_launch"] = map[string]interface{}{
				"target": latest.TargetName,
				"ago":    utils.FormatAgo(latest.LastRunAt, now),
			}
		}
	}
	respondJSON(w, h.logger, status)
}

// ShutdownHeader must be set on shutdown requests. Browsers cannot send it
// cross-origin without a preflight, which the API never allows.
const ShutdownHeader = "X-Launchdeck-Shutdown"

func (h *Handler) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get(ShutdownHeader) == "" {
		http.Error(w, "Missing "+ShutdownHeader+" header", http.StatusForbidden)
		return
	}
	if h.shutdown == nil {
		http.Error(w, "Shutdown is not available", http.StatusNotImplemented)
		return
	}

	h.logger.Info("shutdown requested", zap.String("remote", r.RemoteAddr))
	h.shutdown()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "stopping"}); err != nil {
		h.logger.Warn("error encoding JSON", zap.Error(err))
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>launchdeck</title>
    <style>
        body { font-family: system-ui, sans-serif; margin: 2rem; }
        h2 { font-size: 1rem; text-transform: uppercase; color: #666; }
        li.cursor { font-weight: bold; }
        .status { color: #555; margin-top: 2rem; }
    </style>
</head>
<body>
{{range .Groups}}
    <h2>{{.Name}}</h2>
    <ul>{{range .Entries}}<li class="{{.Kind}}{{if eq .Key $.CursorKey}} cursor{{end}}">{{.Label}}</li>{{else}}<li>-</li>{{end}}</ul>
{{end}}
    <h2>recent</h2>
    <ul>{{range .Recent}}<li class="{{.Kind}}{{if eq .Key $.CursorKey}} cursor{{end}}">{{.Label}}</li>{{else}}<li>-</li>{{end}}</ul>
    <div class="status">{{.Status}}</div>
</body>
</html>
`))

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var view refresh.View
	var status string
	if err := h.runner.Call(r.Context(), func() {
		view = h.ctrl.View()
		status = h.ctrl.Status()
	}); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	vj := toViewJSON(view, status)
	data := struct {
		Groups    []groupJSON
		Recent    []entryJSON
		Status    string
		CursorKey string
	}{Groups: vj.Groups, Recent: vj.Recent, Status: vj.Status}
	if vj.Cursor != nil {
		data.CursorKey = vj.Cursor.Key
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		h.logger.Warn("failed to render index", zap.Error(err))
	}
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("error encoding JSON", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
