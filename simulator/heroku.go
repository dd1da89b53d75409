package simulator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sockerless/forkgate/heroku"
)

// HerokuApp is the simulator's record of one app.
type HerokuApp struct {
	App        heroku.App
	ConfigVars map[string]string
	Builds     []heroku.Build
}

// Heroku fakes the Platform API app, config-var and build endpoints.
type Heroku struct {
	apps     *StateStore[HerokuApp]
	rec      *recorder
	apiKey   string
	pageSize int
	logger   zerolog.Logger
	mux      *http.ServeMux

	// Now stamps created_at on new apps. Defaults to time.Now.
	Now func() time.Time
}

// NewHeroku returns an empty platform fake.
func NewHeroku(cfg Config, logger zerolog.Logger) *Heroku {
	h := &Heroku{
		apps:     NewStateStore[HerokuApp](),
		rec:      newRecorder(),
		apiKey:   cfg.APIKey,
		pageSize: cfg.PageSize,
		logger:   logger.With().Str("sim", "heroku").Logger(),
		mux:      http.NewServeMux(),
		Now:      time.Now,
	}
	h.mux.HandleFunc("POST /apps", h.handleCreateApp)
	h.mux.HandleFunc("GET /apps", h.handleListApps)
	h.mux.HandleFunc("DELETE /apps/{name}", h.handleDeleteApp)
	h.mux.HandleFunc("PATCH /apps/{name}/config-vars", h.handleUpdateConfigVars)
	h.mux.HandleFunc("POST /apps/{name}/builds", h.handleCreateBuild)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Heroku) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeHerokuError(w, http.StatusUnauthorized, "unauthorized", "Invalid credentials provided.")
		return
	}
	h.mux.ServeHTTP(w, r)
}

// PutApp seeds an app, e.g. one created a day ago.
func (h *Heroku) PutApp(app heroku.App) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	h.apps.Put(app.Name, HerokuApp{App: app, ConfigVars: map[string]string{}})
}

// App returns the stored app record.
func (h *Heroku) App(name string) (HerokuApp, bool) {
	return h.apps.Get(name)
}

// AppNames returns the names of all stored apps, sorted.
func (h *Heroku) AppNames() []string {
	return h.apps.Keys()
}

// Fail makes every call of op against target (app name, or "" for any)
// answer with status and message until Reset.
func (h *Heroku) Fail(op Op, target string, status int, message string) {
	h.rec.fail(op, target, status, message)
}

// Reset clears injected failures. The call log is kept.
func (h *Heroku) Reset() { h.rec.reset() }

// Calls returns the call log in arrival order.
func (h *Heroku) Calls() []Call { return h.rec.snapshot() }

// Count returns how many times op was called.
func (h *Heroku) Count(op Op) int { return h.rec.count(op) }

func (h *Heroku) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	return h.apiKey == "" || token == h.apiKey
}

func (h *Heroku) injected(w http.ResponseWriter, op Op, target string) bool {
	f, ok := h.rec.record(op, target)
	if !ok {
		return false
	}
	writeHerokuError(w, f.status, "simulated_failure", f.message)
	return true
}

func (h *Heroku) handleCreateApp(w http.ResponseWriter, r *http.Request) {
	var opts heroku.AppCreateOpts
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		h.rec.record(OpCreateApp, "")
		writeHerokuError(w, http.StatusBadRequest, "bad_request", "Invalid JSON body.")
		return
	}
	if h.injected(w, OpCreateApp, opts.Name) {
		return
	}
	if opts.Name == "" {
		opts.Name = "app-" + uuid.NewString()[:8]
	}
	region := opts.Region
	if region == "" {
		region = "us"
	}
	app := heroku.App{
		ID:        uuid.NewString(),
		Name:      opts.Name,
		WebURL:    fmt.Sprintf("https://%s.herokuapp.com/", opts.Name),
		CreatedAt: h.Now().UTC(),
		Region:    &heroku.Region{Name: region},
	}
	if !h.apps.PutIfAbsent(app.Name, HerokuApp{App: app, ConfigVars: map[string]string{}}) {
		writeHerokuError(w, http.StatusUnprocessableEntity, "invalid_params", "Name "+app.Name+" is already taken")
		return
	}
	h.logger.Debug().Str("app", app.Name).Msg("app created")
	WriteJSON(w, http.StatusCreated, app)
}

func (h *Heroku) handleUpdateConfigVars(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if h.injected(w, OpUpdateConfigVars, name) {
		return
	}
	var vars map[string]string
	if err := json.NewDecoder(r.Body).Decode(&vars); err != nil {
		writeHerokuError(w, http.StatusBadRequest, "bad_request", "Invalid JSON body.")
		return
	}
	var merged map[string]string
	found := h.apps.Update(name, func(a *HerokuApp) {
		for k, v := range vars {
			a.ConfigVars[k] = v
		}
		merged = make(map[string]string, len(a.ConfigVars))
		for k, v := range a.ConfigVars {
			merged[k] = v
		}
	})
	if !found {
		writeHerokuError(w, http.StatusNotFound, "not_found", "Couldn't find that app.")
		return
	}
	WriteJSON(w, http.StatusOK, merged)
}

func (h *Heroku) handleCreateBuild(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if h.injected(w, OpCreateBuild, name) {
		return
	}
	var opts heroku.BuildCreateOpts
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil || opts.SourceBlob.URL == "" {
		writeHerokuError(w, http.StatusUnprocessableEntity, "invalid_params", "source_blob.url is required")
		return
	}
	build := heroku.Build{ID: uuid.NewString(), Status: "pending", SourceBlob: opts.SourceBlob}
	if !h.apps.Update(name, func(a *HerokuApp) { a.Builds = append(a.Builds, build) }) {
		writeHerokuError(w, http.StatusNotFound, "not_found", "Couldn't find that app.")
		return
	}
	WriteJSON(w, http.StatusCreated, build)
}

// handleListApps pages by name. The Range header carries the last name of
// the previous page: "name ]<last>..; max=<n>".
func (h *Heroku) handleListApps(w http.ResponseWriter, r *http.Request) {
	if h.injected(w, OpListApps, "") {
		return
	}
	after := ""
	if rng := r.Header.Get("Range"); rng != "" {
		if _, rest, ok := strings.Cut(rng, "]"); ok {
			after, _, _ = strings.Cut(rest, "..")
		}
	}

	page := []heroku.App{}
	more := false
	for _, name := range h.apps.Keys() {
		if after != "" && name <= after {
			continue
		}
		if h.pageSize > 0 && len(page) == h.pageSize {
			more = true
			break
		}
		if a, ok := h.apps.Get(name); ok {
			page = append(page, a.App)
		}
	}

	if more {
		last := page[len(page)-1].Name
		w.Header().Set("Next-Range", fmt.Sprintf("name ]%s..; max=%d", last, h.pageSize))
		WriteJSON(w, http.StatusPartialContent, page)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

func (h *Heroku) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if h.injected(w, OpDeleteApp, name) {
		return
	}
	a, ok := h.apps.Delete(name)
	if !ok {
		writeHerokuError(w, http.StatusNotFound, "not_found", "Couldn't find that app.")
		return
	}
	h.logger.Debug().Str("app", name).Msg("app deleted")
	WriteJSON(w, http.StatusOK, a.App)
}

func writeHerokuError(w http.ResponseWriter, status int, id, message string) {
	WriteJSON(w, status, map[string]string{"id": id, "message": message})
}
