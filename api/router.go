// Package api exposes the cascade engine and the dispatch sessions over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	dispatchapi "github.com/kilianp07/blackout/api/dispatch"
	"github.com/kilianp07/blackout/app"
	"github.com/kilianp07/blackout/core/cascade"
	"github.com/kilianp07/blackout/core/dispatch"
	"github.com/kilianp07/blackout/infra/dispatchlog"
	"github.com/kilianp07/blackout/infra/logger"
	"github.com/kilianp07/blackout/infra/metrics"
	"github.com/kilianp07/blackout/infra/topology"
)

// Backend is the application surface served by the router.
type Backend interface {
	Scenarios() []string
	RunCascade(scenario string, forecastHour int) (cascade.Result, error)
	StartSession(scenario string, forecastHour int, storm bool) (app.SessionInfo, error)
	SessionIDs() []string
	Recommend(id string) (dispatch.Recommendation, error)
	Dispatch(id, crewID, nodeID string) (dispatch.Assignment, error)
	DispatchAll(id string) ([]dispatch.Assignment, error)
	Tick(id string) (dispatch.Status, error)
	Status(id string) (dispatch.Status, error)
	EndSession(id string) error
	Logs(ctx context.Context, q dispatchlog.LogQuery) ([]dispatchlog.LogRecord, error)
}

type options struct {
	metrics  bool
	logs     bool
	logToken string
}

// Option customises the router.
type Option func(*options)

// WithMetrics serves the Prometheus registry on /metrics.
func WithMetrics() Option { return func(o *options) { o.metrics = true } }

// WithLogs serves the dispatch journal on /api/dispatch/logs, guarded by a
// bearer token when token is not empty.
func WithLogs(token string) Option {
	return func(o *options) {
		o.logs = true
		o.logToken = token
	}
}

type handler struct {
	b   Backend
	log logger.Logger
}

// NewRouter builds the HTTP routes over b.
func NewRouter(b Backend, opts ...Option) *mux.Router {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	h := &handler{b: b, log: logger.New("api")}
	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/scenarios", h.scenarios).Methods(http.MethodGet)
	r.HandleFunc("/api/simulate/cascade", h.simulate).Methods(http.MethodPost)

	s := r.PathPrefix("/api/dispatch/sessions").Subrouter()
	s.HandleFunc("", h.listSessions).Methods(http.MethodGet)
	s.HandleFunc("", h.createSession).Methods(http.MethodPost)
	s.HandleFunc("/{id}", h.deleteSession).Methods(http.MethodDelete)
	s.HandleFunc("/{id}/recommend", h.recommend).Methods(http.MethodGet)
	s.HandleFunc("/{id}/dispatch", h.dispatch).Methods(http.MethodPost)
	s.HandleFunc("/{id}/dispatch-all", h.dispatchAll).Methods(http.MethodPost)
	s.HandleFunc("/{id}/tick", h.tick).Methods(http.MethodPost)
	s.HandleFunc("/{id}/status", h.status).Methods(http.MethodGet)

	if o.logs {
		r.Handle("/api/dispatch/logs", dispatchapi.NewLogHandler(dispatchapi.QuerierFunc(b.Logs), o.logToken)).Methods(http.MethodGet)
	}
	if o.metrics {
		r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

type cascadeRequest struct {
	Scenario     string `json:"scenario"`
	ForecastHour int    `json:"forecast_hour"`
}

type sessionRequest struct {
	Scenario     string `json:"scenario"`
	ForecastHour int    `json:"forecast_hour"`
	StormMode    bool   `json:"storm_mode"`
}

type dispatchRequest struct {
	CrewID string `json:"crew_id"`
	NodeID string `json:"node_id"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) scenarios(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, h.b.Scenarios())
}

func (h *handler) simulate(w http.ResponseWriter, r *http.Request) {
	var req cascadeRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.b.RunCascade(req.Scenario, req.ForecastHour)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.write(w, http.StatusOK, res)
}

func (h *handler) listSessions(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, map[string][]string{"sessions": h.b.SessionIDs()})
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	info, err := h.b.StartSession(req.Scenario, req.ForecastHour, req.StormMode)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.write(w, http.StatusCreated, info)
}

func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.b.EndSession(mux.Vars(r)["id"]); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) recommend(w http.ResponseWriter, r *http.Request) {
	rec, err := h.b.Recommend(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	h.write(w, http.StatusOK, rec)
}

func (h *handler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.b.Dispatch(mux.Vars(r)["id"], req.CrewID, req.NodeID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.write(w, http.StatusOK, a)
}

func (h *handler) dispatchAll(w http.ResponseWriter, r *http.Request) {
	out, err := h.b.DispatchAll(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	h.write(w, http.StatusOK, map[string]any{"dispatched": out, "count": len(out)})
}

func (h *handler) tick(w http.ResponseWriter, r *http.Request) {
	st, err := h.b.Tick(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	h.write(w, http.StatusOK, st)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.b.Status(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	h.write(w, http.StatusOK, st)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.write(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dispatch.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrSessionNotFound), errors.Is(err, topology.ErrUnknownScenario):
		return http.StatusNotFound
	case errors.Is(err, app.ErrJournalDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.log.Errorf("request failed: %v", err)
	}
	h.write(w, code, map[string]string{"error": err.Error()})
}

func (h *handler) write(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warnf("encode response: %v", err)
	}
}
