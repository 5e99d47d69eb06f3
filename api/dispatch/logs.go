package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/blackout/infra/dispatchlog"
)

// Querier reads the dispatch journal.
type Querier interface {
	Query(ctx context.Context, q dispatchlog.LogQuery) ([]dispatchlog.LogRecord, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, q dispatchlog.LogQuery) ([]dispatchlog.LogRecord, error)

func (f QuerierFunc) Query(ctx context.Context, q dispatchlog.LogQuery) ([]dispatchlog.LogRecord, error) {
	return f(ctx, q)
}

// NewLogHandler returns an HTTP handler exposing dispatch logs via GET /api/dispatch/logs.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewLogHandler(store Querier, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		params := r.URL.Query()
		q := dispatchlog.LogQuery{
			SessionID: params.Get("session_id"),
			CrewID:    params.Get("crew_id"),
			NodeID:    params.Get("node_id"),
			Kind:      dispatchlog.Kind(params.Get("kind")),
		}
		if s := params.Get("start"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid start", http.StatusBadRequest)
				return
			}
			q.Start = t
		}
		if s := params.Get("end"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid end", http.StatusBadRequest)
				return
			}
			q.End = t
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []dispatchlog.LogRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
