// Package dispatchlog keeps an append-only journal of crew dispatches and
// status changes.
package dispatchlog

import (
	"context"
	"fmt"
	"time"
)

// Kind distinguishes journal entries.
type Kind string

const (
	KindAssignment Kind = "assignment"
	KindTransition Kind = "transition"
)

// LogRecord captures one dispatch or one status change.
type LogRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Kind         Kind      `json:"kind"`
	SessionID    string    `json:"session_id"`
	AssignmentID string    `json:"assignment_id"`
	CrewID       string    `json:"crew_id"`
	NodeID       string    `json:"node_id"`
	FailureType  string    `json:"failure_type,omitempty"`
	Match        string    `json:"match,omitempty"`
	DistanceKm   float64   `json:"distance_km,omitempty"`
	ETAMinutes   int       `json:"eta_minutes,omitempty"`
	From         string    `json:"from,omitempty"`
	To           string    `json:"to,omitempty"`
}

// LogQuery defines filters for retrieving records. Zero fields match
// everything.
type LogQuery struct {
	Start     time.Time
	End       time.Time
	SessionID string
	CrewID    string
	NodeID    string
	Kind      Kind
}

// Matches reports whether r passes every filter of q.
func (q LogQuery) Matches(r LogRecord) bool {
	switch {
	case !q.Start.IsZero() && r.Timestamp.Before(q.Start):
		return false
	case !q.End.IsZero() && r.Timestamp.After(q.End):
		return false
	case q.SessionID != "" && r.SessionID != q.SessionID:
		return false
	case q.CrewID != "" && r.CrewID != q.CrewID:
		return false
	case q.NodeID != "" && r.NodeID != q.NodeID:
		return false
	case q.Kind != "" && r.Kind != q.Kind:
		return false
	}
	return true
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// Config selects and configures a LogStore.
type Config struct {
	// Backend is "jsonl" or "sqlite".
	Backend    string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Open creates the store described by cfg. A jsonl backend rotates when
// MaxSizeMB is set.
func Open(cfg Config) (LogStore, error) {
	switch cfg.Backend {
	case "", "jsonl":
		if cfg.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return NewJSONLStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown dispatch log backend %q", cfg.Backend)
	}
}
