package dispatchlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 14, 6, 0, 0, 0, time.UTC)

func sampleRecords() []LogRecord {
	return []LogRecord{
		{Timestamp: t0, Kind: KindAssignment, SessionID: "s1", AssignmentID: "A-0001", CrewID: "C1", NodeID: "N1", FailureType: "transmission", Match: "exact", DistanceKm: 11.1, ETAMinutes: 8},
		{Timestamp: t0.Add(time.Minute), Kind: KindTransition, SessionID: "s1", AssignmentID: "A-0001", CrewID: "C1", NodeID: "N1", From: "dispatched", To: "en_route"},
		{Timestamp: t0.Add(2 * time.Minute), Kind: KindAssignment, SessionID: "s2", AssignmentID: "A-0001", CrewID: "C9", NodeID: "N4"},
	}
}

func TestLogQueryMatches(t *testing.T) {
	recs := sampleRecords()
	assert.True(t, LogQuery{}.Matches(recs[0]))
	assert.True(t, LogQuery{SessionID: "s1", Kind: KindTransition}.Matches(recs[1]))
	assert.False(t, LogQuery{SessionID: "s1"}.Matches(recs[2]))
	assert.False(t, LogQuery{Start: t0.Add(time.Second)}.Matches(recs[0]))
	assert.False(t, LogQuery{End: t0.Add(time.Second)}.Matches(recs[2]))
	assert.False(t, LogQuery{CrewID: "C1"}.Matches(recs[2]))
	assert.False(t, LogQuery{NodeID: "N1"}.Matches(recs[2]))
}

func exerciseStore(t *testing.T, store LogStore) {
	t.Helper()
	ctx := context.Background()
	for _, r := range sampleRecords() {
		require.NoError(t, store.Append(ctx, r))
	}

	all, err := store.Query(ctx, LogQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A-0001", all[0].AssignmentID)
	assert.Equal(t, 8, all[0].ETAMinutes)

	s1, err := store.Query(ctx, LogQuery{SessionID: "s1"})
	require.NoError(t, err)
	assert.Len(t, s1, 2)

	moves, err := store.Query(ctx, LogQuery{Kind: KindTransition, CrewID: "C1"})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, "en_route", moves[0].To)

	window, err := store.Query(ctx, LogQuery{Start: t0.Add(30 * time.Second), End: t0.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, window, 1)
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "dispatch.jsonl"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestJSONLStoreSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o644))
	store, err := NewJSONLStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), sampleRecords()[0]))

	out, err := store.Query(context.Background(), LogQuery{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "dispatch.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestRotatingJSONLStore_Query(t *testing.T) {
	store, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "logs", "dispatch.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dispatch.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 5, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	rec := sampleRecords()[0]
	rec.FailureType = strings.Repeat("x", 4096)
	for i := 0; i < 400; i++ {
		require.NoError(t, store.Append(context.Background(), rec))
	}
	files, _ := filepath.Glob(filepath.Join(dir, "dispatch*.jsonl"))
	assert.Greater(t, len(files), 1, "expected rotated files")

	out, err := store.Query(context.Background(), LogQuery{})
	require.NoError(t, err)
	assert.Len(t, out, 400)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{Path: filepath.Join(dir, "a.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &JSONLStore{}, s)

	s, err = Open(Config{Backend: "jsonl", Path: filepath.Join(dir, "b.jsonl"), MaxSizeMB: 1})
	require.NoError(t, err)
	assert.IsType(t, &RotatingJSONLStore{}, s)
	_ = s.Close()

	s, err = Open(Config{Backend: "sqlite", Path: filepath.Join(dir, "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	_ = s.Close()

	_, err = Open(Config{Backend: "csv"})
	assert.Error(t, err)
}
