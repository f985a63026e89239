package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, l *Log) []Event {
	t.Helper()
	f, err := os.Open(l.path)
	require.NoError(t, err)
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var evt Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &evt))
		out = append(out, evt)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestRecordAppends(t *testing.T) {
	l := Open(t.TempDir())

	require.NoError(t, l.Record(Event{Action: ActionImport, Result: "ok"}))
	require.NoError(t, l.Record(Event{
		Action:  ActionValidate,
		Result:  "EXPIRED",
		Details: map[string]string{"expiry_date": "2026-01-01T00:00:00Z"},
	}))

	events := readAll(t, l)
	require.Len(t, events, 2)
	assert.Equal(t, ActionImport, events[0].Action)
	assert.NotEqual(t, uuid.Nil, events[0].EventID)
	assert.False(t, events[0].CreatedAt.IsZero())
	assert.Equal(t, "EXPIRED", events[1].Result)
	assert.Equal(t, "2026-01-01T00:00:00Z", events[1].Details["expiry_date"])
}

func TestRecordKeepsExplicitID(t *testing.T) {
	l := Open(t.TempDir())
	id := uuid.New()
	require.NoError(t, l.Record(Event{EventID: id, Action: ActionAlert, Result: "7d"}))

	events := readAll(t, l)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].EventID)
}

func TestPruneDropsOldAndGarbage(t *testing.T) {
	dir := t.TempDir()
	l := Open(dir)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	require.NoError(t, l.Record(Event{Action: ActionValidate, Result: "ok", CreatedAt: base.Add(-48 * time.Hour)}))
	require.NoError(t, l.Record(Event{Action: ActionValidate, Result: "ok", CreatedAt: base.Add(-time.Hour)}))

	// A corrupted line must not wedge pruning.
	f, err := os.OpenFile(filepath.Join(dir, logName), os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	removed, err := l.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	events := readAll(t, l)
	require.Len(t, events, 1)
	assert.Equal(t, base.Add(-time.Hour), events[0].CreatedAt)
}

func TestPruneMissingFile(t *testing.T) {
	l := Open(t.TempDir())
	removed, err := l.Prune(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
