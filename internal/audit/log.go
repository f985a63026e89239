// Package audit keeps an append-only JSONL trail of licensing activity:
// imports, validation outcomes, and expiry alerts. The trail is what support
// reads when a customer reports "it suddenly says expired".
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const logName = "events.jsonl"

type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// Open prepares an event log rooted at dir. The file itself is created
// lazily on the first Record.
func Open(dir string) *Log {
	return &Log{path: filepath.Join(dir, logName), now: time.Now}
}

// Record appends one event. EventID and CreatedAt are filled in when the
// caller left them zero.
func (l *Log) Record(evt Event) error {
	if evt.EventID == uuid.Nil {
		evt.EventID = uuid.New()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = l.now().UTC()
	}

	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("audit: encode event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: append event: %w", err)
	}
	return f.Sync()
}

// Prune rewrites the log keeping only events newer than maxAge. Lines that
// no longer parse are dropped too. Returns the number of events removed.
func (l *Log) Prune(maxAge time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	cutoff := l.now().UTC().Add(-maxAge)
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".audit-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("audit: create temp: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	removed := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var evt Event
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil || evt.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		if _, err := tmp.Write(append(sc.Bytes(), '\n')); err != nil {
			return 0, fmt.Errorf("audit: rewrite log: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("audit: scan log: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("audit: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("audit: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return 0, fmt.Errorf("audit: replace log: %w", err)
	}
	return removed, nil
}
