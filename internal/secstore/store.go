package secstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// StateVersion tags the persisted anti-rollback format. A blob carrying any
// other version is ignored rather than misinterpreted.
const StateVersion = 1

const (
	licenseBlobName = "license.bin"
	stateBlobName   = "state.bin"
)

// PersistedState is the anti-rollback bookkeeping. It is created on the
// first successful validation, read on every attempt, and rewritten whole
// after every success. MaxSeenUTC is monotonically non-decreasing for the
// lifetime of the state.
type PersistedState struct {
	StateVersion int    `json:"state_version"`
	MaxSeenUTC   string `json:"max_seen_utc"`
	LastSeenUTC  string `json:"last_seen_utc"`
	LicenseID    string `json:"license_id,omitempty"`
}

// Store keeps the two licensing blobs in a per-user data directory, each
// encrypted by the platform Protector.
type Store struct {
	dir       string
	protector Protector
}

func New(dir string, protector Protector) *Store {
	return &Store{dir: dir, protector: protector}
}

// LicensePath is the on-disk location of the encrypted artifact blob.
// The watcher monitors this path for import events.
func (s *Store) LicensePath() string {
	return filepath.Join(s.dir, licenseBlobName)
}

func (s *Store) statePath() string {
	return filepath.Join(s.dir, stateBlobName)
}

// SaveLicenseText encrypts and atomically persists the raw artifact text.
func (s *Store) SaveLicenseText(text string) error {
	return s.saveBlob(s.LicensePath(), []byte(text))
}

// LoadLicenseText returns the stored artifact text. The second result is
// false when nothing is stored or the blob cannot be decrypted (corrupted,
// wrong user, copied from another machine); those cases are not errors.
func (s *Store) LoadLicenseText() (string, bool) {
	data := s.loadBlob(s.LicensePath())
	if data == nil {
		return "", false
	}
	return string(data), true
}

// LoadState loads and parses the anti-rollback state. Any failure (missing,
// undecryptable, unparseable, incompatible version) yields nil: the engine
// then behaves as on first run.
func (s *Store) LoadState() *PersistedState {
	data := s.loadBlob(s.statePath())
	if data == nil {
		return nil
	}
	var st PersistedState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil
	}
	if st.StateVersion != StateVersion {
		return nil
	}
	return &st
}

// SaveState persists the state whole, never partially.
func (s *Store) SaveState(st *PersistedState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("secstore: marshal state: %w", err)
	}
	return s.saveBlob(s.statePath(), data)
}

func (s *Store) loadBlob(path string) []byte {
	if s.protector == nil {
		return nil
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	plaintext, err := s.protector.Unprotect(blob)
	if err != nil {
		return nil
	}
	return plaintext
}

func (s *Store) saveBlob(path string, plaintext []byte) error {
	if s.protector == nil {
		return ErrUnavailable
	}
	blob, err := s.protector.Protect(plaintext)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		return fmt.Errorf("secstore: protect: %w", err)
	}
	return writeFileAtomic(path, blob)
}

// writeFileAtomic writes to a sibling temp file, flushes, then renames over
// the destination. A crash mid-write leaves either the old blob or the new
// one, never a torn file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("secstore: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".blob-*.tmp")
	if err != nil {
		return fmt.Errorf("secstore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("secstore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("secstore: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("secstore: close temp: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("secstore: rename: %w", err)
	}
	return nil
}
