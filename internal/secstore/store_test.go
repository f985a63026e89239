package secstore_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/ts-pos/internal/secstore"
)

// xorProtector is a stand-in for the platform protector: reversible, and
// it rejects blobs without its marker the way DPAPI rejects foreign blobs.
type xorProtector struct{}

func (xorProtector) Protect(plaintext []byte) ([]byte, error) {
	out := append([]byte("XP1"), plaintext...)
	for i := 3; i < len(out); i++ {
		out[i] ^= 0x42
	}
	return out, nil
}

func (xorProtector) Unprotect(blob []byte) ([]byte, error) {
	if len(blob) < 3 || string(blob[:3]) != "XP1" {
		return nil, errors.New("foreign blob")
	}
	out := append([]byte(nil), blob[3:]...)
	for i := range out {
		out[i] ^= 0x42
	}
	return out, nil
}

func newStore(t *testing.T) *secstore.Store {
	t.Helper()
	return secstore.New(t.TempDir(), xorProtector{})
}

func TestStore_LicenseTextRoundTrip(t *testing.T) {
	s := newStore(t)
	text := `{"payload":{},"signature":"abc"}`

	require.NoError(t, s.SaveLicenseText(text))

	got, stored := s.LoadLicenseText()
	assert.True(t, stored)
	assert.Equal(t, text, got)

	// Encrypted at rest: the plaintext must not appear in the blob.
	raw, err := os.ReadFile(s.LicensePath())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "signature")
}

func TestStore_LoadMissing(t *testing.T) {
	s := newStore(t)

	_, stored := s.LoadLicenseText()
	assert.False(t, stored)
	assert.Nil(t, s.LoadState())
}

func TestStore_LoadCorrupted(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.LicensePath(), []byte("garbage bytes"), 0o600))

	_, stored := s.LoadLicenseText()
	assert.False(t, stored)
}

func TestStore_StateRoundTrip(t *testing.T) {
	s := newStore(t)
	st := &secstore.PersistedState{
		StateVersion: secstore.StateVersion,
		MaxSeenUTC:   "2026-08-29T10:00:00.000Z",
		LastSeenUTC:  "2026-08-29T10:00:00.000Z",
		LicenseID:    "lic-123",
	}

	require.NoError(t, s.SaveState(st))

	got := s.LoadState()
	require.NotNil(t, got)
	assert.Equal(t, st, got)
}

func TestStore_StateVersionMismatchIgnored(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.SaveState(&secstore.PersistedState{
		StateVersion: 99,
		MaxSeenUTC:   "2026-08-29T10:00:00.000Z",
	}))

	assert.Nil(t, s.LoadState())
}

func TestStore_AtomicWriteLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	s := secstore.New(dir, xorProtector{})
	require.NoError(t, s.SaveLicenseText("one"))
	require.NoError(t, s.SaveLicenseText("two"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}

	got, stored := s.LoadLicenseText()
	assert.True(t, stored)
	assert.Equal(t, "two", got)
}

func TestStore_SaveWithoutProtectorFailsLoudly(t *testing.T) {
	s := secstore.New(t.TempDir(), nil)

	err := s.SaveLicenseText("text")
	assert.ErrorIs(t, err, secstore.ErrUnavailable)

	// And nothing was written in plaintext.
	_, statErr := os.Stat(filepath.Join(s.LicensePath()))
	assert.True(t, os.IsNotExist(statErr))
}
