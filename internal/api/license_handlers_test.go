package api_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/ts-pos/internal/api"
	"github.com/technosupport/ts-pos/internal/audit"
	"github.com/technosupport/ts-pos/internal/license"
	"github.com/technosupport/ts-pos/internal/secstore"
)

var testDeviceHash = strings.Repeat("9a1b", 16)

type plainProtector struct{}

func (plainProtector) Protect(p []byte) ([]byte, error) {
	return append([]byte("P:"), p...), nil
}

func (plainProtector) Unprotect(b []byte) ([]byte, error) {
	if len(b) < 2 || string(b[:2]) != "P:" {
		return nil, errors.New("bad blob")
	}
	return append([]byte(nil), b[2:]...), nil
}

type staticFingerprinter struct{ hash string }

func (s staticFingerprinter) Fingerprint(context.Context) license.DeviceFingerprint {
	return license.DeviceFingerprint{
		CPUID:              "CPU",
		VolumeSerial:       "VOL",
		MACAddress:         "MAC",
		DeviceHash:         s.hash,
		FingerprintVersion: license.FingerprintVersion,
	}
}

type fixture struct {
	priv    *rsa.PrivateKey
	store   *secstore.Store
	trail   *audit.Log
	logsDir string
	server  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	store := secstore.New(t.TempDir(), plainProtector{})
	logsDir := t.TempDir()
	trail := audit.Open(logsDir)
	fp := staticFingerprinter{hash: testDeviceHash}
	engine := license.NewEngine(license.Config{
		PublicKey:     &priv.PublicKey,
		Store:         store,
		Fingerprinter: fp,
	})
	h := &api.LicenseHandler{
		Engine:        engine,
		Store:         store,
		Fingerprinter: fp,
		Audit:         trail,
	}
	return &fixture{priv: priv, store: store, trail: trail, logsDir: logsDir, server: h.Router(nil)}
}

func (f *fixture) signedArtifact(t *testing.T, expiry time.Time) string {
	t.Helper()
	payload := map[string]any{
		"license_version":  license.LicenseVersion,
		"customer_name":    "Corner Grocery",
		"device_hash":      testDeviceHash,
		"license_type":     license.TypeYearly,
		"expiry_date":      license.FormatISOUTC(expiry),
		"enabled_features": []any{"billing"},
	}
	sig, err := license.SignPayload(f.priv, payload)
	require.NoError(t, err)
	data, err := json.Marshal(map[string]any{"payload": payload, "signature": sig})
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) license.Status {
	t.Helper()
	var st license.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func TestGetStatus_NoLicense(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/license/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	st := decodeStatus(t, rec)
	assert.False(t, st.OK)
	assert.Equal(t, license.ReasonNoLicense, st.Reason)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestImport_ValidPersists(t *testing.T) {
	f := newFixture(t)
	text := f.signedArtifact(t, time.Now().UTC().Add(365*24*time.Hour))

	rec := f.do(http.MethodPost, "/api/v1/license/import", text)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	st := decodeStatus(t, rec)
	assert.True(t, st.OK)
	assert.Equal(t, "Corner Grocery", st.Payload.CustomerName)

	stored, ok := f.store.LoadLicenseText()
	require.True(t, ok)
	assert.Equal(t, text, stored)

	// Subsequent status checks now pass.
	st = decodeStatus(t, f.do(http.MethodGet, "/api/v1/license/status", ""))
	assert.True(t, st.OK)
}

func TestImport_InvalidRejectedAndNotStored(t *testing.T) {
	f := newFixture(t)
	text := f.signedArtifact(t, time.Now().UTC().Add(-time.Hour))

	rec := f.do(http.MethodPost, "/api/v1/license/import", text)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, license.ReasonExpired, decodeStatus(t, rec).Reason)

	_, ok := f.store.LoadLicenseText()
	assert.False(t, ok)
}

func TestImport_MalformedBody(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/license/import", "{{{ not json")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, license.ReasonInvalidFormat, decodeStatus(t, rec).Reason)
}

func TestImport_WritesAuditTrail(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/api/v1/license/import", f.signedArtifact(t, time.Now().UTC().Add(-time.Hour)))

	removed, err := f.trail.Prune(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed, "fresh events must survive pruning")

	// The trail now has exactly the one rejected import.
	removedAll, err := f.trail.Prune(-time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, removedAll)
}

func TestGetFingerprint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/license/fingerprint", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var fp license.DeviceFingerprint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fp))
	assert.Equal(t, testDeviceHash, fp.DeviceHash)
	assert.Equal(t, license.FingerprintVersion, fp.FingerprintVersion)
}
