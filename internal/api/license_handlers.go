// Package api is the loopback HTTP surface the desktop UI shell talks to:
// current license status, artifact import, the device fingerprint to send
// to the vendor, and a WebSocket push of status changes.
package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/technosupport/ts-pos/internal/audit"
	"github.com/technosupport/ts-pos/internal/license"
	"github.com/technosupport/ts-pos/internal/middleware"
	"github.com/technosupport/ts-pos/internal/secstore"
)

type LicenseHandler struct {
	Engine        *license.Engine
	Store         *secstore.Store
	Fingerprinter license.Fingerprinter
	Hub           *Hub
	Audit         *audit.Log // optional
}

// Router assembles the daemon's routes. metricsHandler may be nil.
func (h *LicenseHandler) Router(metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Get("/api/v1/license/status", h.GetStatus)
	r.Post("/api/v1/license/import", h.Import)
	r.Get("/api/v1/license/fingerprint", h.GetFingerprint)
	if h.Hub != nil {
		r.Get("/api/v1/license/events", h.Hub.Serve)
	}
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	return r
}

// GetStatus runs a fresh validation pass against the stored artifact. The
// specific reason and details are returned verbatim: "wrong license for
// this PC", "expired", and "clock looks wrong" need different remediation
// and must not collapse into one generic message.
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Engine.ValidateCachedLicense(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Import validates the posted artifact text and persists it only on a
// fully valid outcome.
func (h *LicenseHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, license.MaxLicenseSizeBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	st, err := h.Engine.ValidateText(r.Context(), string(body))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.record(r, audit.ActionImport, st)
	if !st.OK {
		writeJSON(w, http.StatusUnprocessableEntity, st)
		return
	}

	if err := h.Store.SaveLicenseText(string(body)); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if h.Hub != nil {
		h.Hub.Broadcast(st)
	}
	writeJSON(w, http.StatusOK, st)
}

// GetFingerprint returns the current machine identity so the customer can
// send the device hash to the vendor when requesting a license.
func (h *LicenseHandler) GetFingerprint(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Fingerprinter.Fingerprint(r.Context()))
}

// record writes the outcome to the audit trail. Reasons and their details
// are recorded; payload fields never are, the trail must stay PII-free.
func (h *LicenseHandler) record(r *http.Request, action string, st license.Status) {
	if h.Audit == nil {
		return
	}
	result := "ok"
	if !st.OK {
		result = string(st.Reason)
	}
	evt := audit.Event{
		Action:    action,
		Result:    result,
		RequestID: middleware.RequestID(r.Context()),
		Details:   st.Details,
	}
	if err := h.Audit.Record(evt); err != nil {
		log.Printf("[API] audit record failed: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
