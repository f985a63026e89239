package license

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"time"

	"github.com/technosupport/ts-pos/internal/metrics"
	"github.com/technosupport/ts-pos/internal/secstore"
)

// MaxLicenseSizeBytes - 64KB bound on artifact text.
const MaxLicenseSizeBytes = 64 * 1024

// driftTolerance absorbs minor RTC/NTP jitter in the anti-rollback check
// without absorbing deliberate clock rewinding.
const driftTolerance = 5 * time.Minute

const (
	isoParseLayout  = "2006-01-02T15:04:05Z" // Go accepts a fraction after seconds while parsing
	isoFormatLayout = "2006-01-02T15:04:05.000Z"
)

// Config carries the engine's explicit dependencies. Nothing is looked up
// ambiently, so tests run with an injected key, clock, store, and
// fingerprinter.
type Config struct {
	PublicKey     *rsa.PublicKey
	Store         *secstore.Store
	Fingerprinter Fingerprinter
	Metrics       *metrics.Collector // optional
	Now           func() time.Time   // defaults to time.Now
}

// Engine orchestrates parsing, shape validation, signature verification,
// device binding, expiry, and anti-rollback into one pass/fail decision.
// Every validation call is a fresh pass; the only state carried between
// calls is the persisted max/last-seen pair.
type Engine struct {
	pub     *rsa.PublicKey
	store   *secstore.Store
	fp      Fingerprinter
	metrics *metrics.Collector
	now     func() time.Time
}

func NewEngine(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		pub:     cfg.PublicKey,
		store:   cfg.Store,
		fp:      cfg.Fingerprinter,
		metrics: cfg.Metrics,
		now:     now,
	}
}

// ValidateText validates a specific artifact's text (used right after
// import). The Status covers every expected-bad input; the error is non-nil
// only for infrastructure failures on the success path (state persistence),
// and on error the verdict must not be trusted.
func (e *Engine) ValidateText(ctx context.Context, text string) (Status, error) {
	st, err := e.validate(ctx, text)
	e.observe(st)
	return st, err
}

// ValidateCachedLicense loads the currently stored artifact and validates
// it (app start, periodic recheck). With nothing stored it reports
// NO_LICENSE without running the pipeline.
func (e *Engine) ValidateCachedLicense(ctx context.Context) (Status, error) {
	text, stored := e.store.LoadLicenseText()
	if !stored {
		st := fail(ReasonNoLicense)
		e.observe(st)
		return st, nil
	}
	st, err := e.validate(ctx, text)
	e.observe(st)
	return st, err
}

func (e *Engine) validate(ctx context.Context, text string) (Status, error) {
	// 1. Parse. The artifact must be a JSON object with an object payload
	// and a string signature.
	if len(text) > MaxLicenseSizeBytes {
		return failWith(ReasonInvalidFormat, map[string]string{"error": "artifact too large"}), nil
	}
	var env struct {
		Payload   json.RawMessage `json:"payload"`
		Signature any             `json:"signature"`
	}
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return failWith(ReasonInvalidFormat, map[string]string{"error": "malformed JSON"}), nil
	}
	signature, sigIsString := env.Signature.(string)
	if !sigIsString {
		return failWith(ReasonInvalidFormat, map[string]string{"error": "signature missing or not a string"}), nil
	}
	rawPayload, err := DecodeValue(env.Payload)
	if err != nil {
		return failWith(ReasonInvalidFormat, map[string]string{"error": "payload missing"}), nil
	}
	payloadMap, isObject := rawPayload.(map[string]any)
	if !isObject {
		return failWith(ReasonInvalidFormat, map[string]string{"error": "payload is not an object"}), nil
	}
	var payload LicensePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return failWith(ReasonInvalidFormat, map[string]string{"error": "payload field types invalid"}), nil
	}

	// 2. Shape-validate before any crypto work: cheap checks first, and a
	// malformed payload is rejected before partial trust can form.
	if problem := checkShape(&payload, payloadMap); problem != "" {
		return failWith(ReasonInvalidFormat, map[string]string{"error": problem}), nil
	}

	// 3. Verify signature over the canonical payload bytes. Device, expiry
	// and state mutation below only ever see an authenticated payload.
	if !e.verify(payloadMap, signature) {
		return fail(ReasonSignatureInvalid), nil
	}

	// 4. Device binding.
	fp := e.fp.Fingerprint(ctx)
	if fp.DeviceHash != payload.DeviceHash {
		return failWith(ReasonDeviceMismatch, map[string]string{
			"expected": payload.DeviceHash,
			"actual":   fp.DeviceHash,
		}), nil
	}

	// 5. Expiry. The string is re-validated here, then compared as a
	// parsed instant; the original text stays untouched for storage.
	expiry, err := ParseISOUTC(payload.ExpiryDate)
	if err != nil {
		return failWith(ReasonInvalidFormat, map[string]string{"error": "expiry_date malformed"}), nil
	}
	now := e.now().UTC()
	if now.After(expiry) {
		return failWith(ReasonExpired, map[string]string{"expiry_date": payload.ExpiryDate}), nil
	}
	if e.metrics != nil {
		e.metrics.SetSecondsToExpiry(expiry.Sub(now).Seconds())
	}

	// 6. Anti-rollback. A clock implausibly behind the bookkeeping, beyond
	// the drift tolerance, means someone rewound the system time.
	prev := e.store.LoadState()
	if prev != nil {
		if rolledBack(now, prev.LastSeenUTC) || rolledBack(now, prev.MaxSeenUTC) {
			return failWith(ReasonClockRollback, map[string]string{
				"last_seen_utc": prev.LastSeenUTC,
				"max_seen_utc":  prev.MaxSeenUTC,
				"now_utc":       FormatISOUTC(now),
			}), nil
		}
	}

	// 7. Side effect of success: advance the bookkeeping. This is what
	// detects "clock set backward to extend a trial" on the next call.
	nextMax := FormatISOUTC(now)
	if prev != nil {
		if prevMax, perr := ParseISOUTC(prev.MaxSeenUTC); perr == nil && prevMax.After(now) {
			nextMax = prev.MaxSeenUTC
		}
	}
	state := &secstore.PersistedState{
		StateVersion: secstore.StateVersion,
		MaxSeenUTC:   nextMax,
		LastSeenUTC:  FormatISOUTC(now),
		LicenseID:    payload.LicenseID,
	}
	if err := e.store.SaveState(state); err != nil {
		return Status{}, fmt.Errorf("license: persist validation state: %w", err)
	}

	return ok(&payload), nil
}

func (e *Engine) verify(payloadMap map[string]any, signature string) bool {
	return verifySignature(e.pub, payloadMap, signature)
}

func (e *Engine) observe(st Status) {
	if e.metrics == nil {
		return
	}
	outcome := "ok"
	if !st.OK {
		outcome = string(st.Reason)
	}
	e.metrics.ObserveValidation(outcome)
}

// rolledBack reports whether now is implausibly earlier than a recorded
// timestamp. Unparseable recorded values are skipped rather than trusted.
func rolledBack(now time.Time, recorded string) bool {
	if recorded == "" {
		return false
	}
	t, err := ParseISOUTC(recorded)
	if err != nil {
		return false
	}
	return now.Add(driftTolerance).Before(t)
}

// ParseISOUTC parses a strict ISO-8601 UTC timestamp
// (YYYY-MM-DDTHH:MM:SS[.fff]Z). Anything else, including offset-suffixed
// forms, is rejected: mixed formats would silently misorder comparisons.
func ParseISOUTC(s string) (time.Time, error) {
	if !isoUTCPattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("not an ISO-8601 UTC timestamp: %q", s)
	}
	return time.Parse(isoParseLayout, s)
}

// FormatISOUTC renders a timestamp in the fixed-width form every stored
// value uses.
func FormatISOUTC(t time.Time) string {
	return t.UTC().Format(isoFormatLayout)
}
