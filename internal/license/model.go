package license

// LicenseVersion is the schema tag every payload must carry verbatim.
const LicenseVersion = 1

// FingerprintVersion tags the device-identity derivation algorithm.
const FingerprintVersion = 1

// License types accepted by the verifier.
const (
	TypeTrial    = "trial"
	TypeYearly   = "yearly"
	TypeLifetime = "lifetime"
)

// Reason enumerates the failure kinds a validation can produce.
type Reason string

const (
	ReasonNoLicense        Reason = "NO_LICENSE"
	ReasonInvalidFormat    Reason = "INVALID_FORMAT"
	ReasonSignatureInvalid Reason = "SIGNATURE_INVALID"
	ReasonDeviceMismatch   Reason = "DEVICE_MISMATCH"
	ReasonExpired          Reason = "EXPIRED"
	ReasonClockRollback    Reason = "CLOCK_ROLLBACK"
)

// LicensePayload is the signed business content. It is immutable once
// signed; verification never mutates it.
type LicensePayload struct {
	LicenseVersion  int      `json:"license_version" validate:"eq=1"`
	CustomerName    string   `json:"customer_name" validate:"notblank"` // PII - Do not log
	DeviceHash      string   `json:"device_hash" validate:"min=32"`
	LicenseType     string   `json:"license_type" validate:"oneof=trial yearly lifetime"`
	ExpiryDate      string   `json:"expiry_date" validate:"required"`
	EnabledFeatures []string `json:"enabled_features"`
	IssuedAt        string   `json:"issued_at,omitempty"`
	LicenseID       string   `json:"license_id,omitempty"`

	// Metadata for future algorithm evolution, not enforced today.
	FingerprintVer int    `json:"fingerprint_version,omitempty"`
	DeviceHashAlg  string `json:"device_hash_alg,omitempty"`
}

// LicenseFile represents the on-disk artifact (*.lic) produced by the
// vendor-side generator.
type LicenseFile struct {
	Payload   LicensePayload `json:"payload"`
	Signature string         `json:"signature"`
	KID       string         `json:"kid,omitempty"` // reserved for key rotation
}

// DeviceFingerprint is the derived machine identity. Components are
// normalized (trimmed, whitespace-stripped, upper-cased) and downgraded to
// "UNKNOWN" when a probe fails; the hash is computed over the normalized,
// possibly empty, components.
type DeviceFingerprint struct {
	CPUID              string `json:"cpu_id"`
	VolumeSerial       string `json:"volume_serial"`
	MACAddress         string `json:"mac_address"`
	DeviceHash         string `json:"device_hash"`
	FingerprintVersion int    `json:"fingerprint_version"`
}

// Status is the tagged outcome of a validation pass.
type Status struct {
	OK      bool              `json:"ok"`
	Payload *LicensePayload   `json:"payload,omitempty"`
	Reason  Reason            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func ok(p *LicensePayload) Status {
	return Status{OK: true, Payload: p}
}

func fail(r Reason) Status {
	return Status{OK: false, Reason: r}
}

func failWith(r Reason, details map[string]string) Status {
	return Status{OK: false, Reason: r, Details: details}
}
