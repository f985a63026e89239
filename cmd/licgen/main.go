// licgen is the vendor-side license generator: the trusted offline
// counterpart of the runtime verifier. It signs the canonical payload bytes
// with RSA-PSS/SHA-256 using the exact scheme the verifier checks.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/technosupport/ts-pos/internal/crypto"
	"github.com/technosupport/ts-pos/internal/license"
)

func main() {
	keyPath := flag.String("key", "", "path to RSA private key PEM (required)")
	customer := flag.String("customer", "", "customer name (required)")
	device := flag.String("device", "", "target device hash, hex SHA-256 (required)")
	licType := flag.String("type", "", "license type: trial, yearly or lifetime (required)")
	expiry := flag.String("expiry", "", "expiry as ISO-8601 UTC, e.g. 2026-12-31T23:59:59Z (required)")
	features := flag.String("features", "", "comma-separated feature list")
	kid := flag.String("kid", "", "optional key identifier")
	out := flag.String("out", "", "output .lic path (required)")
	flag.Parse()

	switch {
	case *keyPath == "":
		usageError("missing -key")
	case *customer == "" || strings.TrimSpace(*customer) == "":
		usageError("missing -customer")
	case len(*device) < 32:
		usageError("-device must be a hex digest of at least 32 characters")
	case *licType != license.TypeTrial && *licType != license.TypeYearly && *licType != license.TypeLifetime:
		usageError("-type must be one of trial, yearly, lifetime")
	case *out == "":
		usageError("missing -out")
	}
	if _, err := license.ParseISOUTC(*expiry); err != nil {
		usageError("-expiry must be an ISO-8601 UTC timestamp (YYYY-MM-DDTHH:MM:SSZ)")
	}

	keyPEM, err := os.ReadFile(*keyPath)
	if err != nil {
		fatal("read private key: %v", err)
	}
	priv, err := crypto.ParseRSAPrivateKey(keyPEM)
	if err != nil {
		fatal("parse private key: %v", err)
	}

	featureList := []any{}
	if *features != "" {
		for _, f := range strings.Split(*features, ",") {
			featureList = append(featureList, strings.TrimSpace(f))
		}
	}

	// The payload is built as a generic value so signing runs through the
	// same canonicalization path the verifier uses.
	payload := map[string]any{
		"license_version":     license.LicenseVersion,
		"customer_name":       *customer,
		"device_hash":         *device,
		"license_type":        *licType,
		"expiry_date":         *expiry,
		"enabled_features":    featureList,
		"issued_at":           license.FormatISOUTC(time.Now()),
		"license_id":          uuid.NewString(),
		"fingerprint_version": license.FingerprintVersion,
		"device_hash_alg":     "sha256",
	}

	sig, err := license.SignPayload(priv, payload)
	if err != nil {
		fatal("sign payload: %v", err)
	}

	artifact := struct {
		Payload   json.RawMessage `json:"payload"`
		Signature string          `json:"signature"`
		KID       string          `json:"kid,omitempty"`
	}{
		Payload:   license.Canonicalize(payload),
		Signature: sig,
		KID:       *kid,
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		fatal("encode artifact: %v", err)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		fatal("write %s: %v", *out, err)
	}

	fmt.Printf("wrote %s (type=%s expiry=%s features=%d)\n", *out, *licType, *expiry, len(featureList))
}

// usageError reports a missing/invalid required argument: diagnostic on
// stderr, exit code 2.
func usageError(msg string) {
	fmt.Fprintln(os.Stderr, "licgen: "+msg)
	flag.Usage()
	os.Exit(2)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "licgen: "+format+"\n", args...)
	os.Exit(1)
}
