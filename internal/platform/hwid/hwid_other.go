//go:build !windows

package hwid

import (
	"context"
	"errors"
	"os"
	"os/exec"
)

// SystemProbes reads DMI and mount identifiers on non-Windows installs.
// Several sources need root; a denied read surfaces as an error and the
// fingerprint degrades to UNKNOWN for that component.
type SystemProbes struct{}

func New() *SystemProbes {
	return &SystemProbes{}
}

func (*SystemProbes) CPUID(ctx context.Context) (string, error) {
	return readFirst(
		"/sys/class/dmi/id/product_uuid",
		"/etc/machine-id",
	)
}

func (*SystemProbes) VolumeSerial(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "findmnt", "-rno", "UUID", "/")
	if output, err := cmd.Output(); err == nil {
		if s := clamp(output); s != "" {
			return s, nil
		}
	}
	return readFirst("/sys/class/dmi/id/product_serial")
}

func (*SystemProbes) MACAddress(ctx context.Context) (string, error) {
	// No management-layer MAC query here; the fingerprint generator falls
	// back to direct interface enumeration.
	return "", errors.New("hwid: no management MAC source on this platform")
}

func readFirst(paths ...string) (string, error) {
	for _, path := range paths {
		if data, err := os.ReadFile(path); err == nil {
			if s := clamp(data); s != "" {
				return s, nil
			}
		}
	}
	return "", errors.New("hwid: no identifier source readable")
}
