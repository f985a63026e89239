package license

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeProbes struct {
	cpu, vol, mac string
	cpuErr        error
	volErr        error
	macErr        error
}

func (f *fakeProbes) CPUID(context.Context) (string, error)        { return f.cpu, f.cpuErr }
func (f *fakeProbes) VolumeSerial(context.Context) (string, error) { return f.vol, f.volErr }
func (f *fakeProbes) MACAddress(context.Context) (string, error)   { return f.mac, f.macErr }

func TestFingerprint_Stable(t *testing.T) {
	g := &FingerprintGenerator{Probes: &fakeProbes{cpu: "BFEBFBFF000906EA", vol: "a1b2-c3d4", mac: "00:1A:2B:3C:4D:5E"}}

	fp1 := g.Fingerprint(context.Background())
	fp2 := g.Fingerprint(context.Background())

	assert.Equal(t, fp1.DeviceHash, fp2.DeviceHash)
	assert.Equal(t, FingerprintVersion, fp1.FingerprintVersion)
}

func TestFingerprint_Normalization(t *testing.T) {
	g := &FingerprintGenerator{Probes: &fakeProbes{cpu: "  bfeb fbff  ", vol: "a1b2\tc3d4", mac: "00:1a:2b:3c:4d:5e"}}

	fp := g.Fingerprint(context.Background())

	assert.Equal(t, "BFEBFBFF", fp.CPUID)
	assert.Equal(t, "A1B2C3D4", fp.VolumeSerial)
	assert.Equal(t, "00:1A:2B:3C:4D:5E", fp.MACAddress)

	want := sha256.Sum256([]byte("BFEBFBFF|A1B2C3D4|00:1A:2B:3C:4D:5E"))
	assert.Equal(t, hex.EncodeToString(want[:]), fp.DeviceHash)
}

func TestFingerprint_AllProbesFail(t *testing.T) {
	probeErr := errors.New("probe failed")
	g := &FingerprintGenerator{
		Probes:   &fakeProbes{cpuErr: probeErr, volErr: probeErr, macErr: probeErr},
		fallback: func() string { return "" },
	}

	fp := g.Fingerprint(context.Background())

	// Degraded, never a crash: every component is UNKNOWN and the hash
	// covers the empty components.
	assert.Equal(t, unknownComponent, fp.CPUID)
	assert.Equal(t, unknownComponent, fp.VolumeSerial)
	assert.Equal(t, unknownComponent, fp.MACAddress)

	want := sha256.Sum256([]byte("||"))
	assert.Equal(t, hex.EncodeToString(want[:]), fp.DeviceHash)
}

func TestFingerprint_MACFallbackUsed(t *testing.T) {
	g := &FingerprintGenerator{
		Probes:   &fakeProbes{cpu: "CPU1", vol: "VOL1", macErr: errors.New("wmi down")},
		fallback: func() string { return "AA:BB:CC:DD:EE:FF" },
	}

	fp := g.Fingerprint(context.Background())
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", fp.MACAddress)
}

func TestLowestMAC(t *testing.T) {
	assert.Equal(t, "", lowestMAC(nil))
	assert.Equal(t, "AA:00", lowestMAC([]string{"FF:01", "AA:00", "BB:22"}))
}

func TestNormalizeComponent(t *testing.T) {
	cases := map[string]string{
		"  abc  ":     "ABC",
		"a b\tc\nd":   "ABCD",
		"":            "",
		"already-OK":  "ALREADY-OK",
		" \t\n ":      "",
		"00:1a:2b:3c": "00:1A:2B:3C",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeComponent(in), "input %q", in)
	}
}
