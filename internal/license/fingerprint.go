package license

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/technosupport/ts-pos/internal/metrics"
)

// probeTimeout bounds each individual hardware probe. A probe that errors
// or times out contributes an empty component, never a failure.
const probeTimeout = 8 * time.Second

const unknownComponent = "UNKNOWN"

// Prober supplies raw hardware identifiers via platform-specific queries.
// Implementations are best-effort; callers convert every error into an
// empty component.
type Prober interface {
	CPUID(ctx context.Context) (string, error)
	VolumeSerial(ctx context.Context) (string, error)
	MACAddress(ctx context.Context) (string, error)
}

// Fingerprinter derives the current machine identity. It must be
// deterministic for unchanged hardware and must never fail: a degraded
// fingerprint still produces a deterministic mismatch against a legitimate
// license instead of crashing the licensing check.
type Fingerprinter interface {
	Fingerprint(ctx context.Context) DeviceFingerprint
}

// FingerprintGenerator is the default Fingerprinter. The three probes run
// concurrently (parallel-join) with independent timeouts.
type FingerprintGenerator struct {
	Probes  Prober
	Metrics *metrics.Collector // optional

	// fallback stands in for direct interface enumeration in tests.
	fallback func() string
}

func (g *FingerprintGenerator) Fingerprint(ctx context.Context) DeviceFingerprint {
	var cpu, vol, mac string

	var wg sync.WaitGroup
	wg.Add(3)
	run := func(name string, probe func(context.Context) (string, error), out *string) {
		defer wg.Done()
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		start := time.Now()
		v, err := probe(pctx)
		if g.Metrics != nil {
			g.Metrics.ObserveProbe(name, time.Since(start))
		}
		if err != nil {
			return // missing identifier, not an error
		}
		*out = v
	}
	go run("cpu_id", g.Probes.CPUID, &cpu)
	go run("volume_serial", g.Probes.VolumeSerial, &vol)
	go run("mac_address", g.Probes.MACAddress, &mac)
	wg.Wait()

	cpu = normalizeComponent(cpu)
	vol = normalizeComponent(vol)
	mac = normalizeComponent(mac)

	if mac == "" {
		if g.fallback != nil {
			mac = g.fallback()
		} else {
			mac = fallbackMAC()
		}
	}

	// The hash covers the normalized (possibly empty) components, not the
	// UNKNOWN placeholders shown to the user.
	sum := sha256.Sum256([]byte(cpu + "|" + vol + "|" + mac))

	return DeviceFingerprint{
		CPUID:              orUnknown(cpu),
		VolumeSerial:       orUnknown(vol),
		MACAddress:         orUnknown(mac),
		DeviceHash:         hex.EncodeToString(sum[:]),
		FingerprintVersion: FingerprintVersion,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknownComponent
	}
	return s
}

// fallbackMAC enumerates local interfaces directly when the management
// query yields nothing: loopback and all-zero MACs are excluded and the
// lexicographically smallest survivor wins, so machines with several
// adapters still fingerprint reproducibly.
func fallbackMAC() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	var candidates []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addr := iface.HardwareAddr
		if len(addr) == 0 || isZeroMAC(addr) {
			continue
		}
		candidates = append(candidates, normalizeComponent(addr.String()))
	}
	return lowestMAC(candidates)
}

func isZeroMAC(addr net.HardwareAddr) bool {
	for _, b := range addr {
		if b != 0 {
			return false
		}
	}
	return true
}

func lowestMAC(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	return candidates[0]
}
