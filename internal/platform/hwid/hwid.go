// Package hwid supplies the raw hardware identifiers the device
// fingerprint is derived from. Every probe is best-effort: bounded output,
// caller-supplied timeout, and an error instead of a guess when the
// identifier cannot be obtained.
package hwid

import "strings"

// maxProbeOutput bounds what a system query may hand back; identifiers are
// short and anything larger is garbage.
const maxProbeOutput = 4096

func clamp(out []byte) string {
	if len(out) > maxProbeOutput {
		out = out[:maxProbeOutput]
	}
	return strings.TrimSpace(string(out))
}
