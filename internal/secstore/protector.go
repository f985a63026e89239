// Package secstore persists the imported license artifact and the
// anti-rollback bookkeeping, encrypted at rest under an OS-provided
// per-user secret. Writes are atomic (temp file then rename) so a crash
// mid-write never leaves a torn blob.
package secstore

import "errors"

// ErrUnavailable means the platform offers no per-user encryption the store
// can delegate to. Saves must fail loudly on it; silently falling back to
// plaintext would be a security regression.
var ErrUnavailable = errors.New("secstore: platform data protection unavailable")

// Protector encrypts and decrypts opaque blobs under a key tied to the
// current OS user. On Windows this is DPAPI; elsewhere a machine-bound
// derived key. Unprotect must fail for blobs produced on another machine
// or for another user.
type Protector interface {
	Protect(plaintext []byte) ([]byte, error)
	Unprotect(blob []byte) ([]byte, error)
}
