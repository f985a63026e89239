//go:build windows

package secstore

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// cryptProtectUIForbidden suppresses any DPAPI prompt; the daemon runs
// headless behind the POS shell.
const cryptProtectUIForbidden = 0x1

// dpapiProtector delegates encryption-at-rest to the Windows Data
// Protection API. Blobs are tied to the current Windows user account,
// which is the trust boundary this offline product settles for: the
// binary cannot ship a key the user could not extract anyway.
type dpapiProtector struct{}

// NewProtector returns the platform protector for the current OS.
func NewProtector() (Protector, error) {
	return dpapiProtector{}, nil
}

func (dpapiProtector) Protect(plaintext []byte) ([]byte, error) {
	in := newBlob(plaintext)
	var out windows.DataBlob
	if err := windows.CryptProtectData(in, nil, nil, 0, nil, cryptProtectUIForbidden, &out); err != nil {
		return nil, fmt.Errorf("%w: CryptProtectData: %v", ErrUnavailable, err)
	}
	return copyAndFree(&out), nil
}

func (dpapiProtector) Unprotect(blob []byte) ([]byte, error) {
	in := newBlob(blob)
	var out windows.DataBlob
	if err := windows.CryptUnprotectData(in, nil, nil, 0, nil, cryptProtectUIForbidden, &out); err != nil {
		return nil, fmt.Errorf("dpapi unprotect: %w", err)
	}
	return copyAndFree(&out), nil
}

func newBlob(b []byte) *windows.DataBlob {
	blob := &windows.DataBlob{Size: uint32(len(b))}
	if len(b) > 0 {
		blob.Data = &b[0]
	}
	return blob
}

// copyAndFree copies DPAPI output into Go-managed memory and releases the
// LocalAlloc buffer the API handed us.
func copyAndFree(out *windows.DataBlob) []byte {
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(out.Data)))
	return append([]byte(nil), unsafe.Slice(out.Data, out.Size)...)
}
