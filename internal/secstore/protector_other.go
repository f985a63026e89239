//go:build !windows

package secstore

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"golang.org/x/crypto/scrypt"

	"github.com/technosupport/ts-pos/internal/crypto"
)

var machineIDFiles = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

const protectorAAD = "ts-pos.secstore.v1"

// machineProtector approximates DPAPI on non-Windows installs: the AES-256
// key is derived (scrypt) from the OS machine identity plus the current
// username, so blobs copied to another machine or another account fail to
// decrypt. Without a machine identity the protector is unavailable and
// saves must fail loudly.
type machineProtector struct {
	key []byte
}

// NewProtector returns the platform protector for the current OS.
func NewProtector() (Protector, error) {
	id := readMachineID()
	if id == "" {
		return nil, fmt.Errorf("%w: no machine identity", ErrUnavailable)
	}

	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	key, err := scrypt.Key([]byte(id+"|"+username), []byte(protectorAAD), 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: key derivation: %v", ErrUnavailable, err)
	}
	return &machineProtector{key: key}, nil
}

func (p *machineProtector) Protect(plaintext []byte) ([]byte, error) {
	return crypto.EncryptGCM(p.key, plaintext, []byte(protectorAAD))
}

func (p *machineProtector) Unprotect(blob []byte) ([]byte, error) {
	return crypto.DecryptGCM(p.key, blob, []byte(protectorAAD))
}

func readMachineID() string {
	for _, path := range machineIDFiles {
		if data, err := os.ReadFile(path); err == nil {
			if id := strings.TrimSpace(string(data)); id != "" {
				return id
			}
		}
	}
	return ""
}
