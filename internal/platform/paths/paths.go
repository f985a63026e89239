// Package paths resolves the per-user application data directory the
// licensing blobs live in. The directory is per-user because the blob
// encryption is tied to the OS user account.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const vendorSubdir = "TechnoSupport/POS"

// ResolveDataRoot returns the per-user, writable data directory.
// POS_DATA_ROOT overrides for tests and portable installs.
func ResolveDataRoot() (string, error) {
	if root := os.Getenv("POS_DATA_ROOT"); root != "" {
		return root, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("paths: no user config dir: %w", err)
	}
	return filepath.Join(base, filepath.FromSlash(vendorSubdir)), nil
}

// ResolveConfigPath returns the daemon configuration file path, honoring an
// explicit override.
func ResolveConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	root, err := ResolveDataRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "config.yaml"), nil
}

// EnsureDirs creates the data directories if they don't exist. 0700: the
// blobs inside are per-user secrets.
func EnsureDirs() (string, error) {
	root, err := ResolveDataRoot()
	if err != nil {
		return "", err
	}
	for _, sub := range []string{"", "store", "logs"} {
		path := filepath.Join(root, sub)
		if err := os.MkdirAll(path, 0o700); err != nil {
			return "", fmt.Errorf("paths: create directory %s: %w", path, err)
		}
	}
	return root, nil
}
