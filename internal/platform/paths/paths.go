package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultInstallRoot = "/opt/nexguard"
	DefaultDataRoot     = "/var/lib/nexguard"
	DefaultConfigRoot   = "/etc/nexguard"
)

// ResolveInstallRoot returns the absolute path to the NexGuard install directory.
func ResolveInstallRoot() string {
	root := os.Getenv("NEXGUARD_INSTALL_ROOT")
	if root == "" {
		root = DefaultInstallRoot
	}
	return root
}

// ResolveDataRoot returns the absolute path to the NexGuard data directory.
func ResolveDataRoot() string {
	root := os.Getenv("NEXGUARD_DATA_ROOT")
	if root == "" {
		root = DefaultDataRoot
	}
	return root
}

// ResolveConfigPath returns the absolute path to the default configuration file.
func ResolveConfigPath(customPath string) string {
	if customPath != "" {
		return customPath
	}
	root := os.Getenv("NEXGUARD_CONFIG_ROOT")
	if root == "" {
		root = DefaultConfigRoot
	}
	return filepath.Join(root, "config.yaml")
}

// EnsureDirs creates the standard NexGuard data subdirectories if they don't exist.
func EnsureDirs() error {
	dataRoot := ResolveDataRoot()
	subdirs := []string{
		"logs",
		"db",
		"tmp",
		"storage/images",
		"storage/videos",
		"models",
	}

	for _, sub := range subdirs {
		path := filepath.Join(dataRoot, sub)
		if err := os.MkdirAll(path, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	}
	return nil
}

// SafeJoin joins path elements and ensures the result is within the base directory (no traversal).
func SafeJoin(base string, elements ...string) (string, error) {
	for _, el := range elements {
		if filepath.IsAbs(el) {
			return "", fmt.Errorf("path traversal attempt detected: absolute path not allowed in elements: %s", el)
		}
	}
	joined := filepath.Join(append([]string{base}, elements...)...)

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}

	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}

	if absJoined != absBase && !strings.HasPrefix(absJoined, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt detected: %s is outside %s", absJoined, absBase)
	}

	return absJoined, nil
}

// NormalizeRelative converts a storage-relative path to forward slashes
// and rejects ".." segments, per the file-layout contract.
func NormalizeRelative(rel string) (string, error) {
	rel = filepath.ToSlash(rel)
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path must be storage-relative, got absolute: %s", rel)
	}
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return "", fmt.Errorf("path must not contain .. segments: %s", rel)
		}
	}
	return rel, nil
}
