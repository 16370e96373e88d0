package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRoots(t *testing.T) {
	// 1. resolves default InstallRoot/DataRoot correctly
	os.Unsetenv("NEXGUARD_INSTALL_ROOT")
	os.Unsetenv("NEXGUARD_DATA_ROOT")
	assert.Equal(t, DefaultInstallRoot, ResolveInstallRoot())
	assert.Equal(t, DefaultDataRoot, ResolveDataRoot())

	os.Setenv("NEXGUARD_INSTALL_ROOT", "/custom/install")
	os.Setenv("NEXGUARD_DATA_ROOT", "/custom/data")
	defer os.Unsetenv("NEXGUARD_INSTALL_ROOT")
	defer os.Unsetenv("NEXGUARD_DATA_ROOT")
	assert.Equal(t, "/custom/install", ResolveInstallRoot())
	assert.Equal(t, "/custom/data", ResolveDataRoot())
}

func TestSafeJoin(t *testing.T) {
	base := "/var/lib/nexguard/storage"

	// 2. rejects path traversal attempts
	cases := []struct {
		name     string
		elements []string
		valid    bool
	}{
		{"normal", []string{"images", "cam1.jpg"}, true},
		{"parent", []string{"..", "other"}, false},
		{"nested_parent", []string{"images", "..", "..", "secrets"}, false},
		{"absolute", []string{"/etc/passwd"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := SafeJoin(base, tc.elements...)
			if tc.valid {
				assert.NoError(t, err)
				assert.Contains(t, res, base)
			} else {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), "traversal")
				}
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	tmpRoot := filepath.Join(os.TempDir(), "nexguard_test_data")
	os.Setenv("NEXGUARD_DATA_ROOT", tmpRoot)
	defer os.Unsetenv("NEXGUARD_DATA_ROOT")
	defer os.RemoveAll(tmpRoot)

	// 3. creates required DataRoot subdirectories
	err := EnsureDirs()
	assert.NoError(t, err)

	subdirs := []string{"logs", "db", "tmp", "storage/images", "storage/videos", "models"}
	for _, sub := range subdirs {
		_, err := os.Stat(filepath.Join(tmpRoot, sub))
		assert.NoError(t, err, "subdirectory %s should exist", sub)
	}
}

func TestNormalizeRelative(t *testing.T) {
	out, err := NormalizeRelative("images/cam1.jpg")
	assert.NoError(t, err)
	assert.Equal(t, "images/cam1.jpg", out)

	_, err = NormalizeRelative("../etc/passwd")
	assert.Error(t, err)
}
