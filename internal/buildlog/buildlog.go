// Package buildlog locates a derivation's build log on disk, following
// harmonia's "<store-parent>/var/log/nix/drvs/<hash[0:2]>/<hash[2:]>[.bz2]"
// layout.
package buildlog

import (
	"os"
	"path/filepath"
)

// Find locates the build log for drvPath under realStore's parent
// directory. It returns the log's path, whether it is bzip2-compressed,
// and whether a log was found at all.
func Find(realStore, drvPath string) (path string, compressed bool, ok bool) {
	drvName := filepath.Base(drvPath)
	if len(drvName) < 2 {
		return "", false, false
	}

	logDir := filepath.Join(filepath.Dir(realStore), "var", "log", "nix", "drvs", drvName[:2])
	plain := filepath.Join(logDir, drvName[2:])

	if st, err := os.Stat(plain); err == nil && st.Mode().IsRegular() {
		return plain, false, true
	}

	compressedPath := plain + ".bz2"
	if st, err := os.Stat(compressedPath); err == nil && st.Mode().IsRegular() {
		return compressedPath, true, true
	}

	return "", false, false
}
