// Package pathguard validates filesystem paths used as replication send/
// receive targets against a denylist of system directories, grounded on
// original_source's zfs_management/replication.rs validate_file_path.
package pathguard

import (
	"path/filepath"

	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

// blockedRoots is the exact denylist from spec.md §4.4.
var blockedRoots = []string{
	"/etc", "/root", "/home", "/var", "/usr", "/bin", "/sbin",
	"/lib", "/boot", "/proc", "/sys", "/dev", "/run",
}

// Check validates that path is an absolute path whose canonical form (the
// canonicalized parent directory joined with path's base name) does not
// fall under any blocked root. A blocked root matches
// when the canonical path equals the root exactly, or when the character
// immediately following the root is '/'.
func Check(path string) error {
	if !filepath.IsAbs(path) {
		return zfserr.New(zfserr.Validation, "path %q must be absolute", path)
	}

	dir := filepath.Dir(path)
	canonicalDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		// The parent directory may not exist yet for a new output file;
		// fall back to the lexically cleaned form so still-blocked roots
		// are caught even before the directory is created.
		canonicalDir = filepath.Clean(dir)
	}
	// Reconstruct the full canonical path before checking the denylist: a
	// target that is itself a blocked root (e.g. "/dev") has "/" as its
	// parent, which is not under any blocked root on its own.
	canonical := filepath.Join(canonicalDir, filepath.Base(path))

	for _, root := range blockedRoots {
		if isUnderRoot(canonical, root) {
			return zfserr.New(zfserr.Validation, "path %q falls under the blocked system directory %q", path, root)
		}
	}
	return nil
}

// isUnderRoot reports whether canonical equals root or is a descendant of
// it, requiring an exact boundary character (not merely a shared prefix
// like /etcetera matching /etc).
func isUnderRoot(canonical, root string) bool {
	if canonical == root {
		return true
	}
	if len(canonical) > len(root) && canonical[:len(root)] == root && canonical[len(root)] == '/' {
		return true
	}
	return false
}
