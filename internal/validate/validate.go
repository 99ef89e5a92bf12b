// Package validate implements the name, property, and device-path grammars
// that gate every mutating request before it reaches the command
// dispatcher, mirroring the style of the sibling agent's lib.Validate*
// helpers (regex/bounds checks that return a plain error).
package validate

import (
	"strconv"
	"strings"

	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

// DatasetOrSnapshotName applies the grammar shared by dataset and snapshot
// names: non-empty, no spaces, no '@' in the final path segment, and not
// starting or ending with '/'.
func DatasetOrSnapshotName(name string) error {
	if name == "" {
		return zfserr.New(zfserr.Validation, "name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\n") {
		return zfserr.New(zfserr.Validation, "name %q must not contain spaces", name)
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return zfserr.New(zfserr.Validation, "name %q must not start or end with '/'", name)
	}
	last := name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		last = name[i+1:]
	}
	if strings.Contains(last, "@") {
		return zfserr.New(zfserr.Validation, "name %q must not contain '@'", name)
	}
	return nil
}

// SnapshotFullName validates a full dataset@name pair, requiring exactly one
// '@' separating a valid dataset path from a valid snapshot name.
func SnapshotFullName(full string) (dataset, snap string, err error) {
	i := strings.IndexByte(full, '@')
	if i < 0 {
		return "", "", zfserr.New(zfserr.Validation, "snapshot %q must be of the form dataset@name", full)
	}
	dataset, snap = full[:i], full[i+1:]
	if strings.ContainsRune(snap, '@') {
		return "", "", zfserr.New(zfserr.Validation, "snapshot %q must contain exactly one '@'", full)
	}
	if err := DatasetOrSnapshotName(dataset); err != nil {
		return "", "", err
	}
	if err := DatasetOrSnapshotName(snap); err != nil {
		return "", "", err
	}
	return dataset, snap, nil
}

// PropertyName applies the dataset-property grammar: non-empty, at most 256
// characters, first character a lowercase ASCII letter, remainder lowercase
// ASCII letters, digits, underscore, or colon.
func PropertyName(name string) error {
	if name == "" {
		return zfserr.New(zfserr.Validation, "property name cannot be empty")
	}
	if len(name) > 256 {
		return zfserr.New(zfserr.Validation, "property name %q exceeds 256 characters", name)
	}
	if name[0] < 'a' || name[0] > 'z' {
		return zfserr.New(zfserr.Validation, "property name %q must start with a lowercase letter", name)
	}
	for _, r := range name[1:] {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_' || r == ':':
		default:
			return zfserr.New(zfserr.Validation, "property name %q contains an invalid character %q", name, r)
		}
	}
	return nil
}

// dangerousShellChars are rejected from any device path argument, matching
// the vdev builder's device-path grammar.
const dangerousShellChars = "\x00;&|"

// DevicePath validates a vdev leaf device path: must be absolute and must
// not contain NUL, ';', '&', or '|'.
func DevicePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return zfserr.New(zfserr.Validation, "device path %q must be absolute", path)
	}
	if strings.ContainsAny(path, dangerousShellChars) {
		return zfserr.New(zfserr.Validation, "device path %q contains a disallowed character", path)
	}
	return nil
}

// RemoveVdevArgument validates the argument to a vdev-remove request: it
// must either be an absolute device path free of shell metacharacters, or
// parse as an unsigned 64-bit GUID.
func RemoveVdevArgument(arg string) error {
	if _, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return nil
	}
	return DevicePath(arg)
}
