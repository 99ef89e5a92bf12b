// Package safety implements the version-compatibility gate described in
// spec.md §4.1, grounded on original_source/src/safety.rs: a three-probe
// version detector, an inclusive (major, minor) compatibility range loaded
// from a JSON settings file adjacent to the executable, and a one-way
// override.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zfs-agent/zfs-agent/internal/shell"
	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

// DefaultMinVersion and DefaultMaxVersion are used when the settings file is
// absent or unparsable.
const (
	DefaultMinVersion = "2.0"
	DefaultMaxVersion = "2.3"
)

// Settings is the on-disk shape of settings.json.
type Settings struct {
	Safety SafetySettings `json:"safety"`
}

// SafetySettings holds the approved (major, minor) version range.
type SafetySettings struct {
	MinZFSVersion string `json:"min_zfs_version"`
	MaxZFSVersion string `json:"max_zfs_version"`
}

// Version is a parsed semantic triple.
type Version struct {
	Full   string
	Major  int
	Minor  int
	Patch  int
	Method string
}

// State is a snapshot of the safety lock's current status, returned by the
// safety status endpoint.
type State struct {
	Locked           bool      `json:"locked"`
	Compatible       bool      `json:"compatible"`
	DetectedVersion  Version   `json:"detected_version"`
	AgentVersion     string    `json:"agent_version"`
	ApprovedRange    string    `json:"approved_range"`
	Reason           string    `json:"reason,omitempty"`
	OverrideAt       time.Time `json:"override_at,omitempty"`
	overrideApplied  bool
}

// AgentVersion is this program's own version string, reported alongside the
// detected ZFS version.
const AgentVersion = "1.0.0"

var versionLinePattern = regexp.MustCompile(`[^0-9.]+`)

// Lock is the process-wide safety gate. All fields are protected by mu.
type Lock struct {
	mu    sync.RWMutex
	state State
}

// Detect runs the three fallback probes in order, returning the first that
// succeeds: (a) `zfs version`, first line with the "zfs-" prefix;
// (b) `modinfo -F version zfs`; (c) reading /sys/module/zfs/version.
func Detect() (Version, error) {
	if lines, err := shell.ExecCommand("zfs", "version"); err == nil {
		for _, line := range lines {
			if strings.HasPrefix(line, "zfs-") {
				if v, perr := parseVersion(strings.TrimPrefix(line, "zfs-"), "zfs version"); perr == nil {
					return v, nil
				}
			}
		}
	}

	if lines, err := shell.ExecCommand("modinfo", "-F", "version", "zfs"); err == nil && len(lines) > 0 {
		if v, perr := parseVersion(lines[0], "modinfo"); perr == nil {
			return v, nil
		}
	}

	if data, err := os.ReadFile("/sys/module/zfs/version"); err == nil {
		if v, perr := parseVersion(string(data), "sysfs"); perr == nil {
			return v, nil
		}
	}

	return Version{}, zfserr.New(zfserr.Internal, "unable to detect installed ZFS version")
}

// parseVersion splits on any run of non-digit, non-dot characters to
// extract a (major, minor, optional patch) triple.
func parseVersion(raw, method string) (Version, error) {
	raw = strings.TrimSpace(raw)
	cleaned := versionLinePattern.ReplaceAllString(raw, " ")
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return Version{}, zfserr.New(zfserr.Validation, "no version token found in %q", raw)
	}
	parts := strings.Split(strings.Trim(fields[0], "."), ".")
	if len(parts) < 2 {
		return Version{}, zfserr.New(zfserr.Validation, "version token %q is not a semantic triple", fields[0])
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, err
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, err
	}
	patch := 0
	if len(parts) >= 3 {
		patch, _ = strconv.Atoi(parts[2])
	}
	return Version{Full: raw, Major: major, Minor: minor, Patch: patch, Method: method}, nil
}

// LoadSettings reads settings.json from the given path, falling back to the
// package defaults when the file is absent or unparsable.
func LoadSettings(path string) SafetySettings {
	defaults := SafetySettings{MinZFSVersion: DefaultMinVersion, MaxZFSVersion: DefaultMaxVersion}
	data, err := os.ReadFile(path)
	if err != nil {
		return defaults
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return defaults
	}
	if s.Safety.MinZFSVersion == "" || s.Safety.MaxZFSVersion == "" {
		return defaults
	}
	return s.Safety
}

// SettingsPath returns the settings.json path adjacent to the running
// executable, falling back to the current working directory if the
// executable path cannot be resolved.
func SettingsPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "settings.json"
	}
	return filepath.Join(filepath.Dir(exe), "settings.json")
}

// New builds a Lock by detecting the installed version and loading the
// approved range from settingsPath.
func New(settingsPath string) (*Lock, error) {
	detected, err := Detect()
	if err != nil {
		return nil, err
	}
	settings := LoadSettings(settingsPath)
	l := &Lock{}
	l.apply(detected, settings)
	return l, nil
}

func (l *Lock) apply(detected Version, settings SafetySettings) {
	minV, _ := parseVersion(settings.MinZFSVersion, "settings")
	maxV, _ := parseVersion(settings.MaxZFSVersion, "settings")
	compatible := inRange(detected, minV, maxV)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = State{
		Locked:          !compatible,
		Compatible:      compatible,
		DetectedVersion: detected,
		AgentVersion:    AgentVersion,
		ApprovedRange:   fmt.Sprintf("%s - %s", settings.MinZFSVersion, settings.MaxZFSVersion),
	}
	if !compatible {
		l.state.Reason = fmt.Sprintf(
			"installed ZFS version %s is outside the approved range %s",
			detected.Full, l.state.ApprovedRange,
		)
	}
}

// Reload re-runs the in-range check against a freshly loaded settings file,
// used by the fsnotify watcher on settings.json changes. It preserves a
// previously applied override: once unlocked by an operator, a settings
// change does not silently re-lock the process.
func (l *Lock) Reload(settingsPath string) {
	l.mu.RLock()
	alreadyOverridden := l.state.overrideApplied
	detected := l.state.DetectedVersion
	l.mu.RUnlock()

	if alreadyOverridden {
		return
	}
	l.apply(detected, LoadSettings(settingsPath))
}

func inRange(v, min, max Version) bool {
	lo := [2]int{min.Major, min.Minor}
	hi := [2]int{max.Major, max.Minor}
	cur := [2]int{v.Major, v.Minor}
	return !less(cur, lo) && !less(hi, cur)
}

func less(a, b [2]int) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// Status returns a snapshot of the current safety state.
func (l *Lock) Status() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Check returns a SafetyLocked error with the recorded reason if the lock is
// engaged; every mutating dispatcher entry point calls this first.
func (l *Lock) Check() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state.Locked {
		return zfserr.New(zfserr.SafetyLocked, "%s", l.state.Reason)
	}
	return nil
}

// Override disengages the lock. It is one-way: a second call returns an
// error rather than re-locking or no-op'ing.
func (l *Lock) Override() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.Locked {
		return zfserr.New(zfserr.Validation, "safety lock not active")
	}
	l.state.Locked = false
	l.state.OverrideAt = time.Now()
	l.state.overrideApplied = true
	return nil
}
