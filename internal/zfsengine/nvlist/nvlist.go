// Package nvlist builds the nested attribute-list structure ZFS uses to
// describe a vdev tree (spec.md §4.6), and encodes it to the native nvlist
// wire format consumed by libzfs_core, grounded on
// lorenz-go-zfs/nvlist/{nvlist,encoder}.go's Marshal(val interface{})
// convention (a reflect-driven writer over native nvlist encoding) and on
// original_source/src/zfs_management/vdev.rs's builder logic (ZPOOL_CONFIG_*
// keys, the disk/group/root/aux-wrapper shape).
package nvlist

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/zfs-agent/zfs-agent/internal/validate"
	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

// The ZPOOL_CONFIG_* attribute names libzfs expects, mirrored from the
// original Rust source's constant names.
const (
	ConfigType     = "type"
	ConfigPath     = "path"
	ConfigNParity  = "nparity"
	ConfigChildren = "children"
)

// minDeviceCount is the minimum number of leaf devices each redundancy vdev
// type requires (spec.md §4.6).
var minDeviceCount = map[string]int{
	"mirror": 2,
	"raidz":  2,
	"raidz1": 2,
	"raidz2": 3,
	"raidz3": 4,
}

// nparityForType maps a raidz variant to its parity count; non-raidz types
// have no nparity attribute.
var nparityForType = map[string]uint64{
	"raidz": 1, "raidz1": 1,
	"raidz2": 2,
	"raidz3": 3,
}

// auxWrapperTypes are allocation-class/auxiliary vdev kinds that get
// wrapped one level deeper with a container attribute list of the
// appropriate type (spec.md §4.6).
var auxWrapperTypes = map[string]bool{
	"log": true, "cache": true, "spare": true, "special": true, "dedup": true,
}

// BuildDisk builds the {type: "disk", path: absolute} leaf attribute list.
func BuildDisk(path string) (map[string]any, error) {
	if err := validate.DevicePath(path); err != nil {
		return nil, err
	}
	return map[string]any{ConfigType: "disk", ConfigPath: path}, nil
}

// BuildVdev builds a vdev attribute list for vdevType and devices. A single
// device under log/cache/spare/special/dedup is treated as a bare disk leaf
// (no redundancy group); multiple devices under those types recurse into a
// mirror group, matching the source system's flattening rule.
func BuildVdev(vdevType string, devices []string, explicitNparity *int) (map[string]any, error) {
	if vdevType == "disk" {
		if len(devices) != 1 {
			return nil, zfserr.New(zfserr.Validation, "vdev type 'disk' requires exactly 1 device, got %d", len(devices))
		}
		return BuildDisk(devices[0])
	}

	if auxWrapperTypes[vdevType] {
		if len(devices) == 1 {
			return BuildDisk(devices[0])
		}
		return BuildVdev("mirror", devices, nil)
	}

	minDevices, known := minDeviceCount[vdevType]
	if !known {
		return nil, zfserr.New(zfserr.Validation, "unknown vdev type %q", vdevType)
	}
	if len(devices) < minDevices {
		return nil, zfserr.New(zfserr.Validation, "vdev type %q requires at least %d devices, got %d", vdevType, minDevices, len(devices))
	}

	actualType := vdevType
	var nparity uint64
	hasNparity := false
	if p, ok := nparityForType[vdevType]; ok {
		actualType = "raidz"
		nparity = p
		hasNparity = true
	}

	children := make([]map[string]any, 0, len(devices))
	for _, d := range devices {
		leaf, err := BuildDisk(d)
		if err != nil {
			return nil, err
		}
		children = append(children, leaf)
	}

	vdev := map[string]any{ConfigType: actualType, ConfigChildren: children}
	if hasNparity {
		vdev[ConfigNParity] = nparity
	} else if explicitNparity != nil {
		vdev[ConfigNParity] = uint64(*explicitNparity)
	}
	return vdev, nil
}

// BuildRoot wraps child in the {type: "root", children: [...]} envelope
// zpool_add expects, double-wrapping allocation-class/auxiliary vdev types
// in their own container list first (spec.md §4.6).
func BuildRoot(child map[string]any, vdevType string) map[string]any {
	actualChild := child
	if auxWrapperTypes[vdevType] {
		actualChild = map[string]any{ConfigType: vdevType, ConfigChildren: []map[string]any{child}}
	}
	return map[string]any{ConfigType: "root", ConfigChildren: []map[string]any{actualChild}}
}

// ParseDevices extracts a device-path list from the raw value decoded out of
// a create-pool/add-vdev request body. JSON arrays decode into []any (never
// []string) when unmarshaled into a map[string]any, so this accepts both
// that shape and a pre-built []string for callers that construct a spec
// programmatically.
func ParseDevices(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		devices := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, zfserr.New(zfserr.Validation, "vdev device entry must be a string, got %T", elem)
			}
			devices = append(devices, s)
		}
		return devices, nil
	default:
		return nil, zfserr.New(zfserr.Validation, "vdev \"devices\" must be an array of strings, got %T", raw)
	}
}

// parseExplicitNparity extracts an optional nparity override from the raw
// JSON-decoded value (a float64 once unmarshaled into map[string]any, an int
// when built programmatically).
func parseExplicitNparity(raw any) (*int, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		n := int(v)
		return &n, nil
	case int:
		return &v, nil
	default:
		return nil, zfserr.New(zfserr.Validation, "vdev \"nparity\" must be a number, got %T", raw)
	}
}

// ParseSpec extracts the vdev type, device list, and optional nparity
// override from a raw create-pool/add-vdev request spec.
func ParseSpec(spec map[string]any) (vdevType string, devices []string, nparity *int, err error) {
	vdevType, _ = spec["type"].(string)
	if vdevType == "" {
		return "", nil, nil, zfserr.New(zfserr.Validation, "vdev spec is missing required \"type\"")
	}
	devices, err = ParseDevices(spec["devices"])
	if err != nil {
		return "", nil, nil, err
	}
	nparity, err = parseExplicitNparity(spec["nparity"])
	if err != nil {
		return "", nil, nil, err
	}
	return vdevType, devices, nparity, nil
}

// BuildFromSpec validates a raw create-pool/add-vdev request spec (§4.6's
// minimum device counts, parity mapping, aux-wrapper rules, and device-path
// checks) and returns the wire-ready root attribute list alongside the
// parsed type/devices, so callers needing the CLI fallback (flattenVdevArgs)
// don't have to re-parse the raw spec themselves.
func BuildFromSpec(spec map[string]any) (tree map[string]any, vdevType string, devices []string, err error) {
	vdevType, devices, nparity, err := ParseSpec(spec)
	if err != nil {
		return nil, "", nil, err
	}
	child, err := BuildVdev(vdevType, devices, nparity)
	if err != nil {
		return nil, "", nil, err
	}
	return BuildRoot(child, vdevType), vdevType, devices, nil
}

// Encode serializes spec into the native nvlist wire encoding, following
// lorenz-go-zfs's reflect-driven Marshal(val interface{}) shape: a header
// (encoding byte, endianness byte, version) followed by a sequence of typed
// name/value pairs, 8-byte aligned.
func Encode(spec map[string]any) ([]byte, error) {
	var buf []byte
	buf = append(buf, 0x00, 0x01) // native encoding, little-endian
	buf = appendUint32(buf, 0)    // version

	if err := encodeValue(&buf, spec); err != nil {
		return nil, err
	}
	return buf, nil
}

func encodeValue(buf *[]byte, v any) error {
	switch val := v.(type) {
	case map[string]any:
		for _, key := range sortedKeys(val) {
			if err := encodePair(buf, key, val[key]); err != nil {
				return err
			}
		}
		return nil
	default:
		return zfserr.New(zfserr.Internal, "nvlist encode: unsupported root value %T", v)
	}
}

func encodePair(buf *[]byte, name string, value any) error {
	*buf = appendString(*buf, name)
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		*buf = appendString(*buf, rv.String())
	case reflect.Uint64, reflect.Uint, reflect.Uint32:
		*buf = appendUint64(*buf, rv.Convert(reflect.TypeOf(uint64(0))).Uint())
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i).Interface()
			m, ok := elem.(map[string]any)
			if !ok {
				return zfserr.New(zfserr.Internal, "nvlist encode: array element must be a nested list, got %T", elem)
			}
			if err := encodeValue(buf, m); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("nvlist encode: unsupported value kind %v for key %q", rv.Kind(), name)
	}
	alignTo8(buf)
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic order keeps encode output reproducible for tests;
	// libzfs itself does not depend on attribute order.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	buf = append(buf, []byte(s)...)
	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func alignTo8(buf *[]byte) {
	for len(*buf)%8 != 0 {
		*buf = append(*buf, 0x00)
	}
}
