package nvlist

import "testing"

func TestBuildVdevMirrorMinimum(t *testing.T) {
	if _, err := BuildVdev("mirror", []string{"/dev/sda"}, nil); err == nil {
		t.Fatal("expected error for mirror with 1 device")
	}
	v, err := BuildVdev("mirror", []string{"/dev/sda", "/dev/sdb"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v[ConfigType] != "mirror" {
		t.Errorf("type = %v, want mirror", v[ConfigType])
	}
	children, ok := v[ConfigChildren].([]map[string]any)
	if !ok || len(children) != 2 {
		t.Fatalf("children = %v", v[ConfigChildren])
	}
}

func TestBuildVdevRaidzNormalization(t *testing.T) {
	cases := []struct {
		vdevType    string
		devices     int
		wantParity  uint64
		expectError bool
	}{
		{"raidz", 2, 1, false},
		{"raidz1", 2, 1, false},
		{"raidz2", 3, 2, false},
		{"raidz3", 4, 3, false},
		{"raidz2", 2, 0, true},
		{"raidz3", 3, 0, true},
	}
	for _, c := range cases {
		devices := make([]string, c.devices)
		for i := range devices {
			devices[i] = "/dev/sd" + string(rune('a'+i))
		}
		v, err := BuildVdev(c.vdevType, devices, nil)
		if c.expectError {
			if err == nil {
				t.Errorf("%s with %d devices: expected error", c.vdevType, c.devices)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.vdevType, err)
		}
		if v[ConfigType] != "raidz" {
			t.Errorf("%s: type = %v, want raidz", c.vdevType, v[ConfigType])
		}
		if v[ConfigNParity] != c.wantParity {
			t.Errorf("%s: nparity = %v, want %d", c.vdevType, v[ConfigNParity], c.wantParity)
		}
	}
}

func TestBuildVdevAuxSingleDeviceIsBareLeaf(t *testing.T) {
	v, err := BuildVdev("log", []string{"/dev/nvme0n1"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v[ConfigType] != "disk" {
		t.Errorf("single-device log vdev should be a bare disk leaf, got type %v", v[ConfigType])
	}
}

func TestBuildVdevAuxMultiDeviceBecomesMirror(t *testing.T) {
	v, err := BuildVdev("cache", []string{"/dev/nvme0n1", "/dev/nvme1n1"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v[ConfigType] != "mirror" {
		t.Errorf("multi-device cache vdev should become a mirror group, got type %v", v[ConfigType])
	}
}

func TestBuildRootWrapsAuxTypeOneLevelDeeper(t *testing.T) {
	leaf, err := BuildDisk("/dev/nvme0n1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := BuildRoot(leaf, "log")
	children := root[ConfigChildren].([]map[string]any)
	if len(children) != 1 || children[0][ConfigType] != "log" {
		t.Fatalf("expected root to wrap a 'log' container, got %+v", children)
	}
	grandchildren := children[0][ConfigChildren].([]map[string]any)
	if len(grandchildren) != 1 || grandchildren[0][ConfigType] != "disk" {
		t.Fatalf("expected log container to hold the disk leaf, got %+v", grandchildren)
	}
}

func TestBuildRootPlainVdevNotDoubleWrapped(t *testing.T) {
	mirror, err := BuildVdev("mirror", []string{"/dev/sda", "/dev/sdb"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := BuildRoot(mirror, "mirror")
	children := root[ConfigChildren].([]map[string]any)
	if len(children) != 1 || children[0][ConfigType] != "mirror" {
		t.Fatalf("expected root to directly hold the mirror vdev, got %+v", children)
	}
}

func TestEncodeProducesAlignedOutput(t *testing.T) {
	spec, err := BuildDisk("/dev/sda")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	encoded, err := Encode(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(encoded)%8 != 0 {
		t.Errorf("encoded length %d is not 8-byte aligned", len(encoded))
	}
	if len(encoded) == 0 {
		t.Error("expected non-empty encoding")
	}
}

func TestBuildVdevRejectsBadDevicePath(t *testing.T) {
	if _, err := BuildDisk("not-absolute"); err == nil {
		t.Fatal("expected error for non-absolute device path")
	}
}

func TestParseDevicesAcceptsJSONDecodedArray(t *testing.T) {
	raw := []any{"/dev/sda", "/dev/sdb"}
	devices, err := ParseDevices(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 2 || devices[0] != "/dev/sda" || devices[1] != "/dev/sdb" {
		t.Errorf("devices = %v", devices)
	}
}

func TestParseDevicesRejectsNonStringElement(t *testing.T) {
	if _, err := ParseDevices([]any{"/dev/sda", 7.0}); err == nil {
		t.Fatal("expected error for non-string device entry")
	}
}

func TestBuildFromSpecEnforcesMinimumDeviceCount(t *testing.T) {
	spec := map[string]any{
		"type":    "mirror",
		"devices": []any{"/dev/sda"},
	}
	if _, _, _, err := BuildFromSpec(spec); err == nil {
		t.Fatal("expected error for mirror with 1 device")
	}
}

func TestBuildFromSpecRejectsMetacharacterDevicePath(t *testing.T) {
	spec := map[string]any{
		"type":    "mirror",
		"devices": []any{"/dev/sda", "/dev/sdb;rm -rf /"},
	}
	if _, _, _, err := BuildFromSpec(spec); err == nil {
		t.Fatal("expected error for device path containing a shell metacharacter")
	}
}

func TestBuildFromSpecProducesRootTree(t *testing.T) {
	spec := map[string]any{
		"type":    "raidz2",
		"devices": []any{"/dev/sda", "/dev/sdb", "/dev/sdc"},
	}
	tree, vdevType, devices, err := BuildFromSpec(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vdevType != "raidz2" || len(devices) != 3 {
		t.Errorf("vdevType = %q, devices = %v", vdevType, devices)
	}
	if tree[ConfigType] != "root" {
		t.Errorf("tree type = %v, want root", tree[ConfigType])
	}
}
