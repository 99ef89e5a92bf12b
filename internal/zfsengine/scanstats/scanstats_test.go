package scanstats

import (
	"testing"
	"unsafe"
)

func decodeSlice(t *testing.T, raw []uint64) map[int]uint64 {
	t.Helper()
	return DecodeCArray(unsafe.Pointer(&raw[0]), len(raw))
}

func TestDecodeEmptyIsNone(t *testing.T) {
	st := Decode(nil)
	if st.State != "none" {
		t.Errorf("state = %q, want none", st.State)
	}
	if st.Function != nil {
		t.Error("expected nil function for never-scanned pool")
	}
}

func TestDecodeCArrayNilPointer(t *testing.T) {
	values := DecodeCArray(nil, 0)
	if len(values) != 0 {
		t.Errorf("expected empty map for nil pointer, got %v", values)
	}
}

func TestDecodeScrubInProgress(t *testing.T) {
	raw := []uint64{1, 1, 1000, 0, 2000, 500, 0, 0, 0}
	st := Decode(decodeSlice(t, raw))

	if st.State != "scanning" {
		t.Errorf("state = %q, want scanning", st.State)
	}
	if st.Function == nil || *st.Function != "scrub" {
		t.Fatalf("function = %v, want scrub", st.Function)
	}
	if st.ToExamine == nil || *st.ToExamine != 2000 {
		t.Errorf("to_examine = %v, want 2000", st.ToExamine)
	}
	if st.Examined == nil || *st.Examined != 500 {
		t.Errorf("examined = %v, want 500", st.Examined)
	}
	if st.Percent == nil || *st.Percent != 25.0 {
		t.Errorf("percent = %v, want 25.0", st.Percent)
	}
}

func TestDecodeFinishedResilver(t *testing.T) {
	raw := []uint64{2, 2, 1000, 1500, 2000, 2000, 0, 0, 3}
	st := Decode(decodeSlice(t, raw))

	if st.State != "finished" {
		t.Errorf("state = %q, want finished", st.State)
	}
	if st.Function == nil || *st.Function != "resilver" {
		t.Fatalf("function = %v, want resilver", st.Function)
	}
	if st.ScanErrors == nil || *st.ScanErrors != 3 {
		t.Errorf("scan_errors = %v, want 3", st.ScanErrors)
	}
}

func TestDecodeUnknownFunctionYieldsNil(t *testing.T) {
	raw := []uint64{99, 1, 0, 0, 0, 0, 0, 0, 0}
	st := Decode(decodeSlice(t, raw))
	if st.Function != nil {
		t.Errorf("expected nil for unrecognized function code, got %v", *st.Function)
	}
}

func TestDecodeNoneFunctionYieldsNil(t *testing.T) {
	raw := []uint64{0, 2, 100, 200, 0, 0, 0, 0, 0}
	st := Decode(decodeSlice(t, raw))
	if st.Function != nil {
		t.Errorf("POOL_SCAN_NONE should yield nil function, got %v", *st.Function)
	}
	if st.State != "finished" {
		t.Errorf("state = %q, want finished", st.State)
	}
}
