// Package scanstats decodes the pool_scan_stat_t uint64 array ZFS publishes
// under the "scan_stats" nvlist attribute (spec.md §4.7), grounded on
// original_source/src/zfs_management/scrub.rs's get_scrub_status (the
// vdev_tree-then-top-level lookup fallback and the index layout) and its
// helpers.rs scan_state_to_string/scan_func_to_string tables.
package scanstats

import "unsafe"

// Attribute names scan stats are nested under in a pool's nvlist config.
const (
	VdevTreeKey  = "vdev_tree"
	ScanStatsKey = "scan_stats"
)

// Index layout of the pool_scan_stat_t array, as ZFS encodes it.
const (
	idxFunc       = 0
	idxState      = 1
	idxStartTime  = 2
	idxEndTime    = 3
	idxToExamine  = 4
	idxExamined   = 5
	idxSkipped    = 6
	idxProcessed  = 7
	idxErrors     = 8
)

// Status is the decoded, human-addressable view of a pool's scan progress.
type Status struct {
	State      string  `json:"state"`
	Function   *string `json:"function,omitempty"`
	StartTime  *uint64 `json:"start_time,omitempty"`
	EndTime    *uint64 `json:"end_time,omitempty"`
	ToExamine  *uint64 `json:"to_examine,omitempty"`
	Examined   *uint64 `json:"examined,omitempty"`
	ScanErrors *uint64 `json:"scan_errors,omitempty"`
	Percent    *float64 `json:"percent_done,omitempty"`
}

// none is the Status returned when a pool has never been scanned, mirroring
// the source system's explicit "none"/nil fallback branch.
func none() Status {
	return Status{State: "none"}
}

// Decode turns a raw pool_scan_stat_t array (indexed exactly as ZFS lays it
// out) into a Status. An empty or nil values map means the pool has never
// been scanned.
func Decode(values map[int]uint64) Status {
	if len(values) == 0 {
		return none()
	}

	st := Status{
		State:    scanStateToString(lookup(values, idxState)),
		Function: scanFuncToString(lookup(values, idxFunc)),
	}
	if v, ok := values[idxStartTime]; ok {
		st.StartTime = &v
	}
	if v, ok := values[idxEndTime]; ok {
		st.EndTime = &v
	}
	if v, ok := values[idxToExamine]; ok {
		st.ToExamine = &v
	}
	if v, ok := values[idxExamined]; ok {
		st.Examined = &v
	}
	if v, ok := values[idxErrors]; ok {
		st.ScanErrors = &v
	}
	if st.ToExamine != nil && st.Examined != nil && *st.ToExamine > 0 {
		pct := float64(*st.Examined) / float64(*st.ToExamine) * 100
		if pct > 100 {
			pct = 100
		}
		st.Percent = &pct
	}
	return st
}

func lookup(values map[int]uint64, idx int) (uint64, bool) {
	v, ok := values[idx]
	return v, ok
}

// scanStateToString maps pool_scan_state_t to its string form.
func scanStateToString(state uint64, present bool) string {
	if !present {
		return "unknown"
	}
	switch state {
	case 0:
		return "none"
	case 1:
		return "scanning"
	case 2:
		return "finished"
	case 3:
		return "canceled"
	default:
		return "unknown"
	}
}

// scanFuncToString maps pool_scan_func_t to its string form. POOL_SCAN_NONE
// (0) and an absent value both yield nil, matching the source system's
// Option<String> semantics.
func scanFuncToString(fn uint64, present bool) *string {
	if !present || fn == 0 {
		return nil
	}
	var s string
	switch fn {
	case 1:
		s = "scrub"
	case 2:
		s = "resilver"
	case 3:
		s = "errorscrub"
	default:
		return nil
	}
	return &s
}

// DecodeCArray reinterprets a C uint64_t array (ptr, count) as produced by
// nvlist_lookup_uint64_array into the index->value map Decode expects. The
// caller is responsible for ptr's lifetime; DecodeCArray only reads it.
func DecodeCArray(ptr unsafe.Pointer, count int) map[int]uint64 {
	values := make(map[int]uint64, count)
	if ptr == nil || count <= 0 {
		return values
	}
	raw := unsafe.Slice((*uint64)(ptr), count)
	for i, v := range raw {
		values[i] = v
	}
	return values
}
