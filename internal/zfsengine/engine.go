// Package zfsengine is the thin contract over the ZFS library/CLI described
// in spec.md's "ZFS Engine Adapter" row: every other package talks to ZFS
// only through the Engine interface, never by shelling out directly.
//
// Two implementations back it: libzfsCoreEngine (internal/zfsengine's cgo
// file), grounded on kelleyk-go-libzfs/common.go's cgo adapter shape, which
// calls libzfs_core/libzfs for dataset and snapshot create/destroy, clone,
// rollback, send-size estimation and scan-stats lookup and delegates every
// other operation to shellEngine; and shellEngine in shell_ops.go, which
// runs the zfs/zpool binaries for every operation.
package zfsengine

import "context"

// PoolHealth mirrors the ZFS pool health enumeration.
type PoolHealth string

const (
	HealthOnline   PoolHealth = "ONLINE"
	HealthDegraded PoolHealth = "DEGRADED"
	HealthFaulted  PoolHealth = "FAULTED"
	HealthOffline  PoolHealth = "OFFLINE"
	HealthRemoved  PoolHealth = "REMOVED"
	HealthUnavail  PoolHealth = "UNAVAIL"
)

// Pool is the Engine's view of a ZFS storage pool.
type Pool struct {
	Name       string     `json:"name"`
	Health     PoolHealth `json:"health"`
	Size       uint64     `json:"size"`
	Allocated  uint64     `json:"allocated"`
	Free       uint64     `json:"free"`
	CapPercent float64    `json:"capacity_percent"`
	VdevCount  int        `json:"vdev_count"`
	ErrorDesc  string     `json:"error,omitempty"`
}

// DatasetKind enumerates the kinds of ZFS objects the system manages.
type DatasetKind string

const (
	KindFilesystem DatasetKind = "filesystem"
	KindVolume     DatasetKind = "volume"
	KindSnapshot   DatasetKind = "snapshot"
	KindBookmark   DatasetKind = "bookmark"
)

// Dataset is the Engine's view of a dataset, filesystem, or volume.
type Dataset struct {
	Name string      `json:"name"`
	Kind DatasetKind `json:"kind"`
}

// Snapshot is the Engine's view of a dataset@name snapshot.
type Snapshot struct {
	Dataset string `json:"dataset"`
	Name    string `json:"name"`
}

// FullName returns "dataset@name".
func (s Snapshot) FullName() string { return s.Dataset + "@" + s.Name }

// SendFlags composes the independent options accepted by send-to-file and
// send-size estimation. EmbedData is always implied by the engine
// regardless of this struct's zero value (spec.md §4.3).
type SendFlags struct {
	LargeBlocks bool
	Compressed  bool
	Raw         bool
}

// Engine is the full contract every ZFS-mutating or ZFS-reading operation
// in this program goes through.
type Engine interface {
	// Pools
	ListPools(ctx context.Context) ([]Pool, error)
	GetPool(ctx context.Context, name string) (Pool, error)
	CreatePool(ctx context.Context, name string, vdevSpec map[string]any) error
	DestroyPool(ctx context.Context, name string, force bool) error
	ImportPool(ctx context.Context, searchPath string, explicitName string) (string, error)
	ExportPool(ctx context.Context, name string, force bool) error

	// Vdevs
	AddVdev(ctx context.Context, pool string, vdevSpec map[string]any, force bool) error
	RemoveVdev(ctx context.Context, pool string, device string) error

	// Datasets
	ListDatasets(ctx context.Context, pool string) ([]Dataset, error)
	CreateDataset(ctx context.Context, name string, kind DatasetKind) error
	DestroyDataset(ctx context.Context, name string) error
	GetProperties(ctx context.Context, name string) (map[string]string, error)
	SetProperty(ctx context.Context, name, key, value string) error

	// Snapshots / clones
	ListSnapshots(ctx context.Context, dataset string) ([]Snapshot, error)
	CreateSnapshot(ctx context.Context, dataset, name string) error
	DestroySnapshot(ctx context.Context, dataset, name string) error
	CloneSnapshot(ctx context.Context, dataset, snapshot, target string) error
	PromoteDataset(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, dataset, snapshot string) error
	UserProperty(ctx context.Context, dataset, key string) (string, error)

	// Replication. SendToFile/ReceiveFromFile are not part of this contract:
	// internal/replication owns the destination/source file descriptors and
	// subprocess lifetimes directly, which this interface does not model.
	EstimateSendSize(ctx context.Context, snapshot Snapshot, incrementalBase string, flags SendFlags) (int64, error)
	DryRunSendSize(ctx context.Context, snapshot Snapshot, incrementalBase string, flags SendFlags) (int64, error)

	// Scrub / scan
	StartScrub(ctx context.Context, pool string) error
	PauseScrub(ctx context.Context, pool string) error
	StopScrub(ctx context.Context, pool string) error
	ScanStats(ctx context.Context, pool string) (ScanStatsRaw, error)

	// Execute is the raw command-execution escape hatch named in spec.md
	// §6's POST /execute; the engine runs any command and arguments it is
	// given, with the agent's privileges.
	Execute(ctx context.Context, command string, args []string) (stdout string, exitCode int, err error)
}

// ScanStatsRaw is the unprocessed numeric array handed to the scanstats
// decoder; field semantics are documented there.
type ScanStatsRaw struct {
	Present bool
	Values  map[int]uint64
}
