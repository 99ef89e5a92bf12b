// Package datasets implements dataset, volume, and snapshot CRUD plus
// recursive destroy (spec.md §3, §4.9), grounded on
// original_source/src/zfs_management/datasets.rs: the depth-sort-descending
// recursive delete (counting '/' and '@' separators) and the
// sequential-destroy-abort-at-first-failure behavior are carried over
// unchanged in meaning, re-expressed against the internal/zfsengine.Engine
// contract instead of libzetta/lzc_destroy.
package datasets

import (
	"context"
	"sort"
	"strings"

	"github.com/zfs-agent/zfs-agent/internal/validate"
	"github.com/zfs-agent/zfs-agent/internal/zfserr"
	"github.com/zfs-agent/zfs-agent/internal/zfsengine"
)

// Manager provides dataset/snapshot operations over an Engine.
type Manager struct {
	engine zfsengine.Engine
}

// NewManager constructs a Manager bound to engine.
func NewManager(engine zfsengine.Engine) *Manager {
	return &Manager{engine: engine}
}

// List returns the filesystems and volumes under pool.
func (m *Manager) List(ctx context.Context, pool string) ([]zfsengine.Dataset, error) {
	if err := validate.DatasetOrSnapshotName(pool); err != nil {
		return nil, err
	}
	return m.engine.ListDatasets(ctx, pool)
}

// Create provisions a new filesystem or volume, applying any initial
// user properties via sequential SetProperty calls (the Engine has no
// atomic multi-property create primitive).
func (m *Manager) Create(ctx context.Context, name string, kind zfsengine.DatasetKind, properties map[string]string) error {
	if err := validate.DatasetOrSnapshotName(name); err != nil {
		return err
	}
	if kind != zfsengine.KindFilesystem && kind != zfsengine.KindVolume {
		return zfserr.New(zfserr.Validation, "dataset kind must be 'filesystem' or 'volume', got %q", kind)
	}
	if err := m.engine.CreateDataset(ctx, name, kind); err != nil {
		return err
	}
	for key, value := range properties {
		if err := validate.PropertyName(key); err != nil {
			return err
		}
		if err := m.engine.SetProperty(ctx, name, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Destroy removes a single dataset. It does not touch children or
// snapshots; use DestroyRecursive for that.
func (m *Manager) Destroy(ctx context.Context, name string) error {
	if err := validate.DatasetOrSnapshotName(name); err != nil {
		return err
	}
	return m.engine.DestroyDataset(ctx, name)
}

// DestroyRecursive deletes name and every child dataset and snapshot
// beneath it, deepest first, aborting at the first failure and leaving
// everything not yet reached intact (mirroring the source system's
// sequential-destroy-then-return-on-first-error behavior).
func (m *Manager) DestroyRecursive(ctx context.Context, name string) error {
	if err := validate.DatasetOrSnapshotName(name); err != nil {
		return err
	}
	pool, _, _ := strings.Cut(name, "/")

	datasets, err := m.engine.ListDatasets(ctx, pool)
	if err != nil {
		return err
	}

	childPrefix := name + "/"

	toDelete := make([]string, 0, len(datasets))
	for _, d := range datasets {
		if d.Name == name || strings.HasPrefix(d.Name, childPrefix) {
			toDelete = append(toDelete, d.Name)
		}
	}

	// ListSnapshots(pool) already recurses (the shell engine shells out to
	// `zfs list -t snapshot -r`), so it is called once for the whole pool
	// rather than once per child; listing per-child would return the same
	// descendant's snapshot twice whenever a child has its own, queuing a
	// duplicate destroy that aborts with ENOENT the second time through.
	snaps, err := m.engine.ListSnapshots(ctx, pool)
	if err != nil {
		return err
	}
	for _, s := range snaps {
		if s.Dataset == name || strings.HasPrefix(s.Dataset, childPrefix) {
			toDelete = append(toDelete, s.FullName())
		}
	}

	sortDeepestFirst(toDelete)

	for _, item := range toDelete {
		if err := destroyByKind(ctx, m.engine, item); err != nil {
			return zfserr.Wrap(zfserr.KindOf(err), err, "failed to destroy %q", item)
		}
	}
	return nil
}

// sortDeepestFirst orders names by descending count of '/' and '@'
// separators, matching original_source/src/zfs_management/datasets.rs's
// depth comparator exactly.
func sortDeepestFirst(names []string) {
	depth := func(s string) int {
		return strings.Count(s, "/") + strings.Count(s, "@")
	}
	sort.SliceStable(names, func(i, j int) bool {
		return depth(names[i]) > depth(names[j])
	})
}

func destroyByKind(ctx context.Context, engine zfsengine.Engine, item string) error {
	if dataset, snap, ok := strings.Cut(item, "@"); ok {
		return engine.DestroySnapshot(ctx, dataset, snap)
	}
	return engine.DestroyDataset(ctx, item)
}

// Properties returns every property the Engine reports for name.
func (m *Manager) Properties(ctx context.Context, name string) (map[string]string, error) {
	if err := validate.DatasetOrSnapshotName(name); err != nil {
		return nil, err
	}
	return m.engine.GetProperties(ctx, name)
}

// SetProperty sets a single property on name, always via the subprocess
// path (spec.md §9: property set has no library primitive).
func (m *Manager) SetProperty(ctx context.Context, name, key, value string) error {
	if err := validate.DatasetOrSnapshotName(name); err != nil {
		return err
	}
	if err := validate.PropertyName(key); err != nil {
		return err
	}
	return m.engine.SetProperty(ctx, name, key, value)
}

// CreateSnapshot takes a snapshot of dataset.
func (m *Manager) CreateSnapshot(ctx context.Context, dataset, name string) error {
	if err := validate.DatasetOrSnapshotName(dataset); err != nil {
		return err
	}
	if err := validate.DatasetOrSnapshotName(name); err != nil {
		return err
	}
	return m.engine.CreateSnapshot(ctx, dataset, name)
}

// DestroySnapshot destroys a single dataset@name snapshot.
func (m *Manager) DestroySnapshot(ctx context.Context, full string) error {
	dataset, name, err := validate.SnapshotFullName(full)
	if err != nil {
		return err
	}
	return m.engine.DestroySnapshot(ctx, dataset, name)
}

// ListSnapshots lists the snapshots of dataset.
func (m *Manager) ListSnapshots(ctx context.Context, dataset string) ([]zfsengine.Snapshot, error) {
	if err := validate.DatasetOrSnapshotName(dataset); err != nil {
		return nil, err
	}
	return m.engine.ListSnapshots(ctx, dataset)
}

// Clone materializes target as a writable clone of a dataset@name snapshot.
func (m *Manager) Clone(ctx context.Context, full, target string) error {
	dataset, name, err := validate.SnapshotFullName(full)
	if err != nil {
		return err
	}
	if err := validate.DatasetOrSnapshotName(target); err != nil {
		return err
	}
	return m.engine.CloneSnapshot(ctx, dataset, name, target)
}

// Promote swaps a clone with its origin snapshot's dataset in the
// space-accounting hierarchy.
func (m *Manager) Promote(ctx context.Context, name string) error {
	if err := validate.DatasetOrSnapshotName(name); err != nil {
		return err
	}
	return m.engine.PromoteDataset(ctx, name)
}
