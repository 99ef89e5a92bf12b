// Package rollback implements the eight-step rollback planning algorithm of
// spec.md §4.5, grounded step-for-step on
// original_source/src/zfs_management/snapshots.rs's rollback_dataset:
// validate the force-flag combination, confirm dataset and target snapshot
// exist, compute newer snapshots, classify their clones into
// destroy-or-block, destroy permitted clones then newer snapshots
// (deepest/newest first), invoke the engine rollback, and translate
// EEXIST/EBUSY into the caller-facing Blocked/Busy outcomes.
package rollback

import (
	"context"
	"strings"

	"github.com/zfs-agent/zfs-agent/internal/validate"
	"github.com/zfs-agent/zfs-agent/internal/zfserr"
	"github.com/zfs-agent/zfs-agent/internal/zfsengine"
	"golang.org/x/sys/unix"
)

// Request is the caller's rollback intent.
type Request struct {
	Dataset            string
	Snapshot           string
	ForceDestroyNewer  bool
	ForceDestroyClones bool
}

// Result reports what the planner had to remove to satisfy the rollback.
type Result struct {
	DestroyedSnapshots []string `json:"destroyed_snapshots,omitempty"`
	DestroyedClones    []string `json:"destroyed_clones,omitempty"`
}

// Planner executes rollback requests against an Engine.
type Planner struct {
	engine zfsengine.Engine
}

// NewPlanner constructs a Planner bound to engine.
func NewPlanner(engine zfsengine.Engine) *Planner {
	return &Planner{engine: engine}
}

// clonesUserProperty is the user property the source system stashes a
// comma-separated clone list under.
const clonesUserProperty = "clones"

// Rollback runs the full eight-step plan and, on success, performs the
// rollback.
func (p *Planner) Rollback(ctx context.Context, req Request) (Result, error) {
	// Step 1: a clones-destroy request implies a newer-snapshots-destroy request.
	if req.ForceDestroyClones && !req.ForceDestroyNewer {
		return Result{}, zfserr.New(zfserr.Validation, "force_destroy_clones requires force_destroy_newer to be true")
	}
	if err := validate.DatasetOrSnapshotName(req.Dataset); err != nil {
		return Result{}, err
	}
	if err := validate.DatasetOrSnapshotName(req.Snapshot); err != nil {
		return Result{}, err
	}

	// Step 2: dataset must exist.
	if _, err := p.engine.GetProperties(ctx, req.Dataset); err != nil {
		return Result{}, zfserr.Wrap(zfserr.NotFound, err, "dataset %q does not exist", req.Dataset)
	}

	fullSnapshot := req.Dataset + "@" + req.Snapshot

	// Step 3: target snapshot must exist.
	if _, err := p.engine.GetProperties(ctx, fullSnapshot); err != nil {
		return Result{}, zfserr.Wrap(zfserr.NotFound, err, "snapshot %q does not exist", fullSnapshot)
	}

	// Step 4: locate the target among all of the dataset's snapshots and
	// compute everything taken after it.
	all, err := p.engine.ListSnapshots(ctx, req.Dataset)
	if err != nil {
		return Result{}, err
	}
	newer, found := newerSnapshots(all, req.Dataset, req.Snapshot)
	if !found {
		return Result{}, zfserr.New(zfserr.NotFound, "snapshot %q not found in dataset's snapshot list", fullSnapshot)
	}

	// Step 5: refuse when newer snapshots exist and the caller didn't opt
	// into destroying them.
	if len(newer) > 0 && !req.ForceDestroyNewer {
		return Result{}, zfserr.NewWithDetails(zfserr.RollbackBlocked,
			map[string]any{"blocking_snapshots": newer},
			"cannot rollback to %q: newer snapshot(s) exist: %s", fullSnapshot, strings.Join(newer, ", "))
	}

	// Step 6: classify clones of the newer snapshots into destroy-permitted
	// or blocking.
	var toDestroyClones, blockingClones []string
	for _, snap := range newer {
		clonesStr, err := p.engine.UserProperty(ctx, snap, clonesUserProperty)
		if err != nil || clonesStr == "" {
			continue
		}
		for _, clone := range strings.Split(clonesStr, ",") {
			clone = strings.TrimSpace(clone)
			if clone == "" {
				continue
			}
			if req.ForceDestroyClones {
				toDestroyClones = append(toDestroyClones, clone)
			} else {
				blockingClones = append(blockingClones, clone)
			}
		}
	}

	// Step 7: any clone we're not permitted to destroy blocks the rollback.
	if len(blockingClones) > 0 {
		return Result{}, zfserr.NewWithDetails(zfserr.RollbackBlocked,
			map[string]any{"blocking_clones": blockingClones},
			"cannot rollback: clone(s) depend on newer snapshots: %s", strings.Join(blockingClones, ", "))
	}

	// Step 8: destroy permitted clones, then newer snapshots newest-first,
	// then perform the rollback itself.
	result := Result{}
	for _, clone := range toDestroyClones {
		if err := p.engine.DestroyDataset(ctx, clone); err != nil {
			return result, zfserr.Wrap(zfserr.KindOf(err), err, "failed to destroy clone %q", clone)
		}
		result.DestroyedClones = append(result.DestroyedClones, clone)
	}

	if req.ForceDestroyNewer {
		for i := len(newer) - 1; i >= 0; i-- {
			dataset, name, ok := strings.Cut(newer[i], "@")
			if !ok {
				continue
			}
			if err := p.engine.DestroySnapshot(ctx, dataset, name); err != nil {
				return result, zfserr.Wrap(zfserr.KindOf(err), err, "failed to destroy snapshot %q", newer[i])
			}
			result.DestroyedSnapshots = append(result.DestroyedSnapshots, newer[i])
		}
	}

	if err := p.engine.RollbackTo(ctx, req.Dataset, req.Snapshot); err != nil {
		return result, translateRollbackError(err, req.Dataset)
	}
	return result, nil
}

// newerSnapshots returns every snapshot taken after dataset@target, in
// oldest-to-newest order, plus whether the target was found at all.
func newerSnapshots(all []zfsengine.Snapshot, dataset, target string) ([]string, bool) {
	targetIdx := -1
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.FullName()
		if s.Dataset == dataset && s.Name == target {
			targetIdx = i
		}
	}
	if targetIdx < 0 {
		return nil, false
	}
	return names[targetIdx+1:], true
}

// translateRollbackError maps the Engine's errno-derived error into the
// caller-facing kind the source system distinguishes: EEXIST means newer
// snapshots still exist (a planning race), EBUSY means the dataset is in
// use, anything else passes through as an engine error.
func translateRollbackError(err error, dataset string) error {
	if errno, ok := zfserr.AsErrno(err); ok {
		switch errno {
		case unix.EEXIST:
			return zfserr.Wrap(zfserr.RollbackBlocked, err, "rollback failed: newer snapshots still exist")
		case unix.EBUSY:
			return zfserr.Wrap(zfserr.Busy, err, "dataset %q is busy (mounted with open files or active operations)", dataset)
		}
	}
	return err
}
