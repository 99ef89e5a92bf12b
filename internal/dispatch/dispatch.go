// Package dispatch is the command dispatcher of spec.md §4.8: every
// mutating operation is routed through the safety lock, then syntactic
// validation, then into the engine/datasets/rollback/replication layer.
// Long-running operations (send/receive/replicate) are hosted by the task
// manager, which reserves pools atomically, runs the operation on a
// goroutine, and publishes task-lifecycle events, grounded on the
// handler-wrapping shape of original_source/src/handlers/*.rs (each
// handler is a thin safety-then-call-then-format wrapper) and the
// teacher's controllers/array.go uniform log -> exec -> wrap-error
// pattern.
package dispatch

import (
	"context"

	"github.com/zfs-agent/zfs-agent/internal/datasets"
	"github.com/zfs-agent/zfs-agent/internal/events"
	"github.com/zfs-agent/zfs-agent/internal/logging"
	"github.com/zfs-agent/zfs-agent/internal/replication"
	"github.com/zfs-agent/zfs-agent/internal/rollback"
	"github.com/zfs-agent/zfs-agent/internal/safety"
	"github.com/zfs-agent/zfs-agent/internal/tasks"
	"github.com/zfs-agent/zfs-agent/internal/validate"
	"github.com/zfs-agent/zfs-agent/internal/zfsengine"
)

// Dispatcher wires the safety lock, task manager, and every domain
// component behind the single entry point every HTTP handler calls
// through.
type Dispatcher struct {
	Engine  zfsengine.Engine
	Safety  *safety.Lock
	Tasks   *tasks.Manager
	Hub     *events.Hub
	Sets    *datasets.Manager
	Roll    *rollback.Planner
	Replica *replication.Replicator
}

// New builds a Dispatcher with all components bound to engine.
func New(engine zfsengine.Engine, lock *safety.Lock, taskManager *tasks.Manager, hub *events.Hub) *Dispatcher {
	return &Dispatcher{
		Engine:  engine,
		Safety:  lock,
		Tasks:   taskManager,
		Hub:     hub,
		Sets:    datasets.NewManager(engine),
		Roll:    rollback.NewPlanner(engine),
		Replica: replication.NewReplicator(engine),
	}
}

// requireUnlocked is the first step of every mutating entry point.
func (d *Dispatcher) requireUnlocked() error {
	return d.Safety.Check()
}

// --- Pools -----------------------------------------------------------------

func (d *Dispatcher) ListPools(ctx context.Context) ([]zfsengine.Pool, error) {
	return d.Engine.ListPools(ctx)
}

func (d *Dispatcher) GetPool(ctx context.Context, name string) (zfsengine.Pool, error) {
	if err := validate.DatasetOrSnapshotName(name); err != nil {
		return zfsengine.Pool{}, err
	}
	return d.Engine.GetPool(ctx, name)
}

func (d *Dispatcher) CreatePool(ctx context.Context, name string, vdevSpec map[string]any) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	if err := validate.DatasetOrSnapshotName(name); err != nil {
		return err
	}
	return d.Engine.CreatePool(ctx, name, vdevSpec)
}

func (d *Dispatcher) DestroyPool(ctx context.Context, name string, force bool) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	if err := validate.DatasetOrSnapshotName(name); err != nil {
		return err
	}
	return d.Engine.DestroyPool(ctx, name, force)
}

func (d *Dispatcher) ImportPool(ctx context.Context, searchPath, explicitName string) (string, error) {
	if err := d.requireUnlocked(); err != nil {
		return "", err
	}
	return d.Engine.ImportPool(ctx, searchPath, explicitName)
}

func (d *Dispatcher) ExportPool(ctx context.Context, name string, force bool) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	if err := validate.DatasetOrSnapshotName(name); err != nil {
		return err
	}
	return d.Engine.ExportPool(ctx, name, force)
}

// --- Vdevs -------------------------------------------------------------------

func (d *Dispatcher) AddVdev(ctx context.Context, pool string, vdevSpec map[string]any, force bool) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	if err := validate.DatasetOrSnapshotName(pool); err != nil {
		return err
	}
	return d.Engine.AddVdev(ctx, pool, vdevSpec, force)
}

func (d *Dispatcher) RemoveVdev(ctx context.Context, pool, device string) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	if err := validate.DatasetOrSnapshotName(pool); err != nil {
		return err
	}
	if err := validate.RemoveVdevArgument(device); err != nil {
		return err
	}
	return d.Engine.RemoveVdev(ctx, pool, device)
}

// --- Datasets ----------------------------------------------------------------

func (d *Dispatcher) ListDatasets(ctx context.Context, pool string) ([]zfsengine.Dataset, error) {
	return d.Sets.List(ctx, pool)
}

func (d *Dispatcher) CreateDataset(ctx context.Context, name string, kind zfsengine.DatasetKind, properties map[string]string) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	return d.Sets.Create(ctx, name, kind, properties)
}

func (d *Dispatcher) DestroyDataset(ctx context.Context, name string, recursive bool) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	if recursive {
		return d.Sets.DestroyRecursive(ctx, name)
	}
	return d.Sets.Destroy(ctx, name)
}

func (d *Dispatcher) GetProperties(ctx context.Context, name string) (map[string]string, error) {
	return d.Sets.Properties(ctx, name)
}

func (d *Dispatcher) SetProperty(ctx context.Context, name, key, value string) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	return d.Sets.SetProperty(ctx, name, key, value)
}

// --- Snapshots / clones --------------------------------------------------

func (d *Dispatcher) ListSnapshots(ctx context.Context, dataset string) ([]zfsengine.Snapshot, error) {
	return d.Sets.ListSnapshots(ctx, dataset)
}

func (d *Dispatcher) CreateSnapshot(ctx context.Context, dataset, name string) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	return d.Sets.CreateSnapshot(ctx, dataset, name)
}

func (d *Dispatcher) DestroySnapshot(ctx context.Context, full string) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	return d.Sets.DestroySnapshot(ctx, full)
}

func (d *Dispatcher) CloneSnapshot(ctx context.Context, full, target string) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	return d.Sets.Clone(ctx, full, target)
}

func (d *Dispatcher) PromoteDataset(ctx context.Context, name string) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	return d.Sets.Promote(ctx, name)
}

func (d *Dispatcher) Rollback(ctx context.Context, req rollback.Request) (rollback.Result, error) {
	if err := d.requireUnlocked(); err != nil {
		return rollback.Result{}, err
	}
	return d.Roll.Rollback(ctx, req)
}

// --- Scrub ---------------------------------------------------------------

func (d *Dispatcher) StartScrub(ctx context.Context, pool string) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	return d.Engine.StartScrub(ctx, pool)
}

func (d *Dispatcher) PauseScrub(ctx context.Context, pool string) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	return d.Engine.PauseScrub(ctx, pool)
}

func (d *Dispatcher) StopScrub(ctx context.Context, pool string) error {
	if err := d.requireUnlocked(); err != nil {
		return err
	}
	return d.Engine.StopScrub(ctx, pool)
}

func (d *Dispatcher) ScanStats(ctx context.Context, pool string) (zfsengine.ScanStatsRaw, error) {
	return d.Engine.ScanStats(ctx, pool)
}

// --- Replication (task-mediated) ------------------------------------------

// StartSend creates a task reserving snapshot's pool and runs SendToFile on
// a goroutine, returning the task immediately.
func (d *Dispatcher) StartSend(ctx context.Context, req replication.SendRequest) (*tasks.Task, error) {
	if err := d.requireUnlocked(); err != nil {
		return nil, err
	}
	dataset, _, err := validate.SnapshotFullName(req.Snapshot)
	if err != nil {
		return nil, err
	}
	pool := poolOf(dataset)
	task, err := d.Tasks.TryCreate(tasks.OpSend, []string{pool})
	if err != nil {
		return nil, err
	}
	go d.runSend(task.ID, req)
	return task, nil
}

func (d *Dispatcher) runSend(taskID string, req replication.SendRequest) {
	d.Tasks.MarkRunning(taskID)
	d.publishTaskEvent(taskID, tasks.Running)
	size, err := d.Replica.SendToFile(context.Background(), req)
	if err != nil {
		d.Tasks.Fail(taskID, err.Error())
		d.publishTaskEvent(taskID, tasks.Failed)
		logging.Error("send task %s failed: %v", taskID, err)
		return
	}
	d.Tasks.Complete(taskID, map[string]any{"bytes_written": size})
	d.publishTaskEvent(taskID, tasks.Completed)
}

// StartReplicate creates a task reserving both the source and target pools
// and runs Replicate on a goroutine.
func (d *Dispatcher) StartReplicate(ctx context.Context, req replication.ReplicateRequest) (*tasks.Task, error) {
	if err := d.requireUnlocked(); err != nil {
		return nil, err
	}
	dataset, _, err := validate.SnapshotFullName(req.Snapshot)
	if err != nil {
		return nil, err
	}
	if err := validate.DatasetOrSnapshotName(req.TargetDataset); err != nil {
		return nil, err
	}
	pools := uniquePools(poolOf(dataset), poolOf(req.TargetDataset))
	task, err := d.Tasks.TryCreate(tasks.OpReplicate, pools)
	if err != nil {
		return nil, err
	}
	go d.runReplicate(task.ID, req)
	return task, nil
}

func (d *Dispatcher) runReplicate(taskID string, req replication.ReplicateRequest) {
	d.Tasks.MarkRunning(taskID)
	d.publishTaskEvent(taskID, tasks.Running)
	msg, err := d.Replica.Replicate(context.Background(), req)
	if err != nil {
		d.Tasks.Fail(taskID, err.Error())
		d.publishTaskEvent(taskID, tasks.Failed)
		logging.Error("replicate task %s failed: %v", taskID, err)
		return
	}
	d.Tasks.Complete(taskID, msg)
	d.publishTaskEvent(taskID, tasks.Completed)
}

// StartReceive creates a task reserving target's pool and runs
// ReceiveFromFile on a goroutine.
func (d *Dispatcher) StartReceive(ctx context.Context, targetDataset, srcPath string, force bool) (*tasks.Task, error) {
	if err := d.requireUnlocked(); err != nil {
		return nil, err
	}
	if err := validate.DatasetOrSnapshotName(targetDataset); err != nil {
		return nil, err
	}
	task, err := d.Tasks.TryCreate(tasks.OpReceive, []string{poolOf(targetDataset)})
	if err != nil {
		return nil, err
	}
	go d.runReceive(task.ID, targetDataset, srcPath, force)
	return task, nil
}

func (d *Dispatcher) runReceive(taskID, targetDataset, srcPath string, force bool) {
	d.Tasks.MarkRunning(taskID)
	d.publishTaskEvent(taskID, tasks.Running)
	out, err := d.Replica.ReceiveFromFile(context.Background(), targetDataset, srcPath, force)
	if err != nil {
		d.Tasks.Fail(taskID, err.Error())
		d.publishTaskEvent(taskID, tasks.Failed)
		logging.Error("receive task %s failed: %v", taskID, err)
		return
	}
	d.Tasks.Complete(taskID, out)
	d.publishTaskEvent(taskID, tasks.Completed)
}

// EstimateSendSize and DryRunSendSize are read-only and run synchronously.
func (d *Dispatcher) EstimateSendSize(ctx context.Context, snapshot, incrementalBase string, flags zfsengine.SendFlags) (int64, error) {
	return d.Replica.EstimateSendSize(ctx, snapshot, incrementalBase, flags)
}

func (d *Dispatcher) DryRunSendSize(ctx context.Context, snapshot, incrementalBase string, flags zfsengine.SendFlags) (int64, error) {
	return d.Replica.DryRunSendSize(ctx, snapshot, incrementalBase, flags)
}

// GetTask returns a snapshot of a task by id.
func (d *Dispatcher) GetTask(id string) (*tasks.Task, bool) {
	return d.Tasks.Get(id)
}

// --- Safety ----------------------------------------------------------------

// SafetyStatus and SafetyOverride are exempt from requireUnlocked: they are
// the mechanism for observing and clearing the lock itself.
func (d *Dispatcher) SafetyStatus() safety.State {
	return d.Safety.Status()
}

func (d *Dispatcher) SafetyOverride() error {
	err := d.Safety.Override()
	locked := d.Safety.Status().Locked
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	events.Publish(d.Hub, events.SafetyTopic, events.SafetyEvent{Locked: locked, Reason: reason})
	return err
}

// --- Execute -----------------------------------------------------------------

// Execute is the raw command-execution escape hatch (spec.md §6's
// POST /execute): it checks the safety lock and applies no other
// validation to command or args.
func (d *Dispatcher) Execute(ctx context.Context, command string, args []string) (string, int, error) {
	if err := d.requireUnlocked(); err != nil {
		return "", 0, err
	}
	return d.Engine.Execute(ctx, command, args)
}

func (d *Dispatcher) publishTaskEvent(taskID string, status tasks.Status) {
	events.Publish(d.Hub, events.TaskTopic, events.TaskEvent{TaskID: taskID, Status: string(status)})
}

// poolOf returns the leading pool-name segment of a dataset path.
func poolOf(dataset string) string {
	for i := 0; i < len(dataset); i++ {
		if dataset[i] == '/' {
			return dataset[:i]
		}
	}
	return dataset
}

// uniquePools de-duplicates while preserving order, so a same-pool
// replicate reserves its single pool once, not twice (which TryCreate
// would otherwise reject as a self-conflict).
func uniquePools(pools ...string) []string {
	seen := make(map[string]bool, len(pools))
	out := make([]string, 0, len(pools))
	for _, p := range pools {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
