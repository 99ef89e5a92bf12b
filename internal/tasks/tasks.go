// Package tasks implements the per-pool task manager described in
// spec.md §4.2, grounded on original_source/src/task_manager.rs: atomic
// pool reservation, TTL-based expiry of terminal tasks, and progress
// tracking for long-running replication operations.
package tasks

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

// Status is a task's lifecycle state.
type Status string

const (
	Pending   Status = "Pending"
	Running   Status = "Running"
	Completed Status = "Completed"
	Failed    Status = "Failed"
)

func (s Status) terminal() bool { return s == Completed || s == Failed }

// Op identifies the kind of long-running operation a task tracks.
type Op string

const (
	OpSend      Op = "send"
	OpReceive   Op = "recv"
	OpReplicate Op = "repl"
)

// expiryWindow is how long a terminal task's record is retained before
// CleanupExpired removes it.
const expiryWindow = 3600 * time.Second

// Progress is an optional progress snapshot on a running task.
type Progress struct {
	Processed int64    `json:"processed"`
	Total     *int64   `json:"total,omitempty"`
	Percent   *float64 `json:"percent,omitempty"`
}

// Task is an immutable-by-convention snapshot returned to callers; mutation
// only ever happens inside Manager under its lock.
type Task struct {
	ID          string     `json:"id"`
	Op          Op         `json:"op"`
	Pools       []string   `json:"pools"`
	Status      Status     `json:"status"`
	StartedAt   int64      `json:"started_at"`
	CompletedAt *int64     `json:"completed_at,omitempty"`
	Progress    *Progress  `json:"progress,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Conflict describes why try-create failed: some pool is already held by
// another task.
type Conflict struct {
	Pool       string
	HolderTask string
}

func (c Conflict) Error() string {
	return fmt.Sprintf("Pool '%s' is busy with task '%s'", c.Pool, c.HolderTask)
}

// Manager is the single-writer-locked task table and pool-busy registry.
type Manager struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	poolBusy map[string]string // pool name -> task id
	now      func() time.Time
}

// NewManager constructs an empty task manager.
func NewManager() *Manager {
	return &Manager{
		tasks:    make(map[string]*Task),
		poolBusy: make(map[string]string),
		now:      time.Now,
	}
}

// TryCreate atomically checks that no pool in pools is already held; if
// clear, it issues a task ID, inserts a Pending task, and reserves every
// pool for it. If any pool is already held, it returns the first conflict
// encountered and performs no mutation.
func (m *Manager) TryCreate(op Op, pools []string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range pools {
		if holder, busy := m.poolBusy[p]; busy {
			return nil, Conflict{Pool: p, HolderTask: holder}
		}
	}

	id, err := newTaskID(op)
	if err != nil {
		return nil, zfserr.Wrap(zfserr.Internal, err, "failed to generate task id")
	}

	t := &Task{
		ID:        id,
		Op:        op,
		Pools:     append([]string(nil), pools...),
		Status:    Pending,
		StartedAt: m.now().Unix(),
	}
	m.tasks[id] = t
	for _, p := range pools {
		m.poolBusy[p] = id
	}
	return cloneTask(t), nil
}

// MarkRunning transitions a Pending task to Running; any other current
// state is a no-op.
func (m *Manager) MarkRunning(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok && t.Status == Pending {
		t.Status = Running
	}
}

// UpdateProgress records a progress snapshot. Percent is derived as
// processed/total*100 when total is present and greater than zero.
func (m *Manager) UpdateProgress(id string, processed int64, total *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return
	}
	p := &Progress{Processed: processed, Total: total}
	if total != nil && *total > 0 {
		pct := float64(processed) / float64(*total) * 100
		p.Percent = &pct
	}
	t.Progress = p
}

// Complete releases every pool this task holds and transitions it to
// Completed, atomically with the release, storing result.
func (m *Manager) Complete(id string, result any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finish(id, Completed, result, "")
}

// Fail releases every pool this task holds and transitions it to Failed,
// atomically with the release, storing errMsg.
func (m *Manager) Fail(id string, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finish(id, Failed, nil, errMsg)
}

// finish must be called with mu held.
func (m *Manager) finish(id string, status Status, result any, errMsg string) {
	t, ok := m.tasks[id]
	if !ok {
		return
	}
	m.releasePools(id)
	now := m.now().Unix()
	t.CompletedAt = &now
	t.Result = result
	t.Error = errMsg
	t.Status = status
}

// releasePools removes every registry entry whose value equals id. Must be
// called with mu held.
func (m *Manager) releasePools(id string) {
	for pool, holder := range m.poolBusy {
		if holder == id {
			delete(m.poolBusy, pool)
		}
	}
}

// Get returns a snapshot of the task, or false if absent.
func (m *Manager) Get(id string) (*Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, false
	}
	return cloneTask(t), true
}

// PoolHolder returns the task id currently holding pool, if any.
func (m *Manager) PoolHolder(pool string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.poolBusy[pool]
	return id, ok
}

// Snapshot returns a point-in-time copy of every tracked task, for the
// metrics endpoint's per-status gauges.
func (m *Manager) Snapshot() []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, cloneTask(t))
	}
	return out
}

// BusyPoolCount returns the number of pools currently reserved by a
// non-terminal task.
func (m *Manager) BusyPoolCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.poolBusy)
}

// CleanupExpired evicts terminal tasks whose completed_at is older than the
// expiry window. Non-terminal tasks are never evicted. It should be called
// periodically by a background sweeper.
func (m *Manager) CleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-expiryWindow).Unix()
	for id, t := range m.tasks {
		if t.Status.terminal() && t.CompletedAt != nil && *t.CompletedAt < cutoff {
			delete(m.tasks, id)
		}
	}
}

func cloneTask(t *Task) *Task {
	cp := *t
	cp.Pools = append([]string(nil), t.Pools...)
	return &cp
}

// newTaskID builds a task ID of the form "<op>-<8 hex chars>".
func newTaskID(op Op) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", op, hex.EncodeToString(buf)[:8]), nil
}
