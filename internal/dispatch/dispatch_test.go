package dispatch

import (
	"context"
	"testing"

	"github.com/zfs-agent/zfs-agent/internal/events"
	"github.com/zfs-agent/zfs-agent/internal/replication"
	"github.com/zfs-agent/zfs-agent/internal/safety"
	"github.com/zfs-agent/zfs-agent/internal/tasks"
	"github.com/zfs-agent/zfs-agent/internal/zfserr"
	"github.com/zfs-agent/zfs-agent/internal/zfsengine"
)

// fakeEngine is a no-op Engine stub; CreatePool/GetProperties are the only
// calls these tests need to succeed.
type fakeEngine struct {
	zfsengine.Engine
	propsExist map[string]bool
}

func (f *fakeEngine) CreatePool(ctx context.Context, name string, vdevSpec map[string]any) error {
	return nil
}

func (f *fakeEngine) GetProperties(ctx context.Context, name string) (map[string]string, error) {
	if f.propsExist[name] {
		return map[string]string{}, nil
	}
	return nil, zfserr.New(zfserr.NotFound, "not found")
}

func newTestDispatcher() *Dispatcher {
	lock := &safety.Lock{}
	return New(&fakeEngine{propsExist: map[string]bool{"tank/d@s1": true}}, lock, tasks.NewManager(), events.NewHub(8))
}

func TestCreatePoolRejectsBadName(t *testing.T) {
	d := newTestDispatcher()
	err := d.CreatePool(context.Background(), "/not-a-name", nil)
	if zfserr.KindOf(err) != zfserr.Validation {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestCreatePoolSucceedsWhenSafetyUnlocked(t *testing.T) {
	lock := &safety.Lock{}
	if err := lock.Override(); err == nil {
		t.Fatal("expected Override on a zero-value (already-unlocked) Lock to fail")
	}
	d := New(&fakeEngine{}, lock, tasks.NewManager(), events.NewHub(8))
	// The zero-value Lock starts unlocked, so the safety step passes and
	// CreatePool goes on to validation and the engine call.
	if err := d.CreatePool(context.Background(), "tank", nil); err != nil {
		t.Fatalf("expected success against an unlocked safety state, got %v", err)
	}
}

func TestSendConflictReturnsExactSpecMessage(t *testing.T) {
	d := newTestDispatcher()
	ctx := context.Background()

	first, err := d.StartSend(ctx, replication.SendRequest{Snapshot: "tank/d@s1", DestPath: "/tmp/a.bin"})
	if err != nil {
		t.Fatalf("unexpected error starting first send: %v", err)
	}

	_, err = d.StartReplicate(ctx, replication.ReplicateRequest{Snapshot: "tank/d@s1", TargetDataset: "tank2/d"})
	if err == nil {
		t.Fatal("expected a pool-busy conflict on the second operation")
	}
	want := "Pool 'tank' is busy with task '" + first.ID + "'"
	if err.Error() != want {
		t.Errorf("conflict message = %q, want %q", err.Error(), want)
	}
}

func TestStartSendRejectsMalformedSnapshot(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.StartSend(context.Background(), replication.SendRequest{Snapshot: "no-at-sign", DestPath: "/tmp/a.bin"})
	if zfserr.KindOf(err) != zfserr.Validation {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestPoolOf(t *testing.T) {
	cases := map[string]string{"tank": "tank", "tank/a": "tank", "tank/a/b": "tank"}
	for in, want := range cases {
		if got := poolOf(in); got != want {
			t.Errorf("poolOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUniquePoolsDedupesSamePoolReplication(t *testing.T) {
	got := uniquePools("tank", "tank")
	if len(got) != 1 || got[0] != "tank" {
		t.Errorf("uniquePools(tank, tank) = %v, want [tank]", got)
	}
}
