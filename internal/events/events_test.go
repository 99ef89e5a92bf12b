package events

import "testing"

func TestPublishSubscribeTaskEvent(t *testing.T) {
	h := NewHub(4)
	ch, cancel := Subscribe(h, TaskTopic)
	defer cancel()

	Publish(h, TaskTopic, TaskEvent{TaskID: "send-abcd1234", Status: "Running"})

	got := <-ch
	if got.TaskID != "send-abcd1234" || got.Status != "Running" {
		t.Errorf("got %+v", got)
	}
}

func TestSubscribeTypeIsolation(t *testing.T) {
	h := NewHub(4)
	taskCh, cancelTask := Subscribe(h, TaskTopic)
	defer cancelTask()
	safetyCh, cancelSafety := Subscribe(h, SafetyTopic)
	defer cancelSafety()

	Publish(h, SafetyTopic, SafetyEvent{Locked: true, Reason: "out of range"})

	select {
	case got := <-safetyCh:
		if !got.Locked {
			t.Error("expected locked=true")
		}
	default:
		t.Fatal("expected a safety event to be ready")
	}

	select {
	case <-taskCh:
		t.Fatal("task channel should not have received a safety event")
	default:
	}
}
