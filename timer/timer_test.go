package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_FiresTask(t *testing.T) {
	manager := NewManager()
	defer manager.Stop()

	fired := make(chan struct{})
	manager.Add(50*time.Millisecond, 0, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("Scheduled task did not fire")
	}
}

func TestManager_RepeatingTask(t *testing.T) {
	manager := NewManager()
	defer manager.Stop()

	var count int64
	manager.Add(10*time.Millisecond, 50*time.Millisecond, func() {
		atomic.AddInt64(&count, 1)
	})

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt64(&count) < 3 {
		select {
		case <-deadline:
			t.Fatalf("Repeating task fired only %d times", atomic.LoadInt64(&count))
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestManager_Remove(t *testing.T) {
	manager := NewManager()
	defer manager.Stop()

	var fired int64
	id := manager.Add(300*time.Millisecond, 0, func() {
		atomic.AddInt64(&fired, 1)
	})
	manager.Remove(id)

	time.Sleep(500 * time.Millisecond)
	if atomic.LoadInt64(&fired) != 0 {
		t.Error("Removed task should not fire")
	}
}
