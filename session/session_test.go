package session

import (
	"net"
	"testing"
	"time"

	"github.com/wfunc/tworooms/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error { return nil }
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	retrieved, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrieved != sess {
		t.Fatal("Get should return the same session instance")
	}

	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	if _, exists = manager.Get(sessionID); exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestSession_BindAddress(t *testing.T) {
	sess := NewSession("s1", &MockConnection{})

	if _, ok := sess.Address(); ok {
		t.Fatal("A fresh session should have no bound address")
	}

	sess.BindAddress("0xaaa")
	address, ok := sess.Address()
	if !ok || address != "0xaaa" {
		t.Errorf("Address() = %q/%v, expected 0xaaa/true", address, ok)
	}
}

func TestSession_TouchUpdatesIdleSince(t *testing.T) {
	sess := NewSession("s1", &MockConnection{})
	before := sess.IdleSince()

	time.Sleep(5 * time.Millisecond)
	sess.Touch()

	if !sess.IdleSince().After(before) {
		t.Error("Touch should move IdleSince forward")
	}
}

// Heartbeats arrive on the read loop while the idle sweep polls from a
// timer goroutine; run under -race this catches unguarded access to the
// activity timestamp.
func TestSession_ConcurrentTouchAndIdleSince(t *testing.T) {
	sess := NewSession("s1", &MockConnection{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			sess.Touch()
		}
	}()

	cutoff := time.Now().Add(-time.Hour)
	for i := 0; i < 1000; i++ {
		if sess.IdleSince().Before(cutoff) {
			t.Fatal("IdleSince regressed past the session's creation time")
		}
	}
	<-done
}

func TestManager_GetByAddress(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	sess1.BindAddress("0xaaa")

	sess2 := NewSession("session2", &MockConnection{})
	sess2.BindAddress("0xbbb")

	// Same wallet, second tab.
	sess3 := NewSession("session3", &MockConnection{})
	sess3.BindAddress("0xaaa")

	// Never introduced itself.
	sess4 := NewSession("session4", &MockConnection{})

	manager.Add(sess1)
	manager.Add(sess2)
	manager.Add(sess3)
	manager.Add(sess4)

	if got := manager.GetByAddress("0xaaa"); len(got) != 2 {
		t.Errorf("Expected 2 sessions for 0xaaa, got %d", len(got))
	}
	if got := manager.GetByAddress("0xbbb"); len(got) != 1 {
		t.Errorf("Expected 1 session for 0xbbb, got %d", len(got))
	}
	if got := manager.GetByAddress("0xccc"); len(got) != 0 {
		t.Errorf("Expected 0 sessions for 0xccc, got %d", len(got))
	}
}

func TestManager_All(t *testing.T) {
	manager := NewManager()
	manager.Add(NewSession("a", &MockConnection{}))
	manager.Add(NewSession("b", &MockConnection{}))

	if got := manager.All(); len(got) != 2 {
		t.Errorf("All() returned %d sessions, expected 2", len(got))
	}
}
