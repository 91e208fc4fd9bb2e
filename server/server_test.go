package server

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/wfunc/tworooms/broadcast"
	"github.com/wfunc/tworooms/game"
	"github.com/wfunc/tworooms/logger"
	"github.com/wfunc/tworooms/models"
	"github.com/wfunc/tworooms/network"
	"github.com/wfunc/tworooms/persistence"
	"github.com/wfunc/tworooms/session"
)

// MockConnection records every packet sent to it.
type MockConnection struct {
	Sent   []*network.Packet
	Closed bool
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.Sent = append(m.Sent, &network.Packet{MsgID: msgID, Data: data})
	return nil
}
func (m *MockConnection) Close() error                         { m.Closed = true; return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func (m *MockConnection) lastWithID(msgID uint16) *network.Packet {
	for i := len(m.Sent) - 1; i >= 0; i-- {
		if m.Sent[i].MsgID == msgID {
			return m.Sent[i]
		}
	}
	return nil
}

// MockStore is an in-memory persistence.Store.
type MockStore struct {
	data     map[string][]byte
	versions map[string]int64
}

func NewMockStore() *MockStore {
	return &MockStore{
		data:     make(map[string][]byte),
		versions: make(map[string]int64),
	}
}

func (m *MockStore) IsAvailable() bool { return true }

func (m *MockStore) GetData(key string) ([]byte, error) {
	value, _, err := m.GetVersioned(key)
	return value, err
}

func (m *MockStore) GetVersioned(key string) ([]byte, int64, error) {
	value, exists := m.data[key]
	if !exists {
		return []byte{}, 0, nil
	}
	return value, m.versions[key], nil
}

func (m *MockStore) SetData(key string, value []byte) error {
	m.data[key] = value
	m.versions[key]++
	return nil
}

func (m *MockStore) SetVersioned(key string, value []byte, expect int64) error {
	if m.versions[key] != expect {
		return persistence.ErrVersionConflict
	}
	m.data[key] = value
	m.versions[key]++
	return nil
}

func (m *MockStore) Close() error { return nil }

func init() {
	logger.InitNop()
}

// newTestServer wires a server around an in-memory store, without the
// RPC listener or timers.
func newTestServer() *GameServer {
	sessionManager := session.NewManager()
	return &GameServer{
		engine:         game.NewEngine(NewMockStore()),
		sessionManager: sessionManager,
		broadcaster:    broadcast.NewSessionBroadcaster(sessionManager),
		shutdownChan:   make(chan struct{}),
	}
}

func newTestSession(s *GameServer, id string) (*session.Session, *MockConnection) {
	conn := &MockConnection{}
	sess := session.NewSession(id, conn)
	s.sessionManager.Add(sess)
	return sess, conn
}

func packetOf(t *testing.T, msgID uint16, payload interface{}) *network.Packet {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshalling payload failed: %v", err)
	}
	return &network.Packet{MsgID: msgID, Data: data, Length: uint16(len(data))}
}

func receiptOf(t *testing.T, conn *MockConnection, msgID uint16) receipt {
	t.Helper()
	packet := conn.lastWithID(msgID)
	if packet == nil {
		t.Fatalf("No packet with msg id %d was sent", msgID)
	}
	var r receipt
	if err := json.Unmarshal(packet.Data, &r); err != nil {
		t.Fatalf("Unmarshalling receipt failed: %v", err)
	}
	return r
}

func hello(t *testing.T, s *GameServer, sess *session.Session, address string) {
	t.Helper()
	s.handlePacket(sess, packetOf(t, network.MsgTypeHello, helloRequest{Address: address}))
}

func TestHandleJoin_WithoutHello(t *testing.T) {
	s := newTestServer()
	sess, conn := newTestSession(s, "s1")

	s.handlePacket(sess, packetOf(t, network.MsgTypeJoinGame, joinRequest{Name: "Alice"}))

	r := receiptOf(t, conn, network.MsgTypeJoinGame)
	if r.Status != "error" {
		t.Errorf("Join before hello should fail, got receipt %+v", r)
	}
}

func TestHandleJoin_RevealsOwnDraw(t *testing.T) {
	s := newTestServer()
	sess, conn := newTestSession(s, "s1")
	hello(t, s, sess, "0xaaa")

	s.handlePacket(sess, packetOf(t, network.MsgTypeJoinGame, joinRequest{Name: "Alice"}))

	r := receiptOf(t, conn, network.MsgTypeJoinGame)
	if r.Status != "success" {
		t.Fatalf("Join failed: %s", r.Message)
	}
	if r.Role != int(models.RolePresident) {
		t.Errorf("First joiner receipt role = %d, expected President", r.Role)
	}
	if r.Room != int(models.RoomBlue) && r.Room != int(models.RoomRed) {
		t.Errorf("Receipt room = %d, expected a valid side", r.Room)
	}
}

func TestCommandFlow_BroadcastsToAllSessions(t *testing.T) {
	s := newTestServer()
	host, hostConn := newTestSession(s, "s1")
	watcher, watcherConn := newTestSession(s, "s2")
	hello(t, s, host, "0xaaa")
	hello(t, s, watcher, "0xbbb")

	s.handlePacket(host, packetOf(t, network.MsgTypeJoinGame, joinRequest{Name: "Alice"}))
	s.handlePacket(host, packetOf(t, network.MsgTypeStartGame, struct{}{}))

	r := receiptOf(t, hostConn, network.MsgTypeStartGame)
	if r.Status != "success" {
		t.Fatalf("StartGame failed: %s", r.Message)
	}

	// Both sessions got the fresh state.
	for name, conn := range map[string]*MockConnection{"host": hostConn, "watcher": watcherConn} {
		packet := conn.lastWithID(network.MsgTypeStateSync)
		if packet == nil {
			t.Fatalf("Session %s received no state sync", name)
		}
		var st models.GameState
		if err := json.Unmarshal(packet.Data, &st); err != nil {
			t.Fatalf("Unmarshalling state sync failed: %v", err)
		}
		if st.Phase != models.PhaseRound1 || st.CurrentRound != 1 {
			t.Errorf("Session %s state sync = %+v, expected round1/1", name, st)
		}
	}
}

func TestHandleElectLeader_BadRoom(t *testing.T) {
	s := newTestServer()
	sess, conn := newTestSession(s, "s1")
	hello(t, s, sess, "0xaaa")
	s.handlePacket(sess, packetOf(t, network.MsgTypeStartGame, struct{}{}))

	s.handlePacket(sess, packetOf(t, network.MsgTypeElectLeader, electLeaderRequest{Room: "green", PlayerID: "p1"}))

	r := receiptOf(t, conn, network.MsgTypeElectLeader)
	if r.Status != "error" {
		t.Errorf("Electing a leader for an unknown room should fail, got %+v", r)
	}
}

func TestHandleElectLeader_And_Hostage(t *testing.T) {
	s := newTestServer()
	sess, conn := newTestSession(s, "s1")
	hello(t, s, sess, "0xaaa")
	s.handlePacket(sess, packetOf(t, network.MsgTypeStartGame, struct{}{}))

	s.handlePacket(sess, packetOf(t, network.MsgTypeElectLeader, electLeaderRequest{Room: "blue", PlayerID: "p1"}))
	s.handlePacket(sess, packetOf(t, network.MsgTypeSelectHostage, selectHostageRequest{PlayerID: "p2"}))

	if r := receiptOf(t, conn, network.MsgTypeSelectHostage); r.Status != "success" {
		t.Fatalf("SelectHostage failed: %s", r.Message)
	}

	packet := conn.lastWithID(network.MsgTypeStateSync)
	var st models.GameState
	if err := json.Unmarshal(packet.Data, &st); err != nil {
		t.Fatal(err)
	}
	if st.BlueRoomLeader != "p1" || st.Hostage != "p2" {
		t.Errorf("State sync = %+v, expected leader p1 and hostage p2", st)
	}
}

func TestHandleRevealRole_RequiresSignature(t *testing.T) {
	s := newTestServer()
	sess, conn := newTestSession(s, "s1")
	hello(t, s, sess, "0xaaa")
	s.handlePacket(sess, packetOf(t, network.MsgTypeJoinGame, joinRequest{Name: "Alice"}))

	s.handlePacket(sess, packetOf(t, network.MsgTypeRevealRole, revealRequest{}))
	if r := receiptOf(t, conn, network.MsgTypeRevealRole); r.Status != "error" {
		t.Errorf("Reveal without a signature should fail, got %+v", r)
	}

	s.handlePacket(sess, packetOf(t, network.MsgTypeRevealRole, revealRequest{Signature: "0xsig"}))
	r := receiptOf(t, conn, network.MsgTypeRevealRole)
	if r.Status != "success" {
		t.Fatalf("Reveal with a signature failed: %s", r.Message)
	}
	if r.Role != int(models.RolePresident) {
		t.Errorf("Revealed role = %d, expected President", r.Role)
	}
}

func TestHandlePacket_UnknownMessageType(t *testing.T) {
	s := newTestServer()
	sess, conn := newTestSession(s, "s1")

	s.handlePacket(sess, &network.Packet{MsgID: 999})

	r := receiptOf(t, conn, network.MsgTypeError)
	if r.Status != "error" {
		t.Errorf("Unknown message type should produce an error receipt, got %+v", r)
	}
}

func TestSweepIdleSessions_ClosesOnlyStale(t *testing.T) {
	s := newTestServer()
	s.idleTimeout = 20 * time.Millisecond
	stale, staleConn := newTestSession(s, "s1")
	fresh, freshConn := newTestSession(s, "s2")

	time.Sleep(40 * time.Millisecond)
	s.handlePacket(fresh, &network.Packet{MsgID: network.MsgTypeHeartbeat})
	s.sweepIdleSessions()

	if !staleConn.Closed {
		t.Errorf("Session %s was silent past the timeout and should be closed", stale.GetID())
	}
	if freshConn.Closed {
		t.Error("A session that just heartbeated should stay open")
	}
}

// The read loop records heartbeats while the sweep polls activity from
// the timer goroutine; run under -race this guards the shared
// timestamp.
func TestSweepIdleSessions_ConcurrentWithHeartbeat(t *testing.T) {
	s := newTestServer()
	s.idleTimeout = time.Hour
	sess, conn := newTestSession(s, "s1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			s.handlePacket(sess, &network.Packet{MsgID: network.MsgTypeHeartbeat})
		}
	}()
	for i := 0; i < 500; i++ {
		s.sweepIdleSessions()
	}
	<-done

	if conn.Closed {
		t.Error("An active session should not be swept")
	}
}

func TestRosterSync_KeepsRoleOpaque(t *testing.T) {
	s := newTestServer()
	sess, conn := newTestSession(s, "s1")
	hello(t, s, sess, "0xaaa")
	s.handlePacket(sess, packetOf(t, network.MsgTypeJoinGame, joinRequest{Name: "Alice"}))

	packet := conn.lastWithID(network.MsgTypeRosterSync)
	if packet == nil {
		t.Fatal("No roster sync was sent")
	}
	var entries []rosterEntry
	if err := json.Unmarshal(packet.Data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 roster entry, got %d", len(entries))
	}
	if entries[0].EncryptedRole == "" {
		t.Error("Roster entry should carry the opaque role token")
	}
	if entries[0].Room == 0 {
		t.Error("Roster entry should carry the decoded room side")
	}
}
