// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/tworooms/network"
)

// Session is one connected client. Address is the wallet identity bound
// at hello time; it is empty until the client has introduced itself.
type Session struct {
	ID        string
	Conn      network.Connection
	CreatedAt time.Time

	mutex      sync.RWMutex
	address    string
	lastActive time.Time
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

// BindAddress attaches the caller's wallet address to the session.
func (s *Session) BindAddress(address string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.address = address
}

// Address returns the bound wallet address, or false when the client
// has not introduced itself yet.
func (s *Session) Address() (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.address, s.address != ""
}

// Touch records activity on the session. The read loop calls it for
// every inbound packet; the idle sweep runs on the timer goroutine, so
// the timestamp stays behind the session mutex.
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActive = time.Now()
}

// IdleSince returns the time of the last observed activity.
func (s *Session) IdleSince() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// All returns a snapshot of the connected sessions.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// GetByAddress returns every session bound to a wallet address; the
// same wallet may be connected from more than one tab.
func (m *Manager) GetByAddress(address string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if bound, ok := session.Address(); ok && bound == address {
			result = append(result, session)
		}
	}
	return result
}

// Count returns the number of connected sessions.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
