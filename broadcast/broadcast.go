// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/tworooms/session"
)

// Broadcaster pushes messages to connected clients. One deployment
// hosts exactly one game, so state updates fan out to every session.
type Broadcaster interface {
	BroadcastToAll(msgID uint16, data []byte) error
	BroadcastToAddress(address string, msgID uint16, data []byte) error
}

// SessionBroadcaster fans out over the session manager.
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{sessionManager: sessionManager}
}

func (b *SessionBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			// A dead connection is reaped by its own read loop.
			continue
		}
	}
	return nil
}

func (b *SessionBroadcaster) BroadcastToAddress(address string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetByAddress(address) {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}
