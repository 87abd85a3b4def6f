// Package live serves follow-up questions over a WebSocket.
package live

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Conns tracks the open follow-up connection of each user tab.
// A second connection from the same tab replaces the first.
type Conns struct {
	mu     sync.Mutex
	active map[string]map[string]*websocket.Conn
}

// NewConns creates an empty connection registry.
func NewConns() *Conns {
	return &Conns{active: make(map[string]map[string]*websocket.Conn)}
}

// Register records conn for userID/sessionID, closing any connection it replaces.
func (m *Conns) Register(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[userID]
	if !ok {
		sessions = make(map[string]*websocket.Conn)
		m.active[userID] = sessions
	}
	if existing, ok := sessions[sessionID]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}
	sessions[sessionID] = conn
	slog.Debug("Live connection registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes conn if it is still the registered connection.
func (m *Conns) Unregister(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[userID]
	if !ok || sessions[sessionID] != conn {
		return
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(m.active, userID)
	}
	slog.Debug("Live connection unregistered", "user_id", userID, "session_id", sessionID)
}

// Len returns the number of open connections.
func (m *Conns) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}

// CloseAll closes every connection, used on shutdown.
func (m *Conns) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, sessions := range m.active {
		for _, conn := range sessions {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		delete(m.active, userID)
	}
}
