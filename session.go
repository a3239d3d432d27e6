package main

import "sync"

const maxSessions = 60

// Session is one joinable arena
type Session struct {
	ID    string
	Name  string
	Arena *Arena
}

// SessionManager handles creation and lookup of sessions
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	db       *DB
}

// NewSessionManager creates an empty manager
func NewSessionManager(db *DB) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		db:       db,
	}
}

// CreateSession opens a new arena. Returns nil when the cap is reached.
func (sm *SessionManager) CreateSession(name string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil
	}

	sess := &Session{
		ID:    GenerateUUID(),
		Name:  name,
		Arena: NewArena(sm.db),
	}
	sm.sessions[sess.ID] = sess
	metricSessions.Set(float64(len(sm.sessions)))
	go sess.Arena.Run()
	return sess
}

// GetSession returns a session by ID, or nil
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// RemoveShip drops a ship from a session, reaping the session once empty
func (sm *SessionManager) RemoveShip(sessionID, shipID string) {
	sm.mu.RLock()
	sess, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return
	}
	sess.Arena.RemoveShip(shipID)

	if sess.Arena.ShipCount() == 0 {
		sess.Arena.Stop()
		sm.mu.Lock()
		delete(sm.sessions, sessionID)
		metricSessions.Set(float64(len(sm.sessions)))
		sm.mu.Unlock()
	}
}

// ListSessions returns info about all active sessions
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		list = append(list, SessionInfo{
			ID:    sess.ID,
			Name:  sess.Name,
			Ships: sess.Arena.ShipCount(),
		})
	}
	return list
}
