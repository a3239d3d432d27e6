package main

import "sync"

const (
	maxConnsPerIP = 5
	maxTotalConns = 500
)

// Hub tracks connected clients and routes them to sessions
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	sessions   *SessionManager

	// connection limiting, touched from HTTP handlers
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	db   *DB
	auth *Auth
}

// NewHub creates a hub backed by the given database
func NewHub(db *DB) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		sessions:   NewSessionManager(db),
		ipConns:    make(map[string]int),
		db:         db,
		auth:       NewAuth(db),
	}
}

// CanAccept reports whether a new connection from ip is allowed, and
// the rejection reason when it is not
func (h *Hub) CanAccept(ip string) (bool, string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false, "server_full"
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false, "ip_limit"
	}
	return true, ""
}

// TrackConnect counts a new connection
func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
	metricWSConnections.Inc()
}

// TrackDisconnect counts a closed connection
func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
	metricWSConnections.Dec()
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			if client.sessionID != "" {
				h.sessions.RemoveShip(client.sessionID, client.shipID)
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
