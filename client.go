package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 256
	maxNameLen     = 16

	// message rate limit: sustained input rate plus headroom for menus
	msgRateLimit = 50
	msgRateBurst = 100
)

// Client is one WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	limiter    *rate.Limiter
	shipID     string
	sessionID  string
	remoteAddr string

	// auth state, zero until register/login/auth succeeds
	pilotID  int64
	callsign string
}

// NewClient wraps an upgraded connection
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		limiter:    rate.NewLimiter(msgRateLimit, msgRateBurst),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the connection until it drops
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		if !c.limiter.Allow() {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		// Compact binary input: [0x01, turn int8, flags]
		if msgType == websocket.BinaryMessage && len(message) == 3 && message[0] == 0x01 {
			c.handleBinaryInput(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes queued messages and keepalive pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks a binary frame queued by SendBinary
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON queues a JSON message
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.sendRaw(data)
}

// SendBinary queues bytes as a binary WebSocket message. The 0xFF
// marker lets WritePump tell binary apart from queued text.
func (c *Client) SendBinary(data []byte) {
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	c.sendRaw(msg)
}

// sendRaw queues bytes, dropping them when the client can't keep up.
// The recover covers a racing close of the send channel on unregister.
func (c *Client) sendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
	}
}

// handleMessage routes incoming JSON envelopes
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgCreate:
		c.handleCreate(env.D)
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgInput:
		c.handleInput(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgCheck:
		c.handleCheck(env.D)
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgProfile:
		c.handleProfile()
	case MsgBoard:
		c.handleBoard(env.D)
	}
}

// handleBinaryInput decodes the 3-byte input message
func (c *Client) handleBinaryInput(msg []byte) {
	if c.sessionID == "" || c.shipID == "" {
		return
	}
	flags := msg[2]
	in := ClientInput{
		Turn:   float64(int8(msg[1])) / 100.0,
		Thrust: flags&0x01 != 0,
		Fire:   flags&0x02 != 0,
		Boost:  flags&0x04 != 0,
	}
	if sess := c.hub.sessions.GetSession(c.sessionID); sess != nil {
		sess.Arena.HandleInput(c.shipID, in)
	}
}

func (c *Client) handleList() {
	c.SendJSON(Envelope{T: MsgSessions, Data: c.hub.sessions.ListSessions()})
}

// callsignOrDefault trims and bounds a requested callsign, falling back
// to the authenticated name or a generated guest name. The second
// result reports that a guest name was generated.
func (c *Client) callsignOrDefault(requested string) (string, bool) {
	name := requested
	if name == "" {
		name = c.callsign
	}
	generated := false
	if name == "" {
		name = GenerateGuestCallsign()
		generated = true
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name, generated
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg CreateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sname := msg.SessionName
	if sname == "" {
		sname = "Open Space"
	}
	if len(sname) > 30 {
		sname = sname[:30]
	}

	sess := c.hub.sessions.CreateSession(sname)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "too many active sessions"}})
		return
	}
	c.SendJSON(Envelope{T: MsgCreated, Data: map[string]string{"sid": sess.ID}})
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	sess := c.hub.sessions.GetSession(msg.SessionID)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "session not found"}})
		return
	}

	name, guest := c.callsignOrDefault(msg.Callsign)

	// Generated guest names get a throwaway account row so their match
	// results persist. A self-chosen name without a login stays
	// anonymous; persisting it would squat the callsign against future
	// registration.
	if guest && c.pilotID == 0 && c.hub.db != nil {
		if id, err := c.hub.db.CreateGuest(name); err == nil {
			c.pilotID = id
			c.callsign = name
		}
	}

	ship := sess.Arena.AddShip(name, c.pilotID)
	if ship == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "session full"}})
		return
	}
	c.shipID = ship.ID
	c.sessionID = sess.ID
	sess.Arena.SetClient(ship.ID, c)

	c.SendJSON(Envelope{T: MsgJoined, Data: map[string]string{"sid": sess.ID}})
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{ID: ship.ID}})
}

func (c *Client) handleInput(data json.RawMessage) {
	if c.sessionID == "" || c.shipID == "" {
		return
	}
	var in ClientInput
	if err := json.Unmarshal(data, &in); err != nil {
		return
	}
	if sess := c.hub.sessions.GetSession(c.sessionID); sess != nil {
		sess.Arena.HandleInput(c.shipID, in)
	}
}

func (c *Client) handleLeave() {
	if c.sessionID != "" {
		c.hub.sessions.RemoveShip(c.sessionID, c.shipID)
		c.sessionID = ""
		c.shipID = ""
	}
}

func (c *Client) handleCheck(data json.RawMessage) {
	var msg CheckMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sess := c.hub.sessions.GetSession(msg.SID)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{SID: msg.SID, Exists: false}})
		return
	}
	c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{
		SID:    msg.SID,
		Exists: true,
		Name:   sess.Name,
		Ships:  sess.Arena.ShipCount(),
	}})
}

func (c *Client) handleRegister(data json.RawMessage) {
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Callsign, msg.Password)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.pilotID = id
	c.callsign = msg.Callsign
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{PilotID: id, Callsign: msg.Callsign, Token: token}})
}

func (c *Client) handleLogin(data json.RawMessage) {
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Callsign, msg.Password, c.remoteAddr)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.pilotID = id
	c.callsign = msg.Callsign
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{PilotID: id, Callsign: msg.Callsign, Token: token}})
}

func (c *Client) handleAuth(data json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, callsign, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "invalid or expired token"}})
		return
	}
	// the account may have been removed since the token was issued
	if p, err := c.hub.db.GetPilotByID(id); err != nil || p == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "account no longer exists"}})
		return
	}
	c.pilotID = id
	c.callsign = callsign
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{PilotID: id, Callsign: callsign}})
}

func (c *Client) handleProfile() {
	if c.pilotID == 0 {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "not logged in"}})
		return
	}
	stats, err := c.hub.db.GetStats(c.pilotID)
	if err != nil || stats == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "profile unavailable"}})
		return
	}
	c.SendJSON(Envelope{T: MsgProfileD, Data: ProfileData{
		Callsign:  c.callsign,
		Level:     stats.Level,
		XP:        stats.XP,
		Kills:     stats.Kills,
		Deaths:    stats.Deaths,
		Matches:   stats.Matches,
		BestScore: stats.BestScore,
		Playtime:  stats.Playtime,
	}})
}

func (c *Client) handleBoard(data json.RawMessage) {
	var msg BoardMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
	}
	entries, err := c.hub.db.Leaderboard(msg.OrderBy, 20)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "leaderboard unavailable"}})
		return
	}
	c.SendJSON(Envelope{T: MsgBoardD, Data: entries})
}
