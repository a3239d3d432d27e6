package main

import "encoding/json"

// Client -> Server message types
const (
	MsgList     = "list"
	MsgCreate   = "create"
	MsgJoin     = "join"
	MsgLeave    = "leave"
	MsgCheck    = "check"
	MsgInput    = "input"
	MsgRegister = "register"
	MsgLogin    = "login"
	MsgAuth     = "auth" // resume with a saved token
	MsgProfile  = "profile"
	MsgBoard    = "board" // leaderboard request
)

// Server -> Client message types
const (
	MsgSessions = "sessions"
	MsgCreated  = "created"
	MsgJoined   = "joined"
	MsgWelcome  = "welcome"
	MsgChecked  = "checked"
	MsgKill     = "kill"
	MsgDeath    = "death"
	MsgAuthOK   = "auth_ok"
	MsgProfileD = "profile" // profile data response
	MsgBoardD   = "board"   // leaderboard response
	MsgError    = "error"
)

// Envelope wraps all outgoing JSON messages with a type field.
// State frames bypass this and go out as raw msgpack binary.
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope decodes incoming messages — json.RawMessage avoids a
// double unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// ClientInput carries one tick of control state
type ClientInput struct {
	Turn   float64 `json:"tu"` // -1..1, left/right
	Thrust bool    `json:"th"`
	Fire   bool    `json:"f"`
	Boost  bool    `json:"b"`
}

// CreateMsg asks the server to open a new session
type CreateMsg struct {
	Callsign    string `json:"cs"`
	SessionName string `json:"sname"`
}

// JoinMsg asks to join an existing session
type JoinMsg struct {
	Callsign  string `json:"cs"`
	SessionID string `json:"sid"`
}

// CheckMsg asks whether a session exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// CheckedMsg answers a session check
type CheckedMsg struct {
	SID    string `json:"sid"`
	Exists bool   `json:"exists"`
	Name   string `json:"name,omitempty"`
	Ships  int    `json:"ships,omitempty"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Callsign string `json:"cs"`
	Password string `json:"pw"`
}

// LoginMsg authenticates an account
type LoginMsg struct {
	Callsign string `json:"cs"`
	Password string `json:"pw"`
}

// AuthMsg resumes a session from a stored token
type AuthMsg struct {
	Token string `json:"tok"`
}

// AuthOKMsg confirms register/login/auth
type AuthOKMsg struct {
	PilotID  int64  `json:"pid"`
	Callsign string `json:"cs"`
	Token    string `json:"tok,omitempty"`
}

// BoardMsg requests the leaderboard
type BoardMsg struct {
	OrderBy string `json:"by"`
}

// ProfileData answers a profile request for the authenticated pilot
type ProfileData struct {
	Callsign  string  `json:"cs"`
	Level     int     `json:"level"`
	XP        int     `json:"xp"`
	Kills     int     `json:"kills"`
	Deaths    int     `json:"deaths"`
	Matches   int     `json:"matches"`
	BestScore int     `json:"best"`
	Playtime  float64 `json:"playtime"`
}

// WelcomeMsg tells a player their in-game ship id
type WelcomeMsg struct {
	ID string `json:"id"`
}

// KillMsg is broadcast to the session on any kill
type KillMsg struct {
	KillerID   string `json:"kid"`
	KillerName string `json:"kn"`
	VictimID   string `json:"vid"`
	VictimName string `json:"vn"`
}

// DeathMsg tells a player who got them
type DeathMsg struct {
	KillerID   string `json:"kid"`
	KillerName string `json:"kn"`
}

// SessionInfo is one row of the session list
type SessionInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Ships int    `json:"ships"`
}

// ErrorMsg reports a failure to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// State frame structs are broadcast as msgpack binary at BroadcastRate.
// Short keys keep frames small at 30Hz.

type ShipState struct {
	ID       string  `msgpack:"id"`
	Callsign string  `msgpack:"n"`
	X        float64 `msgpack:"x"`
	Y        float64 `msgpack:"y"`
	H        float64 `msgpack:"h"` // heading radians
	VX       float64 `msgpack:"vx"`
	VY       float64 `msgpack:"vy"`
	Hull     int     `msgpack:"hp"`
	MaxHull  int     `msgpack:"mhp"`
	Score    int     `msgpack:"sc"`
	Alive    bool    `msgpack:"a"`
	Boost    bool    `msgpack:"b"`
}

type BoltState struct {
	ID    string  `msgpack:"id"`
	X     float64 `msgpack:"x"`
	Y     float64 `msgpack:"y"`
	H     float64 `msgpack:"h"`
	Owner string  `msgpack:"o"`
}

type DebrisState struct {
	ID  string  `msgpack:"id"`
	X   float64 `msgpack:"x"`
	Y   float64 `msgpack:"y"`
	Rot float64 `msgpack:"rot"`
	R   float64 `msgpack:"r"` // radius varies per rock
}

type PowerCellState struct {
	ID string  `msgpack:"id"`
	X  float64 `msgpack:"x"`
	Y  float64 `msgpack:"y"`
}

type DroneState struct {
	ID      string  `msgpack:"id"`
	X       float64 `msgpack:"x"`
	Y       float64 `msgpack:"y"`
	H       float64 `msgpack:"h"`
	Hull    int     `msgpack:"hp"`
	MaxHull int     `msgpack:"mhp"`
	Alive   bool    `msgpack:"a"`
}

// Frame is the full session state broadcast
type Frame struct {
	Ships      []ShipState      `msgpack:"s"`
	Bolts      []BoltState      `msgpack:"bo"`
	Debris     []DebrisState    `msgpack:"d"`
	PowerCells []PowerCellState `msgpack:"pc"`
	Drones     []DroneState     `msgpack:"dr"`
	Tick       uint64           `msgpack:"t"`
}
