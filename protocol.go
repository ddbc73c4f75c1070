package main

import "encoding/json"

// Client -> Server message types
const (
	MsgRequestRooms   = "requestRooms"
	MsgJoinRoom       = "joinRoom"
	MsgLeaveRoom      = "leaveRoom"
	MsgToggleReady    = "toggleReady"
	MsgPlayCard       = "playCard"
	MsgMove           = "move"
	MsgShoot          = "shoot"
	MsgRequestState   = "requestMatchState"
	MsgEndGame        = "endGame"
	MsgForceLeave     = "forceLeaveGame"
	MsgRegister       = "register"
	MsgLogin          = "login"
	MsgAuth           = "auth"
	MsgGetStats       = "getStats"
)

// Server -> Client message types
const (
	MsgWelcome         = "welcome"
	MsgRoomsList       = "roomsList"
	MsgActiveRoomCount = "activeRoomCount"
	MsgCountdownUpdate = "countdownUpdate"
	MsgMatchStarted    = "matchStarted"
	MsgMatchState      = "matchStateSnapshot"
	MsgBulletCreated   = "bulletCreated"
	MsgYourHand        = "yourHand"
	MsgMatchOver       = "matchOver"
	MsgMatchEnded      = "matchEnded"
	MsgAuthOK          = "authOK"
	MsgStats           = "stats"
	MsgError           = "error"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// WelcomeMsg tells a freshly connected client its connection id
type WelcomeMsg struct {
	ConnID string `json:"cid"`
}

// RoomsRequest asks for the lobby room list of one game type
type RoomsRequest struct {
	GameType GameType `json:"g"`
}

// JoinRoomMsg is sent when a player wants to take a seat in a lobby room
type JoinRoomMsg struct {
	GameType GameType `json:"g"`
	RoomID   string   `json:"rid"`
	Name     string   `json:"name"`
}

// RoomRefMsg addresses one room of one game type (leave, end, force-leave, state request)
type RoomRefMsg struct {
	GameType GameType `json:"g"`
	RoomID   string   `json:"rid"`
}

// ToggleReadyMsg flips a player's ready flag
type ToggleReadyMsg struct {
	GameType GameType `json:"g"`
	RoomID   string   `json:"rid"`
	Ready    bool     `json:"ready"`
}

// PlayCardMsg plays one card in a duel
type PlayCardMsg struct {
	GameType GameType `json:"g"`
	RoomID   string   `json:"rid"`
	Card     string   `json:"card"`
}

// MoveMsg moves an arena player one step in a compass direction
type MoveMsg struct {
	GameType  GameType `json:"g"`
	RoomID    string   `json:"rid"`
	Direction string   `json:"dir"`
}

// ShootMsg fires a bullet of the given charge kind
type ShootMsg struct {
	GameType GameType `json:"g"`
	RoomID   string   `json:"rid"`
	Kind     string   `json:"kind"`
	DirX     float64  `json:"dx"`
	DirY     float64  `json:"dy"`
}

// RoomInfo is one entry in a roomsList broadcast
type RoomInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max"`
	Ready      int    `json:"ready"`
}

// RoomsListMsg carries the lobby rooms of one game type
type RoomsListMsg struct {
	GameType GameType   `json:"g"`
	Rooms    []RoomInfo `json:"rooms"`
}

// RoomCountMsg reports how many rooms of a game type are in use
// (occupied lobby rooms plus running matches)
type RoomCountMsg struct {
	GameType GameType `json:"g"`
	Count    int      `json:"count"`
}

// CountdownMsg is broadcast once per second while a room is counting down
type CountdownMsg struct {
	RoomID           string `json:"rid"`
	SecondsRemaining int    `json:"s"`
}

// MatchStartedMsg announces the lobby→active transition
type MatchStartedMsg struct {
	RoomID string `json:"rid"`
}

// MatchEndedMsg is the orchestrator-level terminal event for a room
type MatchEndedMsg struct {
	RoomID string `json:"rid"`
	Winner string `json:"winner,omitempty"`
}

// MatchOverMsg is the engine-level end-of-game broadcast
type MatchOverMsg struct {
	Winner string `json:"winner,omitempty"`
}

// DuelPlayerState is broadcast per duel player
type DuelPlayerState struct {
	ID         string `json:"id"`
	Name       string `json:"n"`
	HandSize   int    `json:"hand"`
	Eliminated bool   `json:"out"`
}

// DuelSnapshot is the card duel matchStateSnapshot payload.
// LastPlayed lags the most recent play by one ply so the active round's
// resolution is not revealed early.
type DuelSnapshot struct {
	RoomID     string            `json:"rid"`
	Players    []DuelPlayerState `json:"p"`
	LastPlayed string            `json:"last,omitempty"`
	History    []string          `json:"hist,omitempty"`
	Turn       string            `json:"turn"`
	Winner     string            `json:"winner,omitempty"`
}

// HandMsg carries a duel player's private hand. Sent only to its owner.
type HandMsg struct {
	RoomID string   `json:"rid"`
	Cards  []string `json:"cards"`
}

// ArenaPlayerState is broadcast per arena player
type ArenaPlayerState struct {
	ID   string  `json:"id"`
	Name string  `json:"n"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Mass float64 `json:"m"`
}

// BulletState is broadcast per in-flight bullet
type BulletState struct {
	ID     string  `json:"id"`
	Owner  string  `json:"o"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"r"`
	Kind   string  `json:"k"`
}

// ArenaSnapshot is the arena matchStateSnapshot payload.
// Sent msgpack-encoded over a binary frame at broadcast rate.
type ArenaSnapshot struct {
	RoomID  string             `json:"rid"`
	Players []ArenaPlayerState `json:"p"`
	Bullets []BulletState      `json:"b"`
	Tick    uint64             `json:"tick"`
	Winner  string             `json:"winner,omitempty"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"u"`
	Password string `json:"pw"`
}

// LoginMsg authenticates with username/password
type LoginMsg struct {
	Username string `json:"u"`
	Password string `json:"pw"`
}

// AuthMsg authenticates with a previously issued token
type AuthMsg struct {
	Token string `json:"tok"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token    string `json:"tok"`
	Username string `json:"u"`
	PlayerID int64  `json:"pid"`
}

// StatEntry is one game type's career record
type StatEntry struct {
	GameType string `json:"g"`
	Wins     int    `json:"w"`
	Matches  int    `json:"m"`
}

// StatsMsg carries an authenticated player's career stats
type StatsMsg struct {
	Stats []StatEntry `json:"stats"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
