package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	connID     string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	// Auth state
	authPlayerID int64  // 0 = unauthenticated/guest
	authUsername string // "" = unauthenticated
}

// NewClient creates a new Client with a fresh connection id
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		connID:     GenerateID(8),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
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
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
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
			// Binary marker (0xFF prefix from SendBinary)
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

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage decodes one inbound event and posts it onto the event
// loop. Malformed payloads are dropped without state mutation.
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	loop := c.hub.loop
	orch := c.hub.orch
	connID := c.connID

	switch env.T {
	case MsgRequestRooms:
		var msg RoomsRequest
		if err := json.Unmarshal(env.D, &msg); err != nil {
			return
		}
		loop.Post(func() {
			if err := orch.RequestRooms(msg.GameType, connID); err != nil {
				log.Printf("requestRooms: %v", err)
			}
		})

	case MsgJoinRoom:
		var msg JoinRoomMsg
		if err := json.Unmarshal(env.D, &msg); err != nil {
			return
		}
		loop.Post(func() { orch.JoinRoom(msg.GameType, msg.RoomID, connID, msg.Name) })

	case MsgLeaveRoom:
		var msg RoomRefMsg
		if err := json.Unmarshal(env.D, &msg); err != nil {
			return
		}
		loop.Post(func() { orch.LeaveRoom(msg.GameType, msg.RoomID, connID) })

	case MsgToggleReady:
		var msg ToggleReadyMsg
		if err := json.Unmarshal(env.D, &msg); err != nil {
			return
		}
		loop.Post(func() { orch.ToggleReady(msg.GameType, msg.RoomID, connID, msg.Ready) })

	case MsgPlayCard, MsgMove, MsgShoot:
		var ref RoomRefMsg
		if err := json.Unmarshal(env.D, &ref); err != nil {
			return
		}
		action := env.T
		data := env.D
		loop.Post(func() {
			if err := orch.HandleAction(ref.GameType, ref.RoomID, connID, action, data); err != nil {
				log.Printf("action %s: %v", action, err)
			}
		})

	case MsgRequestState:
		var msg RoomRefMsg
		if err := json.Unmarshal(env.D, &msg); err != nil {
			return
		}
		loop.Post(func() {
			if err := orch.RequestMatchState(msg.GameType, msg.RoomID); err != nil {
				log.Printf("requestMatchState: %v", err)
			}
		})

	case MsgEndGame:
		var msg RoomRefMsg
		if err := json.Unmarshal(env.D, &msg); err != nil {
			return
		}
		loop.Post(func() {
			if err := orch.EndGame(msg.GameType, msg.RoomID, connID); err != nil {
				log.Printf("endGame: %v", err)
			}
		})

	case MsgForceLeave:
		var msg RoomRefMsg
		if err := json.Unmarshal(env.D, &msg); err != nil {
			return
		}
		loop.Post(func() { orch.ForceLeave(msg.GameType, msg.RoomID, connID) })

	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgGetStats:
		c.handleGetStats()
	}
}

func (c *Client) handleGetStats() {
	if c.hub.db == nil {
		return
	}
	if c.authPlayerID == 0 {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "not authenticated"}})
		return
	}
	rows, err := c.hub.db.GetStats(c.authPlayerID)
	if err != nil {
		log.Printf("get stats: %v", err)
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "stats unavailable"}})
		return
	}
	msg := StatsMsg{Stats: make([]StatEntry, 0, len(rows))}
	for _, row := range rows {
		msg.Stats = append(msg.Stats, StatEntry{GameType: row.GameType, Wins: row.Wins, Matches: row.Matches})
	}
	c.SendJSON(Envelope{T: MsgStats, Data: msg})
}

func (c *Client) handleRegister(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.authPlayerID = id
	c.authUsername = msg.Username
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: msg.Username, PlayerID: id}})
}

func (c *Client) handleLogin(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.authPlayerID = id
	c.authUsername = msg.Username
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: msg.Username, PlayerID: id}})
}

func (c *Client) handleAuth(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "invalid token"}})
		return
	}
	c.authPlayerID = id
	c.authUsername = username
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: msg.Token, Username: username, PlayerID: id}})
}
