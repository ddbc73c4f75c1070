package main

import (
	"encoding/json"
	"log"
	"sync"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Bus is the channel abstraction the core broadcasts through: join/leave a
// named channel, emit to one connection, emit to every connection in a
// channel. Hub implements it over WebSocket clients; tests use a fake.
type Bus interface {
	Subscribe(connID, channel string)
	Unsubscribe(connID, channel string)
	EmitTo(connID string, env Envelope)
	EmitChannel(channel string, env Envelope)
	EmitChannelBinary(channel string, data []byte)
	// PlayerID returns the account id behind a connection, 0 for guests
	PlayerID(connID string) int64
}

// Hub manages all connected clients and the named broadcast channels
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*Client            // connID -> client
	channels     map[string]map[string]*Client // channel -> connID -> client
	connChannels map[string]map[string]bool    // connID -> channels joined

	register   chan *Client
	unregister chan *Client

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	loop *Loop
	orch *Orchestrator

	// Auth & DB
	db        *DB
	auth      *Auth
	analytics *Analytics
}

// NewHub creates a new Hub. The orchestrator is attached later because it
// needs the hub as its Bus.
func NewHub(loop *Loop, db *DB, analytics *Analytics) *Hub {
	return &Hub{
		clients:      make(map[string]*Client),
		channels:     make(map[string]map[string]*Client),
		connChannels: make(map[string]map[string]bool),
		register:     make(chan *Client, 64),
		unregister:   make(chan *Client, 64),
		ipConns:      make(map[string]int),
		loop:         loop,
		db:           db,
		auth:         NewAuth(db),
		analytics:    analytics,
	}
}

// SetOrchestrator attaches the room orchestrator
func (h *Hub) SetOrchestrator(o *Orchestrator) {
	h.orch = o
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.connID] = client
			h.mu.Unlock()
			client.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{ConnID: client.connID}})
			if h.analytics != nil {
				h.analytics.Track(EvtSessionStart, client.authPlayerID, client.connID, "")
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.connID]; ok {
				delete(h.clients, client.connID)
				for ch := range h.connChannels[client.connID] {
					delete(h.channels[ch], client.connID)
					if len(h.channels[ch]) == 0 {
						delete(h.channels, ch)
					}
				}
				delete(h.connChannels, client.connID)
				close(client.send)
			}
			h.mu.Unlock()
			if h.analytics != nil {
				h.analytics.Track(EvtSessionEnd, client.authPlayerID, client.connID, "")
			}
			// Room cleanup happens on the loop like every other mutation
			connID := client.connID
			h.loop.Post(func() { h.orch.HandleDisconnect(connID) })
		}
	}
}

// Subscribe joins a connection to a named channel
func (h *Hub) Subscribe(connID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[string]*Client)
	}
	h.channels[channel][connID] = client
	if h.connChannels[connID] == nil {
		h.connChannels[connID] = make(map[string]bool)
	}
	h.connChannels[connID][channel] = true
}

// Unsubscribe removes a connection from a named channel
func (h *Hub) Unsubscribe(connID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.channels[channel], connID)
	if len(h.channels[channel]) == 0 {
		delete(h.channels, channel)
	}
	delete(h.connChannels[connID], channel)
}

// EmitTo sends an event to one connection
func (h *Hub) EmitTo(connID string, env Envelope) {
	h.mu.RLock()
	client := h.clients[connID]
	h.mu.RUnlock()
	if client == nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	client.SendRaw(data)
}

// EmitChannel sends an event to every connection in a channel,
// marshaling once
func (h *Hub) EmitChannel(channel string, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.channels[channel] {
		client.SendRaw(data)
	}
}

// EmitChannelBinary sends pre-encoded bytes as a binary frame to every
// connection in a channel
func (h *Hub) EmitChannelBinary(channel string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.channels[channel] {
		client.SendBinary(data)
	}
}

// PlayerID returns the account id a connection authenticated as, or 0
func (h *Hub) PlayerID(connID string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.clients[connID]; ok {
		return client.authPlayerID
	}
	return 0
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
