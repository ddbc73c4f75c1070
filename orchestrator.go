package main

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"
)

const maxNameLen = 16

// GameEntry is the per-game-type room bookkeeping. A room id is unique
// within a game type and moves from Lobby to Active exactly once.
type GameEntry struct {
	Lobby  map[string]*Room
	Active map[string]*Room
}

// Orchestrator owns all rooms for all game types. It enforces the
// single-empty-lobby invariant, runs countdowns, performs the
// lobby→active transition and delegates running matches to the engine
// registry. Every method must be called from the event loop; the
// orchestrator holds no locks.
type Orchestrator struct {
	loop     *Loop
	bus      Bus
	cfg      LobbyConfig
	registry *MatchRegistry
	games    map[GameType]*GameEntry
	roomSeq  uint64

	db        *DB
	analytics *Analytics
}

// NewOrchestrator creates the orchestrator. Lobby rooms are created
// lazily on the first room-list request per game type.
func NewOrchestrator(loop *Loop, bus Bus, cfg LobbyConfig, registry *MatchRegistry, db *DB, analytics *Analytics) *Orchestrator {
	o := &Orchestrator{
		loop:      loop,
		bus:       bus,
		cfg:       cfg,
		registry:  registry,
		games:     make(map[GameType]*GameEntry),
		db:        db,
		analytics: analytics,
	}
	for _, t := range GameTypes {
		o.games[t] = &GameEntry{
			Lobby:  make(map[string]*Room),
			Active: make(map[string]*Room),
		}
	}
	return o
}

func (o *Orchestrator) entry(t GameType) (*GameEntry, error) {
	e, ok := o.games[t]
	if !ok {
		return nil, fmt.Errorf("unknown game type %q", t)
	}
	return e, nil
}

func lobbyChannel(t GameType) string {
	return fmt.Sprintf("%s-lobby", t)
}

// RequestRooms subscribes a connection to the lobby feed of a game type
// and sends it the current room list
func (o *Orchestrator) RequestRooms(t GameType, connID string) error {
	e, err := o.entry(t)
	if err != nil {
		return err
	}
	o.ensureSingleEmptyRoom(t, e)
	o.bus.Subscribe(connID, lobbyChannel(t))
	o.bus.EmitTo(connID, Envelope{T: MsgRoomsList, Data: o.roomsList(t, e)})
	return nil
}

// JoinRoom seats a connection in a lobby room. No-op if the room is
// absent; idempotent if the connection already occupies it.
func (o *Orchestrator) JoinRoom(t GameType, roomID, connID, name string) {
	e, err := o.entry(t)
	if err != nil {
		log.Printf("joinRoom: %v", err)
		return
	}
	room, ok := e.Lobby[roomID]
	if !ok {
		return
	}
	if room.FindPlayer(connID) == nil {
		if len(room.Players) >= room.MaxPlayers {
			return
		}
		if name == "" {
			name = "Player"
		}
		// Truncate on rune boundaries so multibyte names stay valid UTF-8
		if runes := []rune(name); len(runes) > maxNameLen {
			name = string(runes[:maxNameLen])
		}
		room.Players = append(room.Players, &Player{ConnID: connID, Name: name})
		o.bus.Subscribe(connID, room.Channel())
		// Population changed while counting: restart the gate
		o.cancelCountdown(room)
		if len(room.Players) == 1 {
			o.ensureSingleEmptyRoom(t, e)
		}
	}
	o.broadcastRooms(t, e)
}

// LeaveRoom removes a connection from a lobby room
func (o *Orchestrator) LeaveRoom(t GameType, roomID, connID string) {
	e, err := o.entry(t)
	if err != nil {
		log.Printf("leaveRoom: %v", err)
		return
	}
	room, ok := e.Lobby[roomID]
	if !ok {
		return
	}
	if !room.RemoveSeat(connID) {
		return
	}
	o.bus.Unsubscribe(connID, room.Channel())
	o.cancelCountdown(room)
	if len(room.Players) == 0 {
		// Deletes the newly emptied duplicate, never the last empty room
		o.ensureSingleEmptyRoom(t, e)
	}
	o.broadcastRooms(t, e)
}

// ToggleReady sets a player's ready flag and starts the countdown once
// every seated player is ready. Toggles are ignored while a countdown is
// already running.
func (o *Orchestrator) ToggleReady(t GameType, roomID, connID string, ready bool) {
	e, err := o.entry(t)
	if err != nil {
		log.Printf("toggleReady: %v", err)
		return
	}
	room, ok := e.Lobby[roomID]
	if !ok {
		return
	}
	p := room.FindPlayer(connID)
	if p == nil {
		return
	}
	if room.Countdown != nil {
		return
	}
	p.Ready = ready
	if room.AllReady() {
		o.startCountdown(room)
	}
	o.broadcastRooms(t, e)
}

// HandleAction routes an in-match action to the owning engine
func (o *Orchestrator) HandleAction(t GameType, roomID, connID, action string, data json.RawMessage) error {
	e, err := o.entry(t)
	if err != nil {
		return err
	}
	room, ok := e.Active[roomID]
	if !ok {
		return nil
	}
	engine, err := o.registry.Engine(t)
	if err != nil {
		return err
	}
	engine.HandleAction(room, connID, action, data)
	return nil
}

// RequestMatchState rebroadcasts the current snapshot of a running match
func (o *Orchestrator) RequestMatchState(t GameType, roomID string) error {
	e, err := o.entry(t)
	if err != nil {
		return err
	}
	room, ok := e.Active[roomID]
	if !ok {
		return nil
	}
	engine, err := o.registry.Engine(t)
	if err != nil {
		return err
	}
	engine.BroadcastState(room)
	return nil
}

// EndGame ends a running match at a participant's request
func (o *Orchestrator) EndGame(t GameType, roomID, connID string) error {
	e, err := o.entry(t)
	if err != nil {
		return err
	}
	room, ok := e.Active[roomID]
	if !ok || room.FindPlayer(connID) == nil {
		return nil
	}
	engine, err := o.registry.Engine(t)
	if err != nil {
		return err
	}
	engine.End(room)
	return nil
}

// ForceLeave removes a connection from one room, lobby or active
func (o *Orchestrator) ForceLeave(t GameType, roomID, connID string) {
	e, err := o.entry(t)
	if err != nil {
		log.Printf("forceLeave: %v", err)
		return
	}
	if _, ok := e.Lobby[roomID]; ok {
		o.LeaveRoom(t, roomID, connID)
		return
	}
	if room, ok := e.Active[roomID]; ok && room.FindPlayer(connID) != nil {
		engine, err := o.registry.Engine(t)
		if err != nil {
			log.Printf("forceLeave: %v", err)
			return
		}
		engine.RemovePlayer(room, connID)
		o.bus.Unsubscribe(connID, room.Channel())
	}
}

// HandleDisconnect applies leave semantics across every room the
// connection might occupy. Safe to invoke multiple times for the same
// connection.
func (o *Orchestrator) HandleDisconnect(connID string) {
	for _, t := range GameTypes {
		e := o.games[t]
		for id, room := range e.Lobby {
			if room.FindPlayer(connID) != nil {
				o.LeaveRoom(t, id, connID)
			}
		}
		for _, room := range e.Active {
			if room.FindPlayer(connID) != nil {
				engine, err := o.registry.Engine(t)
				if err != nil {
					log.Printf("disconnect: %v", err)
					continue
				}
				engine.RemovePlayer(room, connID)
			}
		}
	}
}

// MatchEnded implements EngineHost: the engine's end routine removes the
// room from active bookkeeping exactly once
func (o *Orchestrator) MatchEnded(r *Room, winner string) {
	e, err := o.entry(r.Type)
	if err != nil {
		log.Printf("matchEnded: %v", err)
		return
	}
	if _, ok := e.Active[r.ID]; !ok {
		return
	}
	delete(e.Active, r.ID)
	o.bus.EmitChannel(r.Channel(), Envelope{T: MsgMatchEnded, Data: MatchEndedMsg{RoomID: r.ID, Winner: winner}})
	for _, p := range r.Players {
		o.bus.Unsubscribe(p.ConnID, r.Channel())
	}
	if o.db != nil {
		duration := time.Since(r.StartedAt).Seconds()
		if err := o.db.RecordMatch(string(r.Type), r.ID, winner, duration); err != nil {
			log.Printf("record match: %v", err)
		}
		// Career stats for anyone playing on an account
		for _, p := range r.Players {
			pid := o.bus.PlayerID(p.ConnID)
			if pid == 0 {
				continue
			}
			if err := o.db.RecordResult(pid, string(r.Type), p.ConnID == winner); err != nil {
				log.Printf("record result: %v", err)
			}
		}
	}
	if o.analytics != nil {
		o.analytics.Track(EvtMatchEnd, 0, r.ID, winner)
	}
	o.broadcastRooms(r.Type, e)
}

// PlayerEliminated implements EngineHost: knockouts are telemetry only
func (o *Orchestrator) PlayerEliminated(r *Room, connID string) {
	if o.analytics != nil {
		o.analytics.Track(EvtPlayerEliminated, o.bus.PlayerID(connID), r.ID, connID)
	}
}

// ensureSingleEmptyRoom recomputes the zero-player lobby rooms for a game
// type, deleting all but the oldest and creating a fresh room if none
// exist. Broadcasts an updated room-count event on every deletion.
func (o *Orchestrator) ensureSingleEmptyRoom(t GameType, e *GameEntry) {
	var empty []*Room
	for _, room := range e.Lobby {
		if len(room.Players) == 0 {
			empty = append(empty, room)
		}
	}
	if len(empty) == 0 {
		o.createRoom(t, e)
		return
	}
	sort.Slice(empty, func(i, j int) bool { return empty[i].Seq < empty[j].Seq })
	for _, room := range empty[1:] {
		delete(e.Lobby, room.ID)
		o.bus.EmitChannel(lobbyChannel(t), Envelope{T: MsgActiveRoomCount, Data: RoomCountMsg{
			GameType: t,
			Count:    o.roomsInUse(e),
		}})
	}
}

func (o *Orchestrator) createRoom(t GameType, e *GameEntry) *Room {
	o.roomSeq++
	id := GenerateID(4)
	room := &Room{
		ID:         id,
		Name:       fmt.Sprintf("Room-%s", id[:4]),
		Type:       t,
		MaxPlayers: o.cfg.MaxPlayers[t],
		Seq:        o.roomSeq,
	}
	e.Lobby[id] = room
	if o.analytics != nil {
		o.analytics.Track(EvtRoomCreated, 0, id, string(t))
	}
	return room
}

// roomsInUse counts occupied lobby rooms plus running matches
func (o *Orchestrator) roomsInUse(e *GameEntry) int {
	n := len(e.Active)
	for _, room := range e.Lobby {
		if len(room.Players) > 0 {
			n++
		}
	}
	return n
}

func (o *Orchestrator) roomsList(t GameType, e *GameEntry) RoomsListMsg {
	rooms := make([]*Room, 0, len(e.Lobby))
	for _, room := range e.Lobby {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Seq < rooms[j].Seq })
	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.Info())
	}
	return RoomsListMsg{GameType: t, Rooms: infos}
}

func (o *Orchestrator) broadcastRooms(t GameType, e *GameEntry) {
	o.bus.EmitChannel(lobbyChannel(t), Envelope{T: MsgRoomsList, Data: o.roomsList(t, e)})
}

// startCountdown begins the lobby→active gate for a room, cancelling any
// stale timer so it cannot double-fire
func (o *Orchestrator) startCountdown(room *Room) {
	o.cancelCountdown(room)
	cd := &Countdown{Remaining: o.cfg.CountdownSeconds}
	room.Countdown = cd
	o.bus.EmitChannel(room.Channel(), Envelope{T: MsgCountdownUpdate, Data: CountdownMsg{
		RoomID:           room.ID,
		SecondsRemaining: cd.Remaining,
	}})
	cd.Timer = o.loop.Every(o.cfg.CountdownInterval, func() { o.countdownTick(room) })
}

func (o *Orchestrator) cancelCountdown(room *Room) {
	if room.Countdown == nil {
		return
	}
	room.Countdown.Timer.Stop()
	room.Countdown = nil
}

// countdownTick decrements the gate once per second and activates the
// room when it reaches zero
func (o *Orchestrator) countdownTick(room *Room) {
	cd := room.Countdown
	if cd == nil || room.Active {
		return
	}
	cd.Remaining--
	o.bus.EmitChannel(room.Channel(), Envelope{T: MsgCountdownUpdate, Data: CountdownMsg{
		RoomID:           room.ID,
		SecondsRemaining: cd.Remaining,
	}})
	if cd.Remaining <= 0 {
		cd.Timer.Stop()
		room.Countdown = nil
		if err := o.activateRoom(room); err != nil {
			log.Printf("activate room %s: %v", room.ID, err)
		}
	}
}

// activateRoom moves a room from the lobby registry to the active
// registry, starts its engine and broadcasts the initial match state.
// On an engine-registry failure the room is left in its last consistent
// (lobby) state.
func (o *Orchestrator) activateRoom(room *Room) error {
	e, err := o.entry(room.Type)
	if err != nil {
		return err
	}
	engine, err := o.registry.Engine(room.Type)
	if err != nil {
		return err
	}
	delete(e.Lobby, room.ID)
	e.Active[room.ID] = room
	room.Active = true
	room.StartedAt = time.Now()
	engine.Start(room)
	o.bus.EmitChannel(room.Channel(), Envelope{T: MsgMatchStarted, Data: MatchStartedMsg{RoomID: room.ID}})
	engine.BroadcastState(room)
	if o.analytics != nil {
		o.analytics.Track(EvtMatchStart, 0, room.ID, string(room.Type))
	}
	o.ensureSingleEmptyRoom(room.Type, e)
	o.broadcastRooms(room.Type, e)
	return nil
}
