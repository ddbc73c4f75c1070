package main

import (
	"encoding/json"
	"fmt"
)

// Engine is the capability set every game engine implements. The
// orchestrator never branches on game type; it dispatches through the
// registry. All methods run on the event loop.
type Engine interface {
	// Start initializes engine state for a room whose countdown just elapsed
	Start(r *Room)
	// HandleAction processes one in-match client action
	HandleAction(r *Room, connID, action string, data json.RawMessage)
	// BroadcastState pushes a full snapshot to the room channel
	BroadcastState(r *Room)
	// RemovePlayer handles a disconnect or force-leave during a match,
	// including win-condition re-evaluation
	RemovePlayer(r *Room, connID string)
	// End tears the match down. Must be idempotent: disconnect handling
	// and win detection can both end the same room in the same tick.
	End(r *Room)
}

// EngineHost is the orchestrator surface engines call back into
type EngineHost interface {
	// MatchEnded removes the room from active bookkeeping, emits the
	// terminal matchEnded event and rebroadcasts the room list
	MatchEnded(r *Room, winner string)
	// PlayerEliminated reports a knockout for telemetry
	PlayerEliminated(r *Room, connID string)
}

// MatchRegistry maps a game type to its engine implementation
type MatchRegistry struct {
	engines map[GameType]Engine
}

// NewMatchRegistry creates an empty registry
func NewMatchRegistry() *MatchRegistry {
	return &MatchRegistry{engines: make(map[GameType]Engine)}
}

// Register binds an engine to a game type
func (mr *MatchRegistry) Register(t GameType, e Engine) {
	mr.engines[t] = e
}

// Engine returns the engine for a game type. An unknown type is an
// internal invariant violation surfaced to the orchestrator boundary.
func (mr *MatchRegistry) Engine(t GameType) (Engine, error) {
	e, ok := mr.engines[t]
	if !ok {
		return nil, fmt.Errorf("no engine registered for game type %q", t)
	}
	return e, nil
}
