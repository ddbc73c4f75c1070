package main

import (
	"fmt"
	"time"
)

// GameType selects the engine and per-player schema for a room
type GameType string

const (
	GameCardDuel GameType = "cardduel"
	GameArena    GameType = "arena"
)

// GameTypes lists every supported game type
var GameTypes = []GameType{GameCardDuel, GameArena}

// Card is a rank token from a fixed 13-value ordered set (no suits)
type Card string

// DeckRanks is the full deck in ascending order. Aces are low.
var DeckRanks = []Card{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

var rankValue = func() map[Card]int {
	m := make(map[Card]int, len(DeckRanks))
	for i, c := range DeckRanks {
		m[c] = i
	}
	return m
}()

// RankValue returns the total-order position of a rank, or -1 if unknown
func RankValue(c Card) int {
	v, ok := rankValue[c]
	if !ok {
		return -1
	}
	return v
}

// Player is one seat in a room. Lobby fields are always valid; the duel
// and arena fields are populated by the owning engine at match start.
type Player struct {
	ConnID string
	Name   string
	Ready  bool

	// In-match
	Eliminated bool
	Hand       []Card // card duel
	X, Y       float64
	Mass       float64
	LastDir    string
}

// DuelState is the engine state of a running card duel
type DuelState struct {
	Turn    int    // index into Room.Players
	History []Card // played cards, most recent last
	Winner  string // connection id, "" = none
	Ended   bool
}

// ArenaState is the engine state of a running arena match
type ArenaState struct {
	Index   *SpatialGrid
	Pool    *BulletPool
	Bullets []*Bullet
	Alive   map[string]*Player // connID -> player
	Ticker  *LoopTimer
	Tick    uint64
	Winner  string
	Ended   bool
}

// Countdown gates the lobby→active transition for one room
type Countdown struct {
	Remaining int
	Timer     *LoopTimer
}

// Room holds the players and, once the match starts, the engine state for
// one game. A room belongs to exactly one game type and moves from the
// lobby registry to the active registry exactly once.
type Room struct {
	ID         string
	Name       string
	Type       GameType
	MaxPlayers int
	Players    []*Player // seating order drives duel turn rotation
	Active     bool
	Countdown  *Countdown // non-nil while counting
	Seq        uint64     // creation order, used to keep the oldest empty room
	StartedAt  time.Time  // set at the lobby→active transition

	Duel  *DuelState
	Arena *ArenaState
}

// Channel returns the pub/sub channel name for this room
func (r *Room) Channel() string {
	return fmt.Sprintf("%s-%s", r.Type, r.ID)
}

// FindPlayer returns the seat for a connection, or nil
func (r *Room) FindPlayer(connID string) *Player {
	for _, p := range r.Players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// RemoveSeat removes a player from the seating order, preserving order.
// Returns true if the player was seated.
func (r *Room) RemoveSeat(connID string) bool {
	for i, p := range r.Players {
		if p.ConnID == connID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

// AllReady reports whether every seated player is ready
func (r *Room) AllReady() bool {
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	return len(r.Players) > 0
}

// Info converts to the protocol room listing entry
func (r *Room) Info() RoomInfo {
	ready := 0
	for _, p := range r.Players {
		if p.Ready {
			ready++
		}
	}
	return RoomInfo{
		ID:         r.ID,
		Name:       r.Name,
		Players:    len(r.Players),
		MaxPlayers: r.MaxPlayers,
		Ready:      ready,
	}
}
