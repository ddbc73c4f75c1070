package main

import "time"

// BulletKind defines the speed, size and range of one charge level
type BulletKind struct {
	Speed  float64 // pixels/s
	Radius float64
	Range  float64 // max travel distance before the bullet is culled
}

// ArenaConfig holds tunables for the arena simulation
type ArenaConfig struct {
	WorldWidth  float64
	WorldHeight float64
	TickRate    int     // simulation ticks per second
	MoveStep    float64 // pixels per move action
	InitialMass float64
	Kinds       map[string]BulletKind
}

// LobbyConfig holds tunables shared by all game types
type LobbyConfig struct {
	CountdownSeconds  int
	CountdownInterval time.Duration
	MaxPlayers        map[GameType]int
}

// DefaultArenaConfig returns the standard arena settings
func DefaultArenaConfig() ArenaConfig {
	return ArenaConfig{
		WorldWidth:  1000,
		WorldHeight: 1000,
		TickRate:    30,
		MoveStep:    4,
		InitialMass: 20,
		Kinds: map[string]BulletKind{
			"light": {Speed: 600, Radius: 4, Range: 1e9},
			"heavy": {Speed: 350, Radius: 9, Range: 1e9},
		},
	}
}

// DefaultLobbyConfig returns the standard lobby settings
func DefaultLobbyConfig() LobbyConfig {
	return LobbyConfig{
		CountdownSeconds:  10,
		CountdownInterval: time.Second,
		MaxPlayers: map[GameType]int{
			GameCardDuel: 2,
			GameArena:    4,
		},
	}
}

// TickDuration returns the interval between simulation ticks
func (c ArenaConfig) TickDuration() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}
