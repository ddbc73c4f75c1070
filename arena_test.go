package main

import (
	"encoding/json"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func testArenaConfig() ArenaConfig {
	return ArenaConfig{
		WorldWidth:  400,
		WorldHeight: 400,
		TickRate:    30,
		MoveStep:    4,
		InitialMass: 10,
		Kinds: map[string]BulletKind{
			"light": {Speed: 300, Radius: 4, Range: 1e9},
			"short": {Speed: 300, Radius: 4, Range: 20},
		},
	}
}

func newArenaFixture(n int) (*ArenaEngine, *Room, *fakeBus, *fakeHost) {
	bus := newFakeBus()
	host := &fakeHost{}
	a := NewArenaEngine(bus, host, NewLoop(), testArenaConfig())
	r := &Room{ID: "a1", Type: GameArena, MaxPlayers: 4, Active: true}
	names := []string{"Alice", "Bob", "Cara", "Dan"}
	for i := 0; i < n; i++ {
		r.Players = append(r.Players, &Player{ConnID: names[i][:1] + "1", Name: names[i]})
	}
	a.Start(r)
	return a, r, bus, host
}

// placePlayer repositions a player, keeping the spatial index consistent
func placePlayer(r *Room, p *Player, x, y float64) {
	s := r.Arena
	s.Index.Remove(p.ConnID, playerBox(p))
	p.X, p.Y = x, y
	s.Index.Insert(p.ConnID, playerBox(p))
}

func TestArenaStartSpawnsInBounds(t *testing.T) {
	a, r, _, _ := newArenaFixture(3)
	defer a.End(r)

	if len(r.Arena.Alive) != 3 {
		t.Fatalf("expected 3 alive, got %d", len(r.Arena.Alive))
	}
	for _, p := range r.Players {
		if p.X < 0 || p.X > 400 || p.Y < 0 || p.Y > 400 {
			t.Errorf("player %s spawned out of bounds at (%f,%f)", p.ConnID, p.X, p.Y)
		}
		if p.Mass != 10 {
			t.Errorf("expected initial mass 10, got %f", p.Mass)
		}
	}
}

func TestArenaMoveClampsToBounds(t *testing.T) {
	a, r, _, _ := newArenaFixture(2)
	defer a.End(r)
	p := r.Players[0]

	for i := 0; i < 200; i++ {
		a.move(r, p.ConnID, "w")
	}

	if p.X != p.Mass {
		t.Errorf("expected X clamped to %f, got %f", p.Mass, p.X)
	}
	if p.LastDir != "w" {
		t.Errorf("expected last dir w, got %q", p.LastDir)
	}
}

func TestArenaMoveInvalidDirectionIgnored(t *testing.T) {
	a, r, _, _ := newArenaFixture(2)
	defer a.End(r)
	p := r.Players[0]
	x, y := p.X, p.Y

	a.move(r, p.ConnID, "up")

	if p.X != x || p.Y != y {
		t.Error("invalid direction should not move the player")
	}
}

func TestArenaMoveUpdatesIndex(t *testing.T) {
	a, r, _, _ := newArenaFixture(2)
	defer a.End(r)
	p := r.Players[0]
	placePlayer(r, p, 200, 200)

	a.move(r, p.ConnID, "e")

	ids := r.Arena.Index.Query(playerBox(p))
	found := false
	for _, id := range ids {
		if id == p.ConnID {
			found = true
		}
	}
	if !found {
		t.Error("index should track the player's new position")
	}
	if p.X != 204 {
		t.Errorf("expected X=204, got %f", p.X)
	}
}

func TestArenaShootValidation(t *testing.T) {
	a, r, _, _ := newArenaFixture(2)
	defer a.End(r)
	p := r.Players[0]

	a.shoot(r, p.ConnID, "plasma", 1, 0)
	if len(r.Arena.Bullets) != 0 {
		t.Error("unknown kind should not spawn a bullet")
	}

	a.shoot(r, p.ConnID, "light", 0, 0)
	if len(r.Arena.Bullets) != 0 {
		t.Error("zero aim vector should not spawn a bullet")
	}

	a.shoot(r, "ghost", "light", 1, 0)
	if len(r.Arena.Bullets) != 0 {
		t.Error("unknown shooter should not spawn a bullet")
	}
}

func TestArenaShootCreatesBullet(t *testing.T) {
	a, r, bus, _ := newArenaFixture(2)
	defer a.End(r)
	p := r.Players[0]

	a.shoot(r, p.ConnID, "light", 3, 4)

	if len(r.Arena.Bullets) != 1 {
		t.Fatalf("expected 1 bullet, got %d", len(r.Arena.Bullets))
	}
	b := r.Arena.Bullets[0]
	if b.Owner != p.ConnID {
		t.Errorf("expected owner %s, got %s", p.ConnID, b.Owner)
	}
	// Velocity normalized to the kind's speed
	speed := Distance(0, 0, b.VX, b.VY)
	if speed < 299.9 || speed > 300.1 {
		t.Errorf("expected speed 300, got %f", speed)
	}

	created := bus.eventsOf(MsgBulletCreated)
	if len(created) != 1 {
		t.Fatalf("expected one bulletCreated event, got %d", len(created))
	}
}

func TestArenaBulletHitEliminatesAndWins(t *testing.T) {
	a, r, bus, host := newArenaFixture(2)
	p1, p2 := r.Players[0], r.Players[1]
	placePlayer(r, p1, 100, 200)
	placePlayer(r, p2, 300, 200)

	a.shoot(r, p1.ConnID, "light", 1, 0)

	for i := 0; i < 100 && !r.Arena.Ended; i++ {
		a.Tick(r)
	}

	if !p2.Eliminated {
		t.Fatal("expected the target to be eliminated")
	}
	if r.Arena.Winner != p1.ConnID {
		t.Errorf("expected winner %s, got %q", p1.ConnID, r.Arena.Winner)
	}
	if !r.Arena.Ended {
		t.Error("match should have ended")
	}
	if host.ended != 1 {
		t.Errorf("expected exactly one MatchEnded, got %d", host.ended)
	}

	overs := bus.eventsOf(MsgMatchOver)
	if len(overs) != 1 {
		t.Fatalf("expected exactly one matchOver, got %d", len(overs))
	}
	if overs[0].Env.Data.(MatchOverMsg).Winner != p1.ConnID {
		t.Error("matchOver should carry the winner")
	}
}

func TestArenaSelfHitIgnored(t *testing.T) {
	a, r, _, _ := newArenaFixture(2)
	defer a.End(r)
	p1, p2 := r.Players[0], r.Players[1]
	placePlayer(r, p1, 200, 200)
	placePlayer(r, p2, 200, 380)

	// The bullet spawns inside the shooter's own circle
	a.shoot(r, p1.ConnID, "light", 1, 0)
	a.Tick(r)

	if p1.Eliminated {
		t.Error("a bullet must not hit its own shooter")
	}
}

func TestArenaBulletRangeCull(t *testing.T) {
	a, r, _, _ := newArenaFixture(2)
	defer a.End(r)
	p1, p2 := r.Players[0], r.Players[1]
	placePlayer(r, p1, 100, 100)
	placePlayer(r, p2, 300, 300)

	a.shoot(r, p1.ConnID, "short", 1, 0)

	for i := 0; i < 10; i++ {
		a.Tick(r)
	}

	if len(r.Arena.Bullets) != 0 {
		t.Errorf("expected bullet culled at range, got %d in flight", len(r.Arena.Bullets))
	}
	if r.Arena.Pool.FreeCount() != 1 {
		t.Errorf("expected culled bullet recycled, pool has %d", r.Arena.Pool.FreeCount())
	}
	if p2.Eliminated {
		t.Error("nobody should be eliminated")
	}
}

func TestArenaSnapshotEncoding(t *testing.T) {
	a, r, bus, _ := newArenaFixture(2)
	defer a.End(r)
	placePlayer(r, r.Players[0], 100, 100)
	placePlayer(r, r.Players[1], 300, 300)

	a.shoot(r, r.Players[0].ConnID, "light", 0, 1)
	a.Tick(r)

	if len(bus.binary) == 0 {
		t.Fatal("expected a binary snapshot broadcast")
	}
	var snap ArenaSnapshot
	if err := msgpack.Unmarshal(bus.binary[len(bus.binary)-1], &snap); err != nil {
		t.Fatalf("msgpack unmarshal: %v", err)
	}
	if snap.RoomID != "a1" {
		t.Errorf("expected room a1, got %q", snap.RoomID)
	}
	if len(snap.Players) != 2 {
		t.Errorf("expected 2 players in snapshot, got %d", len(snap.Players))
	}
	if len(snap.Bullets) != 1 {
		t.Errorf("expected 1 bullet in snapshot, got %d", len(snap.Bullets))
	}
	if snap.Tick == 0 {
		t.Error("expected a nonzero tick")
	}
}

func TestArenaRemovePlayerWinCondition(t *testing.T) {
	a, r, _, host := newArenaFixture(3)
	p1, p2, p3 := r.Players[0], r.Players[1], r.Players[2]

	a.RemovePlayer(r, p1.ConnID)
	if r.Arena.Ended {
		t.Fatal("two players left, match should continue")
	}

	a.RemovePlayer(r, p2.ConnID)
	if !r.Arena.Ended {
		t.Fatal("one player left, match should end")
	}
	if r.Arena.Winner != p3.ConnID {
		t.Errorf("expected winner %s, got %q", p3.ConnID, r.Arena.Winner)
	}
	if host.ended != 1 {
		t.Errorf("expected exactly one MatchEnded, got %d", host.ended)
	}
}

func TestArenaAllPlayersGoneEndsWithoutWinner(t *testing.T) {
	a, r, _, host := newArenaFixture(1)

	a.RemovePlayer(r, r.Players[0].ConnID)

	if !r.Arena.Ended {
		t.Fatal("empty room should end the match")
	}
	if r.Arena.Winner != "" {
		t.Errorf("expected no winner, got %q", r.Arena.Winner)
	}
	if host.ended != 1 {
		t.Errorf("expected exactly one MatchEnded, got %d", host.ended)
	}
}

func TestArenaEndIdempotent(t *testing.T) {
	a, r, _, host := newArenaFixture(2)
	a.shoot(r, r.Players[0].ConnID, "light", 1, 0)

	a.End(r)
	a.End(r)
	a.Tick(r)

	if host.ended != 1 {
		t.Errorf("expected exactly one MatchEnded, got %d", host.ended)
	}
	if r.Arena.Pool.FreeCount() != 1 {
		t.Errorf("expected in-flight bullets recycled, pool has %d", r.Arena.Pool.FreeCount())
	}
	if r.Arena.Tick != 0 {
		t.Error("ticks after end must be ignored")
	}
}

func TestArenaHandleActionJSON(t *testing.T) {
	a, r, _, _ := newArenaFixture(2)
	defer a.End(r)
	p := r.Players[0]
	placePlayer(r, p, 200, 200)

	raw, _ := json.Marshal(MoveMsg{GameType: GameArena, RoomID: "a1", Direction: "s"})
	a.HandleAction(r, p.ConnID, MsgMove, raw)
	if p.Y != 204 {
		t.Errorf("expected Y=204 after move south, got %f", p.Y)
	}

	raw, _ = json.Marshal(ShootMsg{GameType: GameArena, RoomID: "a1", Kind: "light", DirX: 1, DirY: 0})
	a.HandleAction(r, p.ConnID, MsgShoot, raw)
	if len(r.Arena.Bullets) != 1 {
		t.Errorf("expected 1 bullet after shoot action, got %d", len(r.Arena.Bullets))
	}
}
