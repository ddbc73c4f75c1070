package main

import (
	"encoding/json"
	"log"
	"math"
	"math/rand"

	"github.com/vmihailenco/msgpack/v5"
)

// arenaCellSize is the spatial grid cell edge — roughly 2x the largest
// entity bounding box half-extent
const arenaCellSize = 80.0

// compassSteps maps the eight movement directions to unit displacements
var compassSteps = map[string][2]float64{
	"n":  {0, -1},
	"ne": {1, -1},
	"e":  {1, 0},
	"se": {1, 1},
	"s":  {0, 1},
	"sw": {-1, 1},
	"w":  {-1, 0},
	"nw": {-1, -1},
}

// ArenaEngine runs the continuous-time top-down shooter: a fixed-rate
// tick loop integrating bullet motion, culling out-of-range shots,
// resolving collisions through the room's spatial index and evaluating
// the last-player-standing win condition.
type ArenaEngine struct {
	bus  Bus
	host EngineHost
	loop *Loop
	cfg  ArenaConfig
}

// NewArenaEngine creates the arena engine
func NewArenaEngine(bus Bus, host EngineHost, loop *Loop, cfg ArenaConfig) *ArenaEngine {
	return &ArenaEngine{bus: bus, host: host, loop: loop, cfg: cfg}
}

func playerBox(p *Player) Box {
	return BoxAround(p.X, p.Y, p.Mass)
}

// Start spawns every seat at a random in-bounds position, seeds a fresh
// spatial index and begins the tick loop
func (a *ArenaEngine) Start(r *Room) {
	s := &ArenaState{
		Index: NewSpatialGrid(a.cfg.WorldWidth, a.cfg.WorldHeight, arenaCellSize),
		Pool:  NewBulletPool(),
		Alive: make(map[string]*Player, len(r.Players)),
	}
	for _, p := range r.Players {
		p.Eliminated = false
		p.Mass = a.cfg.InitialMass
		p.X = rand.Float64() * a.cfg.WorldWidth
		p.Y = rand.Float64() * a.cfg.WorldHeight
		p.LastDir = ""
		s.Alive[p.ConnID] = p
		s.Index.Insert(p.ConnID, playerBox(p))
	}
	r.Arena = s
	room := r
	s.Ticker = a.loop.Every(a.cfg.TickDuration(), func() { a.Tick(room) })
}

// Tick runs one simulation step: bullet integration, range/bounds
// culling, collision resolution, win evaluation and the state broadcast
func (a *ArenaEngine) Tick(r *Room) {
	s := r.Arena
	if s == nil || s.Ended {
		return
	}
	s.Tick++
	dt := 1.0 / float64(a.cfg.TickRate)

	survivors := s.Bullets[:0]
	for _, b := range s.Bullets {
		b.Advance(dt)
		if b.Expired(a.cfg.WorldWidth, a.cfg.WorldHeight) {
			s.Pool.Put(b)
			continue
		}
		if a.resolveHit(r, b) {
			s.Pool.Put(b)
			continue
		}
		survivors = append(survivors, b)
	}
	s.Bullets = survivors

	switch len(s.Alive) {
	case 1:
		for id := range s.Alive {
			a.endWith(r, id)
		}
		return
	case 0:
		a.endWith(r, "")
		return
	}
	a.BroadcastState(r)
}

// resolveHit queries the spatial index around a bullet and eliminates the
// first overlapping live player. Returns true if the bullet connected.
func (a *ArenaEngine) resolveHit(r *Room, b *Bullet) bool {
	s := r.Arena
	for _, id := range s.Index.Query(BoxAround(b.X, b.Y, b.Radius)) {
		if id == b.Owner {
			continue
		}
		p, ok := s.Alive[id]
		if !ok || p.Eliminated {
			continue
		}
		if !CheckCollision(b.X, b.Y, b.Radius, p.X, p.Y, p.Mass) {
			continue
		}
		a.eliminate(r, p)
		return true
	}
	return false
}

// eliminate permanently removes a player from win contention
func (a *ArenaEngine) eliminate(r *Room, p *Player) {
	s := r.Arena
	s.Index.Remove(p.ConnID, playerBox(p))
	delete(s.Alive, p.ConnID)
	p.Eliminated = true
	a.host.PlayerEliminated(r, p.ConnID)
}

// HandleAction processes a move or shoot action
func (a *ArenaEngine) HandleAction(r *Room, connID, action string, data json.RawMessage) {
	switch action {
	case MsgMove:
		var msg MoveMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		a.move(r, connID, msg.Direction)
	case MsgShoot:
		var msg ShootMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		a.shoot(r, connID, msg.Kind, msg.DirX, msg.DirY)
	}
}

// move applies one fixed displacement step, clamped to world bounds,
// updating the spatial index only when the position actually changed
func (a *ArenaEngine) move(r *Room, connID, direction string) {
	s := r.Arena
	if s == nil || s.Ended {
		return
	}
	p, ok := s.Alive[connID]
	if !ok || p.Eliminated {
		return
	}
	step, ok := compassSteps[direction]
	if !ok {
		return
	}
	oldBox := playerBox(p)
	newX := Clamp(p.X+step[0]*a.cfg.MoveStep, p.Mass, a.cfg.WorldWidth-p.Mass)
	newY := Clamp(p.Y+step[1]*a.cfg.MoveStep, p.Mass, a.cfg.WorldHeight-p.Mass)
	if newX == p.X && newY == p.Y {
		return
	}
	p.X = newX
	p.Y = newY
	s.Index.Remove(p.ConnID, oldBox)
	s.Index.Insert(p.ConnID, playerBox(p))
	p.LastDir = direction
}

// shoot validates the charge kind and aim vector, takes a bullet record
// from the pool and announces it with a single bulletCreated event
func (a *ArenaEngine) shoot(r *Room, connID, kind string, dirX, dirY float64) {
	s := r.Arena
	if s == nil || s.Ended {
		return
	}
	p, ok := s.Alive[connID]
	if !ok || p.Eliminated {
		return
	}
	bk, ok := a.cfg.Kinds[kind]
	if !ok {
		log.Printf("arena %s: unknown bullet kind %q", r.ID, kind)
		return
	}
	if !isFinite(dirX) || !isFinite(dirY) {
		return
	}
	mag := math.Sqrt(dirX*dirX + dirY*dirY)
	if mag == 0 {
		return
	}
	b := s.Pool.Get()
	b.ID = GenerateID(3)
	b.Owner = connID
	b.X = p.X
	b.Y = p.Y
	b.VX = dirX / mag * bk.Speed
	b.VY = dirY / mag * bk.Speed
	b.Radius = bk.Radius
	b.Range = bk.Range
	b.Kind = kind
	s.Bullets = append(s.Bullets, b)
	a.bus.EmitChannel(r.Channel(), Envelope{T: MsgBulletCreated, Data: b.ToState()})
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// BroadcastState encodes the full snapshot with msgpack and pushes it as
// a binary frame to the room channel
func (a *ArenaEngine) BroadcastState(r *Room) {
	s := r.Arena
	if s == nil {
		return
	}
	snap := ArenaSnapshot{
		RoomID: r.ID,
		Tick:   s.Tick,
		Winner: s.Winner,
	}
	for _, p := range r.Players {
		if p.Eliminated {
			continue
		}
		snap.Players = append(snap.Players, ArenaPlayerState{
			ID:   p.ConnID,
			Name: p.Name,
			X:    p.X,
			Y:    p.Y,
			Mass: p.Mass,
		})
	}
	for _, b := range s.Bullets {
		snap.Bullets = append(snap.Bullets, b.ToState())
	}
	data, err := msgpack.Marshal(snap)
	if err != nil {
		log.Printf("snapshot encode: %v", err)
		return
	}
	a.bus.EmitChannelBinary(r.Channel(), data)
}

// RemovePlayer handles a disconnect or force-leave: drop the seat, the
// alive entry and the spatial index box, then re-evaluate the win
// condition
func (a *ArenaEngine) RemovePlayer(r *Room, connID string) {
	s := r.Arena
	if s == nil || s.Ended {
		r.RemoveSeat(connID)
		return
	}
	if p, ok := s.Alive[connID]; ok {
		a.eliminate(r, p)
	}
	r.RemoveSeat(connID)
	if len(r.Players) == 0 {
		a.End(r)
		return
	}
	switch len(s.Alive) {
	case 1:
		for id := range s.Alive {
			a.endWith(r, id)
		}
	case 0:
		a.endWith(r, "")
	}
}

// endWith records the winner, emits the terminal matchOver and ends
func (a *ArenaEngine) endWith(r *Room, winner string) {
	s := r.Arena
	if s.Ended {
		return
	}
	s.Winner = winner
	a.BroadcastState(r)
	a.bus.EmitChannel(r.Channel(), Envelope{T: MsgMatchOver, Data: MatchOverMsg{Winner: winner}})
	a.End(r)
}

// End stops the tick timer, recycles all in-flight bullets and removes
// the room from active bookkeeping. Idempotent: disconnect handling and
// win detection can both end the same room in the same tick.
func (a *ArenaEngine) End(r *Room) {
	s := r.Arena
	if s == nil || s.Ended {
		return
	}
	s.Ended = true
	if s.Ticker != nil {
		s.Ticker.Stop()
	}
	for _, b := range s.Bullets {
		s.Pool.Put(b)
	}
	s.Bullets = nil
	a.host.MatchEnded(r, s.Winner)
}
