package main

// Bullet is a projectile in flight. Bullets are owned by the arena state
// of their room and exist only while in flight; expired records are
// recycled through the room's BulletPool.
type Bullet struct {
	ID       string
	Owner    string // connection id of the shooter
	X, Y     float64
	VX, VY   float64
	Radius   float64
	Traveled float64 // total distance covered so far
	Range    float64 // cull once Traveled exceeds this
	Kind     string
}

// Advance moves the bullet one tick and accumulates distance traveled
func (b *Bullet) Advance(dt float64) {
	dx := b.VX * dt
	dy := b.VY * dt
	b.X += dx
	b.Y += dy
	b.Traveled += Distance(0, 0, dx, dy)
}

// Expired reports whether the bullet left the world or ran out of range
func (b *Bullet) Expired(worldW, worldH float64) bool {
	if b.X < 0 || b.X > worldW || b.Y < 0 || b.Y > worldH {
		return true
	}
	return b.Traveled > b.Range
}

// ToState converts to protocol state
func (b *Bullet) ToState() BulletState {
	return BulletState{
		ID:     b.ID,
		Owner:  b.Owner,
		X:      b.X,
		Y:      b.Y,
		VX:     b.VX,
		VY:     b.VY,
		Radius: b.Radius,
		Kind:   b.Kind,
	}
}

// BulletPool recycles bullet records to bound allocation churn inside the
// tick loop. No locking: the pool is touched only from loop tasks.
type BulletPool struct {
	free []*Bullet
}

// NewBulletPool creates a pool
func NewBulletPool() *BulletPool {
	return &BulletPool{}
}

// Get returns a zeroed bullet record, reusing a recycled one when available
func (p *BulletPool) Get() *Bullet {
	n := len(p.free)
	if n == 0 {
		return &Bullet{}
	}
	b := p.free[n-1]
	p.free = p.free[:n-1]
	*b = Bullet{}
	return b
}

// Put returns a bullet record to the pool
func (p *BulletPool) Put(b *Bullet) {
	p.free = append(p.free, b)
}

// FreeCount returns the number of recycled records available
func (p *BulletPool) FreeCount() int {
	return len(p.free)
}
