package main

import "math"

const (
	BoltSpeed    = 750.0
	BoltLifetime = 1.8
	BoltRadius   = 4.0
	BoltDamage   = 20
	BoltOffset   = 26.0 // muzzle distance from ship center
)

// Bolt is a plasma projectile
type Bolt struct {
	ID      string
	OwnerID string
	X, Y    float64
	VX, VY  float64
	Heading float64
	Damage  int
	Life    float64
	Alive   bool
}

// NewBolt fires a bolt from a ship's nose, inheriting part of its velocity
func NewBolt(owner *Ship) *Bolt {
	cos := math.Cos(owner.Heading)
	sin := math.Sin(owner.Heading)
	return &Bolt{
		ID:      GenerateID(3),
		OwnerID: owner.ID,
		X:       owner.X + cos*BoltOffset,
		Y:       owner.Y + sin*BoltOffset,
		VX:      cos*BoltSpeed + owner.VX*0.3,
		VY:      sin*BoltSpeed + owner.VY*0.3,
		Heading: owner.Heading,
		Damage:  BoltDamage,
		Life:    BoltLifetime,
		Alive:   true,
	}
}

// NewDroneBolt fires a bolt from a drone
func NewDroneBolt(d *Drone) *Bolt {
	cos := math.Cos(d.Heading)
	sin := math.Sin(d.Heading)
	return &Bolt{
		ID:      GenerateID(3),
		OwnerID: d.ID,
		X:       d.X + cos*BoltOffset,
		Y:       d.Y + sin*BoltOffset,
		VX:      cos*BoltSpeed + d.VX*0.3,
		VY:      sin*BoltSpeed + d.VY*0.3,
		Heading: d.Heading,
		Damage:  DroneBoltDamage,
		Life:    BoltLifetime,
		Alive:   true,
	}
}

// Position implements Trackable
func (b *Bolt) Position() (float64, float64) { return b.X, b.Y }

// BoundingRadius implements Trackable
func (b *Bolt) BoundingRadius() float64 { return BoltRadius }

// Update advances the bolt one tick. Bolts do not wrap: one that leaves
// the scene keeps flying until its lifetime runs out, during which the
// grid simply gives it no bucket membership.
func (b *Bolt) Update(dt float64) {
	if !b.Alive {
		return
	}
	b.X += b.VX * dt
	b.Y += b.VY * dt
	b.Life -= dt
	if b.Life <= 0 {
		b.Alive = false
	}
}

// ToState converts to the broadcast representation
func (b *Bolt) ToState() BoltState {
	return BoltState{
		ID:    b.ID,
		X:     b.X,
		Y:     b.Y,
		H:     b.Heading,
		Owner: b.OwnerID,
	}
}
