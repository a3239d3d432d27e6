package main

import "math"

const (
	DebrisMinRadius = 24.0
	DebrisMaxRadius = 40.0 // largest entity; grid cell size is tuned to 2x this
	DebrisMinSpeed  = 50.0
	DebrisMaxSpeed  = 140.0
	DebrisSpinMax   = 1.8
	DebrisDamage    = 35
)

// Debris is an inert rock drifting across the scene in a straight line
type Debris struct {
	ID       string
	X, Y     float64
	VX, VY   float64
	Radius   float64
	Rotation float64
	Spin     float64
	Alive    bool
}

// NewDebris spawns a rock just outside a random scene edge, heading
// toward a point in the opposite half
func NewDebris() *Debris {
	d := &Debris{
		ID:     GenerateID(4),
		Radius: randRange(DebrisMinRadius, DebrisMaxRadius),
		Spin:   randRange(-DebrisSpinMax, DebrisSpinMax),
		Alive:  true,
	}

	speed := randRange(DebrisMinSpeed, DebrisMaxSpeed)
	var tx, ty float64
	switch int(randFloat() * 4) {
	case 0: // from the left
		d.X = -d.Radius
		d.Y = randRange(0, SceneHeight)
		tx = randRange(SceneWidth/2, SceneWidth)
		ty = randRange(0, SceneHeight)
	case 1: // from the right
		d.X = SceneWidth + d.Radius
		d.Y = randRange(0, SceneHeight)
		tx = randRange(0, SceneWidth/2)
		ty = randRange(0, SceneHeight)
	case 2: // from the top
		d.X = randRange(0, SceneWidth)
		d.Y = -d.Radius
		tx = randRange(0, SceneWidth)
		ty = randRange(SceneHeight/2, SceneHeight)
	default: // from the bottom
		d.X = randRange(0, SceneWidth)
		d.Y = SceneHeight + d.Radius
		tx = randRange(0, SceneWidth)
		ty = randRange(0, SceneHeight/2)
	}

	angle := math.Atan2(ty-d.Y, tx-d.X)
	d.VX = math.Cos(angle) * speed
	d.VY = math.Sin(angle) * speed
	d.Rotation = randRange(0, 2*math.Pi)
	return d
}

// Position implements Trackable
func (d *Debris) Position() (float64, float64) { return d.X, d.Y }

// BoundingRadius implements Trackable
func (d *Debris) BoundingRadius() float64 { return d.Radius }

// Update drifts the rock and kills it once fully off-scene
func (d *Debris) Update(dt float64) {
	if !d.Alive {
		return
	}
	d.X += d.VX * dt
	d.Y += d.VY * dt
	d.Rotation += d.Spin * dt

	margin := d.Radius * 2
	if d.X < -margin || d.X > SceneWidth+margin ||
		d.Y < -margin || d.Y > SceneHeight+margin {
		d.Alive = false
	}
}

// ToState converts to the broadcast representation
func (d *Debris) ToState() DebrisState {
	return DebrisState{
		ID:  d.ID,
		X:   d.X,
		Y:   d.Y,
		Rot: d.Rotation,
		R:   d.Radius,
	}
}
