package main

import "math"

const (
	DroneRadius      = 16.0
	DroneMaxHull     = 50
	DroneAccel       = 240.0
	DroneMaxSpeed    = 220.0
	DroneDrag        = 0.96
	DroneTurnRate    = 3.0
	DroneAggroRange  = 700.0
	DroneFireRange   = 480.0
	DroneFireDelay   = 0.9
	DroneFireCone    = 0.25 // radians off-boresight within which it shoots
	DroneBoltDamage  = 12
	DroneContactDmg  = 25
	DroneKillScore   = 3
	DroneWanderDrift = 1.2 // max radians/s the wander heading changes
)

// Drone is an AI interceptor that hunts the nearest ship. The arena
// hands it a target each tick; contact and bolt hits go through the
// same grid passes as everything else.
type Drone struct {
	ID      string
	X, Y    float64
	VX, VY  float64
	Heading float64
	Hull    int
	MaxHull int
	Alive   bool

	FireCD      float64
	WanderAngle float64
}

// NewDrone spawns a drone at a random scene edge
func NewDrone() *Drone {
	d := &Drone{
		ID:      GenerateID(4),
		Hull:    DroneMaxHull,
		MaxHull: DroneMaxHull,
		Alive:   true,
	}
	if randFloat() < 0.5 {
		d.X = randRange(0, SceneWidth)
		d.Y = DroneRadius
	} else {
		d.X = DroneRadius
		d.Y = randRange(0, SceneHeight)
	}
	d.Heading = randRange(0, 2*math.Pi)
	d.WanderAngle = d.Heading
	return d
}

// Position implements Trackable
func (d *Drone) Position() (float64, float64) { return d.X, d.Y }

// BoundingRadius implements Trackable
func (d *Drone) BoundingRadius() float64 { return DroneRadius }

// Update advances the drone one tick. target may be nil when no ship is
// in the drone's neighborhood; the drone then wanders.
func (d *Drone) Update(dt float64, target *Ship) {
	if !d.Alive {
		return
	}

	if target != nil {
		want := math.Atan2(target.Y-d.Y, target.X-d.X)
		d.Heading = TurnToward(d.Heading, want, DroneTurnRate*dt)
	} else {
		d.WanderAngle += randRange(-DroneWanderDrift, DroneWanderDrift) * dt
		d.Heading = TurnToward(d.Heading, d.WanderAngle, DroneTurnRate*dt)
	}

	d.VX += math.Cos(d.Heading) * DroneAccel * dt
	d.VY += math.Sin(d.Heading) * DroneAccel * dt
	d.VX *= DroneDrag
	d.VY *= DroneDrag

	speed := math.Sqrt(d.VX*d.VX + d.VY*d.VY)
	if speed > DroneMaxSpeed {
		scale := DroneMaxSpeed / speed
		d.VX *= scale
		d.VY *= scale
	}

	d.X += d.VX * dt
	d.Y += d.VY * dt

	if d.X < 0 {
		d.X += SceneWidth
	} else if d.X > SceneWidth {
		d.X -= SceneWidth
	}
	if d.Y < 0 {
		d.Y += SceneHeight
	} else if d.Y > SceneHeight {
		d.Y -= SceneHeight
	}

	if d.FireCD > 0 {
		d.FireCD -= dt
	}
}

// WantsToFire reports whether the drone has a shot lined up on target
func (d *Drone) WantsToFire(target *Ship) bool {
	if !d.Alive || target == nil || d.FireCD > 0 {
		return false
	}
	if Dist(d.X, d.Y, target.X, target.Y) > DroneFireRange {
		return false
	}
	want := math.Atan2(target.Y-d.Y, target.X-d.X)
	return math.Abs(NormalizeAngle(want-d.Heading)) < DroneFireCone
}

// TakeDamage reduces hull and returns true if the drone was destroyed
func (d *Drone) TakeDamage(dmg int) bool {
	if !d.Alive {
		return false
	}
	d.Hull -= dmg
	if d.Hull <= 0 {
		d.Hull = 0
		d.Alive = false
		return true
	}
	return false
}

// ToState converts to the broadcast representation
func (d *Drone) ToState() DroneState {
	return DroneState{
		ID:      d.ID,
		X:       d.X,
		Y:       d.Y,
		H:       d.Heading,
		Hull:    d.Hull,
		MaxHull: d.MaxHull,
		Alive:   d.Alive,
	}
}
