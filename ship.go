package main

import "math"

const (
	ShipRadius       = 18.0
	ShipMaxHull      = 100
	ShipThrustAccel  = 520.0 // world units/s²
	ShipMaxSpeed     = 340.0 // world units/s
	ShipDrag         = 0.97  // velocity multiplier per tick
	ShipBoostMul     = 1.5
	ShipTurnRate     = 4.2 // radians/s at full deflection
	ShipFireDelay    = 0.18
	ShipRespawnDelay = 3.0
	ShipRamDamage    = 40 // hull damage on ship-to-ship contact
)

// Ship is a player-controlled vessel
type Ship struct {
	ID       string
	Callsign string
	PilotID  int64 // DB account id, 0 for guests without an account

	X, Y    float64
	VX, VY  float64
	Heading float64
	Hull    int
	MaxHull int

	Score  int
	Kills  int
	Deaths int

	Alive    bool
	FireCD   float64
	RespawnT float64

	// control state, written by HandleInput
	Turn     float64 // -1..1
	Thrust   bool
	Firing   bool
	Boosting bool
}

// NewShip spawns a ship at a random position in the inner half of the scene
func NewShip(id, callsign string) *Ship {
	return &Ship{
		ID:       id,
		Callsign: callsign,
		X:        randRange(SceneWidth/4, 3*SceneWidth/4),
		Y:        randRange(SceneHeight/4, 3*SceneHeight/4),
		Heading:  randRange(0, 2*math.Pi),
		Hull:     ShipMaxHull,
		MaxHull:  ShipMaxHull,
		Alive:    true,
	}
}

// Position implements Trackable
func (s *Ship) Position() (float64, float64) { return s.X, s.Y }

// BoundingRadius implements Trackable
func (s *Ship) BoundingRadius() float64 { return ShipRadius }

// Update advances the ship one tick (dt in seconds)
func (s *Ship) Update(dt float64) {
	if !s.Alive {
		s.RespawnT -= dt
		if s.RespawnT <= 0 {
			s.Respawn()
		}
		return
	}

	s.Heading = NormalizeAngle(s.Heading + Clamp(s.Turn, -1, 1)*ShipTurnRate*dt)

	if s.Thrust {
		accel := ShipThrustAccel * dt
		if s.Boosting {
			accel *= ShipBoostMul
		}
		s.VX += math.Cos(s.Heading) * accel
		s.VY += math.Sin(s.Heading) * accel
	}

	s.VX *= ShipDrag
	s.VY *= ShipDrag

	maxSpd := ShipMaxSpeed
	if s.Boosting {
		maxSpd *= ShipBoostMul
	}
	speed := math.Sqrt(s.VX*s.VX + s.VY*s.VY)
	if speed > maxSpd {
		scale := maxSpd / speed
		s.VX *= scale
		s.VY *= scale
	}

	s.X += s.VX * dt
	s.Y += s.VY * dt

	// Toroidal scene: ships wrap at the edges
	if s.X < 0 {
		s.X += SceneWidth
	} else if s.X > SceneWidth {
		s.X -= SceneWidth
	}
	if s.Y < 0 {
		s.Y += SceneHeight
	} else if s.Y > SceneHeight {
		s.Y -= SceneHeight
	}

	if s.FireCD > 0 {
		s.FireCD -= dt
	}
}

// Respawn puts a dead ship back into play
func (s *Ship) Respawn() {
	s.X = randRange(SceneWidth/4, 3*SceneWidth/4)
	s.Y = randRange(SceneHeight/4, 3*SceneHeight/4)
	s.VX = 0
	s.VY = 0
	s.Hull = s.MaxHull
	s.Alive = true
	s.FireCD = 0
	s.RespawnT = 0
}

// TakeDamage reduces hull and returns true if the ship was destroyed
func (s *Ship) TakeDamage(dmg int) bool {
	if !s.Alive {
		return false
	}
	s.Hull -= dmg
	if s.Hull <= 0 {
		s.Hull = 0
		s.Alive = false
		s.Deaths++
		s.RespawnT = ShipRespawnDelay
		return true
	}
	return false
}

// Heal restores hull up to the maximum
func (s *Ship) Heal(amount int) {
	if !s.Alive {
		return
	}
	s.Hull += amount
	if s.Hull > s.MaxHull {
		s.Hull = s.MaxHull
	}
}

// CanFire reports whether the ship wants to and may fire this tick
func (s *Ship) CanFire() bool {
	return s.Alive && s.Firing && s.FireCD <= 0
}

// ToState converts to the broadcast representation
func (s *Ship) ToState() ShipState {
	return ShipState{
		ID:       s.ID,
		Callsign: s.Callsign,
		X:        s.X,
		Y:        s.Y,
		H:        s.Heading,
		VX:       s.VX,
		VY:       s.VY,
		Hull:     s.Hull,
		MaxHull:  s.MaxHull,
		Score:    s.Score,
		Alive:    s.Alive,
		Boost:    s.Boosting,
	}
}
