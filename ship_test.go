package main

import (
	"math"
	"testing"
)

func TestShipThrustMovesForward(t *testing.T) {
	s := NewShip("s1", "Vega")
	s.X, s.Y = 1000, 1000
	s.Heading = 0
	s.Thrust = true

	for i := 0; i < 10; i++ {
		s.Update(1.0 / TickRate)
	}

	if s.X <= 1000 {
		t.Errorf("expected forward motion along +X, got X=%f", s.X)
	}
	if math.Abs(s.Y-1000) > 1e-6 {
		t.Errorf("expected no lateral drift, got Y=%f", s.Y)
	}
}

func TestShipTurnRateApplied(t *testing.T) {
	s := NewShip("s1", "Vega")
	s.Heading = 0
	s.Turn = 1

	dt := 1.0 / TickRate
	s.Update(dt)

	want := ShipTurnRate * dt
	if math.Abs(s.Heading-want) > 1e-9 {
		t.Errorf("expected heading %f, got %f", want, s.Heading)
	}
}

func TestShipSpeedClamp(t *testing.T) {
	s := NewShip("s1", "Vega")
	s.X, s.Y = 2000, 2000
	s.Heading = 0
	s.Thrust = true

	for i := 0; i < 600; i++ {
		s.Update(1.0 / TickRate)
	}

	speed := math.Sqrt(s.VX*s.VX + s.VY*s.VY)
	if speed > ShipMaxSpeed+1e-6 {
		t.Errorf("speed %f exceeds cap %f", speed, ShipMaxSpeed)
	}
}

func TestShipWrapsAtSceneEdge(t *testing.T) {
	s := NewShip("s1", "Vega")
	s.X, s.Y = SceneWidth-1, 2000
	s.VX = 300

	s.Update(1.0 / TickRate)

	if s.X < 0 || s.X > 20 {
		t.Errorf("expected wrap to the left edge, got X=%f", s.X)
	}
}

func TestShipDamageAndRespawn(t *testing.T) {
	s := NewShip("s1", "Vega")

	if died := s.TakeDamage(ShipMaxHull - 1); died {
		t.Fatal("ship should survive at 1 hull")
	}
	if died := s.TakeDamage(1); !died {
		t.Fatal("ship should die at 0 hull")
	}
	if s.Alive || s.Deaths != 1 {
		t.Errorf("expected dead with 1 death, alive=%v deaths=%d", s.Alive, s.Deaths)
	}

	// further hits on a dead ship do nothing
	if s.TakeDamage(100) {
		t.Error("dead ship reported a second death")
	}

	s.Update(ShipRespawnDelay + 0.1)
	if !s.Alive || s.Hull != s.MaxHull {
		t.Errorf("expected respawn at full hull, alive=%v hull=%d", s.Alive, s.Hull)
	}
}

func TestShipHealCapped(t *testing.T) {
	s := NewShip("s1", "Vega")
	s.Hull = s.MaxHull - 5
	s.Heal(50)
	if s.Hull != s.MaxHull {
		t.Errorf("expected hull capped at %d, got %d", s.MaxHull, s.Hull)
	}
}

func TestShipFireGating(t *testing.T) {
	s := NewShip("s1", "Vega")
	s.Firing = true
	if !s.CanFire() {
		t.Error("alive ship with no cooldown should fire")
	}
	s.FireCD = ShipFireDelay
	if s.CanFire() {
		t.Error("cooldown must gate firing")
	}
	s.FireCD = 0
	s.Alive = false
	if s.CanFire() {
		t.Error("dead ship must not fire")
	}
}
