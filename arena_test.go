package main

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// mockConn captures messages sent to one client
type mockConn struct {
	mu     sync.Mutex
	json   []interface{}
	binary [][]byte
}

func (m *mockConn) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.json = append(m.json, msg)
}

func (m *mockConn) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, data)
}

func (m *mockConn) killMessages() []KillMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kills []KillMsg
	for _, msg := range m.json {
		if env, ok := msg.(Envelope); ok && env.T == MsgKill {
			kills = append(kills, env.Data.(KillMsg))
		}
	}
	return kills
}

// stepArena advances the simulation without the ticker goroutine
func stepArena(a *Arena, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i < n; i++ {
		a.step(1.0 / float64(TickRate))
	}
}

func TestArenaAddRemoveShip(t *testing.T) {
	a := NewArena(nil)
	s := a.AddShip("Vega", 0)
	if s == nil || s.Callsign != "Vega" {
		t.Fatal("expected ship Vega")
	}
	if a.ShipCount() != 1 {
		t.Errorf("expected 1 ship, got %d", a.ShipCount())
	}

	a.RemoveShip(s.ID)
	if a.ShipCount() != 0 {
		t.Errorf("expected 0 ships, got %d", a.ShipCount())
	}
}

func TestArenaShipCap(t *testing.T) {
	a := NewArena(nil)
	for i := 0; i < maxShipsPerArena; i++ {
		if a.AddShip("P", 0) == nil {
			t.Fatalf("ship %d rejected below cap", i)
		}
	}
	if a.AddShip("Overflow", 0) != nil {
		t.Error("expected nil once the arena is full")
	}
}

func TestArenaHandleInputClampsTurn(t *testing.T) {
	a := NewArena(nil)
	s := a.AddShip("Vega", 0)

	a.HandleInput(s.ID, ClientInput{Turn: 7.5, Thrust: true, Fire: true})
	if s.Turn != 1 {
		t.Errorf("expected turn clamped to 1, got %f", s.Turn)
	}
	if !s.Thrust || !s.Firing {
		t.Error("thrust and fire flags not applied")
	}
}

func TestArenaGridRebuildEachTick(t *testing.T) {
	a := NewArena(nil)
	s1 := a.AddShip("A", 0)
	s2 := a.AddShip("B", 0)
	s1.X, s1.Y = 1000, 1000
	s2.X, s2.Y = 1020, 1000

	stepArena(a, 1)

	a.mu.Lock()
	nearby := a.grid.GetNearby(s1)
	a.mu.Unlock()
	found := false
	for _, tr := range nearby {
		if tr == Trackable(s2) {
			found = true
		}
	}
	if !found {
		t.Error("adjacent ship missing from grid neighborhood after tick")
	}

	// After the ships separate, the stale membership must not survive
	// the next rebuild.
	s2.X, s2.Y = 3000, 3000
	stepArena(a, 1)

	a.mu.Lock()
	nearby = a.grid.GetNearby(s1)
	a.mu.Unlock()
	for _, tr := range nearby {
		if tr == Trackable(s2) {
			t.Error("distant ship still present after grid rebuild")
		}
	}
}

func TestArenaBoltHitsShip(t *testing.T) {
	a := NewArena(nil)
	shooter := a.AddShip("A", 0)
	target := a.AddShip("B", 0)
	shooter.X, shooter.Y = 1000, 1000
	target.X, target.Y = 1100, 1000

	b := &Bolt{
		ID: "b1", OwnerID: shooter.ID,
		X: 1090, Y: 1000, VX: BoltSpeed,
		Damage: BoltDamage, Life: BoltLifetime, Alive: true,
	}
	a.bolts[b.ID] = b

	stepArena(a, 1)

	if target.Hull != ShipMaxHull-BoltDamage {
		t.Errorf("expected hull %d, got %d", ShipMaxHull-BoltDamage, target.Hull)
	}
	if _, ok := a.bolts["b1"]; ok {
		t.Error("bolt should be consumed on impact")
	}
}

func TestArenaBoltIgnoresOwner(t *testing.T) {
	a := NewArena(nil)
	shooter := a.AddShip("A", 0)
	shooter.X, shooter.Y = 1000, 1000

	b := &Bolt{
		ID: "b1", OwnerID: shooter.ID,
		X: 1000, Y: 1000,
		Damage: BoltDamage, Life: BoltLifetime, Alive: true,
	}
	a.bolts[b.ID] = b

	stepArena(a, 1)

	if shooter.Hull != ShipMaxHull {
		t.Errorf("owner damaged by own bolt, hull %d", shooter.Hull)
	}
}

func TestArenaBoltKillIsCredited(t *testing.T) {
	a := NewArena(nil)
	shooter := a.AddShip("A", 0)
	target := a.AddShip("B", 0)
	shooter.X, shooter.Y = 1000, 1000
	target.X, target.Y = 1100, 1000
	target.Hull = 10

	connA := &mockConn{}
	connB := &mockConn{}
	a.SetClient(shooter.ID, connA)
	a.SetClient(target.ID, connB)

	b := &Bolt{
		ID: "b1", OwnerID: shooter.ID,
		X: 1095, Y: 1000, VX: BoltSpeed,
		Damage: BoltDamage, Life: BoltLifetime, Alive: true,
	}
	a.bolts[b.ID] = b

	stepArena(a, 1)

	if target.Alive {
		t.Fatal("target should be destroyed")
	}
	if shooter.Kills != 1 {
		t.Errorf("expected 1 kill, got %d", shooter.Kills)
	}
	kills := connA.killMessages()
	if len(kills) != 1 || kills[0].KillerID != shooter.ID || kills[0].VictimID != target.ID {
		t.Errorf("unexpected kill broadcast: %+v", kills)
	}
}

func TestArenaPowerCellHeals(t *testing.T) {
	a := NewArena(nil)
	s := a.AddShip("A", 0)
	s.X, s.Y = 1000, 1000
	s.Hull = 50

	c := &PowerCell{ID: "c1", X: 1000, Y: 1000, Life: 10, Alive: true}
	a.cells[c.ID] = c

	stepArena(a, 1)

	if s.Hull != 50+PowerCellHeal {
		t.Errorf("expected hull %d, got %d", 50+PowerCellHeal, s.Hull)
	}
	if c.Alive {
		t.Error("power cell should be consumed")
	}
}

func TestArenaDebrisDamagesShip(t *testing.T) {
	a := NewArena(nil)
	s := a.AddShip("A", 0)
	s.X, s.Y = 1000, 1000

	d := &Debris{ID: "d1", X: 1010, Y: 1000, Radius: 30, Alive: true}
	a.debris[d.ID] = d

	stepArena(a, 1)

	if s.Hull != ShipMaxHull-DebrisDamage {
		t.Errorf("expected hull %d, got %d", ShipMaxHull-DebrisDamage, s.Hull)
	}
	if s.VX == 0 && s.VY == 0 {
		t.Error("ship should be deflected off the rock")
	}
}

func TestArenaShipRamming(t *testing.T) {
	a := NewArena(nil)
	s1 := a.AddShip("A", 0)
	s2 := a.AddShip("B", 0)
	s1.X, s1.Y = 1000, 1000
	s2.X, s2.Y = 1010, 1000
	s1.Hull = 30
	s2.Hull = 30

	stepArena(a, 1)

	if s1.Alive || s2.Alive {
		t.Error("head-on ram at low hull should destroy both ships")
	}
	if s1.Deaths != 1 || s2.Deaths != 1 {
		t.Errorf("deaths not counted: %d, %d", s1.Deaths, s2.Deaths)
	}
}

func TestArenaDroneTargeting(t *testing.T) {
	a := NewArena(nil)
	s := a.AddShip("A", 0)
	s.X, s.Y = 1200, 1000

	if got := a.nearestShip(1000, 1000, DroneAggroRange); got != s {
		t.Error("expected ship within aggro range to be targeted")
	}
	if got := a.nearestShip(1000, 1000, 100); got != nil {
		t.Error("expected no target outside range")
	}

	dead := a.AddShip("B", 0)
	dead.X, dead.Y = 1050, 1000
	dead.Alive = false
	if got := a.nearestShip(1000, 1000, DroneAggroRange); got != s {
		t.Error("dead ships must not be targeted")
	}
}

func TestShipGaugeAggregatesAcrossArenas(t *testing.T) {
	base := testutil.ToFloat64(metricShipsTracked)

	a1 := NewArena(nil)
	a2 := NewArena(nil)
	s1 := a1.AddShip("A", 0)
	s2 := a2.AddShip("B", 0)
	s3 := a2.AddShip("C", 0)

	for i := 0; i < BroadcastEvery; i++ {
		a1.update()
		a2.update()
	}
	if got := testutil.ToFloat64(metricShipsTracked) - base; got != 3 {
		t.Errorf("arena_ships total = %v, want 3 (ships across both arenas)", got)
	}

	// a change in one arena must not clobber the other's contribution
	a2.RemoveShip(s2.ID)
	for i := 0; i < BroadcastEvery; i++ {
		a1.update()
		a2.update()
	}
	if got := testutil.ToFloat64(metricShipsTracked) - base; got != 2 {
		t.Errorf("arena_ships after removal = %v, want 2", got)
	}

	// drain so the shared gauge is left the way we found it
	a1.RemoveShip(s1.ID)
	a2.RemoveShip(s3.ID)
	for i := 0; i < BroadcastEvery; i++ {
		a1.update()
		a2.update()
	}
	if got := testutil.ToFloat64(metricShipsTracked) - base; got != 0 {
		t.Errorf("arena_ships after drain = %v, want 0", got)
	}
}

func TestArenaFrameBroadcast(t *testing.T) {
	a := NewArena(nil)
	s := a.AddShip("A", 0)
	conn := &mockConn{}
	a.SetClient(s.ID, conn)

	a.mu.Lock()
	a.broadcastFrame()
	a.mu.Unlock()

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.binary) != 1 {
		t.Fatalf("expected 1 binary frame, got %d", len(conn.binary))
	}
	if len(conn.binary[0]) == 0 {
		t.Error("frame should not be empty")
	}
}
