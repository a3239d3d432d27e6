package main

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Scene and grid dimensions. Cell size (80x80) is kept at twice the
// largest entity radius (DebrisMaxRadius) so the grid's corner sampling
// covers every overlapped cell.
const (
	SceneWidth  = 4000.0
	SceneHeight = 4000.0
	GridCols    = 50
	GridRows    = 50
)

const (
	TickRate       = 60 // physics ticks per second
	BroadcastRate  = 30 // state frames per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate
)

const (
	maxShipsPerArena = 16
	maxBoltsPerArena = 400
	maxDebris        = 40
	maxPowerCells    = 12
	maxDrones        = 8

	debrisSpawnEvery    = 2.5 // seconds
	powerCellSpawnEvery = 6.0
	droneSpawnEvery     = 12.0
)

// Broadcaster is the client-facing side of a connection: JSON for
// events, raw binary for msgpack state frames.
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Arena holds the state of one game session. All entity state is
// guarded by mu; the spatial grid is only touched inside the tick.
type Arena struct {
	mu      sync.RWMutex
	ships   map[string]*Ship
	bolts   map[string]*Bolt
	debris  map[string]*Debris
	cells   map[string]*PowerCell
	drones  map[string]*Drone
	clients map[string]Broadcaster // ship ID -> connection

	grid *SpatialGrid
	db   *DB // nil in tests

	tick      uint64
	running   bool
	stop      chan struct{}
	startedAt time.Time

	// this arena's last contribution to the shared gauges
	gaugeShips    float64
	gaugeEntities float64

	debrisClock float64
	cellClock   float64
	droneClock  float64
}

// NewArena creates an arena with an empty grid. The grid parameters are
// compile-time constants, so a construction failure is a programming
// error and fatal.
func NewArena(db *DB) *Arena {
	grid, err := NewSpatialGrid(GridCols, GridRows, SceneWidth, SceneHeight, 0, 0)
	if err != nil {
		log.Fatalf("arena grid: %v", err)
	}
	return &Arena{
		ships:     make(map[string]*Ship),
		bolts:     make(map[string]*Bolt),
		debris:    make(map[string]*Debris),
		cells:     make(map[string]*PowerCell),
		drones:    make(map[string]*Drone),
		clients:   make(map[string]Broadcaster),
		grid:      grid,
		db:        db,
		stop:      make(chan struct{}),
		startedAt: time.Now(),
	}
}

// Run drives the tick loop until Stop
func (a *Arena) Run() {
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.update()
		case <-a.stop:
			return
		}
	}
}

// Stop terminates the tick loop and records the match
func (a *Arena) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.running = false
	close(a.stop)
	metricShipsTracked.Add(-a.gaugeShips)
	metricEntitiesTracked.Add(-a.gaugeEntities)
	a.gaugeShips, a.gaugeEntities = 0, 0
	a.finalize()
}

// AddShip adds a player ship. Returns nil when the arena is full.
func (a *Arena) AddShip(callsign string, pilotID int64) *Ship {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.ships) >= maxShipsPerArena {
		return nil
	}
	s := NewShip(GenerateID(4), callsign)
	s.PilotID = pilotID
	a.ships[s.ID] = s
	return s
}

// RemoveShip drops a ship, persisting its stats first
func (a *Arena) RemoveShip(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.ships[id]; ok {
		a.persistShip(s)
	}
	delete(a.ships, id)
	delete(a.clients, id)
}

// HasShip reports whether a ship ID is in this arena
func (a *Arena) HasShip(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.ships[id]
	return ok
}

// ShipCount returns the number of player ships
func (a *Arena) ShipCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.ships)
}

// SetClient associates a connection with a ship
func (a *Arena) SetClient(shipID string, c Broadcaster) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clients[shipID] = c
}

// HandleInput applies one control update to a ship
func (a *Arena) HandleInput(shipID string, in ClientInput) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.ships[shipID]
	if !ok {
		return
	}
	s.Turn = Clamp(in.Turn, -1, 1)
	s.Thrust = in.Thrust
	s.Firing = in.Fire
	s.Boosting = in.Boost
}

// update runs one tick under the arena lock
func (a *Arena) update() {
	start := time.Now()

	a.mu.Lock()
	a.tick++
	a.step(1.0 / float64(TickRate))
	if a.tick%BroadcastEvery == 0 {
		a.broadcastFrame()
		a.publishGauges()
	}
	a.mu.Unlock()

	metricTickDuration.Observe(time.Since(start).Seconds())
}

// publishGauges folds this arena's counts into the shared gauges as a
// delta against its last report, so concurrent arenas sum instead of
// overwriting each other. Caller holds mu.
func (a *Arena) publishGauges() {
	ships := float64(len(a.ships))
	entities := float64(len(a.ships) + len(a.bolts) + len(a.debris) + len(a.cells) + len(a.drones))
	metricShipsTracked.Add(ships - a.gaugeShips)
	metricEntitiesTracked.Add(entities - a.gaugeEntities)
	a.gaugeShips = ships
	a.gaugeEntities = entities
}

// step advances the simulation by dt seconds. Caller holds mu.
func (a *Arena) step(dt float64) {
	a.spawn(dt)

	for _, s := range a.ships {
		s.Update(dt)
		if s.CanFire() && len(a.bolts) < maxBoltsPerArena {
			b := NewBolt(s)
			a.bolts[b.ID] = b
			s.FireCD = ShipFireDelay
		}
	}
	for id, b := range a.bolts {
		b.Update(dt)
		if !b.Alive {
			delete(a.bolts, id)
		}
	}
	for id, d := range a.debris {
		d.Update(dt)
		if !d.Alive {
			delete(a.debris, id)
		}
	}
	for id, c := range a.cells {
		c.Update(dt)
		if !c.Alive {
			delete(a.cells, id)
		}
	}
	for id, d := range a.drones {
		target := a.nearestShip(d.X, d.Y, DroneAggroRange)
		d.Update(dt, target)
		if d.WantsToFire(target) && len(a.bolts) < maxBoltsPerArena {
			b := NewDroneBolt(d)
			a.bolts[b.ID] = b
			d.FireCD = DroneFireDelay
		}
		if !d.Alive {
			delete(a.drones, id)
		}
	}

	// Rebuild bucket membership for this tick, then resolve contacts
	// through grid queries instead of all-pairs scans.
	a.grid.ClearBuckets()
	for _, s := range a.ships {
		if s.Alive {
			a.grid.Insert(s)
		}
	}
	for _, b := range a.bolts {
		a.grid.InsertAt(b.X, b.Y, b)
	}
	for _, d := range a.debris {
		a.grid.Insert(d)
	}
	for _, c := range a.cells {
		a.grid.Insert(c)
	}
	for _, d := range a.drones {
		a.grid.Insert(d)
	}

	a.resolveCollisions()
}

// spawn tops up ambient entities on their timers. Caller holds mu.
func (a *Arena) spawn(dt float64) {
	a.debrisClock += dt
	if a.debrisClock >= debrisSpawnEvery {
		a.debrisClock = 0
		if len(a.debris) < maxDebris {
			d := NewDebris()
			a.debris[d.ID] = d
		}
	}
	a.cellClock += dt
	if a.cellClock >= powerCellSpawnEvery {
		a.cellClock = 0
		if len(a.cells) < maxPowerCells {
			c := NewPowerCell()
			a.cells[c.ID] = c
		}
	}
	a.droneClock += dt
	if a.droneClock >= droneSpawnEvery {
		a.droneClock = 0
		if len(a.drones) < maxDrones && len(a.ships) > 0 {
			d := NewDrone()
			a.drones[d.ID] = d
		}
	}
}

// nearestShip returns the closest living ship within maxRange, or nil.
// Ship counts are capped low, so a linear scan is fine here; the grid
// only accelerates the contact passes.
func (a *Arena) nearestShip(x, y, maxRange float64) *Ship {
	var best *Ship
	bestSq := maxRange * maxRange
	for _, s := range a.ships {
		if !s.Alive {
			continue
		}
		dx := s.X - x
		dy := s.Y - y
		if d := dx*dx + dy*dy; d < bestSq {
			bestSq = d
			best = s
		}
	}
	return best
}

// resolveCollisions runs the narrow phase over grid neighborhoods.
// GetNearby results can repeat an entity and include the query entity
// itself. The bolt pass is safe because a bolt dies on its first hit;
// the ship pass deduplicates explicitly. Caller holds mu.
func (a *Arena) resolveCollisions() {
	for id, b := range a.bolts {
		if !b.Alive {
			continue
		}
		for _, t := range a.grid.GetNearby(b) {
			switch o := t.(type) {
			case *Ship:
				if !o.Alive || o.ID == b.OwnerID {
					continue
				}
				if !CirclesOverlap(b.X, b.Y, BoltRadius, o.X, o.Y, ShipRadius) {
					continue
				}
				b.Alive = false
				if o.TakeDamage(b.Damage) {
					a.creditKill(b.OwnerID, o)
				}
			case *Drone:
				if !o.Alive || o.ID == b.OwnerID {
					continue
				}
				if !CirclesOverlap(b.X, b.Y, BoltRadius, o.X, o.Y, DroneRadius) {
					continue
				}
				b.Alive = false
				if o.TakeDamage(b.Damage) {
					if killer, ok := a.ships[b.OwnerID]; ok {
						killer.Score += DroneKillScore
					}
				}
			case *Debris:
				if o.Alive && CirclesOverlap(b.X, b.Y, BoltRadius, o.X, o.Y, o.Radius) {
					b.Alive = false
				}
			}
			if !b.Alive {
				delete(a.bolts, id)
				break
			}
		}
	}

	for _, s := range a.ships {
		if !s.Alive {
			continue
		}
		// GetNearby repeats entities sharing several of s's corner
		// cells; without the seen set one touch would deal damage once
		// per repeat.
		seen := make(map[Trackable]bool)
		for _, t := range a.grid.GetNearby(s) {
			if seen[t] {
				continue
			}
			seen[t] = true
			switch o := t.(type) {
			case *Ship:
				// o.ID <= s.ID also skips s itself
				if o.ID <= s.ID || !o.Alive {
					continue
				}
				if !CirclesOverlap(s.X, s.Y, ShipRadius, o.X, o.Y, ShipRadius) {
					continue
				}
				if s.TakeDamage(ShipRamDamage) {
					a.announceKill(o.ID, o.Callsign, s)
					o.Score++
					o.Kills++
				}
				if o.TakeDamage(ShipRamDamage) {
					a.announceKill(s.ID, s.Callsign, o)
					if s.Alive {
						s.Score++
						s.Kills++
					}
				}
			case *Debris:
				if !o.Alive || !CirclesOverlap(s.X, s.Y, ShipRadius, o.X, o.Y, o.Radius) {
					continue
				}
				if s.TakeDamage(DebrisDamage) {
					a.announceKill("", "debris field", s)
				} else {
					// shove the ship off the rock so damage doesn't
					// repeat every tick
					a.deflect(s, o.X, o.Y)
				}
			case *PowerCell:
				if !o.Alive || !CirclesOverlap(s.X, s.Y, ShipRadius, o.X, o.Y, PowerCellRadius) {
					continue
				}
				o.Alive = false
				s.Heal(PowerCellHeal)
			case *Drone:
				if !o.Alive || !CirclesOverlap(s.X, s.Y, ShipRadius, o.X, o.Y, DroneRadius) {
					continue
				}
				o.TakeDamage(DroneContactDmg)
				if s.TakeDamage(DroneContactDmg) {
					a.announceKill(o.ID, "drone", s)
				} else {
					a.deflect(s, o.X, o.Y)
				}
			}
			if !s.Alive {
				break
			}
		}
	}
}

// deflect pushes a ship directly away from a contact point
func (a *Arena) deflect(s *Ship, cx, cy float64) {
	angle := math.Atan2(s.Y-cy, s.X-cx)
	s.VX = math.Cos(angle) * ShipMaxSpeed * 0.6
	s.VY = math.Sin(angle) * ShipMaxSpeed * 0.6
}

// creditKill awards a bolt kill to its owner (ship or drone)
func (a *Arena) creditKill(ownerID string, victim *Ship) {
	if killer, ok := a.ships[ownerID]; ok {
		killer.Score += 2
		killer.Kills++
		a.announceKill(killer.ID, killer.Callsign, victim)
		return
	}
	if _, ok := a.drones[ownerID]; ok {
		a.announceKill(ownerID, "drone", victim)
	}
}

// announceKill broadcasts a kill and notifies the victim
func (a *Arena) announceKill(killerID, killerName string, victim *Ship) {
	msg := Envelope{T: MsgKill, Data: KillMsg{
		KillerID:   killerID,
		KillerName: killerName,
		VictimID:   victim.ID,
		VictimName: victim.Callsign,
	}}
	for _, c := range a.clients {
		c.SendJSON(msg)
	}
	if c, ok := a.clients[victim.ID]; ok {
		c.SendJSON(Envelope{T: MsgDeath, Data: DeathMsg{
			KillerID:   killerID,
			KillerName: killerName,
		}})
	}
}

// broadcastFrame sends the current state to every client as a msgpack
// binary frame. Caller holds mu.
func (a *Arena) broadcastFrame() {
	frame := Frame{
		Ships:      make([]ShipState, 0, len(a.ships)),
		Bolts:      make([]BoltState, 0, len(a.bolts)),
		Debris:     make([]DebrisState, 0, len(a.debris)),
		PowerCells: make([]PowerCellState, 0, len(a.cells)),
		Drones:     make([]DroneState, 0, len(a.drones)),
		Tick:       a.tick,
	}
	for _, s := range a.ships {
		frame.Ships = append(frame.Ships, s.ToState())
	}
	for _, b := range a.bolts {
		frame.Bolts = append(frame.Bolts, b.ToState())
	}
	for _, d := range a.debris {
		frame.Debris = append(frame.Debris, d.ToState())
	}
	for _, c := range a.cells {
		frame.PowerCells = append(frame.PowerCells, c.ToState())
	}
	for _, d := range a.drones {
		frame.Drones = append(frame.Drones, d.ToState())
	}

	data, err := msgpack.Marshal(frame)
	if err != nil {
		log.Printf("frame marshal: %v", err)
		return
	}
	for _, c := range a.clients {
		c.SendBinary(data)
	}
	metricFramesSent.Add(float64(len(a.clients)))
}

// persistShip writes a departing pilot's results. Caller holds mu.
func (a *Arena) persistShip(s *Ship) {
	if a.db == nil || s.PilotID == 0 {
		return
	}
	duration := time.Since(a.startedAt).Seconds()
	xp := MatchXP(s.Kills, s.Score)
	if _, _, err := a.db.ApplyMatchResult(s.PilotID, s.Kills, s.Deaths, s.Score, duration, xp); err != nil {
		log.Printf("persist pilot %d: %v", s.PilotID, err)
	}
}

// finalize records the match and remaining pilots. Caller holds mu.
func (a *Arena) finalize() {
	if a.db == nil {
		return
	}
	duration := time.Since(a.startedAt).Seconds()

	winner := ""
	bestScore := -1
	for _, s := range a.ships {
		if s.Score > bestScore {
			bestScore = s.Score
			winner = s.Callsign
		}
	}

	matchID, err := a.db.RecordMatch(duration, winner)
	if err != nil {
		log.Printf("record match: %v", err)
		return
	}
	for _, s := range a.ships {
		if s.PilotID == 0 {
			continue
		}
		xp := MatchXP(s.Kills, s.Score)
		if err := a.db.RecordMatchPilot(matchID, s.PilotID, s.Kills, s.Deaths, s.Score, xp); err != nil {
			log.Printf("record match pilot: %v", err)
		}
		a.persistShip(s)
	}
}
