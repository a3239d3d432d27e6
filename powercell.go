package main

const (
	PowerCellRadius  = 12.0
	PowerCellHeal    = 25
	PowerCellTimeout = 25.0
)

// PowerCell is a hull-restoring pickup that despawns after a while
type PowerCell struct {
	ID    string
	X, Y  float64
	Life  float64
	Alive bool
}

// NewPowerCell spawns a cell at a random position away from the edges
func NewPowerCell() *PowerCell {
	return &PowerCell{
		ID:    GenerateID(4),
		X:     randRange(100, SceneWidth-100),
		Y:     randRange(100, SceneHeight-100),
		Life:  PowerCellTimeout,
		Alive: true,
	}
}

// Position implements Trackable
func (c *PowerCell) Position() (float64, float64) { return c.X, c.Y }

// BoundingRadius implements Trackable
func (c *PowerCell) BoundingRadius() float64 { return PowerCellRadius }

// Update counts down the cell's lifetime
func (c *PowerCell) Update(dt float64) {
	if !c.Alive {
		return
	}
	c.Life -= dt
	if c.Life <= 0 {
		c.Alive = false
	}
}

// ToState converts to the broadcast representation
func (c *PowerCell) ToState() PowerCellState {
	return PowerCellState{ID: c.ID, X: c.X, Y: c.Y}
}
