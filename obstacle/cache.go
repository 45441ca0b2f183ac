// Package obstacle implements the shared per-tick obstacle view: every
// vehicle predicts the positions of every other
// vehicle one step ahead (dead reckoning) and publishes its own predicted
// position into a common cache; each controller then reads everyone
// else's prediction, with its own excluded, as the obstacle list for this
// tick's potential-field pass.
package obstacle

import (
	"math"
	"sync"

	"github.com/golang/geo/r3"
)

// Cache is a double-buffered, full-read-then-full-rewrite obstacle table:
// Rebuild replaces the entire published set once per tick, and For
// returns every entry except the caller's own index.
type Cache struct {
	mu        sync.RWMutex
	positions []r3.Vector
}

// New returns an empty Cache sized for n agents. The cache stays empty
// until the first Rebuild, so every controller's first-tick view has no
// obstacles in it.
func New(n int) *Cache {
	return &Cache{positions: make([]r3.Vector, 0, n)}
}

// Rebuild replaces every published position at once. len(positions) must
// equal the agent count the Cache was created with.
func (c *Cache) Rebuild(positions []r3.Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions = append(c.positions[:0], positions...)
}

// For returns a copy of every published position except index, the
// per-controller obstacle list for this tick's potential-field pass.
// Before the first Rebuild it returns nothing.
func (c *Cache) For(index int) []r3.Vector {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.positions) == 0 {
		return nil
	}
	out := make([]r3.Vector, 0, len(c.positions)-1)
	for i, p := range c.positions {
		if i == index {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Predict performs the one-step dead-reckoning projection used to publish
// an agent's position for the next tick's obstacle view: a straight-line
// extrapolation along current heading and speed.
func Predict(x, y, yaw, v, dt float64) r3.Vector {
	return r3.Vector{
		X: x + v*math.Cos(yaw)*dt,
		Y: y + v*math.Sin(yaw)*dt,
	}
}
