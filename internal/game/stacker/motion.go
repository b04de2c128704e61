package stacker

import (
	"time"

	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/navmesh"
)

// Motion decides how fast actions play out. The planning loop is identical
// under every Motion; only the number of frames an action spans changes.
type Motion interface {
	// Advance moves travelled (world units along path) forward by one frame of
	// length dt and returns the agent's new position.
	//
	// Precondition: len(path) >= 1.
	// Postcondition: done is true exactly when pos is the last point of path.
	Advance(path []grid.Point, travelled float64, dt time.Duration) (pos grid.Point, next float64, done bool)
	// Settle paces a pick or place. done reports that the action may commit.
	Settle(waited, dt time.Duration) (next time.Duration, done bool)
}

// Teleport completes every action in a single frame.
type Teleport struct{}

// Advance jumps to the end of path.
func (Teleport) Advance(path []grid.Point, _ float64, _ time.Duration) (grid.Point, float64, bool) {
	return path[len(path)-1], navmesh.PathLength(path), true
}

// Settle never waits.
func (Teleport) Settle(waited, _ time.Duration) (time.Duration, bool) {
	return waited, true
}

// Animated interpolates navigation at Speed blocks per second and holds each
// pick or place for Delay.
type Animated struct {
	// Speed returns the current travel speed in blocks per second. It is read
	// every frame so it can change mid-run.
	Speed     func() float64
	BlockSize float64
	Delay     time.Duration
}

// Advance moves along path by Speed*BlockSize*dt.
func (a Animated) Advance(path []grid.Point, travelled float64, dt time.Duration) (grid.Point, float64, bool) {
	total := navmesh.PathLength(path)
	speed := 0.0
	if a.Speed != nil {
		speed = a.Speed()
	}
	next := travelled + speed*a.BlockSize*dt.Seconds()
	if next >= total {
		return path[len(path)-1], total, true
	}
	return pointAlong(path, next), next, false
}

// Settle accumulates frame time until Delay has passed.
func (a Animated) Settle(waited, dt time.Duration) (time.Duration, bool) {
	next := waited + dt
	return next, next >= a.Delay
}

// pointAlong returns the point dist world units along the polyline path.
func pointAlong(path []grid.Point, dist float64) grid.Point {
	if dist <= 0 {
		return path[0]
	}
	for i := 1; i < len(path); i++ {
		seg := path[i-1].Dist(path[i])
		if dist <= seg {
			if seg == 0 {
				return path[i]
			}
			return path[i-1].Lerp(path[i], dist/seg)
		}
		dist -= seg
	}
	return path[len(path)-1]
}
