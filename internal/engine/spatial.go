package engine

import (
	"math"
	"math/rand"

	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
)

// Bounds is the rectangular garden area entities live in.
type Bounds struct {
	Width  float64
	Height float64
}

// Clamp keeps a position inside the garden.
func (b Bounds) Clamp(x, y float64) (float64, float64) {
	return math.Min(math.Max(x, 0), b.Width), math.Min(math.Max(y, 0), b.Height)
}

// Distance returns the euclidean distance between two entities.
func Distance(a, b *entity.Entity) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Hypot(dx, dy)
}

// NearestLiving finds the closest living entity of the given species within
// radius, excluding the searcher itself. Returns nil when none qualifies.
func NearestLiving(from *entity.Entity, all []*entity.Entity, species entity.Species, radius float64) *entity.Entity {
	var best *entity.Entity
	bestDist := radius
	for _, other := range all {
		if other.ID == from.ID || other.Dead() || other.Species != species {
			continue
		}
		if d := Distance(from, other); d <= bestDist {
			best = other
			bestDist = d
		}
	}
	return best
}

// NearestCarcass finds the closest dead entity with consumable energy left.
func NearestCarcass(from *entity.Entity, all []*entity.Entity, radius float64) *entity.Entity {
	var best *entity.Entity
	bestDist := radius
	for _, other := range all {
		if other.ID == from.ID || other.Alive || other.CarcassEnergy() <= 0 {
			continue
		}
		if d := Distance(from, other); d <= bestDist {
			best = other
			bestDist = d
		}
	}
	return best
}

// MoveToward steps the entity toward a target position by at most step
// world units, clamped to the garden bounds. Returns the distance moved.
func MoveToward(e *entity.Entity, x, y, step float64, bounds Bounds) float64 {
	dx := x - e.X
	dy := y - e.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return 0
	}
	if step > dist {
		step = dist
	}
	e.X, e.Y = bounds.Clamp(e.X+dx/dist*step, e.Y+dy/dist*step)
	return step
}

// Wander moves the entity one step in a random direction.
func Wander(e *entity.Entity, step float64, bounds Bounds, rng *rand.Rand) float64 {
	angle := rng.Float64() * 2 * math.Pi
	e.X, e.Y = bounds.Clamp(e.X+math.Cos(angle)*step, e.Y+math.Sin(angle)*step)
	return step
}
