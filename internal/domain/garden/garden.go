// Package garden defines the snapshot-level domain types: the environment
// and the per-tick garden state with its population summary.
package garden

import (
	"time"

	"github.com/AllStack11/chaos-garden-sub002/internal/weather"
)

// Environment is the shared environmental state for one tick. It is owned
// by the garden snapshot and replaced wholesale each tick.
type Environment struct {
	Temperature float64        `json:"temperature"`
	Sunlight    float64        `json:"sunlight"` // 0-1
	Moisture    float64        `json:"moisture"` // 0-1
	Tick        int64          `json:"tick"`
	Weather     weather.Active `json:"weather"`
}

// PopulationSummary counts the garden's inhabitants after a tick.
type PopulationSummary struct {
	PlantsLiving     int `json:"plants_living"`
	HerbivoresLiving int `json:"herbivores_living"`
	CarnivoresLiving int `json:"carnivores_living"`
	FungiLiving      int `json:"fungi_living"`
	TotalLiving      int `json:"total_living"`
	TotalDead        int `json:"total_dead"`
	AllTimeDead      int `json:"all_time_dead"` // Monotone accumulator
}

// Total is the full population including the dead still in the garden.
func (p PopulationSummary) Total() int {
	return p.TotalLiving + p.TotalDead
}

// State is one immutable persisted snapshot of the garden at a tick.
type State struct {
	ID          string            `json:"id"`
	Tick        int64             `json:"tick"`
	Timestamp   time.Time         `json:"timestamp"`
	Environment Environment       `json:"environment"`
	Populations PopulationSummary `json:"populations"`
}
