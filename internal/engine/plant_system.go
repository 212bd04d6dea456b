package engine

import (
	"math"

	"github.com/AllStack11/chaos-garden-sub002/internal/config"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/garden"
	"github.com/AllStack11/chaos-garden-sub002/internal/events"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/logger"
	"github.com/AllStack11/chaos-garden-sub002/internal/weather"
)

// PlantSystem grows stationary photosynthesizers. Plants pay no movement
// cost; their energy income is sunlight scaled by a moisture band.
type PlantSystem struct {
	cfg     config.PlantConfig
	mutator *Mutator
	rec     *events.Recorder
	logger  *logger.Logger
	bounds  Bounds
}

// NewPlantSystem creates the plant behavior engine.
func NewPlantSystem(cfg config.PlantConfig, mutator *Mutator, rec *events.Recorder, log *logger.Logger, bounds Bounds) *PlantSystem {
	return &PlantSystem{cfg: cfg, mutator: mutator, rec: rec, logger: log, bounds: bounds}
}

// moistureMultiplier peaks at the ideal moisture and decays linearly toward
// the extremes, clamped to the configured multiplier band.
func (s *PlantSystem) moistureMultiplier(moisture float64) float64 {
	span := s.cfg.MoistureMultiplierMax - s.cfg.MoistureMultiplierMin
	falloff := math.Min(1, math.Abs(moisture-s.cfg.IdealMoisture)/0.5)
	return s.cfg.MoistureMultiplierMax - span*falloff
}

// ProcessTick advances one plant: photosynthesis, then a reproduction trial.
func (s *PlantSystem) ProcessTick(e *entity.Entity, env garden.Environment, mods weather.Modifiers, all []*entity.Entity) Outcome {
	traits, ok := e.Traits.(entity.PlantTraits)
	if !ok {
		s.logger.Warn("plant system received entity with non-plant traits: " + e.ID)
		return Outcome{}
	}

	gain := s.cfg.PhotosynthesisScale * traits.PhotosynthesisRate *
		env.Sunlight * mods.Photosynthesis * s.moistureMultiplier(env.Moisture)
	e.Energy += gain - s.cfg.BaseCost
	e.ClampVitals()

	var out Outcome
	child := s.mutator.tryReproduce(e, reproductionParams{
		rate:               traits.ReproductionRate,
		threshold:          s.cfg.ReproductionThreshold,
		cost:               s.cfg.ReproductionCost,
		maxReproductiveAge: s.cfg.MaxReproductiveAge,
	}, mods.Reproduction, env.Tick, s.bounds, s.rec)
	if child != nil {
		out.Offspring = append(out.Offspring, child)
	}
	return out
}
