package engine

import (
	"github.com/AllStack11/chaos-garden-sub002/internal/config"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/garden"
	"github.com/AllStack11/chaos-garden-sub002/internal/events"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/logger"
	"github.com/AllStack11/chaos-garden-sub002/internal/weather"
)

// FungusSystem closes the energy loop: stationary decomposers draw down
// carcass energy left behind by kills and grazing, converting a fraction
// of it into their own reserves. Spore spread scales with the
// decomposition trait, so better decomposers also colonize faster.
type FungusSystem struct {
	cfg     config.FungusConfig
	mutator *Mutator
	rec     *events.Recorder
	logger  *logger.Logger
	bounds  Bounds
}

// NewFungusSystem creates the fungus behavior engine.
func NewFungusSystem(cfg config.FungusConfig, mutator *Mutator, rec *events.Recorder, log *logger.Logger, bounds Bounds) *FungusSystem {
	return &FungusSystem{cfg: cfg, mutator: mutator, rec: rec, logger: log, bounds: bounds}
}

// ProcessTick advances one fungus: decompose the nearest carcass in range,
// pay upkeep, then run a spore reproduction trial.
func (s *FungusSystem) ProcessTick(e *entity.Entity, env garden.Environment, mods weather.Modifiers, all []*entity.Entity) Outcome {
	traits, ok := e.Traits.(entity.FungusTraits)
	if !ok {
		s.logger.Warn("fungus system received entity with non-fungus traits: " + e.ID)
		return Outcome{}
	}

	if carcass := NearestCarcass(e, all, s.cfg.DecomposeRadius); carcass != nil {
		intake := s.cfg.IntakeCap * traits.DecompositionRate
		if remaining := carcass.CarcassEnergy(); intake > remaining {
			intake = remaining
		}
		carcass.Energy -= intake
		e.Energy += intake * s.cfg.ConversionEfficiency
	}
	e.Energy -= s.cfg.BaseCost
	e.ClampVitals()

	var out Outcome
	child := s.mutator.tryReproduce(e, reproductionParams{
		rate:               traits.ReproductionRate * traits.DecompositionRate,
		threshold:          s.cfg.ReproductionThreshold,
		cost:               s.cfg.ReproductionCost,
		maxReproductiveAge: s.cfg.MaxReproductiveAge,
	}, mods.Reproduction, env.Tick, s.bounds, s.rec)
	if child != nil {
		out.Offspring = append(out.Offspring, child)
	}
	return out
}
