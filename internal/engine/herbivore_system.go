package engine

import (
	"math/rand"

	"github.com/AllStack11/chaos-garden-sub002/internal/config"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/garden"
	"github.com/AllStack11/chaos-garden-sub002/internal/events"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/logger"
	"github.com/AllStack11/chaos-garden-sub002/internal/weather"
)

// HerbivoreSystem forages the nearest living plant in perception range,
// eating it when close enough and walking toward it otherwise. An empty
// range costs an elevated idle penalty (wandering).
type HerbivoreSystem struct {
	cfg     config.HerbivoreConfig
	mutator *Mutator
	rng     *rand.Rand
	rec     *events.Recorder
	logger  *logger.Logger
	bounds  Bounds
}

// NewHerbivoreSystem creates the herbivore behavior engine.
func NewHerbivoreSystem(cfg config.HerbivoreConfig, mutator *Mutator, rng *rand.Rand, rec *events.Recorder, log *logger.Logger, bounds Bounds) *HerbivoreSystem {
	return &HerbivoreSystem{cfg: cfg, mutator: mutator, rng: rng, rec: rec, logger: log, bounds: bounds}
}

// ProcessTick advances one herbivore: metabolic upkeep, foraging, then a
// reproduction trial.
func (s *HerbivoreSystem) ProcessTick(e *entity.Entity, env garden.Environment, mods weather.Modifiers, all []*entity.Entity) Outcome {
	traits, ok := e.Traits.(entity.HerbivoreTraits)
	if !ok {
		s.logger.Warn("herbivore system received entity with non-herbivore traits: " + e.ID)
		return Outcome{}
	}

	e.Energy -= s.cfg.BaseCost

	var out Outcome
	plant := NearestLiving(e, all, entity.SpeciesPlant, traits.PerceptionRadius)
	switch {
	case plant == nil:
		// Nothing edible in range: wander and pay the idle penalty.
		Wander(e, traits.MovementSpeed*mods.Movement, s.bounds, s.rng)
		e.Energy -= s.cfg.IdleCost
	case Distance(e, plant) <= s.cfg.EatDistance:
		gain := plant.Energy
		if gain > s.cfg.EnergyTransferCap {
			gain = s.cfg.EnergyTransferCap
		}
		e.Energy += gain
		// The plant dies; whatever energy the bite left behind stays in
		// the carcass for the decomposers.
		plant.Energy -= gain
		plant.Health = 0
		plant.Alive = false
		out.Consumed = append(out.Consumed, plant.ID)
	default:
		moved := MoveToward(e, plant.X, plant.Y, traits.MovementSpeed*mods.Movement, s.bounds)
		e.Energy -= moved * s.cfg.MoveCostPerUnit / traits.MetabolicEfficiency
	}
	e.ClampVitals()

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
