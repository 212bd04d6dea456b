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

// CarnivoreSystem runs the hunting state machine: resting, target
// acquisition, pack avoidance, stalk-vs-chase movement, hunt fatigue and
// the kill itself. Pursuit memory lives in the orchestrator-owned
// HuntLedger, not in the persisted entity.
type CarnivoreSystem struct {
	cfg     config.CarnivoreConfig
	mutator *Mutator
	rng     *rand.Rand
	rec     *events.Recorder
	logger  *logger.Logger
	bounds  Bounds
}

// NewCarnivoreSystem creates the carnivore behavior engine.
func NewCarnivoreSystem(cfg config.CarnivoreConfig, mutator *Mutator, rng *rand.Rand, rec *events.Recorder, log *logger.Logger, bounds Bounds) *CarnivoreSystem {
	return &CarnivoreSystem{cfg: cfg, mutator: mutator, rng: rng, rec: rec, logger: log, bounds: bounds}
}

// ProcessTick advances one carnivore through the hunting state machine.
func (s *CarnivoreSystem) ProcessTick(e *entity.Entity, env garden.Environment, mods weather.Modifiers, all []*entity.Entity, hunts HuntLedger) Outcome {
	traits, ok := e.Traits.(entity.CarnivoreTraits)
	if !ok {
		s.logger.Warn("carnivore system received entity with non-carnivore traits: " + e.ID)
		return Outcome{}
	}

	e.Energy -= s.cfg.BaseCost
	st := hunts.For(e.ID)

	var out Outcome
	speed := traits.MovementSpeed * mods.Movement

	prey := NearestLiving(e, all, entity.SpeciesHerbivore, traits.PerceptionRadius)
	if prey == nil {
		// No prey anywhere in perception: pure exploration.
		st.TargetID = ""
		st.TicksSpentHunting = 0
		moved := Wander(e, speed, s.bounds, s.rng)
		e.Energy -= moved * s.cfg.MoveCostPerUnit * s.cfg.ExploreCostFactor
		e.ClampVitals()
		out.Offspring = s.maybeReproduce(e, traits, mods, env.Tick)
		return out
	}

	if e.Energy >= s.cfg.HighEnergyThreshold && Distance(e, prey) > s.cfg.AmbushRadius {
		// Well fed and nothing close enough to ambush: rest, drifting
		// slowly at reduced metabolic cost.
		st.TargetID = ""
		st.TicksSpentHunting = 0
		moved := Wander(e, speed*s.cfg.RestSpeedFactor, s.bounds, s.rng)
		e.Energy -= moved * s.cfg.MoveCostPerUnit * s.cfg.RestCostFactor
		e.ClampVitals()
		out.Offspring = s.maybeReproduce(e, traits, mods, env.Tick)
		return out
	}

	target := s.resolveTarget(e, st, prey, all, traits.PerceptionRadius, hunts)

	if st.TargetID == target.ID {
		st.TicksSpentHunting++
	} else {
		st.TargetID = target.ID
		st.TicksSpentHunting = 1
	}

	if st.TicksSpentHunting > s.cfg.AbandonAfterTicks {
		// Hunt fatigue: give up even if the prey is still reachable.
		st.TargetID = ""
		st.TicksSpentHunting = 0
		moved := Wander(e, speed, s.bounds, s.rng)
		e.Energy -= moved * s.cfg.MoveCostPerUnit * s.cfg.ExploreCostFactor
		e.ClampVitals()
		out.Offspring = s.maybeReproduce(e, traits, mods, env.Tick)
		return out
	}

	switch d := Distance(e, target); {
	case d <= s.cfg.HuntingDistance:
		s.kill(e, target, &out)
		st.TargetID = ""
		st.TicksSpentHunting = 0
	case d <= s.cfg.AmbushRadius:
		// Stalking: creep in at reduced speed and cheaper cost per unit.
		moved := MoveToward(e, target.X, target.Y, speed*s.cfg.StalkSpeedFactor, s.bounds)
		e.Energy -= moved * s.cfg.MoveCostPerUnit * s.cfg.StalkCostFactor
	default:
		// Open chase at full speed, the most expensive gait.
		moved := MoveToward(e, target.X, target.Y, speed, s.bounds)
		e.Energy -= moved * s.cfg.MoveCostPerUnit * s.cfg.ChaseCostFactor
	}
	e.ClampVitals()

	out.Offspring = s.maybeReproduce(e, traits, mods, env.Tick)
	return out
}

// resolveTarget keeps a still-valid previous target, otherwise takes the
// nearest prey, then applies pack avoidance: when two or more rival
// carnivores are already converging on the same prey inside the
// coordination radius, switch to an alternative candidate.
func (s *CarnivoreSystem) resolveTarget(e *entity.Entity, st *HuntState, nearest *entity.Entity, all []*entity.Entity, perception float64, hunts HuntLedger) *entity.Entity {
	target := nearest
	if st.TargetID != "" && st.TargetID != nearest.ID {
		if prev := findLiving(all, st.TargetID); prev != nil && Distance(e, prev) <= perception {
			target = prev
		}
	}

	rivals := 0
	for _, other := range all {
		if other.ID == e.ID || other.Dead() || other.Species != entity.SpeciesCarnivore {
			continue
		}
		otherState, ok := hunts[other.ID]
		if !ok || otherState.TargetID != target.ID {
			continue
		}
		if Distance(other, target) <= s.cfg.CoordinationRadius {
			rivals++
		}
	}
	if rivals < 2 {
		return target
	}

	// Contested hunt: look for the nearest other prey instead.
	var alternative *entity.Entity
	best := perception
	for _, other := range all {
		if other.ID == target.ID || other.Dead() || other.Species != entity.SpeciesHerbivore {
			continue
		}
		if d := Distance(e, other); d <= best {
			alternative = other
			best = d
		}
	}
	if alternative != nil {
		return alternative
	}
	return target
}

// kill consumes the prey. The carnivore gains bounded energy and partial
// health recovery; the remainder of the prey's energy plus a fraction of
// its health stays behind as carcass energy for the decomposers.
func (s *CarnivoreSystem) kill(e, prey *entity.Entity, out *Outcome) {
	gain := prey.Energy
	if gain > s.cfg.EnergyGainCap {
		gain = s.cfg.EnergyGainCap
	}
	e.Energy += gain
	e.Health += s.cfg.HealthRecovery

	carcass := prey.Energy - gain + prey.Health*s.cfg.CarcassHealthFraction
	if carcass < 0 {
		carcass = 0
	}
	prey.Energy = carcass
	prey.Health = 0
	prey.Alive = false
	out.Consumed = append(out.Consumed, prey.ID)
}

func (s *CarnivoreSystem) maybeReproduce(e *entity.Entity, traits entity.CarnivoreTraits, mods weather.Modifiers, tick int64) []*entity.Entity {
	child := s.mutator.tryReproduce(e, reproductionParams{
		rate:               traits.ReproductionRate,
		threshold:          s.cfg.ReproductionThreshold,
		cost:               s.cfg.ReproductionCost,
		maxReproductiveAge: s.cfg.MaxReproductiveAge,
	}, mods.Reproduction, tick, s.bounds, s.rec)
	if child == nil {
		return nil
	}
	return []*entity.Entity{child}
}

// findLiving resolves an id to a living entity, or nil.
func findLiving(all []*entity.Entity, id string) *entity.Entity {
	for _, e := range all {
		if e.ID == id {
			if e.Dead() {
				return nil
			}
			return e
		}
	}
	return nil
}
