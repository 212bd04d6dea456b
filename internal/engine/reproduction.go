package engine

import (
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/AllStack11/chaos-garden-sub002/internal/config"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
	"github.com/AllStack11/chaos-garden-sub002/internal/events"
)

// driftReportThreshold is the relative drift beyond which a mutation event
// is emitted for a trait (1%).
const driftReportThreshold = 0.01

// newbornEnergy and newbornHealth are the vitals every offspring starts with.
const (
	newbornEnergy = 50.0
	newbornHealth = 100.0
)

// TraitDrift describes one trait value that changed between parent and child.
type TraitDrift struct {
	Trait string
	From  float64
	To    float64
}

// Mutator implements the shared trait-copy-with-drift algorithm. Its random
// source is injected so a fixed seed reproduces an identical lineage tree.
type Mutator struct {
	cfg config.MutationConfig
	rng *rand.Rand
}

// NewMutator creates a mutator over the given random source.
func NewMutator(cfg config.MutationConfig, rng *rand.Rand) *Mutator {
	return &Mutator{cfg: cfg, rng: rng}
}

// mutate copies a trait value, perturbing it with the configured probability
// by a uniform delta within the mutation range, clamped to [lo, hi].
func (m *Mutator) mutate(v, lo, hi float64) float64 {
	if m.rng.Float64() >= m.cfg.Probability {
		return v
	}
	v += (m.rng.Float64()*2 - 1) * m.cfg.Range
	return math.Min(math.Max(v, lo), hi)
}

// DeriveChildTraits produces the child's trait bundle from the parent's,
// reporting every drifted trait. Dispatch is exhaustive over the species tag.
func (m *Mutator) DeriveChildTraits(parent entity.Traits) (entity.Traits, []TraitDrift) {
	var drifts []TraitDrift
	track := func(name string, from, to float64) float64 {
		if from != to {
			drifts = append(drifts, TraitDrift{Trait: name, From: from, To: to})
		}
		return to
	}

	switch t := parent.(type) {
	case entity.PlantTraits:
		child := entity.PlantTraits{
			PhotosynthesisRate: track("photosynthesis_rate", t.PhotosynthesisRate, m.mutate(t.PhotosynthesisRate, entity.MinScaleTrait, entity.MaxScaleTrait)),
			ReproductionRate:   track("reproduction_rate", t.ReproductionRate, m.mutate(t.ReproductionRate, entity.MinRate, entity.MaxRate)),
		}
		return child, drifts
	case entity.HerbivoreTraits:
		child := entity.HerbivoreTraits{
			MovementSpeed:       track("movement_speed", t.MovementSpeed, m.mutate(t.MovementSpeed, entity.MinSpeed, entity.MaxSpeed)),
			PerceptionRadius:    track("perception_radius", t.PerceptionRadius, m.mutate(t.PerceptionRadius, entity.MinPerception, entity.MaxPerception)),
			MetabolicEfficiency: track("metabolic_efficiency", t.MetabolicEfficiency, m.mutate(t.MetabolicEfficiency, entity.MinEfficiency, entity.MaxEfficiency)),
			ReproductionRate:    track("reproduction_rate", t.ReproductionRate, m.mutate(t.ReproductionRate, entity.MinRate, entity.MaxRate)),
		}
		return child, drifts
	case entity.CarnivoreTraits:
		child := entity.CarnivoreTraits{
			MovementSpeed:    track("movement_speed", t.MovementSpeed, m.mutate(t.MovementSpeed, entity.MinSpeed, entity.MaxSpeed)),
			PerceptionRadius: track("perception_radius", t.PerceptionRadius, m.mutate(t.PerceptionRadius, entity.MinPerception, entity.MaxPerception)),
			ReproductionRate: track("reproduction_rate", t.ReproductionRate, m.mutate(t.ReproductionRate, entity.MinRate, entity.MaxRate)),
		}
		return child, drifts
	case entity.FungusTraits:
		child := entity.FungusTraits{
			DecompositionRate: track("decomposition_rate", t.DecompositionRate, m.mutate(t.DecompositionRate, entity.MinScaleTrait, entity.MaxScaleTrait)),
			ReproductionRate:  track("reproduction_rate", t.ReproductionRate, m.mutate(t.ReproductionRate, entity.MinRate, entity.MaxRate)),
		}
		return child, drifts
	default:
		return parent, nil
	}
}

// reproductionParams carries the per-species breeding constants.
type reproductionParams struct {
	rate               float64 // Parent's heritable reproduction rate
	threshold          float64 // Minimum energy to be eligible
	cost               float64 // Energy paid on success
	maxReproductiveAge int64
}

// tryReproduce runs one independent Bernoulli reproduction trial for the
// parent. On success it pays the energy cost, spawns a mutated child near
// the parent and emits the birth, reproduction and mutation events.
func (m *Mutator) tryReproduce(parent *entity.Entity, p reproductionParams, weatherMod float64, tick int64, bounds Bounds, rec *events.Recorder) *entity.Entity {
	if parent.Age > p.maxReproductiveAge || parent.Energy < p.threshold {
		return nil
	}
	if m.rng.Float64() >= p.rate*weatherMod {
		return nil
	}

	parent.Energy -= p.cost

	childTraits, drifts := m.DeriveChildTraits(parent.Traits)
	offsetX := (m.rng.Float64()*2 - 1) * m.cfg.SpawnOffset
	offsetY := (m.rng.Float64()*2 - 1) * m.cfg.SpawnOffset
	x, y := bounds.Clamp(parent.X+offsetX, parent.Y+offsetY)

	child := &entity.Entity{
		ID:         uuid.NewString(),
		Species:    parent.Species,
		X:          x,
		Y:          y,
		Energy:     newbornEnergy,
		Health:     newbornHealth,
		Alive:      true,
		Lineage:    parent.ID,
		BornAtTick: tick,
		Traits:     childTraits,
	}

	rec.LogReproduction(tick, parent, child.ID)
	rec.LogBirth(tick, child)
	for _, d := range drifts {
		if relativeDrift(d.From, d.To) > driftReportThreshold {
			rec.LogMutation(tick, child, d.Trait, d.From, d.To)
		}
	}
	return child
}

func relativeDrift(from, to float64) float64 {
	if from == 0 {
		if to == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(to-from) / math.Abs(from)
}
