// Package entity defines the core domain entities of the garden.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package entity

import (
	"encoding/json"
	"fmt"
)

// Species tags the closed set of creature kinds. Behavior dispatch is an
// exhaustive switch over this tag, never runtime field probing.
type Species string

const (
	SpeciesPlant     Species = "plant"
	SpeciesHerbivore Species = "herbivore"
	SpeciesCarnivore Species = "carnivore"
	SpeciesFungus    Species = "fungus"
)

// LineageOrigin marks unparented seed entities.
const LineageOrigin = "origin"

// Trait value domains. Mutation clamps into these ranges and
// UnmarshalTraits normalizes stored rows back into them.
const (
	MinRate       = 0.0
	MaxRate       = 1.0
	MinSpeed      = 0.2
	MaxSpeed      = 5.0
	MinPerception = 1.0
	MaxPerception = 30.0
	MinEfficiency = 0.3
	MaxEfficiency = 2.0
	MinScaleTrait = 0.0
	MaxScaleTrait = 2.0
)

func clampTrait(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Traits is the per-species payload of the entity variant. Exactly one
// concrete trait struct exists per species tag.
type Traits interface {
	Species() Species
}

// PlantTraits holds the heritable numbers for plants.
type PlantTraits struct {
	PhotosynthesisRate float64 `json:"photosynthesis_rate"` // 0-2
	ReproductionRate   float64 `json:"reproduction_rate"`   // 0-1, Bernoulli per tick
}

func (PlantTraits) Species() Species { return SpeciesPlant }

// HerbivoreTraits holds the heritable numbers for herbivores.
type HerbivoreTraits struct {
	MovementSpeed       float64 `json:"movement_speed"`       // World units per tick
	PerceptionRadius    float64 `json:"perception_radius"`    // Foraging search range
	MetabolicEfficiency float64 `json:"metabolic_efficiency"` // Scales movement cost down
	ReproductionRate    float64 `json:"reproduction_rate"`
}

func (HerbivoreTraits) Species() Species { return SpeciesHerbivore }

// CarnivoreTraits holds the heritable numbers for carnivores.
type CarnivoreTraits struct {
	MovementSpeed    float64 `json:"movement_speed"`
	PerceptionRadius float64 `json:"perception_radius"`
	ReproductionRate float64 `json:"reproduction_rate"`
}

func (CarnivoreTraits) Species() Species { return SpeciesCarnivore }

// FungusTraits holds the heritable numbers for fungi.
type FungusTraits struct {
	DecompositionRate float64 `json:"decomposition_rate"` // 0-2, scales carcass intake and sporing
	ReproductionRate  float64 `json:"reproduction_rate"`
}

func (FungusTraits) Species() Species { return SpeciesFungus }

// Entity is one living (or dead) creature in the garden. Death is a flag
// transition; entities are never physically deleted.
type Entity struct {
	ID            string  `json:"id"`
	Species       Species `json:"species"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Energy        float64 `json:"energy"` // 0-100
	Health        float64 `json:"health"` // 0-100
	Age           int64   `json:"age"`    // Ticks lived
	Alive         bool    `json:"alive"`
	Lineage       string  `json:"lineage"` // Parent id, or "origin"
	BornAtTick    int64   `json:"born_at_tick"`
	GardenStateID string  `json:"garden_state_id"`
	Traits        Traits  `json:"traits"`
}

// Starving reports whether the energy pool is exhausted. Starvation alone
// does not kill; it drains health until that pool also reaches zero.
func (e *Entity) Starving() bool {
	return e.Energy <= 0
}

// Dead reports the shared death condition. Energy hitting zero is NOT part
// of it: the health pool must also collapse (two-pool starvation model).
func (e *Entity) Dead() bool {
	return !e.Alive || e.Health <= 0
}

// ClampVitals keeps energy and health in their 0-100 domains.
func (e *Entity) ClampVitals() {
	if e.Energy > 100 {
		e.Energy = 100
	}
	if e.Energy < 0 {
		e.Energy = 0
	}
	if e.Health > 100 {
		e.Health = 100
	}
	if e.Health < 0 {
		e.Health = 0
	}
}

// CarcassEnergy returns the consumable energy left in a dead entity,
// available to decomposers. Live entities have no carcass.
func (e *Entity) CarcassEnergy() float64 {
	if e.Alive {
		return 0
	}
	return e.Energy
}

// UnmarshalTraits decodes a trait payload for the given species tag,
// clamping every value back into its documented domain.
func UnmarshalTraits(species Species, data []byte) (Traits, error) {
	switch species {
	case SpeciesPlant:
		var t PlantTraits
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		t.PhotosynthesisRate = clampTrait(t.PhotosynthesisRate, MinScaleTrait, MaxScaleTrait)
		t.ReproductionRate = clampTrait(t.ReproductionRate, MinRate, MaxRate)
		return t, nil
	case SpeciesHerbivore:
		var t HerbivoreTraits
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		t.MovementSpeed = clampTrait(t.MovementSpeed, MinSpeed, MaxSpeed)
		t.PerceptionRadius = clampTrait(t.PerceptionRadius, MinPerception, MaxPerception)
		t.MetabolicEfficiency = clampTrait(t.MetabolicEfficiency, MinEfficiency, MaxEfficiency)
		t.ReproductionRate = clampTrait(t.ReproductionRate, MinRate, MaxRate)
		return t, nil
	case SpeciesCarnivore:
		var t CarnivoreTraits
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		t.MovementSpeed = clampTrait(t.MovementSpeed, MinSpeed, MaxSpeed)
		t.PerceptionRadius = clampTrait(t.PerceptionRadius, MinPerception, MaxPerception)
		t.ReproductionRate = clampTrait(t.ReproductionRate, MinRate, MaxRate)
		return t, nil
	case SpeciesFungus:
		var t FungusTraits
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		t.DecompositionRate = clampTrait(t.DecompositionRate, MinScaleTrait, MaxScaleTrait)
		t.ReproductionRate = clampTrait(t.ReproductionRate, MinRate, MaxRate)
		return t, nil
	default:
		return nil, fmt.Errorf("unknown species tag %q", species)
	}
}

// MarshalTraits encodes a trait payload for persistence.
func MarshalTraits(t Traits) ([]byte, error) {
	return json.Marshal(t)
}
