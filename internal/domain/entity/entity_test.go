package entity

import "testing"

func TestTraitsRoundTripBySpecies(t *testing.T) {
	traits := HerbivoreTraits{
		MovementSpeed:       1.5,
		PerceptionRadius:    10,
		MetabolicEfficiency: 1.1,
		ReproductionRate:    0.05,
	}
	data, err := MarshalTraits(traits)
	if err != nil {
		t.Fatalf("Expected marshal to succeed, got %v", err)
	}

	decoded, err := UnmarshalTraits(SpeciesHerbivore, data)
	if err != nil {
		t.Fatalf("Expected unmarshal to succeed, got %v", err)
	}
	got, ok := decoded.(HerbivoreTraits)
	if !ok {
		t.Fatalf("Expected HerbivoreTraits, got %T", decoded)
	}
	if got != traits {
		t.Errorf("Expected %+v after round trip, got %+v", traits, got)
	}
}

func TestUnmarshalTraitsClampsOutOfDomainValues(t *testing.T) {
	payload := []byte(`{"movement_speed": 99, "perception_radius": 0, "metabolic_efficiency": 0, "reproduction_rate": -1}`)
	decoded, err := UnmarshalTraits(SpeciesHerbivore, payload)
	if err != nil {
		t.Fatalf("Expected unmarshal to succeed, got %v", err)
	}
	got := decoded.(HerbivoreTraits)
	if got.MovementSpeed != MaxSpeed {
		t.Errorf("Expected movement speed clamped to %f, got %f", MaxSpeed, got.MovementSpeed)
	}
	if got.PerceptionRadius != MinPerception {
		t.Errorf("Expected perception radius clamped to %f, got %f", MinPerception, got.PerceptionRadius)
	}
	if got.MetabolicEfficiency != MinEfficiency {
		t.Errorf("Expected metabolic efficiency clamped to %f, got %f", MinEfficiency, got.MetabolicEfficiency)
	}
	if got.ReproductionRate != MinRate {
		t.Errorf("Expected reproduction rate clamped to %f, got %f", MinRate, got.ReproductionRate)
	}
}

func TestUnmarshalTraitsRejectsUnknownSpecies(t *testing.T) {
	if _, err := UnmarshalTraits(Species("dragon"), []byte(`{}`)); err == nil {
		t.Fatal("Expected error for unknown species tag")
	}
}

func TestDeadRequiresHealthCollapse(t *testing.T) {
	e := &Entity{Alive: true, Energy: 0, Health: 50}
	if !e.Starving() {
		t.Error("Expected entity starving at zero energy")
	}
	if e.Dead() {
		t.Error("Expected starving entity alive while health holds")
	}

	e.Health = 0
	if !e.Dead() {
		t.Error("Expected entity dead at zero health")
	}

	e = &Entity{Alive: false, Energy: 80, Health: 80}
	if !e.Dead() {
		t.Error("Expected flagged entity dead regardless of vitals")
	}
}

func TestClampVitals(t *testing.T) {
	e := &Entity{Energy: 150, Health: -10}
	e.ClampVitals()
	if e.Energy != 100 || e.Health != 0 {
		t.Errorf("Expected vitals clamped to 100/0, got %f/%f", e.Energy, e.Health)
	}
}

func TestCarcassEnergyOnlyForDead(t *testing.T) {
	live := &Entity{Alive: true, Energy: 40}
	if live.CarcassEnergy() != 0 {
		t.Errorf("Expected no carcass energy from the living, got %f", live.CarcassEnergy())
	}
	dead := &Entity{Alive: false, Energy: 40}
	if dead.CarcassEnergy() != 40 {
		t.Errorf("Expected carcass energy 40, got %f", dead.CarcassEnergy())
	}
}
