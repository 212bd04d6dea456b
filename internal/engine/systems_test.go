package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/AllStack11/chaos-garden-sub002/internal/config"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/garden"
	"github.com/AllStack11/chaos-garden-sub002/internal/events"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/logger"
	"github.com/AllStack11/chaos-garden-sub002/internal/weather"
)

var neutralMods = weather.Modifiers{
	SunlightMultiplier: 1.0,
	Photosynthesis:     1.0,
	Movement:           1.0,
	Reproduction:       1.0,
}

func testEnv(tick int64) garden.Environment {
	return garden.Environment{Sunlight: 1.0, Moisture: 0.55, Temperature: 18, Tick: tick}
}

func testFixtures(t *testing.T) (*config.Config, *Mutator, *events.Recorder, *logger.Logger, Bounds) {
	t.Helper()
	cfg := config.MustLoad("")
	rng := rand.New(rand.NewSource(99))
	return cfg, NewMutator(cfg.Mutation, rng), events.NewRecorder(), logger.NewLogger(), Bounds{Width: cfg.Garden.Width, Height: cfg.Garden.Height}
}

func livingPlant(id string, x, y, energy float64) *entity.Entity {
	return &entity.Entity{
		ID: id, Species: entity.SpeciesPlant, X: x, Y: y,
		Energy: energy, Health: 100, Alive: true,
		Traits: entity.PlantTraits{PhotosynthesisRate: 1.0},
	}
}

func livingHerbivore(id string, x, y, energy float64) *entity.Entity {
	return &entity.Entity{
		ID: id, Species: entity.SpeciesHerbivore, X: x, Y: y,
		Energy: energy, Health: 100, Alive: true,
		Traits: entity.HerbivoreTraits{MovementSpeed: 2.0, PerceptionRadius: 10, MetabolicEfficiency: 1.0},
	}
}

func livingCarnivore(id string, x, y, energy float64) *entity.Entity {
	return &entity.Entity{
		ID: id, Species: entity.SpeciesCarnivore, X: x, Y: y,
		Energy: energy, Health: 100, Alive: true,
		Traits: entity.CarnivoreTraits{MovementSpeed: 2.0, PerceptionRadius: 20},
	}
}

func TestPlantGrowsAtIdealMoisture(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	sys := NewPlantSystem(cfg.Plant, mut, rec, log, bounds)

	p := livingPlant("p1", 50, 50, 50)
	sys.ProcessTick(p, testEnv(1), neutralMods, []*entity.Entity{p})

	// scale 4.0 * rate 1.0 * sunlight 1.0 * moisture multiplier 1.5, minus upkeep
	want := 50 + 4.0*1.5 - cfg.Plant.BaseCost
	if math.Abs(p.Energy-want) > 1e-9 {
		t.Errorf("Expected energy %f at ideal moisture, got %f", want, p.Energy)
	}
}

func TestPlantGrowthDropsAtMoistureExtremes(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	sys := NewPlantSystem(cfg.Plant, mut, rec, log, bounds)

	dry := testEnv(1)
	dry.Moisture = 0.05
	p := livingPlant("p1", 50, 50, 50)
	sys.ProcessTick(p, dry, neutralMods, []*entity.Entity{p})

	// Full falloff pins the multiplier at its configured minimum
	want := 50 + 4.0*cfg.Plant.MoistureMultiplierMin - cfg.Plant.BaseCost
	if math.Abs(p.Energy-want) > 1e-9 {
		t.Errorf("Expected energy %f in drought soil, got %f", want, p.Energy)
	}
}

func TestPlantEnergyClampsAtMaximum(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	sys := NewPlantSystem(cfg.Plant, mut, rec, log, bounds)

	p := livingPlant("p1", 50, 50, 99)
	sys.ProcessTick(p, testEnv(1), neutralMods, []*entity.Entity{p})
	if p.Energy != 100 {
		t.Errorf("Expected energy clamped to 100, got %f", p.Energy)
	}
}

func TestHerbivoreEatsNearestPlant(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	sys := NewHerbivoreSystem(cfg.Herbivore, mut, rand.New(rand.NewSource(1)), rec, log, bounds)

	h := livingHerbivore("h1", 0, 0, 50)
	near := livingPlant("near", 1, 0, 40)
	far := livingPlant("far", 5, 0, 100)
	out := sys.ProcessTick(h, testEnv(1), neutralMods, []*entity.Entity{h, near, far})

	if len(out.Consumed) != 1 || out.Consumed[0] != "near" {
		t.Fatalf("Expected nearest plant consumed, got %v", out.Consumed)
	}
	if near.Dead() != true {
		t.Error("Expected eaten plant to be dead")
	}
	if far.Dead() {
		t.Error("Expected far plant untouched")
	}
	// base cost 0.5, then capped transfer of 30
	want := 50 - 0.5 + 30
	if math.Abs(h.Energy-want) > 1e-9 {
		t.Errorf("Expected herbivore energy %f after eating, got %f", want, h.Energy)
	}
	// The bite leaves 10 energy in the carcass
	if near.CarcassEnergy() != 10 {
		t.Errorf("Expected carcass energy 10, got %f", near.CarcassEnergy())
	}
}

func TestHerbivoreWalksTowardDistantPlant(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	sys := NewHerbivoreSystem(cfg.Herbivore, mut, rand.New(rand.NewSource(1)), rec, log, bounds)

	h := livingHerbivore("h1", 0, 0, 50)
	p := livingPlant("p1", 8, 0, 40)
	out := sys.ProcessTick(h, testEnv(1), neutralMods, []*entity.Entity{h, p})

	if len(out.Consumed) != 0 {
		t.Fatalf("Expected no consumption at distance 8, got %v", out.Consumed)
	}
	if h.X != 2 || h.Y != 0 {
		t.Errorf("Expected herbivore at (2,0) after one step, got (%f,%f)", h.X, h.Y)
	}
	// base 0.5 plus 2 units at 0.4 per unit over efficiency 1.0
	want := 50 - 0.5 - 2*0.4
	if math.Abs(h.Energy-want) > 1e-9 {
		t.Errorf("Expected energy %f after walking, got %f", want, h.Energy)
	}
}

func TestHerbivoreWandersAndPaysIdleCostWithoutPlants(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	sys := NewHerbivoreSystem(cfg.Herbivore, mut, rand.New(rand.NewSource(1)), rec, log, bounds)

	h := livingHerbivore("h1", 50, 50, 50)
	sys.ProcessTick(h, testEnv(1), neutralMods, []*entity.Entity{h})

	want := 50 - 0.5 - cfg.Herbivore.IdleCost
	if math.Abs(h.Energy-want) > 1e-9 {
		t.Errorf("Expected energy %f after idle wander, got %f", want, h.Energy)
	}
	if h.X == 50 && h.Y == 50 {
		t.Error("Expected wander to move the herbivore")
	}
}

func TestStarvationAloneDoesNotKill(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	sys := NewHerbivoreSystem(cfg.Herbivore, mut, rand.New(rand.NewSource(1)), rec, log, bounds)

	h := livingHerbivore("h1", 50, 50, 1)
	sys.ProcessTick(h, testEnv(1), neutralMods, []*entity.Entity{h})

	if !h.Starving() {
		t.Fatalf("Expected herbivore starving at energy %f", h.Energy)
	}
	if h.Dead() {
		t.Error("Expected starving herbivore alive while health holds")
	}
}

func TestCarnivoreKillsPreyInRange(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	hunts := NewHuntLedger()
	sys := NewCarnivoreSystem(cfg.Carnivore, mut, rand.New(rand.NewSource(1)), rec, log, bounds)

	c := livingCarnivore("c1", 0, 0, 50)
	prey := livingHerbivore("h1", 1, 0, 60)
	prey.Health = 80
	out := sys.ProcessTick(c, testEnv(1), neutralMods, []*entity.Entity{c, prey}, hunts)

	if len(out.Consumed) != 1 || out.Consumed[0] != "h1" {
		t.Fatalf("Expected prey consumed, got %v", out.Consumed)
	}
	if !prey.Dead() {
		t.Error("Expected prey dead after the kill")
	}
	// gain capped at 45; residual 15 plus 30% of 80 health stays as carcass
	if math.Abs(prey.CarcassEnergy()-39) > 1e-9 {
		t.Errorf("Expected carcass energy 39, got %f", prey.CarcassEnergy())
	}
	want := 50 - cfg.Carnivore.BaseCost + 45
	if math.Abs(c.Energy-want) > 1e-9 {
		t.Errorf("Expected carnivore energy %f after kill, got %f", want, c.Energy)
	}
	if c.Health != 100 {
		t.Errorf("Expected health clamped at 100, got %f", c.Health)
	}
	if hunts.For("c1").TargetID != "" {
		t.Error("Expected hunt state cleared after a kill")
	}
}

func TestCarnivoreAbandonsStaleHunt(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	hunts := NewHuntLedger()
	sys := NewCarnivoreSystem(cfg.Carnivore, mut, rand.New(rand.NewSource(1)), rec, log, bounds)

	c := livingCarnivore("c1", 0, 0, 50)
	prey := livingHerbivore("h1", 18, 0, 60)
	hunts.For("c1").TargetID = "h1"
	hunts.For("c1").TicksSpentHunting = cfg.Carnivore.AbandonAfterTicks

	out := sys.ProcessTick(c, testEnv(1), neutralMods, []*entity.Entity{c, prey}, hunts)
	if len(out.Consumed) != 0 {
		t.Fatalf("Expected no kill on abandoned hunt, got %v", out.Consumed)
	}
	if hunts.For("c1").TargetID != "" || hunts.For("c1").TicksSpentHunting != 0 {
		t.Errorf("Expected hunt state reset after abandonment, got %+v", hunts.For("c1"))
	}
}

func TestCarnivoreAvoidsContestedPrey(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	hunts := NewHuntLedger()
	sys := NewCarnivoreSystem(cfg.Carnivore, mut, rand.New(rand.NewSource(1)), rec, log, bounds)

	c := livingCarnivore("c1", 0, 0, 50)
	contested := livingHerbivore("h1", 3, 0, 60)
	alternative := livingHerbivore("h2", 6, 0, 60)
	rival1 := livingCarnivore("c2", 4, 1, 50)
	rival2 := livingCarnivore("c3", 4, -1, 50)
	hunts.For("c2").TargetID = "h1"
	hunts.For("c3").TargetID = "h1"

	all := []*entity.Entity{c, contested, alternative, rival1, rival2}
	sys.ProcessTick(c, testEnv(1), neutralMods, all, hunts)

	if got := hunts.For("c1").TargetID; got != "h2" {
		t.Errorf("Expected switch to uncontested prey h2, got %q", got)
	}
	if contested.Dead() {
		t.Error("Expected contested prey untouched by c1")
	}
}

func TestCarnivoreRestsWhenSatedAndPreyIsFar(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	hunts := NewHuntLedger()
	sys := NewCarnivoreSystem(cfg.Carnivore, mut, rand.New(rand.NewSource(1)), rec, log, bounds)

	c := livingCarnivore("c1", 50, 50, 90)
	prey := livingHerbivore("h1", 65, 50, 60)
	out := sys.ProcessTick(c, testEnv(1), neutralMods, []*entity.Entity{c, prey}, hunts)

	if len(out.Consumed) != 0 {
		t.Fatalf("Expected no hunting while resting, got %v", out.Consumed)
	}
	if hunts.For("c1").TargetID != "" {
		t.Error("Expected no target acquired while resting")
	}
}

func TestFungusDecomposesNearestCarcass(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	sys := NewFungusSystem(cfg.Fungus, mut, rec, log, bounds)

	f := &entity.Entity{
		ID: "f1", Species: entity.SpeciesFungus, X: 0, Y: 0,
		Energy: 50, Health: 100, Alive: true,
		Traits: entity.FungusTraits{DecompositionRate: 1.0},
	}
	carcass := livingPlant("dead1", 2, 0, 30)
	carcass.Alive = false
	carcass.Health = 0

	sys.ProcessTick(f, testEnv(1), neutralMods, []*entity.Entity{f, carcass})

	// intake min(20, 30) = 20, converted at 0.6, minus base cost 0.3
	want := 50 + 20*0.6 - cfg.Fungus.BaseCost
	if math.Abs(f.Energy-want) > 1e-9 {
		t.Errorf("Expected fungus energy %f, got %f", want, f.Energy)
	}
	if carcass.CarcassEnergy() != 10 {
		t.Errorf("Expected 10 energy left in carcass, got %f", carcass.CarcassEnergy())
	}
}

func TestFungusIgnoresLivingEntities(t *testing.T) {
	cfg, mut, rec, log, bounds := testFixtures(t)
	sys := NewFungusSystem(cfg.Fungus, mut, rec, log, bounds)

	f := &entity.Entity{
		ID: "f1", Species: entity.SpeciesFungus, X: 0, Y: 0,
		Energy: 50, Health: 100, Alive: true,
		Traits: entity.FungusTraits{DecompositionRate: 1.0},
	}
	alive := livingPlant("p1", 2, 0, 30)

	sys.ProcessTick(f, testEnv(1), neutralMods, []*entity.Entity{f, alive})

	if alive.Energy != 30 {
		t.Errorf("Expected living plant untouched, energy %f", alive.Energy)
	}
	want := 50 - cfg.Fungus.BaseCost
	if math.Abs(f.Energy-want) > 1e-9 {
		t.Errorf("Expected only upkeep drain, got energy %f", f.Energy)
	}
}
