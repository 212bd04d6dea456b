package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/AllStack11/chaos-garden-sub002/internal/config"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/garden"
	"github.com/AllStack11/chaos-garden-sub002/internal/events"
	"github.com/AllStack11/chaos-garden-sub002/internal/infra/storage"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/logger"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/metrics"
	"github.com/AllStack11/chaos-garden-sub002/internal/weather"
)

// Skip reasons reported in TickResult when a tick does not execute.
const (
	SkipLockUnavailable  = "lock_unavailable"
	SkipAlreadyProcessed = "already_processed"
)

// Death causes, in priority order when several apply at once.
const (
	CausePredation     = "predation"
	CauseOldAge        = "old age"
	CauseStarvation    = "starvation"
	CauseHealthFailure = "health failure"
)

// A species population counting at least this many members after at least
// doubling since the previous snapshot is reported as an explosion.
const explosionFloor = 20

// TickResult summarizes one RunTick call.
type TickResult struct {
	Executed    bool
	SkipReason  string
	TickNumber  int64
	Births      int
	Deaths      int
	Populations garden.PopulationSummary
	Events      []events.SimulationEvent
}

// Orchestrator is the single writer of durable garden state. Each RunTick
// acquires the process-wide lock, repairs any half-written tick left by a
// crash, advances the whole ecosystem exactly one tick and commits the
// result, progress cursor included, in a single transaction.
type Orchestrator struct {
	cfg     *config.Config
	repo    storage.GardenRepository
	control storage.SimulationControl
	rec     *events.Recorder
	logger  *logger.Logger
	rng     *rand.Rand

	env        *EnvironmentUpdater
	plants     *PlantSystem
	herbivores *HerbivoreSystem
	carnivores *CarnivoreSystem
	fungi      *FungusSystem

	// In-process pursuit memory; rebuilt empty on restart.
	hunts HuntLedger
}

// NewOrchestrator wires the behavior engines over a shared mutator and
// random source so a fixed seed replays the same garden history.
func NewOrchestrator(cfg *config.Config, repo storage.GardenRepository, control storage.SimulationControl, rec *events.Recorder, log *logger.Logger, rng *rand.Rand) *Orchestrator {
	bounds := Bounds{Width: cfg.Garden.Width, Height: cfg.Garden.Height}
	mutator := NewMutator(cfg.Mutation, rng)
	return &Orchestrator{
		cfg:        cfg,
		repo:       repo,
		control:    control,
		rec:        rec,
		logger:     log,
		rng:        rng,
		env:        NewEnvironmentUpdater(cfg, rng),
		plants:     NewPlantSystem(cfg.Plant, mutator, rec, log, bounds),
		herbivores: NewHerbivoreSystem(cfg.Herbivore, mutator, rng, rec, log, bounds),
		carnivores: NewCarnivoreSystem(cfg.Carnivore, mutator, rng, rec, log, bounds),
		fungi:      NewFungusSystem(cfg.Fungus, mutator, rec, log, bounds),
		hunts:      NewHuntLedger(),
	}
}

// RunTick executes one tick cycle end to end. It is safe to call from
// multiple triggers (timer, manual endpoint, second process): at most one
// caller executes, the rest skip.
func (o *Orchestrator) RunTick(ctx context.Context) (TickResult, error) {
	acquired, err := o.control.TryAcquireLock(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("acquiring tick lock: %w", err)
	}
	if !acquired {
		metrics.Get().RecordTickSkip()
		return TickResult{SkipReason: SkipLockUnavailable}, nil
	}
	defer func() {
		if err := o.control.ReleaseLock(context.WithoutCancel(ctx)); err != nil {
			o.logger.Errorf("releasing tick lock: %v", err)
		}
	}()

	started := time.Now()
	result, err := o.runLocked(ctx)
	if err != nil {
		o.rec.Discard()
		return result, err
	}
	if !result.Executed {
		metrics.Get().RecordTickSkip()
		return result, nil
	}

	metrics.Get().RecordTick(time.Since(started))
	metrics.Get().RecordPopulation(result.Births, result.Deaths, result.Populations.TotalLiving)
	o.logger.Tick(result.TickNumber, "completed",
		fmt.Sprintf("living=%d births=%d deaths=%d",
			result.Populations.TotalLiving, result.Births, result.Deaths))
	return result, nil
}

func (o *Orchestrator) runLocked(ctx context.Context) (TickResult, error) {
	marker, err := o.control.LastCompletedTick(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("reading progress cursor: %w", err)
	}
	latest, err := o.repo.LatestGardenState(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoGardenState) {
			return TickResult{}, fmt.Errorf("garden was never seeded: %w", err)
		}
		return TickResult{}, fmt.Errorf("loading latest snapshot: %w", err)
	}

	next := marker + 1
	if latest.Tick >= next {
		if latest.Tick > next {
			// More than one tick ahead of the cursor means state written
			// by something other than this orchestrator. Refuse to guess.
			return TickResult{}, fmt.Errorf("snapshot tick %d is ahead of cursor %d by more than one", latest.Tick, marker)
		}
		// A snapshot for the next tick already exists but the cursor never
		// moved: a half-committed tick was left behind. Purge its snapshot
		// and events and replay from the last completed snapshot.
		o.logger.Tick(next, "repair", fmt.Sprintf("purging partial tick %d", latest.Tick))
		if err := o.repo.PurgeTick(ctx, latest.Tick); err != nil {
			return TickResult{}, fmt.Errorf("repairing partial tick %d: %w", latest.Tick, err)
		}
		latest, err = o.repo.GardenStateByTick(ctx, marker)
		if err != nil {
			return TickResult{}, fmt.Errorf("loading completed snapshot %d: %w", marker, err)
		}
	} else if latest.Tick < marker {
		// Cursor ahead of every snapshot: the tick was fully committed by
		// a concurrent trigger between our lock attempt and now.
		return TickResult{SkipReason: SkipAlreadyProcessed, TickNumber: marker}, nil
	}

	return o.execute(ctx, latest, next)
}

// execute advances the ecosystem from the baseline snapshot to tick next
// and persists the outcome. The progress cursor moves last; everything
// before it is disposable on crash.
func (o *Orchestrator) execute(ctx context.Context, baseline *garden.State, next int64) (TickResult, error) {
	ents, err := o.repo.LivingEntities(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("loading living entities: %w", err)
	}

	env, mods := o.env.Update(baseline.Environment, next)
	o.recordWeatherShift(baseline.Environment.Weather, env.Weather, next)

	for _, e := range ents {
		e.Age++
	}

	var newborns []*entity.Entity
	consumed := make(map[string]bool)
	for _, e := range ents {
		if e.Dead() {
			// Eaten earlier in this same pass.
			continue
		}
		out := o.dispatch(e, env, mods, ents)
		newborns = append(newborns, out.Offspring...)
		for _, id := range out.Consumed {
			consumed[id] = true
		}
	}

	deaths := o.applyAttritionAndScanDeaths(ents, consumed, next)
	for _, id := range deaths {
		o.hunts.Forget(id)
	}

	pops := o.summarize(baseline.Populations, ents, newborns)
	o.recordPopulationEvents(baseline.Populations, pops, ents, newborns, next)
	o.rec.LogAmbient(next, o.ambientLine(env))

	state := &garden.State{
		Tick:        next,
		Timestamp:   time.Now().UTC(),
		Environment: env,
		Populations: pops,
	}
	flushed, err := o.persist(ctx, state, ents, newborns, deaths, next)
	if err != nil {
		return TickResult{}, err
	}

	return TickResult{
		Executed:    true,
		TickNumber:  next,
		Births:      len(newborns),
		Deaths:      len(deaths),
		Populations: pops,
		Events:      flushed,
	}, nil
}

// dispatch routes one entity through its species behavior engine.
func (o *Orchestrator) dispatch(e *entity.Entity, env garden.Environment, mods weather.Modifiers, all []*entity.Entity) Outcome {
	switch e.Species {
	case entity.SpeciesPlant:
		return o.plants.ProcessTick(e, env, mods, all)
	case entity.SpeciesHerbivore:
		return o.herbivores.ProcessTick(e, env, mods, all)
	case entity.SpeciesCarnivore:
		return o.carnivores.ProcessTick(e, env, mods, all, o.hunts)
	case entity.SpeciesFungus:
		return o.fungi.ProcessTick(e, env, mods, all)
	default:
		o.logger.Warn("unknown species tag on entity " + e.ID + ": " + string(e.Species))
		return Outcome{}
	}
}

// applyAttritionAndScanDeaths drains health for starving and over-age
// entities, then records every death with its highest-priority cause.
// Returns the ids of entities that died this tick.
func (o *Orchestrator) applyAttritionAndScanDeaths(ents []*entity.Entity, consumed map[string]bool, tick int64) []string {
	var deaths []string
	for _, e := range ents {
		if consumed[e.ID] {
			deaths = append(deaths, e.ID)
			o.rec.LogDeath(tick, e, CausePredation)
			continue
		}
		if e.Dead() {
			if !e.Alive {
				continue // Was already dead before this tick
			}
			e.Alive = false
			deaths = append(deaths, e.ID)
			o.rec.LogDeath(tick, e, CauseHealthFailure)
			continue
		}

		overAge := e.Age > o.maxLifespan(e.Species)
		if overAge {
			e.Health -= o.cfg.Starvation.SenescenceDecay
		}
		if e.Starving() {
			e.Health -= o.cfg.Starvation.HealthDecayPerTick
		}
		e.ClampVitals()
		if !e.Dead() {
			continue
		}

		e.Alive = false
		deaths = append(deaths, e.ID)
		cause := CauseHealthFailure
		switch {
		case overAge:
			cause = CauseOldAge
		case e.Starving():
			cause = CauseStarvation
		}
		o.rec.LogDeath(tick, e, cause)
	}
	return deaths
}

func (o *Orchestrator) maxLifespan(s entity.Species) int64 {
	switch s {
	case entity.SpeciesPlant:
		return o.cfg.Plant.MaxLifespan
	case entity.SpeciesHerbivore:
		return o.cfg.Herbivore.MaxLifespan
	case entity.SpeciesCarnivore:
		return o.cfg.Carnivore.MaxLifespan
	default:
		return o.cfg.Fungus.MaxLifespan
	}
}

// summarize counts the post-tick population, carrying the all-time death
// accumulator forward from the previous snapshot.
func (o *Orchestrator) summarize(prev garden.PopulationSummary, ents, newborns []*entity.Entity) garden.PopulationSummary {
	var pops garden.PopulationSummary
	count := func(e *entity.Entity) {
		if e.Dead() {
			pops.TotalDead++
			return
		}
		pops.TotalLiving++
		switch e.Species {
		case entity.SpeciesPlant:
			pops.PlantsLiving++
		case entity.SpeciesHerbivore:
			pops.HerbivoresLiving++
		case entity.SpeciesCarnivore:
			pops.CarnivoresLiving++
		case entity.SpeciesFungus:
			pops.FungiLiving++
		}
	}
	for _, e := range ents {
		count(e)
	}
	for _, e := range newborns {
		count(e)
	}
	pops.AllTimeDead = prev.AllTimeDead + pops.TotalDead
	return pops
}

// recordWeatherShift emits the environment-change event on a regime
// switch, plus a disaster event when severe weather sets in.
func (o *Orchestrator) recordWeatherShift(prev, cur weather.Active, tick int64) {
	if prev.State == cur.State {
		return
	}
	o.rec.LogEnvironmentChange(tick, string(prev.State), string(cur.State))
	switch cur.State {
	case weather.Storm, weather.Drought, weather.Heatwave:
		o.rec.LogDisaster(tick, string(cur.State))
	}
}

// recordPopulationEvents emits extinction, explosion and collapse events
// by comparing the new population summary against the previous one.
func (o *Orchestrator) recordPopulationEvents(prev, cur garden.PopulationSummary, ents, newborns []*entity.Entity, tick int64) {
	type speciesCount struct {
		species entity.Species
		before  int
		after   int
	}
	counts := []speciesCount{
		{entity.SpeciesPlant, prev.PlantsLiving, cur.PlantsLiving},
		{entity.SpeciesHerbivore, prev.HerbivoresLiving, cur.HerbivoresLiving},
		{entity.SpeciesCarnivore, prev.CarnivoresLiving, cur.CarnivoresLiving},
		{entity.SpeciesFungus, prev.FungiLiving, cur.FungiLiving},
	}
	for _, c := range counts {
		if c.before > 0 && c.after == 0 {
			o.rec.LogExtinction(tick, c.species)
		}
		if c.before > 0 && c.after >= c.before*2 && c.after >= explosionFloor {
			o.rec.LogPopulationExplosion(tick, c.species, c.after)
		}
	}
	if prev.TotalLiving > 0 && cur.TotalLiving == 0 {
		o.rec.LogEcosystemCollapse(tick)
	}
}

// ambientLine picks the single per-tick narrative flourish.
func (o *Orchestrator) ambientLine(env garden.Environment) string {
	lines, ok := ambientLines[env.Weather.State]
	if !ok {
		lines = ambientLines[weather.Clear]
	}
	return lines[o.rng.Intn(len(lines))]
}

var ambientLines = map[weather.State][]string{
	weather.Clear: {
		"sunlight pools between the leaves",
		"the garden hums quietly to itself",
		"a warm stillness settles over the beds",
	},
	weather.Rain: {
		"rain beads and drips from every stem",
		"the soil darkens and drinks",
	},
	weather.Storm: {
		"wind tears at the canopy",
		"thunder rolls across the garden",
	},
	weather.Drought: {
		"the earth cracks in the long dry",
		"leaves curl against the thirst",
	},
	weather.Fog: {
		"fog erases the far end of the garden",
		"shapes drift half-seen through the mist",
	},
	weather.Heatwave: {
		"the air shimmers above the beds",
		"everything droops under the heat",
	},
}

// persist commits the tick atomically: snapshot, entity upserts, death
// flags, events and the progress cursor land in one transaction. A crash
// leaves either the previous tick intact or the new one complete, never
// a mix for the next run to untangle.
func (o *Orchestrator) persist(ctx context.Context, state *garden.State, ents, newborns []*entity.Entity, deaths []string, tick int64) ([]events.SimulationEvent, error) {
	all := make([]*entity.Entity, 0, len(ents)+len(newborns))
	all = append(all, ents...)
	all = append(all, newborns...)

	batch := o.rec.Drain()
	commitStart := time.Now()
	err := o.repo.CommitTick(ctx, state, all, deaths, batch)
	metrics.Get().RecordEventWrite(len(batch), time.Since(commitStart), err)
	if err != nil {
		return nil, fmt.Errorf("committing tick %d: %w", tick, err)
	}
	return batch, nil
}
