package engine

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/AllStack11/chaos-garden-sub002/internal/config"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/garden"
	"github.com/AllStack11/chaos-garden-sub002/internal/events"
	"github.com/AllStack11/chaos-garden-sub002/internal/infra/storage"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/logger"
	"github.com/AllStack11/chaos-garden-sub002/internal/weather"
)

// fakeRepo is an in-memory GardenRepository. Loads return copies so the
// orchestrator's in-place mutations do not leak back, mimicking a real
// database round trip. CommitTick is all-or-nothing like its SQLite
// counterpart: a failed commit touches nothing.
type fakeRepo struct {
	states   []*garden.State
	entities []*entity.Entity
	events   []events.SimulationEvent

	control     *fakeControl
	purgedTicks []int64
	failCommit  bool
}

func (r *fakeRepo) LatestGardenState(ctx context.Context) (*garden.State, error) {
	if len(r.states) == 0 {
		return nil, storage.ErrNoGardenState
	}
	best := r.states[0]
	for _, s := range r.states[1:] {
		if s.Tick >= best.Tick {
			best = s
		}
	}
	cp := *best
	return &cp, nil
}

func (r *fakeRepo) GardenStateByTick(ctx context.Context, tick int64) (*garden.State, error) {
	for i := len(r.states) - 1; i >= 0; i-- {
		if r.states[i].Tick == tick {
			cp := *r.states[i]
			return &cp, nil
		}
	}
	return nil, storage.ErrNoGardenState
}

func (r *fakeRepo) LivingEntities(ctx context.Context) ([]*entity.Entity, error) {
	var out []*entity.Entity
	for _, e := range r.entities {
		if e.Alive {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) saveState(state *garden.State) {
	if state.ID == "" {
		state.ID = fmt.Sprintf("state-%d-%d", state.Tick, len(r.states))
	}
	cp := *state
	r.states = append(r.states, &cp)
}

func (r *fakeRepo) upsertEntities(gardenStateID string, ents []*entity.Entity) {
	for _, e := range ents {
		cp := *e
		cp.GardenStateID = gardenStateID
		replaced := false
		for i, existing := range r.entities {
			if existing.ID == e.ID {
				r.entities[i] = &cp
				replaced = true
				break
			}
		}
		if !replaced {
			r.entities = append(r.entities, &cp)
		}
	}
}

func (r *fakeRepo) SaveOrigin(ctx context.Context, state *garden.State, ents []*entity.Entity) error {
	r.saveState(state)
	r.upsertEntities(state.ID, ents)
	return nil
}

func (r *fakeRepo) CommitTick(ctx context.Context, state *garden.State, ents []*entity.Entity, deadIDs []string, batch []events.SimulationEvent) error {
	if r.failCommit {
		return fmt.Errorf("commit tick: disk full")
	}
	r.saveState(state)
	for i := range batch {
		batch[i].GardenStateID = state.ID
	}
	r.upsertEntities(state.ID, ents)
	for _, id := range deadIDs {
		for _, e := range r.entities {
			if e.ID == id {
				e.Alive = false
			}
		}
	}
	r.events = append(r.events, batch...)
	r.control.lastTick = state.Tick
	return nil
}

func (r *fakeRepo) PurgeTick(ctx context.Context, tick int64) error {
	r.purgedTicks = append(r.purgedTicks, tick)
	var keptEvents []events.SimulationEvent
	for _, evt := range r.events {
		if evt.Tick != tick {
			keptEvents = append(keptEvents, evt)
		}
	}
	r.events = keptEvents
	var keptStates []*garden.State
	for _, s := range r.states {
		if s.Tick != tick {
			keptStates = append(keptStates, s)
		}
	}
	r.states = keptStates
	return nil
}

// fakeControl is an in-memory SimulationControl.
type fakeControl struct {
	lockHeld bool
	lastTick int64
}

func (c *fakeControl) TryAcquireLock(ctx context.Context) (bool, error) {
	if c.lockHeld {
		return false, nil
	}
	c.lockHeld = true
	return true, nil
}

func (c *fakeControl) ReleaseLock(ctx context.Context) error {
	c.lockHeld = false
	return nil
}

func (c *fakeControl) LastCompletedTick(ctx context.Context) (int64, error) {
	return c.lastTick, nil
}

func seededRepo(tick int64) *fakeRepo {
	repo := &fakeRepo{}
	repo.states = append(repo.states, &garden.State{
		ID:   fmt.Sprintf("seed-%d", tick),
		Tick: tick,
		Environment: garden.Environment{
			Temperature: 18, Sunlight: 0.5, Moisture: 0.5, Tick: tick,
			Weather: weather.Active{State: weather.Clear, Previous: weather.Clear, EnteredAtTick: 0, PlannedDurationTicks: 1000},
		},
		Populations: garden.PopulationSummary{PlantsLiving: 2, TotalLiving: 2},
	})
	repo.entities = []*entity.Entity{
		livingPlant("p1", 20, 20, 70),
		livingPlant("p2", 60, 60, 70),
	}
	return repo
}

func newTestOrchestrator(repo *fakeRepo, control *fakeControl, seed int64) *Orchestrator {
	repo.control = control
	cfg := config.MustLoad("")
	rng := rand.New(rand.NewSource(seed))
	return NewOrchestrator(cfg, repo, control, events.NewRecorder(), logger.NewLogger(), rng)
}

func TestRunTickSkipsWhenLockHeld(t *testing.T) {
	repo := seededRepo(0)
	control := &fakeControl{lockHeld: true}
	orch := newTestOrchestrator(repo, control, 1)

	result, err := orch.RunTick(context.Background())
	if err != nil {
		t.Fatalf("Expected no error on held lock, got %v", err)
	}
	if result.Executed {
		t.Error("Expected tick not to execute while lock is held")
	}
	if result.SkipReason != SkipLockUnavailable {
		t.Errorf("Expected skip reason %q, got %q", SkipLockUnavailable, result.SkipReason)
	}
	if !control.lockHeld {
		t.Error("Expected foreign lock to remain held after a failed acquire")
	}
}

func TestRunTickFailsWhenNeverSeeded(t *testing.T) {
	repo := &fakeRepo{}
	control := &fakeControl{}
	orch := newTestOrchestrator(repo, control, 1)

	if _, err := orch.RunTick(context.Background()); err == nil {
		t.Fatal("Expected error on unseeded garden")
	}
	if control.lockHeld {
		t.Error("Expected lock released after a failed tick")
	}
}

func TestRunTickAdvancesOneTick(t *testing.T) {
	repo := seededRepo(0)
	control := &fakeControl{}
	orch := newTestOrchestrator(repo, control, 1)

	result, err := orch.RunTick(context.Background())
	if err != nil {
		t.Fatalf("Expected tick to succeed, got %v", err)
	}
	if !result.Executed || result.TickNumber != 1 {
		t.Fatalf("Expected executed tick 1, got %+v", result)
	}
	if control.lastTick != 1 {
		t.Errorf("Expected progress cursor at 1, got %d", control.lastTick)
	}
	if control.lockHeld {
		t.Error("Expected lock released after a completed tick")
	}

	latest, _ := repo.LatestGardenState(context.Background())
	if latest.Tick != 1 {
		t.Errorf("Expected snapshot for tick 1, got %d", latest.Tick)
	}
	if len(result.Events) == 0 {
		t.Error("Expected at least the ambient event to be flushed")
	}
	ambient := 0
	for _, evt := range result.Events {
		if evt.Type == events.EventTypeAmbient {
			ambient++
		}
		if evt.GardenStateID != latest.ID {
			t.Errorf("Expected event bound to snapshot %s, got %s", latest.ID, evt.GardenStateID)
		}
	}
	if ambient != 1 {
		t.Errorf("Expected exactly one ambient event per tick, got %d", ambient)
	}
}

func TestRunTickSkipsAlreadyProcessedTick(t *testing.T) {
	repo := seededRepo(4)
	control := &fakeControl{lastTick: 5}
	orch := newTestOrchestrator(repo, control, 1)

	result, err := orch.RunTick(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Executed {
		t.Error("Expected no execution for an already-processed tick")
	}
	if result.SkipReason != SkipAlreadyProcessed {
		t.Errorf("Expected skip reason %q, got %q", SkipAlreadyProcessed, result.SkipReason)
	}
	if control.lockHeld {
		t.Error("Expected lock released after the skip")
	}
}

func TestRunTickRepairsPartialTick(t *testing.T) {
	repo := seededRepo(0)
	// A crashed run left a tick-1 snapshot, entities and events behind but
	// never advanced the cursor.
	repo.states = append(repo.states, &garden.State{
		ID: "dangling", Tick: 1,
		Environment: garden.Environment{
			Weather: weather.Active{State: weather.Rain, Previous: weather.Clear, PlannedDurationTicks: 50},
		},
	})
	repo.events = append(repo.events, events.SimulationEvent{ID: "stale", Tick: 1, Type: events.EventTypeAmbient})
	control := &fakeControl{lastTick: 0}
	orch := newTestOrchestrator(repo, control, 1)

	result, err := orch.RunTick(context.Background())
	if err != nil {
		t.Fatalf("Expected repair and re-execution, got %v", err)
	}
	if !result.Executed || result.TickNumber != 1 {
		t.Fatalf("Expected tick 1 re-executed, got %+v", result)
	}
	if len(repo.purgedTicks) != 1 || repo.purgedTicks[0] != 1 {
		t.Errorf("Expected dangling tick 1 purged, got %v", repo.purgedTicks)
	}
	for _, evt := range repo.events {
		if evt.ID == "stale" {
			t.Error("Expected stale event purged from the store")
		}
	}
	tickOneSnapshots := 0
	for _, s := range repo.states {
		if s.ID == "dangling" {
			t.Error("Expected dangling snapshot purged from the store")
		}
		if s.Tick == 1 {
			tickOneSnapshots++
		}
	}
	if tickOneSnapshots != 1 {
		t.Errorf("Expected exactly one tick-1 snapshot after repair, got %d", tickOneSnapshots)
	}
	if control.lastTick != 1 {
		t.Errorf("Expected cursor advanced to 1 after repair, got %d", control.lastTick)
	}
}

func TestRunTickRefusesSnapshotFarAheadOfCursor(t *testing.T) {
	repo := seededRepo(3)
	control := &fakeControl{lastTick: 0}
	orch := newTestOrchestrator(repo, control, 1)

	if _, err := orch.RunTick(context.Background()); err == nil {
		t.Fatal("Expected error when snapshot is several ticks ahead of the cursor")
	}
	if control.lockHeld {
		t.Error("Expected lock released after the refusal")
	}
}

func TestRunTickCommitFailureLeavesNoPartialState(t *testing.T) {
	repo := seededRepo(0)
	repo.failCommit = true
	control := &fakeControl{}
	orch := newTestOrchestrator(repo, control, 1)

	if _, err := orch.RunTick(context.Background()); err == nil {
		t.Fatal("Expected error when the tick commit fails")
	}
	if control.lastTick != 0 {
		t.Errorf("Expected cursor unchanged on failure, got %d", control.lastTick)
	}
	if len(repo.states) != 1 || repo.states[0].Tick != 0 {
		t.Errorf("Expected only the seed snapshot after failure, got %d snapshots", len(repo.states))
	}
	for _, e := range repo.entities {
		if e.Age != 0 {
			t.Errorf("Expected entity %s untouched after failed commit, got age %d", e.ID, e.Age)
		}
	}
	if len(repo.events) != 0 {
		t.Errorf("Expected no events persisted after failure, got %d", len(repo.events))
	}
	if control.lockHeld {
		t.Error("Expected lock released after the failure")
	}
}

func TestReplayAfterCommitFailureMatchesCleanRun(t *testing.T) {
	// A starving, health-depleted herbivore is one tick from death, so any
	// leaked partial state from the failed attempt would shift the death
	// and population counts of the replay.
	seeded := func() *fakeRepo {
		repo := seededRepo(0)
		doomed := livingHerbivore("h-doomed", 80, 80, 0)
		doomed.Health = 2
		repo.entities = append(repo.entities, doomed)
		return repo
	}

	cleanRepo := seeded()
	clean, err := newTestOrchestrator(cleanRepo, &fakeControl{}, 7).RunTick(context.Background())
	if err != nil {
		t.Fatalf("Expected clean tick to succeed, got %v", err)
	}
	if clean.Deaths != 1 {
		t.Fatalf("Expected one death in the clean run, got %d", clean.Deaths)
	}

	crashRepo := seeded()
	crashControl := &fakeControl{}
	crashRepo.failCommit = true
	if _, err := newTestOrchestrator(crashRepo, crashControl, 7).RunTick(context.Background()); err == nil {
		t.Fatal("Expected error from the failed commit")
	}

	crashRepo.failCommit = false
	replay, err := newTestOrchestrator(crashRepo, crashControl, 7).RunTick(context.Background())
	if err != nil {
		t.Fatalf("Expected replay to succeed, got %v", err)
	}
	if replay.Populations != clean.Populations {
		t.Errorf("Expected replay summary %+v to match clean run, got %+v", clean.Populations, replay.Populations)
	}
	if replay.Deaths != clean.Deaths {
		t.Errorf("Expected replay deaths %d to match clean run, got %d", clean.Deaths, replay.Deaths)
	}
	if crashControl.lastTick != 1 {
		t.Errorf("Expected cursor at 1 after replay, got %d", crashControl.lastTick)
	}
}

func TestRunTickIsDeterministicForSeed(t *testing.T) {
	run := func() garden.PopulationSummary {
		repo := seededRepo(0)
		control := &fakeControl{}
		orch := newTestOrchestrator(repo, control, 42)
		for i := 0; i < 10; i++ {
			if _, err := orch.RunTick(context.Background()); err != nil {
				t.Fatalf("Tick %d failed: %v", i, err)
			}
		}
		latest, _ := repo.LatestGardenState(context.Background())
		return latest.Populations
	}

	first := run()
	second := run()
	if first != second {
		t.Errorf("Expected identical runs for one seed, got %+v and %+v", first, second)
	}
}

func TestRunTickRecordsDeaths(t *testing.T) {
	repo := seededRepo(0)
	// A starving, health-depleted herbivore dies this tick.
	doomed := livingHerbivore("h-doomed", 80, 80, 0)
	doomed.Health = 2
	repo.entities = append(repo.entities, doomed)
	control := &fakeControl{}
	orch := newTestOrchestrator(repo, control, 1)

	result, err := orch.RunTick(context.Background())
	if err != nil {
		t.Fatalf("Expected tick to succeed, got %v", err)
	}
	if result.Deaths != 1 {
		t.Fatalf("Expected one death, got %d", result.Deaths)
	}
	var death *events.SimulationEvent
	for i := range result.Events {
		if result.Events[i].Type == events.EventTypeDeath {
			death = &result.Events[i]
		}
	}
	if death == nil {
		t.Fatal("Expected a death event in the flushed batch")
	}
	if cause, _ := death.Payload["cause"].(string); cause != CauseStarvation {
		t.Errorf("Expected starvation as death cause, got %q", cause)
	}
	for _, e := range repo.entities {
		if e.ID == "h-doomed" && e.Alive {
			t.Error("Expected doomed herbivore marked dead in the store")
		}
	}
}
