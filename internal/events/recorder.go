// Package events provides the narrative event recorder for the garden.
// Behavior engines log fire-and-forget; the orchestrator drains the buffer
// into the tick commit so events land durably with their snapshot.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
)

// EventType categorizes a narrative event.
type EventType string

const (
	EventTypeBirth               EventType = "BIRTH"
	EventTypeDeath               EventType = "DEATH"
	EventTypeMutation            EventType = "MUTATION"
	EventTypeReproduction        EventType = "REPRODUCTION"
	EventTypeExtinction          EventType = "EXTINCTION"
	EventTypePopulationExplosion EventType = "POPULATION_EXPLOSION"
	EventTypeEcosystemCollapse   EventType = "ECOSYSTEM_COLLAPSE"
	EventTypeDisaster            EventType = "DISASTER"
	EventTypeUserIntervention    EventType = "USER_INTERVENTION"
	EventTypeEnvironmentChange   EventType = "ENVIRONMENT_CHANGE"
	EventTypeAmbient             EventType = "AMBIENT"
)

// SimulationEvent is a write-once narrative record tied to the garden
// state and tick that produced it.
type SimulationEvent struct {
	ID            string         `json:"id"`
	GardenStateID string         `json:"garden_state_id"`
	Tick          int64          `json:"tick"`
	Timestamp     time.Time      `json:"timestamp"`
	Type          EventType      `json:"type"`
	EntityID      string         `json:"entity_id,omitempty"`
	Species       entity.Species `json:"species,omitempty"`
	Message       string         `json:"message"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// Recorder is the buffered narrative logger. Logging never fails from the
// caller's perspective; durability happens when the drained batch commits
// with the tick.
type Recorder struct {
	mu  sync.Mutex
	buf []SimulationEvent
	now func() time.Time
}

// NewRecorder creates an empty event recorder.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

func (r *Recorder) append(evt SimulationEvent) {
	evt.ID = uuid.NewString()
	evt.Timestamp = r.now()
	r.mu.Lock()
	r.buf = append(r.buf, evt)
	r.mu.Unlock()
}

// LogBirth records a newborn entity.
func (r *Recorder) LogBirth(tick int64, child *entity.Entity) {
	r.append(SimulationEvent{
		Tick: tick, Type: EventTypeBirth, EntityID: child.ID, Species: child.Species,
		Message: "a new " + string(child.Species) + " sprouts into the garden",
		Payload: map[string]any{"lineage": child.Lineage, "x": child.X, "y": child.Y},
	})
}

// LogDeath records a death with its computed cause.
func (r *Recorder) LogDeath(tick int64, e *entity.Entity, cause string) {
	r.append(SimulationEvent{
		Tick: tick, Type: EventTypeDeath, EntityID: e.ID, Species: e.Species,
		Message: "a " + string(e.Species) + " dies of " + cause,
		Payload: map[string]any{"cause": cause, "age": e.Age},
	})
}

// LogMutation records a trait that drifted beyond the reporting threshold.
func (r *Recorder) LogMutation(tick int64, child *entity.Entity, trait string, from, to float64) {
	r.append(SimulationEvent{
		Tick: tick, Type: EventTypeMutation, EntityID: child.ID, Species: child.Species,
		Message: "a " + string(child.Species) + " is born with a mutated " + trait,
		Payload: map[string]any{"trait": trait, "from": from, "to": to},
	})
}

// LogReproduction records a successful reproduction trial.
func (r *Recorder) LogReproduction(tick int64, parent *entity.Entity, childID string) {
	r.append(SimulationEvent{
		Tick: tick, Type: EventTypeReproduction, EntityID: parent.ID, Species: parent.Species,
		Message: "a " + string(parent.Species) + " reproduces",
		Payload: map[string]any{"child_id": childID},
	})
}

// LogExtinction records a species dropping to zero living members.
func (r *Recorder) LogExtinction(tick int64, species entity.Species) {
	r.append(SimulationEvent{
		Tick: tick, Type: EventTypeExtinction, Species: species,
		Message: "the last " + string(species) + " is gone; a silence settles over the garden",
	})
}

// LogPopulationExplosion records a species boom.
func (r *Recorder) LogPopulationExplosion(tick int64, species entity.Species, count int) {
	r.append(SimulationEvent{
		Tick: tick, Type: EventTypePopulationExplosion, Species: species,
		Message: "the " + string(species) + " population surges",
		Payload: map[string]any{"count": count},
	})
}

// LogEcosystemCollapse records the garden losing all living entities.
func (r *Recorder) LogEcosystemCollapse(tick int64) {
	r.append(SimulationEvent{
		Tick: tick, Type: EventTypeEcosystemCollapse,
		Message: "nothing stirs; the garden has collapsed",
	})
}

// LogDisaster records severe weather setting in.
func (r *Recorder) LogDisaster(tick int64, kind string) {
	r.append(SimulationEvent{
		Tick: tick, Type: EventTypeDisaster,
		Message: "disaster: " + kind + " grips the garden",
		Payload: map[string]any{"kind": kind},
	})
}

// LogUserIntervention records an outside hand reaching into the garden.
func (r *Recorder) LogUserIntervention(tick int64, action, detail string) {
	r.append(SimulationEvent{
		Tick: tick, Type: EventTypeUserIntervention,
		Message: "an outside hand intervenes: " + action,
		Payload: map[string]any{"action": action, "detail": detail},
	})
}

// LogEnvironmentChange records a weather regime shift.
func (r *Recorder) LogEnvironmentChange(tick int64, from, to string) {
	r.append(SimulationEvent{
		Tick: tick, Type: EventTypeEnvironmentChange,
		Message: "the weather turns from " + from + " to " + to,
		Payload: map[string]any{"from": from, "to": to},
	})
}

// LogAmbient records the single per-tick ambient narrative line.
func (r *Recorder) LogAmbient(tick int64, message string) {
	r.append(SimulationEvent{Tick: tick, Type: EventTypeAmbient, Message: message})
}

// Pending returns the number of buffered events.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Discard drops the buffer without persisting. Used when a tick is skipped
// or fails before the persistence phase.
func (r *Recorder) Discard() {
	r.mu.Lock()
	r.buf = nil
	r.mu.Unlock()
}

// Drain empties the buffer and returns the batch for the tick commit. The
// commit stamps each event with the snapshot id it lands with; a failed
// commit regenerates the events on replay, so nothing is requeued.
func (r *Recorder) Drain() []SimulationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := r.buf
	r.buf = nil
	return batch
}
