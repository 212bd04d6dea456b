package events

import (
	"testing"

	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
)

func TestRecorderBuffersUntilDrain(t *testing.T) {
	rec := NewRecorder()
	child := &entity.Entity{ID: "e1", Species: entity.SpeciesPlant, Lineage: "origin"}

	rec.LogBirth(3, child)
	rec.LogAmbient(3, "a quiet moment")
	if rec.Pending() != 2 {
		t.Fatalf("Expected 2 buffered events, got %d", rec.Pending())
	}

	batch := rec.Drain()
	if len(batch) != 2 {
		t.Fatalf("Expected 2 drained events, got %d", len(batch))
	}
	for _, evt := range batch {
		if evt.ID == "" {
			t.Error("Expected event assigned an id")
		}
		if evt.Timestamp.IsZero() {
			t.Error("Expected event assigned a timestamp")
		}
	}
	if rec.Pending() != 0 {
		t.Errorf("Expected empty buffer after drain, got %d", rec.Pending())
	}
}

func TestRecorderDrainEmptyBufferIsNil(t *testing.T) {
	rec := NewRecorder()
	if batch := rec.Drain(); batch != nil {
		t.Errorf("Expected nil batch from empty buffer, got %v", batch)
	}
}

func TestRecorderDiscardDropsBuffer(t *testing.T) {
	rec := NewRecorder()
	rec.LogAmbient(1, "nothing happens")
	rec.Discard()
	if rec.Pending() != 0 {
		t.Errorf("Expected empty buffer after discard, got %d", rec.Pending())
	}
}

func TestDeathEventCarriesCause(t *testing.T) {
	rec := NewRecorder()
	e := &entity.Entity{ID: "h1", Species: entity.SpeciesHerbivore, Age: 42}
	rec.LogDeath(9, e, "starvation")

	batch := rec.Drain()
	if len(batch) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(batch))
	}
	evt := batch[0]
	if evt.Type != EventTypeDeath || evt.EntityID != "h1" {
		t.Errorf("Unexpected death event %+v", evt)
	}
	if cause, _ := evt.Payload["cause"].(string); cause != "starvation" {
		t.Errorf("Expected cause starvation, got %q", cause)
	}
}
