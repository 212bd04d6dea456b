package engine

import (
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
)

// Outcome is what a species system reports for one processed entity:
// any newborns and the ids of prey or resources consumed this tick.
type Outcome struct {
	Offspring []*entity.Entity
	Consumed  []string
}

// HuntState is a carnivore's ephemeral pursuit memory. It is scratch state
// for behavior continuity across ticks within one process, never persisted.
type HuntState struct {
	TargetID          string
	TicksSpentHunting int
}

// HuntLedger is the orchestrator-owned side table of hunting state keyed by
// carnivore id. It is threaded through each tick explicitly rather than
// living in a package global.
type HuntLedger map[string]*HuntState

// NewHuntLedger creates an empty ledger.
func NewHuntLedger() HuntLedger {
	return make(HuntLedger)
}

// For returns the hunt state for a carnivore, creating it when absent.
func (l HuntLedger) For(id string) *HuntState {
	st, ok := l[id]
	if !ok {
		st = &HuntState{}
		l[id] = st
	}
	return st
}

// Forget drops the state of a dead or departed carnivore.
func (l HuntLedger) Forget(id string) {
	delete(l, id)
}
