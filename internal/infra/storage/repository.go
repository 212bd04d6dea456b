// Package storage provides the SQLite persistence layer for the garden.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"

	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/garden"
	"github.com/AllStack11/chaos-garden-sub002/internal/events"
)

// ErrNoGardenState is returned when a requested snapshot does not exist.
// Absence of any prior garden state is a fatal precondition for a tick.
var ErrNoGardenState = errors.New("no garden state found")

// GardenRepository is the persistence contract consumed by the orchestrator.
type GardenRepository interface {
	// LatestGardenState returns the newest persisted snapshot,
	// or ErrNoGardenState when the garden was never seeded.
	LatestGardenState(ctx context.Context) (*garden.State, error)

	// GardenStateByTick returns the snapshot for an exact tick.
	GardenStateByTick(ctx context.Context, tick int64) (*garden.State, error)

	// LivingEntities loads every entity whose alive flag is still set.
	LivingEntities(ctx context.Context) ([]*entity.Entity, error)

	// SaveOrigin persists the seed snapshot and its entities in one
	// transaction.
	SaveOrigin(ctx context.Context, state *garden.State, ents []*entity.Entity) error

	// CommitTick persists a completed tick in one transaction: the
	// snapshot, the entity upserts, the death flags, the event batch and
	// the progress cursor land together or not at all. Events are stamped
	// with the snapshot id in place.
	CommitTick(ctx context.Context, state *garden.State, ents []*entity.Entity, deadIDs []string, batch []events.SimulationEvent) error

	// PurgeTick removes the snapshot and events of a dangling tick left
	// behind by a half-committed write.
	PurgeTick(ctx context.Context, tick int64) error
}

// SimulationControl is the mutual-exclusion and progress-marker contract.
// The lock and the last-completed-tick marker together form the
// write-ahead-log-style recovery mechanism. The cursor only advances
// inside CommitTick; control exposes it read-only.
type SimulationControl interface {
	// TryAcquireLock takes the process-wide tick lock without blocking.
	TryAcquireLock(ctx context.Context) (bool, error)

	// ReleaseLock releases the tick lock.
	ReleaseLock(ctx context.Context) error

	// LastCompletedTick returns the durable progress cursor.
	LastCompletedTick(ctx context.Context) (int64, error)
}
