package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/garden"
	"github.com/AllStack11/chaos-garden-sub002/internal/events"
	"github.com/AllStack11/chaos-garden-sub002/internal/weather"
)

// SQLiteGardenRepository implements GardenRepository for SQLite.
type SQLiteGardenRepository struct {
	db *sql.DB
}

func NewSQLiteGardenRepository(db *sql.DB) *SQLiteGardenRepository {
	return &SQLiteGardenRepository{db: db}
}

const gardenStateColumns = `id, tick, timestamp, temperature, sunlight, moisture, weather,
	plants_living, herbivores_living, carnivores_living, fungi_living,
	total_living, total_dead, all_time_dead`

func (r *SQLiteGardenRepository) scanGardenState(row *sql.Row) (*garden.State, error) {
	var s garden.State
	var weatherJSON string
	err := row.Scan(
		&s.ID, &s.Tick, &s.Timestamp,
		&s.Environment.Temperature, &s.Environment.Sunlight, &s.Environment.Moisture, &weatherJSON,
		&s.Populations.PlantsLiving, &s.Populations.HerbivoresLiving,
		&s.Populations.CarnivoresLiving, &s.Populations.FungiLiving,
		&s.Populations.TotalLiving, &s.Populations.TotalDead, &s.Populations.AllTimeDead,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoGardenState
		}
		return nil, err
	}
	var active weather.Active
	if err := json.Unmarshal([]byte(weatherJSON), &active); err != nil {
		return nil, fmt.Errorf("failed to decode weather state: %w", err)
	}
	s.Environment.Weather = active
	s.Environment.Tick = s.Tick
	return &s, nil
}

func (r *SQLiteGardenRepository) LatestGardenState(ctx context.Context) (*garden.State, error) {
	query := `SELECT ` + gardenStateColumns + ` FROM garden_states ORDER BY tick DESC, timestamp DESC LIMIT 1`
	return r.scanGardenState(r.db.QueryRowContext(ctx, query))
}

func (r *SQLiteGardenRepository) GardenStateByTick(ctx context.Context, tick int64) (*garden.State, error) {
	query := `SELECT ` + gardenStateColumns + ` FROM garden_states WHERE tick = ? ORDER BY timestamp DESC LIMIT 1`
	return r.scanGardenState(r.db.QueryRowContext(ctx, query, tick))
}

func insertGardenState(ctx context.Context, tx *sql.Tx, s *garden.State) error {
	weatherJSON, err := json.Marshal(s.Environment.Weather)
	if err != nil {
		return fmt.Errorf("failed to marshal weather state: %w", err)
	}
	query := `
		INSERT INTO garden_states (` + gardenStateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		s.ID, s.Tick, s.Timestamp,
		s.Environment.Temperature, s.Environment.Sunlight, s.Environment.Moisture, string(weatherJSON),
		s.Populations.PlantsLiving, s.Populations.HerbivoresLiving,
		s.Populations.CarnivoresLiving, s.Populations.FungiLiving,
		s.Populations.TotalLiving, s.Populations.TotalDead, s.Populations.AllTimeDead,
	)
	return err
}

func (r *SQLiteGardenRepository) LivingEntities(ctx context.Context) ([]*entity.Entity, error) {
	query := `SELECT id, species, x, y, energy, health, age, alive, lineage, born_at_tick, garden_state_id, traits
		FROM entities WHERE alive = 1 ORDER BY born_at_tick, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ents []*entity.Entity
	for rows.Next() {
		var e entity.Entity
		var traitsJSON string
		var gardenStateID sql.NullString
		err := rows.Scan(
			&e.ID, &e.Species, &e.X, &e.Y, &e.Energy, &e.Health,
			&e.Age, &e.Alive, &e.Lineage, &e.BornAtTick, &gardenStateID, &traitsJSON,
		)
		if err != nil {
			return nil, err
		}
		e.GardenStateID = gardenStateID.String
		traits, err := entity.UnmarshalTraits(e.Species, []byte(traitsJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to decode traits for entity %s: %w", e.ID, err)
		}
		e.Traits = traits
		ents = append(ents, &e)
	}
	return ents, rows.Err()
}

func upsertEntities(ctx context.Context, tx *sql.Tx, gardenStateID string, ents []*entity.Entity) error {
	if len(ents) == 0 {
		return nil
	}
	query := `
		INSERT INTO entities (id, species, x, y, energy, health, age, alive, lineage, born_at_tick, garden_state_id, traits, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			x=excluded.x,
			y=excluded.y,
			energy=excluded.energy,
			health=excluded.health,
			age=excluded.age,
			alive=excluded.alive,
			garden_state_id=excluded.garden_state_id,
			traits=excluded.traits,
			last_updated=excluded.last_updated
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, e := range ents {
		traitsJSON, err := entity.MarshalTraits(e.Traits)
		if err != nil {
			return fmt.Errorf("failed to marshal traits for entity %s: %w", e.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			e.ID, e.Species, e.X, e.Y, e.Energy, e.Health,
			e.Age, e.Alive, e.Lineage, e.BornAtTick, gardenStateID, string(traitsJSON), now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func markEntitiesDead(ctx context.Context, tx *sql.Tx, ids []string, tick int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	query := `UPDATE entities SET alive = 0, died_at_tick = ?, last_updated = ? WHERE id IN (` + placeholders + `)`

	args := make([]any, 0, len(ids)+2)
	args = append(args, tick, time.Now())
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func appendEvents(ctx context.Context, tx *sql.Tx, batch []events.SimulationEvent) error {
	if len(batch) == 0 {
		return nil
	}
	query := `
		INSERT INTO events (id, garden_state_id, tick, timestamp, event_type, entity_id, species, message, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, evt := range batch {
		payloadJSON, err := json.Marshal(evt.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			evt.ID, evt.GardenStateID, evt.Tick, evt.Timestamp,
			evt.Type, evt.EntityID, evt.Species, evt.Message, string(payloadJSON),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteGardenRepository) SaveOrigin(ctx context.Context, s *garden.State, ents []*entity.Entity) error {
	stampGardenState(s)
	err := retryOnContention(func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := insertGardenState(ctx, tx, s); err != nil {
			return err
		}
		if err := upsertEntities(ctx, tx, s.ID, ents); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to save origin generation: %w", err)
	}
	return nil
}

// CommitTick is the single write path for a completed tick. Everything the
// tick produced commits in one transaction, cursor included, so a crash
// leaves either the previous tick or the new one, never a mix.
func (r *SQLiteGardenRepository) CommitTick(ctx context.Context, s *garden.State, ents []*entity.Entity, deadIDs []string, batch []events.SimulationEvent) error {
	stampGardenState(s)
	for i := range batch {
		batch[i].GardenStateID = s.ID
	}
	err := retryOnContention(func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := insertGardenState(ctx, tx, s); err != nil {
			return err
		}
		if err := upsertEntities(ctx, tx, s.ID, ents); err != nil {
			return err
		}
		if err := markEntitiesDead(ctx, tx, deadIDs, s.Tick); err != nil {
			return err
		}
		if err := appendEvents(ctx, tx, batch); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sim_control SET last_completed_tick = ? WHERE id = 1`, s.Tick); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to commit tick %d: %w", s.Tick, err)
	}
	return nil
}

func (r *SQLiteGardenRepository) PurgeTick(ctx context.Context, tick int64) error {
	err := retryOnContention(func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE tick = ?`, tick); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM garden_states WHERE tick = ?`, tick); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to purge tick %d: %w", tick, err)
	}
	return nil
}

func stampGardenState(s *garden.State) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
}
