package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteSimulationControl implements SimulationControl against the single
// sim_control row. The lock acquire is a conditional update so losing a
// race yields false, never a block.
type SQLiteSimulationControl struct {
	db *sql.DB
}

func NewSQLiteSimulationControl(db *sql.DB) *SQLiteSimulationControl {
	return &SQLiteSimulationControl{db: db}
}

func (c *SQLiteSimulationControl) TryAcquireLock(ctx context.Context) (bool, error) {
	var acquired bool
	err := retryOnContention(func() error {
		res, err := c.db.ExecContext(ctx,
			`UPDATE sim_control SET lock_held = 1, lock_acquired_at = ? WHERE id = 1 AND lock_held = 0`,
			time.Now(),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		acquired = n == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to acquire simulation lock: %w", err)
	}
	return acquired, nil
}

func (c *SQLiteSimulationControl) ReleaseLock(ctx context.Context) error {
	err := retryOnContention(func() error {
		_, err := c.db.ExecContext(ctx,
			`UPDATE sim_control SET lock_held = 0, lock_acquired_at = NULL WHERE id = 1`)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to release simulation lock: %w", err)
	}
	return nil
}

func (c *SQLiteSimulationControl) LastCompletedTick(ctx context.Context) (int64, error) {
	var tick int64
	err := c.db.QueryRowContext(ctx,
		`SELECT last_completed_tick FROM sim_control WHERE id = 1`).Scan(&tick)
	if err != nil {
		return 0, fmt.Errorf("failed to read last completed tick: %w", err)
	}
	return tick, nil
}
