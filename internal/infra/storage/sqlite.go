package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite opens (or creates) the garden database in WAL mode and creates
// the schema for snapshots, entities, narrative events and the control row.
func InitSQLite(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS garden_states (
			id TEXT PRIMARY KEY,
			tick INTEGER NOT NULL,
			timestamp DATETIME NOT NULL,
			temperature REAL NOT NULL,
			sunlight REAL NOT NULL,
			moisture REAL NOT NULL,
			weather TEXT NOT NULL,
			plants_living INTEGER NOT NULL DEFAULT 0,
			herbivores_living INTEGER NOT NULL DEFAULT 0,
			carnivores_living INTEGER NOT NULL DEFAULT 0,
			fungi_living INTEGER NOT NULL DEFAULT 0,
			total_living INTEGER NOT NULL DEFAULT 0,
			total_dead INTEGER NOT NULL DEFAULT 0,
			all_time_dead INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_garden_states_tick ON garden_states(tick);`,
		`CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			species TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			energy REAL NOT NULL,
			health REAL NOT NULL,
			age INTEGER NOT NULL DEFAULT 0,
			alive BOOLEAN NOT NULL DEFAULT 1,
			lineage TEXT NOT NULL DEFAULT 'origin',
			born_at_tick INTEGER NOT NULL DEFAULT 0,
			garden_state_id TEXT,
			traits TEXT NOT NULL,
			died_at_tick INTEGER,
			last_updated DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entities_alive ON entities(alive);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			garden_state_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			entity_id TEXT,
			species TEXT,
			message TEXT NOT NULL,
			payload TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);`,
		`CREATE INDEX IF NOT EXISTS idx_events_garden_state ON events(garden_state_id);`,
		`CREATE TABLE IF NOT EXISTS sim_control (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			lock_held BOOLEAN NOT NULL DEFAULT 0,
			lock_acquired_at DATETIME,
			last_completed_tick INTEGER NOT NULL DEFAULT 0
		);`,
		`INSERT OR IGNORE INTO sim_control (id, lock_held, last_completed_tick) VALUES (1, 0, 0);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
