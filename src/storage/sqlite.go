package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"wwasd-relay/src/logger"
	"wwasd-relay/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteStore(cfg *models.MConfig, log *logger.Logger) (*SQLiteStore, error) {
	return &SQLiteStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) createTables() error {
	// Tables survive restarts: the whole point of this store is that the
	// cache content outlives the process.
	// SQLite types: INTEGER for int64, TEXT for string/JSON
	query := `
		CREATE TABLE IF NOT EXISTS state_events (
			symbol TEXT NOT NULL,
			event_type TEXT NOT NULL,
			received_at INTEGER NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (symbol, event_type)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create state_events: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS port_snapshot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			pushed_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create port_snapshot: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) SaveStateDump(recs []models.MEventRecord) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Full replace inside one transaction: readers see the old dump or the
	// new dump, never a mix.
	if _, err := tx.Exec("DELETE FROM state_events"); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO state_events (symbol, event_type, received_at, payload)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range recs {
		payload, err := json.Marshal(rec.Payload)
		if err != nil {
			d.Logger.Warning("Skipping unserializable payload for %s: %v", rec.Key(), err)
			continue
		}
		if _, err := stmt.Exec(rec.Symbol, rec.EventType, rec.ReceivedAt, string(payload)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) LoadStateDump() ([]models.MEventRecord, error) {
	rows, err := d.DB.Query(`
		SELECT symbol, event_type, received_at, payload
		FROM state_events
		ORDER BY symbol, event_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.MEventRecord
	for rows.Next() {
		var rec models.MEventRecord
		var payload string
		if err := rows.Scan(&rec.Symbol, &rec.EventType, &rec.ReceivedAt, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
			// One corrupt row must not cost the rest of the cache.
			d.Logger.Warning("Skipping corrupt payload for %s/%s: %v", rec.Symbol, rec.EventType, err)
			continue
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) SavePortSnapshot(snap *models.MPortSnapshot) error {
	if snap == nil {
		return nil
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal port snapshot: %w", err)
	}

	_, err = d.DB.Exec(`
		INSERT INTO port_snapshot (id, pushed_at, payload)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			pushed_at = excluded.pushed_at,
			payload = excluded.payload
	`, snap.PushedAt, string(payload))
	return err
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) LoadPortSnapshot() (*models.MPortSnapshot, error) {
	var payload string
	err := d.DB.QueryRow("SELECT payload FROM port_snapshot WHERE id = 1").Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap models.MPortSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("corrupt port snapshot: %w", err)
	}
	return &snap, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
