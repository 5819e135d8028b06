package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"wwasd-relay/src/logger"
	"wwasd-relay/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresStore(cfg *models.MConfig, log *logger.Logger) (*PostgresStore, error) {
	schema := cfg.Storage.SchemaName
	if schema == "" {
		schema = "wwasd_relay"
	}

	return &PostgresStore{
		Config: cfg,
		Schema: schema,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".state_events (
			symbol TEXT NOT NULL,
			event_type TEXT NOT NULL,
			received_at BIGINT NOT NULL,
			payload JSONB NOT NULL,
			PRIMARY KEY (symbol, event_type)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create state_events: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".port_snapshot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			pushed_at BIGINT NOT NULL,
			payload JSONB NOT NULL
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create port_snapshot: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) SaveStateDump(recs []models.MEventRecord) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM "%s".state_events`, d.Schema)); err != nil {
		return err
	}

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO "%s".state_events (symbol, event_type, received_at, payload)
		VALUES ($1, $2, $3, $4)
	`, d.Schema))
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

func (d *PostgresStore) LoadStateDump() ([]models.MEventRecord, error) {
	rows, err := d.DB.Query(fmt.Sprintf(`
		SELECT symbol, event_type, received_at, payload
		FROM "%s".state_events
		ORDER BY symbol, event_type
	`, d.Schema))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.MEventRecord
	for rows.Next() {
		var rec models.MEventRecord
		var payload []byte
		if err := rows.Scan(&rec.Symbol, &rec.EventType, &rec.ReceivedAt, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			d.Logger.Warning("Skipping corrupt payload for %s/%s: %v", rec.Symbol, rec.EventType, err)
			continue
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) SavePortSnapshot(snap *models.MPortSnapshot) error {
	if snap == nil {
		return nil
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal port snapshot: %w", err)
	}

	_, err = d.DB.Exec(fmt.Sprintf(`
		INSERT INTO "%s".port_snapshot (id, pushed_at, payload)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			pushed_at = excluded.pushed_at,
			payload = excluded.payload
	`, d.Schema), snap.PushedAt, string(payload))
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) LoadPortSnapshot() (*models.MPortSnapshot, error) {
	var payload []byte
	err := d.DB.QueryRow(fmt.Sprintf(`SELECT payload FROM "%s".port_snapshot WHERE id = 1`, d.Schema)).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap models.MPortSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("corrupt port snapshot: %w", err)
	}
	return &snap, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
