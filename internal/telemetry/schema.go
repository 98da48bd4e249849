package telemetry

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/mutker/evdash/internal/errors"
	"codeberg.org/mutker/evdash/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS samples (
	       id            INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp     INTEGER NOT NULL,
	       tick          INTEGER NOT NULL,
	       running       INTEGER NOT NULL CHECK (running IN (0, 1)),
	       speed         REAL NOT NULL CHECK (speed BETWEEN 0 AND 100),
	       power         REAL NOT NULL CHECK (power BETWEEN 0 AND 100),
	       battery_level REAL NOT NULL CHECK (battery_level BETWEEN 0 AND 100),
	       gear          INTEGER NOT NULL CHECK (gear BETWEEN 0 AND 5)
	   );
	   CREATE INDEX IF NOT EXISTS idx_samples_tick ON samples (tick);`

	insertVersionSQL = `INSERT OR IGNORE INTO schema_versions (version, applied_at) VALUES (?, ?)`

	insertSampleSQL = `
    INSERT INTO samples (
        timestamp, tick, running,
        speed, power, battery_level, gear
    ) VALUES (?, ?, ?, ?, ?, ?, ?)`

	recentSamplesSQL = `
    SELECT timestamp, tick, running, speed, power, battery_level, gear
    FROM samples
    ORDER BY tick DESC, id DESC
    LIMIT ?`

	summarySQL = `
    SELECT
        COUNT(*),
        COALESCE(MAX(speed), 0),
        COALESCE(AVG(CASE WHEN running = 1 THEN speed END), 0),
        COALESCE(AVG(CASE WHEN running = 1 THEN power END), 0),
        COALESCE(MAX(battery_level) - MIN(battery_level), 0),
        COALESCE(MAX(timestamp) - MIN(timestamp), 0)
    FROM samples`
)

// initSchema creates the recorder tables with the current version
func initSchema(ctx context.Context, db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Phase string
			Error string
		}{
			Phase: "create_tables",
			Error: err.Error(),
		})
	}

	if _, err := tx.ExecContext(ctx, insertVersionSQL,
		SchemaVersion, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Phase string
			Error string
		}{
			Phase: "record_version",
			Error: err.Error(),
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Debug().Int("schema_version", SchemaVersion).Msg("Recorder schema created")

	return nil
}
