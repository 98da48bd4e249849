package telemetry

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/mutker/evdash/internal/errors"
	"codeberg.org/mutker/evdash/internal/logger"
	"codeberg.org/mutker/evdash/internal/vehicle"

	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
}

// openRepository opens a private in-memory database. A single connection
// keeps every query on the same database.
func openRepository(ctx context.Context, log logger.Logger) (*repository, error) {
	errFactory := errors.New()

	db, err := sql.Open("sqlite3", memoryDSN)
	if err != nil {
		return nil, errFactory.WithData(errors.ErrInitRecorder, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	repo, err := newRepository(ctx, db, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func newRepository(ctx context.Context, db *sql.DB, log logger.Logger) (*repository, error) {
	if err := initSchema(ctx, db, log); err != nil {
		return nil, errors.New().Wrap(errors.ErrInitRecorder, err)
	}

	return &repository{
		db:     db,
		logger: log,
	}, nil
}

func (r *repository) insert(ctx context.Context, samples []*Sample) error {
	if len(samples) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(errors.ErrRecordSample, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(errors.ErrRecordSample, err)
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx,
			s.Timestamp.UnixMilli(),
			int64(s.Tick),
			boolToInt(s.Running),
			s.Speed,
			s.Power,
			s.BatteryLevel,
			int(s.Gear),
		); err != nil {
			r.logger.Error().Err(err).Uint64("tick", s.Tick).Msg("Failed to execute insert")
			if err := tx.Rollback(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(errors.ErrRecordSample, err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(errors.ErrRecordSample, err)
	}

	r.logger.Debug().Int("records", len(samples)).Msg("Flushed samples to recorder")

	return nil
}

func (r *repository) recent(ctx context.Context, n int) ([]Sample, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, recentSamplesSQL, n)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrQueryRecorder, err)
	}
	defer rows.Close()

	samples := make([]Sample, 0, n)
	for rows.Next() {
		var (
			ts      int64
			tick    int64
			running int
			gear    int
			s       Sample
		)
		if err := rows.Scan(&ts, &tick, &running, &s.Speed, &s.Power, &s.BatteryLevel, &gear); err != nil {
			return nil, errFactory.Wrap(errors.ErrQueryRecorder, err)
		}
		s.Timestamp = time.UnixMilli(ts)
		s.Tick = uint64(tick)
		s.Running = running == 1
		s.Gear = vehicle.Gear(gear)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(errors.ErrQueryRecorder, err)
	}

	return samples, nil
}

func (r *repository) summary(ctx context.Context) (TripSummary, error) {
	var (
		sum        TripSummary
		durationMs int64
	)

	err := r.db.QueryRowContext(ctx, summarySQL).Scan(
		&sum.Samples,
		&sum.MaxSpeed,
		&sum.AvgSpeed,
		&sum.AvgPower,
		&sum.BatteryUsed,
		&durationMs,
	)
	if err != nil {
		return TripSummary{}, errors.New().Wrap(errors.ErrQueryRecorder, err)
	}
	sum.Duration = time.Duration(durationMs) * time.Millisecond

	return sum, nil
}

func (r *repository) close() error {
	if err := r.db.Close(); err != nil {
		return errors.New().WithData(errors.ErrCloseRecorder, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}
	return nil
}
