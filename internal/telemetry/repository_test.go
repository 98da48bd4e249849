package telemetry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"codeberg.org/mutker/evdash/internal/errors"
	"codeberg.org/mutker/evdash/internal/logger"
	"codeberg.org/mutker/evdash/internal/vehicle"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &repository{db: db, logger: logger.Default()}, mock
}

func TestSchemaFailureRollsBack(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_versions").
		WillReturnError(fmt.Errorf("disk I/O error"))
	mock.ExpectRollback()

	_, err := newRepository(context.Background(), repo.db, logger.Default())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInitRecorder))
	assert.True(t, errors.HasCode(err, ErrSchemaInitFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaCreatesVersion(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS samples").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT OR IGNORE INTO schema_versions").
		WithArgs(SchemaVersion, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err := newRepository(context.Background(), repo.db, logger.Default())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFailureKeepsBuffer(t *testing.T) {
	repo, mock := newMock(t)
	rec := newRecorder(repo, Config{Enabled: true, BatchSize: 2}, logger.Default())
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO samples")
	mock.ExpectExec("INSERT INTO samples").WillReturnError(fmt.Errorf("constraint failed"))
	mock.ExpectRollback()

	s := &Sample{Timestamp: time.Now(), Tick: 1, Running: true, Speed: 10, Gear: vehicle.First}
	require.NoError(t, rec.Record(ctx, s))

	err := rec.Record(ctx, s)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrRecordSample))
	assert.Len(t, rec.buffer, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCommitsBatch(t *testing.T) {
	repo, mock := newMock(t)
	rec := newRecorder(repo, Config{Enabled: true, BatchSize: 2}, logger.Default())
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_000_000)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO samples")
	prep.ExpectExec().
		WithArgs(at.UnixMilli(), int64(1), 1, 10.0, 20.0, 84.99, int(vehicle.First)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs(at.UnixMilli(), int64(2), 1, 20.0, 20.0, 84.98, int(vehicle.Second)).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, rec.Record(ctx, &Sample{Timestamp: at, Tick: 1, Running: true, Speed: 10, Power: 20, BatteryLevel: 84.99, Gear: vehicle.First}))
	require.NoError(t, rec.Record(ctx, &Sample{Timestamp: at, Tick: 2, Running: true, Speed: 20, Power: 20, BatteryLevel: 84.98, Gear: vehicle.Second}))

	assert.Empty(t, rec.buffer)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentScansRows(t *testing.T) {
	repo, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"timestamp", "tick", "running", "speed", "power", "battery_level", "gear"}).
		AddRow(int64(2000), int64(7), 1, 42.0, 55.0, 80.0, 3).
		AddRow(int64(1500), int64(6), 0, 0.0, 0.0, 80.01, 0)
	mock.ExpectQuery("FROM samples").WithArgs(2).WillReturnRows(rows)

	samples, err := repo.recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, uint64(7), samples[0].Tick)
	assert.True(t, samples[0].Running)
	assert.Equal(t, vehicle.Third, samples[0].Gear)
	assert.Equal(t, time.UnixMilli(2000), samples[0].Timestamp)
	assert.False(t, samples[1].Running)
	assert.Equal(t, vehicle.Neutral, samples[1].Gear)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryQueryFailure(t *testing.T) {
	repo, mock := newMock(t)
	rec := newRecorder(repo, DefaultConfig(), logger.Default())

	mock.ExpectQuery("FROM samples").WillReturnError(fmt.Errorf("database is locked"))

	_, err := rec.Summary(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrQueryRecorder))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseFlushesPending(t *testing.T) {
	repo, mock := newMock(t)
	rec := newRecorder(repo, DefaultConfig(), logger.Default())

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO samples").
		ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	require.NoError(t, rec.Record(context.Background(), &Sample{Timestamp: time.Now(), Tick: 1}))
	require.NoError(t, rec.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
