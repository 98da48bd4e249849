package telemetry

import (
	"context"
	"sync"

	"codeberg.org/mutker/evdash/internal/errors"
	"codeberg.org/mutker/evdash/internal/logger"
)

type recorder struct {
	repo   *repository
	logger logger.Logger
	cfg    Config

	mu     sync.Mutex
	buffer []*Sample
	closed bool
}

// NewRecorder returns a recorder backed by a private in-memory database,
// or one that discards everything when cfg.Enabled is false.
func NewRecorder(ctx context.Context, cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(errors.ErrInitRecorder, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Trip recorder disabled")
		return noopRecorder{}, nil
	}

	repo, err := openRepository(ctx, log)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("batch_size", cfg.BatchSize).
		Int("schema_version", SchemaVersion).
		Msg("Trip recorder initialized")

	return newRecorder(repo, cfg, log), nil
}

func newRecorder(repo *repository, cfg Config, log logger.Logger) *recorder {
	return &recorder{
		repo:   repo,
		logger: log,
		cfg:    cfg,
		buffer: make([]*Sample, 0, cfg.BatchSize),
	}
}

func (r *recorder) Record(ctx context.Context, sample *Sample) error {
	errFactory := errors.New()

	if sample == nil {
		return errFactory.New(ErrInvalidSample)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(errors.ErrTimeout, ctx.Err())
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errFactory.New(errors.ErrRecorderClosed)
	}

	s := *sample
	r.buffer = append(r.buffer, &s)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush(ctx)
	}

	return nil
}

func (r *recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New().New(errors.ErrRecorderClosed)
	}

	return r.flush(ctx)
}

func (r *recorder) Recent(ctx context.Context, n int) ([]Sample, error) {
	errFactory := errors.New()

	if n < 1 {
		return nil, errFactory.WithData(errors.ErrInvalidArgument, struct {
			N int
		}{n})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errFactory.New(errors.ErrRecorderClosed)
	}
	if err := r.flush(ctx); err != nil {
		return nil, err
	}

	return r.repo.recent(ctx, n)
}

func (r *recorder) Summary(ctx context.Context) (TripSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return TripSummary{}, errors.New().New(errors.ErrRecorderClosed)
	}
	if err := r.flush(ctx); err != nil {
		return TripSummary{}, err
	}

	return r.repo.summary(ctx)
}

// Close writes pending samples and releases the database. The trip log is
// gone afterwards.
func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	flushErr := r.flush(context.Background())
	if err := r.repo.close(); err != nil {
		return err
	}
	if flushErr != nil {
		return errors.New().Wrap(errors.ErrCloseRecorder, flushErr)
	}

	r.logger.Debug().Msg("Trip recorder closed")

	return nil
}

// flush must be called with r.mu held. Samples stay buffered when the
// write fails.
func (r *recorder) flush(ctx context.Context) error {
	if len(r.buffer) == 0 {
		return nil
	}

	if err := r.repo.insert(ctx, r.buffer); err != nil {
		return err
	}
	r.buffer = r.buffer[:0]

	return nil
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, *Sample) error { return nil }
func (noopRecorder) Flush(context.Context) error           { return nil }
func (noopRecorder) Recent(context.Context, int) ([]Sample, error) {
	return nil, nil
}

func (noopRecorder) Summary(context.Context) (TripSummary, error) {
	return TripSummary{}, nil
}
func (noopRecorder) Close() error { return nil }
