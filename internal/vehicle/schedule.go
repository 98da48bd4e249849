package vehicle

import (
	"sync"
	"time"
)

// DefaultPeriod is the tick period of the telemetry schedule.
const DefaultPeriod = 500 * time.Millisecond

// Ticker is the subset of time.Ticker the schedule depends on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker is the TickerFactory backed by time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// ScheduleOption configures a Schedule.
type ScheduleOption func(*Schedule)

// WithTicker replaces the clock driving the schedule.
func WithTicker(factory TickerFactory) ScheduleOption {
	return func(s *Schedule) {
		if factory != nil {
			s.newTicker = factory
		}
	}
}

// Schedule invokes fn periodically from a single goroutine. At most one
// run is active, and fn never overlaps with itself: a tick that arrives
// while fn is still running is dropped by the underlying ticker.
type Schedule struct {
	period    time.Duration
	fn        func()
	newTicker TickerFactory

	// ctl serializes Start and Cancel, and is held while Cancel waits for
	// the run to finish.
	ctl sync.Mutex

	mu     sync.Mutex
	cancel chan struct{}
	done   chan struct{}
}

func NewSchedule(period time.Duration, fn func(), opts ...ScheduleOption) *Schedule {
	if period <= 0 {
		period = DefaultPeriod
	}

	s := &Schedule{
		period:    period,
		fn:        fn,
		newTicker: NewTimeTicker,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Period returns the tick period.
func (s *Schedule) Period() time.Duration {
	return s.period
}

// Start arms the schedule. It reports false, and does nothing, when a run
// is already active. A Start racing a Cancel waits until the cancelled run
// has returned.
func (s *Schedule) Start() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return false
	}

	s.cancel = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.newTicker(s.period), s.cancel, s.done)

	return true
}

// Cancel stops the active run and waits for a tick already in progress
// to return. It reports false when nothing was active. Cancel must not be
// called from fn.
func (s *Schedule) Cancel() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return false
	}

	close(cancel)
	<-done

	s.mu.Lock()
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	return true
}

// Active reports whether a run is armed. A run being cancelled stays
// active until its last tick has returned.
func (s *Schedule) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Schedule) run(t Ticker, cancel, done chan struct{}) {
	defer close(done)
	defer t.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-t.C():
			// A tick and the cancel can be ready together; cancel wins.
			select {
			case <-cancel:
				return
			default:
			}
			s.fn()
		}
	}
}
