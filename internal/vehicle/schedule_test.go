package vehicle

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleStartIsIdempotent(t *testing.T) {
	clock := &fakeClock{}
	s := NewSchedule(DefaultPeriod, func() {}, WithTicker(clock.factory))

	assert.True(t, s.Start())
	assert.False(t, s.Start())
	assert.True(t, s.Active())
	assert.Equal(t, 1, clock.count())
	assert.Equal(t, DefaultPeriod, clock.periods[0])

	assert.True(t, s.Cancel())
	assert.False(t, s.Active())
}

func TestScheduleCancelWithoutStart(t *testing.T) {
	s := NewSchedule(DefaultPeriod, func() {})

	assert.NotPanics(t, func() {
		assert.False(t, s.Cancel())
		assert.False(t, s.Cancel())
	})
}

func TestScheduleRunsTicksInOrder(t *testing.T) {
	clock := &fakeClock{}
	ran := make(chan int, 10)
	var n int
	s := NewSchedule(time.Second, func() {
		n++
		ran <- n
	}, WithTicker(clock.factory))

	require.True(t, s.Start())
	for i := 1; i <= 3; i++ {
		clock.fire(t)
		assert.Equal(t, i, <-ran)
	}

	require.True(t, s.Cancel())
	select {
	case <-clock.last().stopped:
	default:
		t.Fatal("ticker not stopped on cancel")
	}
}

func TestScheduleCancelWaitsForInFlightTick(t *testing.T) {
	clock := &fakeClock{}
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	s := NewSchedule(time.Second, func() {
		close(entered)
		<-release
		finished.Store(true)
	}, WithTicker(clock.factory))

	require.True(t, s.Start())
	clock.fire(t)
	<-entered

	cancelled := make(chan struct{})
	go func() {
		s.Cancel()
		close(cancelled)
	}()

	select {
	case <-cancelled:
		t.Fatal("cancel returned before the in-flight tick finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-cancelled
	assert.True(t, finished.Load())
}

// cancelling reports whether a Cancel has closed the active run's channel.
func cancelling(s *Schedule) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	select {
	case <-s.cancel:
		return true
	default:
		return false
	}
}

func TestScheduleStartDuringCancelDoesNotOverlap(t *testing.T) {
	clock := &fakeClock{}
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	var inFlight, maxInFlight, calls atomic.Int32

	s := NewSchedule(time.Second, func() {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		if calls.Add(1) == 1 {
			entered <- struct{}{}
			<-release
		}
		inFlight.Add(-1)
		entered <- struct{}{}
	}, WithTicker(clock.factory))

	require.True(t, s.Start())
	clock.fire(t)
	<-entered

	cancelled := make(chan struct{})
	go func() {
		s.Cancel()
		close(cancelled)
	}()
	require.Eventually(t, func() bool { return cancelling(s) }, time.Second, time.Millisecond)
	assert.True(t, s.Active(), "a run being cancelled stays active")

	started := make(chan bool, 1)
	go func() { started <- s.Start() }()

	select {
	case <-started:
		t.Fatal("start returned while the cancelled tick was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-cancelled
	<-entered
	require.True(t, <-started)
	require.Equal(t, 2, clock.count())

	clock.fire(t)
	<-entered
	require.True(t, s.Cancel())

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, int32(2), calls.Load())
}

func TestScheduleRestart(t *testing.T) {
	clock := &fakeClock{}
	var calls atomic.Int32
	done := make(chan struct{}, 4)
	s := NewSchedule(time.Second, func() {
		calls.Add(1)
		done <- struct{}{}
	}, WithTicker(clock.factory))

	require.True(t, s.Start())
	clock.fire(t)
	<-done
	require.True(t, s.Cancel())

	require.True(t, s.Start())
	assert.Equal(t, 2, clock.count())
	clock.fire(t)
	<-done
	require.True(t, s.Cancel())

	assert.Equal(t, int32(2), calls.Load())
}

func TestScheduleWithRealTicker(t *testing.T) {
	var calls atomic.Int32
	s := NewSchedule(2*time.Millisecond, func() { calls.Add(1) })

	require.True(t, s.Start())
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	require.True(t, s.Cancel())

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestNewScheduleDefaultsPeriod(t *testing.T) {
	assert.Equal(t, DefaultPeriod, NewSchedule(0, func() {}).Period())
	assert.Equal(t, DefaultPeriod, NewSchedule(-time.Second, func() {}).Period())
}
