package vehicle

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/evdash/internal/logger"
	"github.com/looplab/fsm"
)

// Lifecycle states and events.
const (
	StateStopped = "stopped"
	StateRunning = "running"

	EventStart = "start"
	EventStop  = "stop"
)

// Observer is notified synchronously after every tick and every start or
// stop. Implementations must return quickly and must not call back into
// Start, Stop or Toggle.
type Observer interface {
	OnTick(s State)
	OnToggle(s State)
}

// Option configures a Controller.
type Option func(*Controller)

func WithInitialBattery(level float64) Option {
	return func(c *Controller) { c.initialBattery = level }
}

func WithPeriod(d time.Duration) Option {
	return func(c *Controller) { c.period = d }
}

func WithRandomSource(src RandomSource) Option {
	return func(c *Controller) { c.src = src }
}

func WithTickerFactory(factory TickerFactory) Option {
	return func(c *Controller) { c.tickerFactory = factory }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// Controller owns the vehicle state and its telemetry schedule. It is the
// only writer of State; everything else reads copies.
type Controller struct {
	initialBattery float64
	period         time.Duration
	src            RandomSource
	tickerFactory  TickerFactory
	observers      []Observer

	// lifecycle serializes Start, Stop and Toggle.
	lifecycle sync.Mutex
	machine   *fsm.FSM
	schedule  *Schedule
	generator *Generator

	mu    sync.RWMutex
	state State
	ticks uint64

	subMu   sync.Mutex
	subs    map[int]chan State
	nextSub int
	closed  bool
}

func NewController(opts ...Option) *Controller {
	c := &Controller{
		initialBattery: DefaultInitialBattery,
		period:         DefaultPeriod,
		tickerFactory:  NewTimeTicker,
		subs:           make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.state = NewState(c.initialBattery)
	c.generator = NewGenerator(c.src)
	c.schedule = NewSchedule(c.period, func() { c.Step() }, WithTicker(c.tickerFactory))
	c.machine = fsm.NewFSM(
		StateStopped,
		fsm.Events{
			{Name: EventStart, Src: []string{StateStopped}, Dst: StateRunning},
			{Name: EventStop, Src: []string{StateRunning}, Dst: StateStopped},
		},
		fsm.Callbacks{
			"enter_" + StateRunning: c.enterRunning,
			"enter_" + StateStopped: c.enterStopped,
		},
	)

	return c
}

// State returns a copy of the current vehicle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Ticks returns the number of ticks applied since the controller was created.
func (c *Controller) Ticks() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticks
}

// Lifecycle returns the current lifecycle state name.
func (c *Controller) Lifecycle() string {
	return c.machine.Current()
}

// Period returns the tick period.
func (c *Controller) Period() time.Duration {
	return c.schedule.Period()
}

// Toggle starts a stopped vehicle or stops a running one and returns the
// resulting state.
func (c *Controller) Toggle(ctx context.Context) State {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.machine.Is(StateRunning) {
		c.stop(ctx)
	} else {
		c.start(ctx)
	}

	return c.State()
}

// Start puts the vehicle in motion. It reports false when it was already
// running.
func (c *Controller) Start(ctx context.Context) bool {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.start(ctx)
}

// Stop halts the vehicle. It reports false when it was already stopped.
func (c *Controller) Stop(ctx context.Context) bool {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.stop(ctx)
}

func (c *Controller) start(ctx context.Context) bool {
	if err := c.machine.Event(ctx, EventStart); err != nil {
		logger.Debug().Err(err).Str("lifecycle", c.machine.Current()).Msg("Start ignored")
		return false
	}

	s := c.State()
	logger.Info().
		Float64("battery_level", s.BatteryLevel).
		Dur("period", c.schedule.Period()).
		Msg("Vehicle STARTED")
	c.notifyToggle(s)

	return true
}

func (c *Controller) stop(ctx context.Context) bool {
	if err := c.machine.Event(ctx, EventStop); err != nil {
		logger.Debug().Err(err).Str("lifecycle", c.machine.Current()).Msg("Stop ignored")
		return false
	}

	s := c.State()
	logger.Info().
		Float64("battery_level", s.BatteryLevel).
		Uint64("ticks", c.Ticks()).
		Msg("Vehicle STOPPED")
	c.notifyToggle(s)

	return true
}

func (c *Controller) enterRunning(_ context.Context, _ *fsm.Event) {
	c.mu.Lock()
	c.state.Running = true
	c.state.Gear = DeriveGear(c.state.Speed, c.state.Running)
	c.mu.Unlock()

	c.schedule.Start()
}

// enterStopped cancels the schedule before touching the state, so a tick
// already in progress lands first and the reset overrides its speed and
// power while its battery drain is kept.
func (c *Controller) enterStopped(_ context.Context, _ *fsm.Event) {
	c.schedule.Cancel()

	c.mu.Lock()
	c.state = c.state.stopped()
	c.mu.Unlock()
}

// Step applies one telemetry tick and returns the new state. It is what
// the schedule runs; on a stopped vehicle it changes nothing.
func (c *Controller) Step() State {
	c.mu.Lock()
	if !c.state.Running {
		s := c.state
		c.mu.Unlock()
		return s
	}

	next := c.generator.Next(c.state)
	next.Gear = DeriveGear(next.Speed, next.Running)
	c.ticks++
	next.Tick = c.ticks
	c.state = next
	c.mu.Unlock()

	logger.Debug().
		Uint64("tick", next.Tick).
		Float64("speed", next.Speed).
		Float64("power", next.Power).
		Float64("battery_level", next.BatteryLevel).
		Stringer("gear", next.Gear).
		Msg("Tick")

	for _, o := range c.observers {
		o.OnTick(next)
	}
	c.publish(next)

	return next
}

// Subscribe returns a channel receiving a State after every tick and every
// start or stop, and a function that ends the subscription. When the
// subscriber lags, the oldest pending State is replaced by the newest.
func (c *Controller) Subscribe(buffer int) (<-chan State, func()) {
	ch := make(chan State, max(buffer, 1))

	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops the vehicle and ends every subscription.
func (c *Controller) Close() {
	c.Stop(context.Background())

	c.subMu.Lock()
	defer c.subMu.Unlock()

	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Controller) notifyToggle(s State) {
	for _, o := range c.observers {
		o.OnToggle(s)
	}
	c.publish(s)
}

func (c *Controller) publish(s State) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}
