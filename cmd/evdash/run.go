package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/evdash/internal/config"
	"codeberg.org/mutker/evdash/internal/dashboard"
	"codeberg.org/mutker/evdash/internal/errors"
	"codeberg.org/mutker/evdash/internal/logger"
	"codeberg.org/mutker/evdash/internal/metrics"
	"codeberg.org/mutker/evdash/internal/pid"
	"codeberg.org/mutker/evdash/internal/telemetry"
	"codeberg.org/mutker/evdash/internal/vehicle"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
)

const subscriberBuffer = 16

func run(cmd *cobra.Command, cfgPath string) error {
	// .env is optional
	envErr := godotenv.Load()

	cfg, err := config.Load(config.WithConfigFile(cfgPath), config.WithFlags(cmd.Flags()))
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		return err
	}
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Warn().Err(envErr).Msg("Failed to load .env file")
	}

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debug().Msgf(format, args...)
	}))
	defer undo()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to set GOMAXPROCS")
	}

	if cfg.PIDFile != "" {
		if err := pid.Write(cfg.PIDFile); err != nil {
			return err
		}
		defer func() {
			if err := pid.Remove(cfg.PIDFile); err != nil {
				logger.Error().Err(err).Msg("Failed to remove PID file")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug().
		Str("config", cfg.Path).
		Dur("tick_interval", cfg.TickInterval).
		Float64("initial_battery", cfg.InitialBattery).
		Uint64("seed", cfg.Seed).
		Msg("Config loaded")

	a := &app{
		cfg: cfg,
		out: cmd.OutOrStdout(),
		in:  cmd.InOrStdin(),
	}
	return a.run(ctx)
}

type app struct {
	cfg *config.Config
	out io.Writer
	in  io.Reader

	ctrl     *vehicle.Controller
	recorder telemetry.Recorder
}

func (a *app) run(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}

	a.recorder, err = telemetry.NewRecorder(ctx, telemetry.Config{
		Enabled:   a.cfg.Recorder.Enabled,
		BatchSize: a.cfg.Recorder.BatchSize,
	}, logger.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.recorder.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close trip recorder")
		}
	}()

	a.ctrl = vehicle.NewController(
		vehicle.WithInitialBattery(a.cfg.InitialBattery),
		vehicle.WithPeriod(a.cfg.TickInterval),
		vehicle.WithRandomSource(vehicle.NewRandomSource(a.cfg.Seed)),
		vehicle.WithObserver(collector),
	)
	defer a.ctrl.Close()
	collector.Observe(a.ctrl.State())

	a.render(a.ctrl.State())

	states, unsubscribe := a.ctrl.Subscribe(subscriberBuffer)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return metrics.Serve(ctx, a.cfg.Metrics.Addr, reg)
		})
	}

	if a.cfg.Path != "" {
		g.Go(func() error {
			return a.cfg.Watch(ctx, a.reload, func(err error) {
				logger.Warn().Err(err).Msg("Ignoring invalid configuration change")
			})
		})
	}

	g.Go(func() error {
		return a.update(ctx, cancel, states)
	})

	// Reads block until a line arrives, so this goroutine is left behind
	// when the context ends.
	go a.readToggles(ctx, cancel)

	if a.cfg.AutoStart {
		a.ctrl.Start(ctx)
	}

	err = g.Wait()
	a.ctrl.Stop(context.Background())

	a.printSummary(context.Background())

	if err != nil {
		var e errors.Error
		if errors.As(err, &e) {
			logger.ErrorWithCode(e).Msg("Exiting on error")
		}
		return err
	}

	logger.Info().Uint64("ticks", a.ctrl.Ticks()).Msg("Exiting...")
	return nil
}

// update records and renders every published state until ctx ends or the
// configured tick limit is reached.
func (a *app) update(ctx context.Context, done context.CancelFunc, states <-chan vehicle.State) error {
	limit := uint64(a.cfg.Ticks)

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-states:
			if !ok {
				return nil
			}

			if err := a.recorder.Record(ctx, telemetry.NewSample(time.Now(), s.Tick, s)); err != nil {
				var e errors.Error
				if errors.As(err, &e) {
					logger.ErrorWithCode(e).Msg("Failed to record sample")
				}
			}

			a.render(s)

			if limit > 0 && s.Tick >= limit {
				logger.Info().Uint64("ticks", s.Tick).Msg("Tick limit reached")
				a.ctrl.Stop(ctx)
				done()
				return nil
			}
		}
	}
}

func (a *app) render(s vehicle.State) {
	if !a.cfg.Render {
		return
	}
	if err := dashboard.Render(a.out, a.cfg.Title, vehicle.NewDisplay(s), nil); err != nil {
		logger.Debug().Err(err).Msg("Failed to render dashboard")
	}
}

func (a *app) printSummary(ctx context.Context) {
	var summary *telemetry.TripSummary

	if a.cfg.Recorder.Enabled {
		sum, err := a.recorder.Summary(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to summarize trip")
		} else {
			summary = &sum
		}

		if recent, err := a.recorder.Recent(ctx, 1); err == nil && len(recent) == 1 {
			logger.Debug().
				Uint64("tick", recent[0].Tick).
				Float64("battery", recent[0].BatteryLevel).
				Msg("Last recorded sample")
		}
	}

	if err := dashboard.Render(a.out, a.cfg.Title, vehicle.NewDisplay(a.ctrl.State()), summary); err != nil {
		logger.Debug().Err(err).Msg("Failed to render summary")
	}
}

// readToggles toggles the vehicle for every input line. "q" quits.
func (a *app) readToggles(ctx context.Context, quit context.CancelFunc) {
	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "q", "quit", "exit":
			quit()
			return
		default:
			a.ctrl.Toggle(ctx)
		}
	}
}

// reload applies the settings that can change while running.
func (a *app) reload(next *config.Config) {
	if next.LogLevel == a.cfg.LogLevel {
		return
	}
	if err := logger.SetLevelFromString(next.LogLevel); err != nil {
		logger.Warn().Err(err).Msg("Ignoring log level change")
		return
	}
	logger.Info().
		Str("from", a.cfg.LogLevel).
		Str("to", next.LogLevel).
		Msg("Log level changed")
	a.cfg.LogLevel = next.LogLevel
}
