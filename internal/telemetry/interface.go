package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/evdash/internal/vehicle"
)

// Recorder keeps the trip log for the current session.
type Recorder interface {
	// Record buffers a sample and writes the buffer once it reaches the
	// configured batch size.
	Record(ctx context.Context, sample *Sample) error
	// Flush writes any buffered samples.
	Flush(ctx context.Context) error
	// Recent returns up to n samples, newest first.
	Recent(ctx context.Context, n int) ([]Sample, error)
	// Summary aggregates every sample recorded so far.
	Summary(ctx context.Context) (TripSummary, error)
	Close() error
}

// Sample is one recorded vehicle state.
type Sample struct {
	Timestamp    time.Time
	Tick         uint64
	Running      bool
	Speed        float64
	Power        float64
	BatteryLevel float64
	Gear         vehicle.Gear
}

// NewSample captures s as the sample for the given tick.
func NewSample(at time.Time, tick uint64, s vehicle.State) *Sample {
	return &Sample{
		Timestamp:    at,
		Tick:         tick,
		Running:      s.Running,
		Speed:        s.Speed,
		Power:        s.Power,
		BatteryLevel: s.BatteryLevel,
		Gear:         s.Gear,
	}
}

// TripSummary holds aggregates over the recorded samples. Speed and power
// averages only count samples taken while running.
type TripSummary struct {
	Samples     int
	MaxSpeed    float64
	AvgSpeed    float64
	AvgPower    float64
	BatteryUsed float64
	Duration    time.Duration
}
