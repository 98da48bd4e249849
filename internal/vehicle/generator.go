package vehicle

import (
	"math/rand/v2"
	"time"
)

const (
	// SpeedStep bounds the per-tick speed change to [-SpeedStep, SpeedStep].
	SpeedStep = 5.0
	// PowerStep bounds the per-tick power change to [-PowerStep, PowerStep].
	PowerStep = 10.0
	// BatteryDrainPerTick is a fixed linear drain, independent of speed
	// and power.
	BatteryDrainPerTick = 0.01
)

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// NewRandomSource returns a seeded PCG source. A zero seed picks one from
// the clock. The result is not safe for concurrent use.
func NewRandomSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Generator performs the bounded random walk applied on every tick.
type Generator struct {
	src RandomSource
}

func NewGenerator(src RandomSource) *Generator {
	if src == nil {
		src = NewRandomSource(0)
	}
	return &Generator{src: src}
}

// Next returns the state after one tick. All three fields are computed
// from s, and each sum is clamped before it is stored. A stopped vehicle
// is returned unchanged. Gear is left as is; callers re-derive it.
func (g *Generator) Next(s State) State {
	if !s.Running {
		return s
	}

	speedDelta := g.perturb(SpeedStep)
	powerDelta := g.perturb(PowerStep)

	next := s
	next.Speed = Clamp(s.Speed+speedDelta, MinSpeed, MaxSpeed)
	next.Power = Clamp(s.Power+powerDelta, MinPower, MaxPower)
	next.BatteryLevel = Clamp(s.BatteryLevel-BatteryDrainPerTick, MinBattery, MaxBattery)
	return next
}

// perturb returns a uniform value in [-step, step).
func (g *Generator) perturb(step float64) float64 {
	return (g.src.Float64() - 0.5) * 2 * step
}
