package vehicle

const (
	// DefaultInitialBattery is the battery level of a freshly created vehicle.
	DefaultInitialBattery = 85.0

	MinSpeed   = 0.0
	MaxSpeed   = 100.0
	MinPower   = 0.0
	MaxPower   = 100.0
	MinBattery = 0.0
	MaxBattery = 100.0
)

// State is a point-in-time copy of the vehicle.
type State struct {
	Running      bool    `json:"running"`
	Speed        float64 `json:"speed"`         // km/h
	Power        float64 `json:"power"`         // percent
	BatteryLevel float64 `json:"battery_level"` // percent
	Gear         Gear    `json:"gear"`
	// Tick is the number of the tick that produced this state. Start and
	// stop states carry the last tick applied.
	Tick uint64 `json:"tick"`
}

// NewState returns a stopped vehicle holding the given charge.
func NewState(initialBattery float64) State {
	return State{
		BatteryLevel: Clamp(initialBattery, MinBattery, MaxBattery),
		Gear:         Neutral,
	}
}

// Clamp constrains x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return max(lo, min(hi, x))
}

// stopped returns s with the transient fields reset.
func (s State) stopped() State {
	s.Running = false
	s.Speed = 0
	s.Power = 0
	s.Gear = DeriveGear(s.Speed, s.Running)
	return s
}
