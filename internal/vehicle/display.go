package vehicle

// Display formulas. They are fixed presentation policy, not a model of
// the drivetrain.
const (
	BaseTemperature   = 25.0 // °C at standstill
	TemperaturePerKmh = 0.3
	BaseVoltage       = 48.0 // V at empty battery
	VoltagePerPercent = 0.12
	RunningCurrent    = 12.5 // A, constant while running
	IdleCurrent       = 0.0

	EstimatedRangeKm = 90
	DriveMode        = "ECO"

	// Battery bands used to pick the indicator colour.
	BatteryHighAbove   = 50.0
	BatteryMediumAbove = 20.0
	BatteryLowBelow    = 20.0

	// Gauge geometry: a 270° sweep centred on top, and the dash lengths of
	// the speed arc and battery ring.
	GaugeSweepDegrees = 270.0
	GaugeStartDegrees = -135.0
	SpeedArcLength    = 300.0
	BatteryRingLength = 440.0
)

// BatteryBand classifies a battery level for the indicator.
type BatteryBand string

const (
	BandHigh   BatteryBand = "high"
	BandMedium BatteryBand = "medium"
	BandLow    BatteryBand = "low"
)

// Temperature returns the motor temperature shown for speed.
func Temperature(speed float64) float64 {
	return BaseTemperature + speed*TemperaturePerKmh
}

// Voltage returns the pack voltage shown for a battery level.
func Voltage(batteryLevel float64) float64 {
	return BaseVoltage + batteryLevel*VoltagePerPercent
}

// Current returns the drawn current shown for the running flag.
func Current(running bool) float64 {
	if running {
		return RunningCurrent
	}
	return IdleCurrent
}

func BandFor(batteryLevel float64) BatteryBand {
	switch {
	case batteryLevel > BatteryHighAbove:
		return BandHigh
	case batteryLevel > BatteryMediumAbove:
		return BandMedium
	default:
		return BandLow
	}
}

func IsBatteryLow(batteryLevel float64) bool {
	return batteryLevel < BatteryLowBelow
}

// GaugeAngle returns the needle angle in degrees for speed.
func GaugeAngle(speed float64) float64 {
	return speed/MaxSpeed*GaugeSweepDegrees + GaugeStartDegrees
}

// SpeedArc returns the filled length of the speed arc.
func SpeedArc(speed float64) float64 {
	return speed / MaxSpeed * SpeedArcLength
}

// BatteryArc returns the filled length of the battery ring.
func BatteryArc(batteryLevel float64) float64 {
	return batteryLevel / MaxBattery * BatteryRingLength
}

func StatusLabel(running bool) string {
	if running {
		return "ACTIVE"
	}
	return "STANDBY"
}

// Display bundles everything a renderer paints for one State.
type Display struct {
	State       State       `json:"state"`
	Status      string      `json:"status"`
	Temperature float64     `json:"temperature"`
	Voltage     float64     `json:"voltage"`
	Current     float64     `json:"current"`
	Band        BatteryBand `json:"battery_band"`
	BatteryLow  bool        `json:"battery_low"`
	Consuming   bool        `json:"consuming"`
	GaugeAngle  float64     `json:"gauge_angle"`
	SpeedArc    float64     `json:"speed_arc"`
	BatteryArc  float64     `json:"battery_arc"`
	RangeKm     int         `json:"range_km"`
	Mode        string      `json:"mode"`
}

// NewDisplay computes the derived display values for s.
func NewDisplay(s State) Display {
	return Display{
		State:       s,
		Status:      StatusLabel(s.Running),
		Temperature: Temperature(s.Speed),
		Voltage:     Voltage(s.BatteryLevel),
		Current:     Current(s.Running),
		Band:        BandFor(s.BatteryLevel),
		BatteryLow:  IsBatteryLow(s.BatteryLevel),
		Consuming:   s.Running,
		GaugeAngle:  GaugeAngle(s.Speed),
		SpeedArc:    SpeedArc(s.Speed),
		BatteryArc:  BatteryArc(s.BatteryLevel),
		RangeKm:     EstimatedRangeKm,
		Mode:        DriveMode,
	}
}
