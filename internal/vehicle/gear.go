package vehicle

import "strconv"

// Gear is the automatic gear derived from speed. Zero is neutral.
type Gear int

const (
	Neutral Gear = iota
	First
	Second
	Third
	Fourth
	Fifth
)

// Gear thresholds in km/h. Neutral includes NeutralMaxSpeed; the other
// bounds are exclusive, so 15 km/h is already second gear.
const (
	NeutralMaxSpeed = 5.0
	FirstMaxSpeed   = 15.0
	SecondMaxSpeed  = 35.0
	ThirdMaxSpeed   = 60.0
	FourthMaxSpeed  = 85.0
)

// DeriveGear maps speed and the running flag to a gear. It has no side
// effects and depends on nothing else.
func DeriveGear(speed float64, running bool) Gear {
	switch {
	case !running || speed <= NeutralMaxSpeed:
		return Neutral
	case speed < FirstMaxSpeed:
		return First
	case speed < SecondMaxSpeed:
		return Second
	case speed < ThirdMaxSpeed:
		return Third
	case speed < FourthMaxSpeed:
		return Fourth
	default:
		return Fifth
	}
}

// String renders neutral as "N" and the others as their number.
func (g Gear) String() string {
	if g == Neutral {
		return "N"
	}
	return strconv.Itoa(int(g))
}
