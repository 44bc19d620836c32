// Package units converts radial velocity values and sweep times for display.
package units

import "strings"

// Unit constants
const (
	MPS = "mps"
	KTS = "kts"
	MPH = "mph"
	KPH = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, KTS, MPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Moment data is decoded in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case KTS:
		return speedMPS * 1.9438444924
	case MPH:
		return speedMPS * 2.2369362920544
	case KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}
