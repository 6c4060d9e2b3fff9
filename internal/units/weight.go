// Package units converts part weights and timestamps for display.
package units

import "strings"

// Weight unit constants. Part weights are held in grams.
const (
	Grams     = "g"
	Kilograms = "kg"
	Ounces    = "oz"
	Pounds    = "lb"
)

// ValidWeightUnits contains all accepted weight units.
var ValidWeightUnits = []string{Grams, Kilograms, Ounces, Pounds}

// IsValidWeightUnit checks if the given unit is in ValidWeightUnits.
func IsValidWeightUnit(unit string) bool {
	for _, u := range ValidWeightUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// GetValidWeightUnitsString returns the accepted units for error messages.
func GetValidWeightUnitsString() string {
	return strings.Join(ValidWeightUnits, ", ")
}

// ConvertWeight converts a weight in grams to the target unit. Unknown
// units leave the value in grams.
func ConvertWeight(grams float64, target string) float64 {
	switch target {
	case Kilograms:
		return grams / 1000
	case Ounces:
		return grams / 28.349523125
	case Pounds:
		return grams / 453.59237
	default:
		return grams
	}
}
