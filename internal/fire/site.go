package fire

import (
	"errors"
	"math"

	"github.com/roach88/firegraph/internal/catalog"
)

// FeetPerMinutePerMph converts mi/h to ft/min.
const FeetPerMinutePerMph = 88.0

// Slope returns slope steepness conversions.
//
//	Slope.ratioFromDegrees  rise/reach from degrees
//	Slope.degreesFromRatio  degrees from rise/reach
func Slope() catalog.Registry {
	return catalog.Registry{
		"Slope.ratioFromDegrees": unary("Slope.ratioFromDegrees", pure(SlopeRatioFromDegrees)),
		"Slope.degreesFromRatio": unary("Slope.degreesFromRatio", pure(SlopeDegreesFromRatio)),
	}
}

// SlopeRatioFromDegrees returns tan(degrees).
func SlopeRatioFromDegrees(deg float64) float64 {
	return math.Tan(deg * math.Pi / 180)
}

// SlopeDegreesFromRatio returns atan(ratio) in degrees.
func SlopeDegreesFromRatio(ratio float64) float64 {
	return math.Atan(ratio) * 180 / math.Pi
}

// Wind returns wind speed height adjustments.
//
//	Wind.midflameFromAt20ft  at20ft * waf
//	Wind.at20ftFromMidflame  midflame / waf
func Wind() catalog.Registry {
	return catalog.Registry{
		"Wind.midflameFromAt20ft": nary("Wind.midflameFromAt20ft", 2, func(x []float64) (float64, error) {
			return x[0] * x[1], nil
		}),
		"Wind.at20ftFromMidflame": nary("Wind.at20ftFromMidflame", 2, func(x []float64) (float64, error) {
			if x[1] <= 0 {
				return 0, errors.New("wind adjustment factor must be positive")
			}
			return x[0] / x[1], nil
		}),
	}
}
