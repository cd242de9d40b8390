package fire

import (
	"errors"
	"math"

	"github.com/roach88/firegraph/internal/catalog"
)

// FireEllipse returns elliptical fire growth geometry.
//
//	FireEllipse.lengthToWidthRatio  (midflame ft/min)
//	FireEllipse.eccentricity        (length-to-width ratio)
//	FireEllipse.backingSpreadRate   (head rate, eccentricity)
//	FireEllipse.flankingSpreadRate  (head rate, backing rate, length-to-width ratio)
//	FireEllipse.spreadDistance      (rate ft/min, elapsed min)
//	FireEllipse.area                (length, width)
//	FireEllipse.perimeter           (length, width)
func FireEllipse() catalog.Registry {
	return catalog.Registry{
		"FireEllipse.lengthToWidthRatio": unary("FireEllipse.lengthToWidthRatio", pure(LengthToWidthRatio)),
		"FireEllipse.eccentricity":       unary("FireEllipse.eccentricity", Eccentricity),
		"FireEllipse.backingSpreadRate": nary("FireEllipse.backingSpreadRate", 2, func(x []float64) (float64, error) {
			return x[0] * (1 - x[1]) / (1 + x[1]), nil
		}),
		"FireEllipse.flankingSpreadRate": nary("FireEllipse.flankingSpreadRate", 3, func(x []float64) (float64, error) {
			if x[2] <= 0 {
				return 0, errors.New("length-to-width ratio must be positive")
			}
			return (x[0] + x[1]) / (2 * x[2]), nil
		}),
		"FireEllipse.spreadDistance": nary("FireEllipse.spreadDistance", 2, func(x []float64) (float64, error) {
			return x[0] * x[1], nil
		}),
		"FireEllipse.area": nary("FireEllipse.area", 2, func(x []float64) (float64, error) {
			return math.Pi * x[0] * x[1] / 4, nil
		}),
		"FireEllipse.perimeter": nary("FireEllipse.perimeter", 2, func(x []float64) (float64, error) {
			return Perimeter(x[0], x[1]), nil
		}),
	}
}

// LengthToWidthRatio is Anderson's 1 + 0.25 * U with U in mi/h.
func LengthToWidthRatio(midflame float64) float64 {
	return 1 + 0.25*math.Max(midflame, 0)/FeetPerMinutePerMph
}

// Eccentricity of an ellipse with the given length-to-width ratio.
func Eccentricity(lwr float64) (float64, error) {
	if lwr < 1 {
		return 0, errors.New("length-to-width ratio must be at least 1")
	}
	return math.Sqrt(lwr*lwr-1) / lwr, nil
}

// Perimeter uses Ramanujan's approximation on the semi-axes.
func Perimeter(length, width float64) float64 {
	a, b := length/2, width/2
	return math.Pi * (3*(a+b) - math.Sqrt((3*a+b)*(a+3*b)))
}
