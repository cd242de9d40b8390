package fire

import (
	"errors"
	"math"

	"github.com/roach88/firegraph/internal/catalog"
)

// SurfaceFire returns surface fire spread and intensity formulas.
//
//	SurfaceFire.moistureDamping                   (moisture, extinction)
//	SurfaceFire.windFactor                        (midflame ft/min, C, B)
//	SurfaceFire.slopeFactor                       (slope ratio, k)
//	SurfaceFire.spreadRate                        (no-wind no-slope rate, phiW, phiS)
//	SurfaceFire.firelineIntensity                 (spread rate, heat per unit area)
//	SurfaceFire.flameLength                       (fireline intensity)
//	SurfaceFire.firelineIntensityFromFlameLength  (flame length)
//	SurfaceFire.scorchHeight                      (fireline intensity, midflame ft/min, air temperature)
func SurfaceFire() catalog.Registry {
	return catalog.Registry{
		"SurfaceFire.moistureDamping": nary("SurfaceFire.moistureDamping", 2, func(x []float64) (float64, error) {
			return MoistureDamping(x[0], x[1])
		}),
		"SurfaceFire.windFactor": nary("SurfaceFire.windFactor", 3, func(x []float64) (float64, error) {
			return WindFactor(x[0], x[1], x[2]), nil
		}),
		"SurfaceFire.slopeFactor": nary("SurfaceFire.slopeFactor", 2, func(x []float64) (float64, error) {
			return SlopeFactor(x[0], x[1]), nil
		}),
		"SurfaceFire.spreadRate": nary("SurfaceFire.spreadRate", 3, func(x []float64) (float64, error) {
			return x[0] * (1 + x[1] + x[2]), nil
		}),
		"SurfaceFire.firelineIntensity": nary("SurfaceFire.firelineIntensity", 2, func(x []float64) (float64, error) {
			return x[0] * x[1] / 60, nil
		}),
		"SurfaceFire.flameLength":                      unary("SurfaceFire.flameLength", pure(FlameLength)),
		"SurfaceFire.firelineIntensityFromFlameLength": unary("SurfaceFire.firelineIntensityFromFlameLength", pure(FirelineIntensityFromFlameLength)),
		"SurfaceFire.scorchHeight": nary("SurfaceFire.scorchHeight", 3, func(x []float64) (float64, error) {
			return ScorchHeight(x[0], x[1], x[2])
		}),
	}
}

// MoistureDamping is the Rothermel moisture damping coefficient for a
// fuel moisture and its extinction moisture. Fuel at or above extinction
// returns 0.
func MoistureDamping(moisture, extinction float64) (float64, error) {
	if extinction <= 0 {
		return 0, errors.New("extinction moisture must be positive")
	}
	r := math.Min(moisture/extinction, 1)
	return 1 - 2.59*r + 5.11*r*r - 3.52*r*r*r, nil
}

// WindFactor is phiW = C * U^B with U the midflame wind speed in ft/min.
func WindFactor(midflame, c, b float64) float64 {
	if midflame <= 0 {
		return 0
	}
	return c * math.Pow(midflame, b)
}

// SlopeFactor is phiS = k * tan^2.
func SlopeFactor(ratio, k float64) float64 {
	return k * ratio * ratio
}

// FlameLength is Byram's flame length (ft) from fireline intensity (Btu/ft/s).
func FlameLength(fli float64) float64 {
	if fli <= 0 {
		return 0
	}
	return 0.45 * math.Pow(fli, 0.46)
}

// FirelineIntensityFromFlameLength inverts FlameLength.
func FirelineIntensityFromFlameLength(fl float64) float64 {
	if fl <= 0 {
		return 0
	}
	return math.Pow(fl/0.45, 1/0.46)
}

// ScorchHeight is Van Wagner's crown scorch height (ft) from fireline
// intensity (Btu/ft/s), midflame wind (ft/min), and air temperature (oF).
func ScorchHeight(fli, midflame, airTemp float64) (float64, error) {
	if fli <= 0 {
		return 0, nil
	}
	if airTemp >= 140 {
		return 0, errors.New("air temperature must be below 140 oF")
	}
	mph := midflame / FeetPerMinutePerMph
	return (63 / (140 - airTemp)) * math.Pow(fli, 7.0/6.0) / math.Sqrt(fli+mph*mph*mph), nil
}
