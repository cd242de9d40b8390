package fire

import (
	"errors"
	"fmt"

	"github.com/roach88/firegraph/internal/catalog"
	"github.com/roach88/firegraph/internal/ir"
)

// Calc returns generic arithmetic.
//
//	Calc.add       sum of all arguments
//	Calc.subtract  first argument minus the rest
//	Calc.multiply  product of all arguments
//	Calc.divide    first argument divided by the second
//	Calc.min       smallest argument
//	Calc.max       largest argument
func Calc() catalog.Registry {
	return catalog.Registry{
		"Calc.add":      fold("Calc.add", 0, func(acc, x float64) float64 { return acc + x }),
		"Calc.multiply": fold("Calc.multiply", 1, func(acc, x float64) float64 { return acc * x }),
		"Calc.subtract": func(args []ir.Value) (ir.Value, error) {
			if len(args) == 0 {
				return nil, errors.New("Calc.subtract: no arguments")
			}
			x, err := numbers("Calc.subtract", args, len(args))
			if err != nil {
				return nil, err
			}
			diff := x[0]
			for _, f := range x[1:] {
				diff -= f
			}
			return ir.Number(diff), nil
		},
		"Calc.divide": nary("Calc.divide", 2, func(x []float64) (float64, error) {
			if x[1] == 0 {
				return 0, errors.New("division by zero")
			}
			return x[0] / x[1], nil
		}),
		"Calc.min": extreme("Calc.min", func(a, b float64) bool { return a < b }),
		"Calc.max": extreme("Calc.max", func(a, b float64) bool { return a > b }),
	}
}

func fold(name string, init float64, op func(acc, x float64) float64) catalog.Method {
	return func(args []ir.Value) (ir.Value, error) {
		x, err := numbers(name, args, len(args))
		if err != nil {
			return nil, err
		}
		acc := init
		for _, f := range x {
			acc = op(acc, f)
		}
		return ir.Number(acc), nil
	}
}

func extreme(name string, better func(a, b float64) bool) catalog.Method {
	return func(args []ir.Value) (ir.Value, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("%s: no arguments", name)
		}
		x, err := numbers(name, args, len(args))
		if err != nil {
			return nil, err
		}
		best := x[0]
		for _, f := range x[1:] {
			if better(f, best) {
				best = f
			}
		}
		return ir.Number(best), nil
	}
}
