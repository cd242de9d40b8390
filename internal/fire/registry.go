package fire

import (
	"fmt"

	"github.com/roach88/firegraph/internal/catalog"
	"github.com/roach88/firegraph/internal/ir"
)

// Registry returns the builtins plus every formula group in this package.
func Registry() catalog.Registry {
	return catalog.Merge(Calc(), Slope(), Wind(), SurfaceFire(), FireEllipse())
}

// numbers checks the argument count and unwraps each argument as a Number.
func numbers(name string, args []ir.Value, want int) ([]float64, error) {
	if len(args) != want {
		return nil, fmt.Errorf("%s: want %d arguments, got %d", name, want, len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		n, ok := a.(ir.Number)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d: expected number, got %s", name, i, ir.KindOf(a))
		}
		out[i] = float64(n)
	}
	return out, nil
}

// unary adapts a one-argument float function.
func unary(name string, fn func(float64) (float64, error)) catalog.Method {
	return func(args []ir.Value) (ir.Value, error) {
		x, err := numbers(name, args, 1)
		if err != nil {
			return nil, err
		}
		r, err := fn(x[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return ir.Number(r), nil
	}
}

// nary adapts an n-argument float function.
func nary(name string, n int, fn func(x []float64) (float64, error)) catalog.Method {
	return func(args []ir.Value) (ir.Value, error) {
		x, err := numbers(name, args, n)
		if err != nil {
			return nil, err
		}
		r, err := fn(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return ir.Number(r), nil
	}
}

func pure(fn func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) { return fn(x), nil }
}
