package testutil

import (
	"errors"

	"github.com/roach88/firegraph/internal/catalog"
	"github.com/roach88/firegraph/internal/fire"
	"github.com/roach88/firegraph/internal/ir"
)

// Registry returns the builtins, the Calc.* arithmetic, and Calc.fail,
// which always returns an error.
func Registry() catalog.Registry {
	return catalog.Merge(fire.Calc(), catalog.Registry{
		"Calc.fail": func([]ir.Value) (ir.Value, error) {
			return nil, errors.New("intentional failure")
		},
	})
}
