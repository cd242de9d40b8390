package fire

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/firegraph/internal/catalog"
	"github.com/roach88/firegraph/internal/compiler"
	"github.com/roach88/firegraph/internal/ir"
)

// SurfaceSource is the CUE source of the demonstration catalog.
//
//go:embed surface.cue
var SurfaceSource []byte

// SurfaceGenome compiles and validates the embedded catalog.
func SurfaceGenome() (*ir.Genome, error) {
	g, err := CompileGenome("surface.cue", SurfaceSource)
	if err != nil {
		return nil, fmt.Errorf("surface catalog: %w", err)
	}
	return g, nil
}

// SurfaceCatalog binds the embedded catalog to Registry.
func SurfaceCatalog() (*catalog.Catalog, error) {
	g, err := SurfaceGenome()
	if err != nil {
		return nil, err
	}
	return catalog.New(g, Registry())
}

// CompileGenome compiles CUE catalog source and runs structural validation.
// Every validation error is joined into the returned error.
func CompileGenome(filename string, src []byte) (*ir.Genome, error) {
	g, err := compiler.CompileSource(filename, src)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	if verrs := compiler.Validate(g); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("validate: %w", errors.Join(errs...))
	}
	return g, nil
}

// LoadCatalog reads, compiles, and validates a CUE catalog file and binds
// it to reg, or to Registry when reg is nil.
func LoadCatalog(path string, reg catalog.Registry) (*catalog.Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	g, err := CompileGenome(path, src)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = Registry()
	}
	return catalog.New(g, reg)
}
