package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/firegraph/internal/catalog"
	"github.com/roach88/firegraph/internal/compiler"
	"github.com/roach88/firegraph/internal/fire"
	"github.com/roach88/firegraph/internal/ir"
)

// BuiltinSurface names the embedded surface fire catalog.
const BuiltinSurface = "surface"

// LoadMode controls how errors are handled during catalog loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all validation errors before returning.
	LoadModeCollectAll
)

// LoadResult contains a compiled catalog.
type LoadResult struct {
	Source    string // file, directory, or BuiltinSurface
	Genome    *ir.Genome
	Hash      string
	Catalog   *catalog.Catalog // nil when the genome did not validate
	Warnings  []compiler.CycleWarning
	FileCount int // Number of CUE files compiled
}

// LoadError represents an error that occurred during catalog loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadCatalog compiles, validates, and binds a catalog to the fire
// formulas. ref is BuiltinSurface, a .cue file, or a directory holding one
// CUE package.
//
// A nil result means the catalog could not be compiled at all. A result
// with errors holds the genome but no bound Catalog.
func LoadCatalog(ref string, mode LoadMode) (*LoadResult, []error) {
	g, files, err := compileRef(ref)
	if err != nil {
		return nil, []error{err}
	}

	result := &LoadResult{
		Source:    ref,
		Genome:    g,
		Warnings:  compiler.AnalyzeCycles(g),
		FileCount: files,
	}
	hash, err := ir.GenomeHash(g)
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: err.Error()}}
	}
	result.Hash = hash

	var errs []error
	for _, verr := range compiler.Validate(g) {
		errs = append(errs, &LoadError{Code: verr.Code, Message: fmt.Sprintf("%s: %s", verr.Field, verr.Message)})
		if mode == LoadModeFailFast {
			return result, errs
		}
	}
	if len(errs) > 0 {
		return result, errs
	}

	cat, err := catalog.New(g, fire.Registry())
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeBinding, Message: err.Error()}}
	}
	result.Catalog = cat
	return result, nil
}

// loadBoundCatalog loads ref in fail-fast mode and returns the first error.
func loadBoundCatalog(ref string) (*LoadResult, error) {
	result, errs := LoadCatalog(ref, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return result, nil
}

func compileRef(ref string) (*ir.Genome, int, error) {
	if ref == BuiltinSurface {
		g, err := compiler.CompileSource("surface.cue", fire.SurfaceSource)
		if err != nil {
			return nil, 0, convertCompileError(err, ref)
		}
		return g, 1, nil
	}

	info, err := os.Stat(ref)
	if os.IsNotExist(err) {
		return nil, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog not found: %s", ref)}
	}
	if err != nil {
		return nil, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog: %v", err)}
	}
	if info.IsDir() {
		return compileDir(ref)
	}

	src, err := os.ReadFile(ref)
	if err != nil {
		return nil, 0, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading catalog: %v", err)}
	}
	g, err := compiler.CompileSource(ref, src)
	if err != nil {
		return nil, 0, convertCompileError(err, ref)
	}
	return g, 1, nil
}

// compileDir builds the CUE package in dir, so a catalog may be split
// into several files.
func compileDir(dir string) (*ir.Genome, int, error) {
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, 0, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, 0, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, 0, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	g, err := compiler.CompileGenome(value, filepath.Base(dir))
	if err != nil {
		return nil, 0, convertCompileError(err, dir)
	}
	return g, len(cueFiles), nil
}

// FindCUEFiles returns the .cue files directly inside dir.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	// Catalog compilation errors
	ErrCodeCatalogTypes = "E008" // Invalid types section
	ErrCodeCatalogGenes = "E009" // Invalid gene definition
	ErrCodeBinding      = "E010" // Method not in the formula registry

	// Run errors
	ErrCodeWorksheet    = "E020" // Worksheet could not be loaded
	ErrCodeInvalidInput = "E021" // Candidate input rejected by its value type
	ErrCodeGraph        = "E022" // Wiring, locator, or evaluation failure
	ErrCodeStore        = "E023" // Results database failure
	ErrCodeRunNotFound  = "E024" // Unknown run id
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "types" || strings.HasPrefix(field, "types."):
		return ErrCodeCatalogTypes
	case field == "genes" || strings.HasPrefix(field, "genes."):
		return ErrCodeCatalogGenes
	case field == "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
