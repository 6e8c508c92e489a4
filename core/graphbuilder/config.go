package graphbuilder

import (
	"fmt"
	"os"

	"github.com/naoina/toml"
)

// Options are the construction policy knobs. Anything not listed here is
// not policy: the translation semantics themselves are fixed.
type Options struct {
	// AllowExplicitTrapChecks plants explicit null, bounds and zero-divisor
	// checks at sites the block map marked as trapping. Disabling it leaves
	// those traps to the runtime's implicit mechanisms.
	AllowExplicitTrapChecks bool

	// EagerResolution asks the constant pool to resolve referenced types
	// before each lookup instead of taking whatever resolution state exists.
	EagerResolution bool

	// BranchPrediction attaches profiled branch and switch probabilities
	// when the profiling oracle has them.
	BranchPrediction bool

	// CacheGraphs lets the cached front end store finished graphs. Graphs
	// that planted a deoptimization are never stored regardless.
	CacheGraphs bool
}

// DefaultOptions returns the production defaults.
func DefaultOptions() *Options {
	return &Options{
		AllowExplicitTrapChecks: true,
		BranchPrediction:        true,
		CacheGraphs:             true,
	}
}

// LoadOptions reads options from a TOML file, with defaults for any field
// the file does not set.
func LoadOptions(path string) (*Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open options file: %w", err)
	}
	defer f.Close()
	opts := DefaultOptions()
	if err := toml.NewDecoder(f).Decode(opts); err != nil {
		return nil, fmt.Errorf("decode options file %s: %w", path, err)
	}
	return opts, nil
}
