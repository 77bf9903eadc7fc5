package safety

import "sync/atomic"

// Flag names a feature toggle. The set of flags is fixed and enumerable;
// unknown flags read as disabled.
type Flag string

const (
	// FlagEngineEnabled gates the whole decision engine.
	FlagEngineEnabled Flag = "engine-enabled"

	// FlagHybridFallback gates falling back to the rules engine when
	// service orchestration produces nothing.
	FlagHybridFallback Flag = "hybrid-fallback-enabled"

	// FlagCustomRules gates evaluation of site-specific rule sets on top
	// of the prebuilt library.
	FlagCustomRules Flag = "custom-rules-enabled"

	// FlagMetrics gates rolling performance metrics collection.
	FlagMetrics Flag = "metrics-enabled"

	// FlagABTesting gates A/B allocation.
	FlagABTesting Flag = "ab-testing-enabled"

	// FlagCaching gates optional caching layers.
	FlagCaching Flag = "caching-enabled"

	// FlagParallelEvaluation gates concurrent rule evaluation; when off,
	// rule sets evaluate sequentially (a debugging aid).
	FlagParallelEvaluation Flag = "parallel-evaluation-enabled"
)

// allFlags enumerates every known flag.
var allFlags = []Flag{
	FlagEngineEnabled,
	FlagHybridFallback,
	FlagCustomRules,
	FlagMetrics,
	FlagABTesting,
	FlagCaching,
	FlagParallelEvaluation,
}

// Flags is the process-wide feature flag set. Reads and writes are atomic;
// there is no locking and no I/O.
type Flags struct {
	values map[Flag]*atomic.Bool
}

// NewFlags creates the flag set. Everything defaults to enabled except
// A/B testing and caching, which are opt-in.
func NewFlags() *Flags {
	f := &Flags{values: make(map[Flag]*atomic.Bool, len(allFlags))}
	for _, flag := range allFlags {
		b := new(atomic.Bool)
		switch flag {
		case FlagABTesting, FlagCaching:
			// opt-in
		default:
			b.Store(true)
		}
		f.values[flag] = b
	}
	return f
}

// Enabled reports whether a flag is on. Unknown flags are off.
func (f *Flags) Enabled(flag Flag) bool {
	b, ok := f.values[flag]
	return ok && b.Load()
}

// Set writes a flag. Unknown flags are ignored.
func (f *Flags) Set(flag Flag, enabled bool) {
	if b, ok := f.values[flag]; ok {
		b.Store(enabled)
	}
}

// All returns a snapshot of every flag.
func (f *Flags) All() map[Flag]bool {
	out := make(map[Flag]bool, len(f.values))
	for flag, b := range f.values {
		out[flag] = b.Load()
	}
	return out
}
