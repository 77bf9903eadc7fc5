// Package facts defines the read-only fact context that clinical decisions
// are evaluated against, and the path extractor used to pull values out of
// it.
//
// A fact context is an arbitrarily nested mapping of scalars, mappings, and
// sequences, typically decoded from JSON or YAML prefetch data. The engine
// never mutates a context; it only reads from it via field paths.
//
// # Field Paths
//
// Field paths use dot notation with an optional fan-out marker:
//
//	patient.age                    simple nested access
//	patient.medications[].name     fan-out across a sequence
//
// Resolving a path through a sequence yields a slice of the resolved leaf
// values rather than an error. Resolving a path with a missing intermediate
// key yields "absent" (Found == false), never an error. Both behaviors are
// load-bearing for the forgiving condition semantics in the rules package.
package facts
