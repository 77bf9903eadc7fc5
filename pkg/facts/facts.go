package facts

import "strings"

// Context is a request-scoped, read-only fact mapping (patient and clinical
// data). Values are JSON/YAML-shaped: scalars, map[string]any, and []any.
//
// Contexts are immutable per request by convention. The engine only reads
// from them, so a Context is safe for concurrent use as long as no caller
// writes into it while a decision is in flight.
type Context map[string]any

// Extract resolves a field path against the context.
//
// It returns the resolved value and whether the path resolved at all.
// A missing intermediate key, a nil value mid-path, or an index into a
// scalar all yield (nil, false) rather than an error.
//
// When a path steps through a sequence (either via an explicit "[]" marker
// or because an intermediate value happens to be a sequence), the remainder
// of the path is resolved against every element and the results are
// collected into a []any. Elements that do not resolve are dropped. An
// empty collection counts as absent.
func Extract(path string, ctx Context) (any, bool) {
	if path == "" || ctx == nil {
		return nil, false
	}
	return resolve(splitPath(path), map[string]any(ctx))
}

// segment is one step of a parsed field path.
type segment struct {
	key    string
	fanOut bool // "[]" suffix: resolve the remainder against every element
}

// splitPath parses "a.b[].c" into segments. The "[]" marker binds to the
// key it follows.
func splitPath(path string) []segment {
	parts := strings.Split(path, ".")
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		if strings.HasSuffix(p, "[]") {
			segs = append(segs, segment{key: strings.TrimSuffix(p, "[]"), fanOut: true})
			continue
		}
		segs = append(segs, segment{key: p})
	}
	return segs
}

// resolve walks the remaining segments from the current value.
func resolve(segs []segment, current any) (any, bool) {
	if len(segs) == 0 {
		if current == nil {
			return nil, false
		}
		return current, true
	}

	seg := segs[0]
	rest := segs[1:]

	switch v := current.(type) {
	case map[string]any:
		child, ok := v[seg.key]
		if !ok || child == nil {
			return nil, false
		}
		if seg.fanOut {
			seq, ok := child.([]any)
			if !ok {
				// "[]" on a non-sequence degrades to plain access; the
				// tolerant semantics favor resolving over erroring.
				return resolve(rest, child)
			}
			return fanOut(rest, seq)
		}
		return resolve(rest, child)

	case []any:
		// Transparent fan-out: the path did not announce a sequence but the
		// data contains one. Apply the current segment to every element.
		return fanOut(segs, v)

	default:
		// Scalar with path remaining.
		return nil, false
	}
}

// fanOut resolves the remaining segments against every element of seq,
// flattening nested fan-out results into a single slice.
func fanOut(segs []segment, seq []any) (any, bool) {
	out := make([]any, 0, len(seq))
	for _, elem := range seq {
		val, ok := resolve(segs, elem)
		if !ok {
			continue
		}
		if nested, isSlice := val.([]any); isSlice {
			out = append(out, nested...)
			continue
		}
		out = append(out, val)
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
