package treeconf

import (
	"fmt"
	"reflect"

	"github.com/gopasspw/gopass/pkg/debug"
	"github.com/spf13/cast"
)

// Mode is the default disposition applied when merging two values that carry
// no per-key directive. It is attached per mount in a composition, not per
// value.
type Mode int

const (
	// ModeNormal merges mappings and sequences of matching kind structurally
	// and lets the right side replace the left everywhere else.
	ModeNormal Mode = iota
	// ModeKeep returns the left side unchanged, the right side is ignored.
	ModeKeep
	// ModeAdd sums numbers and concatenates sequences.
	ModeAdd
	// ModeSubtract computes numeric differences and removes sequence elements.
	ModeSubtract
	// ModeDelete discards both sides, the result is absent.
	ModeDelete
)

func (m Mode) String() string {
	switch m {
	case ModeKeep:
		return "keep"
	case ModeAdd:
		return "add"
	case ModeSubtract:
		return "subtract"
	case ModeDelete:
		return "delete"
	default:
		return "normal"
	}
}

// Merger combines two value trees under a merge mode, honoring per-key
// directives on the right-hand side that change the mode for a single key.
//
// Merging is right-biased: under ModeNormal the later (right) tree wins
// wherever the two sides disagree in kind. Merge results are always fresh
// trees, neither input is aliased or modified.
//
// Merger is not thread-safe, callers must provide synchronization if they
// share one across goroutines.
type Merger struct {
	resolver KeyResolver
	calls    int
}

// NewMerger returns a Merger resolving prefixed keys with the given resolver.
func NewMerger(resolver KeyResolver) *Merger {
	return &Merger{resolver: resolver}
}

// Calls reports how often Merge has been invoked. The compositor cache tests
// use it to verify that cache hits skip re-merging.
func (m *Merger) Calls() int {
	return m.calls
}

// Merge combines left and right under the given mode and returns a fresh
// tree. It fails only on structural contradictions, i.e. an add or subtract
// step on values that are neither both numeric nor both sequences. Such a
// failure wraps ErrMergeConflict and aborts the whole composition request.
func (m *Merger) Merge(left, right any, mode Mode) (any, error) {
	m.calls++

	debug.V(3).Log("merging %T into %T under mode %s", right, left, mode)

	return m.merge(left, right, mode)
}

func (m *Merger) merge(left, right any, mode Mode) (any, error) {
	switch mode {
	case ModeKeep:
		return deepCopy(left), nil
	case ModeDelete:
		return nil, nil
	}

	lm, lok := left.(map[string]any)
	rm, rok := right.(map[string]any)
	if lok && rok {
		return m.mergeMaps(lm, rm, mode)
	}

	switch mode {
	case ModeAdd:
		return addValues(left, right)
	case ModeSubtract:
		return subtractValues(left, right)
	}

	ls, lSeq := left.([]any)
	rs, rSeq := right.([]any)
	if lSeq && rSeq {
		return m.mergeSequences(ls, rs)
	}

	// Scalars and kind mismatches under normal mode: the right side replaces
	// the left wholesale. A later, simpler source may blot out an earlier,
	// structured one.
	return deepCopy(right), nil
}

// mergeSequences merges two sequences element by element under normal mode.
// Each right element merges into the left element at the same index, the
// longer side's tail passes through unchanged.
func (m *Merger) mergeSequences(left, right []any) (any, error) {
	out := make([]any, 0, max(len(left), len(right)))
	for i := range max(len(left), len(right)) {
		switch {
		case i >= len(left):
			out = append(out, deepCopy(right[i]))
		case i >= len(right):
			out = append(out, deepCopy(left[i]))
		default:
			v, err := m.merge(left[i], right[i], ModeNormal)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, v)
		}
	}

	return out, nil
}

// mergeMaps builds the result mapping key by key. For every logical key
// present on either side the effective mode is the ambient mode unless the
// right side stores the key with a directive prefix. Keys present on one
// side only pass through with their stored spelling, except deletion ghosts
// which never surface.
//
// Keep protection ("*" keys) survives into the result so that a later fold
// in the same composition still honors it. All other directive prefixes are
// consumed by the merge that acts on them.
func (m *Merger) mergeMaps(left, right map[string]any, mode Mode) (any, error) {
	out := make(map[string]any, len(left)+len(right))
	handled := make(map[string]struct{}, len(left)+len(right))

	for storedL := range left {
		k := logicalKey(storedL)
		if _, done := handled[k]; done {
			continue
		}
		handled[k] = struct{}{}

		chosenL, _ := m.resolver.StoredKey(left, k)
		dirL, _ := splitDirective(chosenL)
		if dirL == DirectiveDelete {
			// lone deletion ghost, recorded as absent
			continue
		}
		lv := left[chosenL]

		chosenR, found := m.resolver.StoredKey(right, k)
		if !found {
			out[chosenL] = deepCopy(lv)

			continue
		}
		dirR, _ := splitDirective(chosenR)
		rv := right[chosenR]

		if dirL == DirectiveKeep {
			// the left side was marked protected by an earlier merge or
			// source, the right side loses regardless of its directive
			debug.V(3).Log("key %q protected on the left, discarding right value", k)
			out[chosenL] = deepCopy(lv)

			continue
		}

		merged, outKey, drop, err := m.mergeKey(k, lv, rv, dirR, mode)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		if drop {
			continue
		}
		out[outKey] = merged
	}

	for storedR := range right {
		k := logicalKey(storedR)
		if _, done := handled[k]; done {
			continue
		}

		chosenR, _ := m.resolver.StoredKey(right, k)
		if chosenR != storedR {
			// a higher precedence variant of the same logical key will
			// handle it
			continue
		}
		handled[k] = struct{}{}

		dirR, _ := splitDirective(chosenR)
		if dirR == DirectiveDelete {
			continue
		}

		out[chosenR] = deepCopy(right[chosenR])
	}

	return out, nil
}

func (m *Merger) mergeKey(key string, lv, rv any, dirR Directive, mode Mode) (any, string, bool, error) {
	switch dirR {
	case DirectiveKeep:
		return deepCopy(lv), "*" + key, false, nil
	case DirectiveDelete:
		return nil, "", true, nil
	case DirectiveAdd:
		v, err := m.merge(lv, rv, ModeAdd)

		return v, key, false, err
	case DirectiveSubtract:
		v, err := m.merge(lv, rv, ModeSubtract)

		return v, key, false, err
	case DirectiveReplace, DirectiveAltReplace:
		v, err := m.merge(lv, rv, ModeNormal)

		return v, key, false, err
	default:
		v, err := m.merge(lv, rv, mode)

		return v, key, false, err
	}
}

func addValues(left, right any) (any, error) {
	ls, lSeq := left.([]any)
	rs, rSeq := right.([]any)

	switch {
	case lSeq && rSeq:
		out := make([]any, 0, len(ls)+len(rs))
		for _, e := range ls {
			out = append(out, deepCopy(e))
		}
		for _, e := range rs {
			out = append(out, deepCopy(e))
		}

		return out, nil
	case lSeq || rSeq:
		return nil, fmt.Errorf("%w: cannot add %T and %T", ErrMergeConflict, left, right)
	}

	lf, lInt, err := toNumber(left)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot add %T and %T", ErrMergeConflict, left, right)
	}
	rf, rInt, err := toNumber(right)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot add %T and %T", ErrMergeConflict, left, right)
	}

	if lInt && rInt {
		return int(lf + rf), nil
	}

	return lf + rf, nil
}

func subtractValues(left, right any) (any, error) {
	ls, lSeq := left.([]any)
	rs, rSeq := right.([]any)

	switch {
	case lSeq && rSeq:
		out := make([]any, 0, len(ls))
		for _, e := range ls {
			if containsValue(rs, e) {
				continue
			}
			out = append(out, deepCopy(e))
		}

		return out, nil
	case lSeq || rSeq:
		return nil, fmt.Errorf("%w: cannot subtract %T from %T", ErrMergeConflict, right, left)
	}

	lf, lInt, err := toNumber(left)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot subtract %T from %T", ErrMergeConflict, right, left)
	}
	rf, rInt, err := toNumber(right)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot subtract %T from %T", ErrMergeConflict, right, left)
	}

	if lInt && rInt {
		return int(lf - rf), nil
	}

	return lf - rf, nil
}

// toNumber coerces a scalar into a float64 and reports whether it was
// integral, so that adding two ints yields an int again.
func toNumber(v any) (float64, bool, error) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, err := cast.ToFloat64E(v)

		return f, true, err
	case float32, float64:
		f, err := cast.ToFloat64E(v)

		return f, false, err
	case string:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return 0, false, err
		}
		if _, ierr := cast.ToInt64E(v); ierr == nil {
			return f, true, nil
		}

		return f, false, nil
	default:
		return 0, false, fmt.Errorf("not a number: %T", v)
	}
}

func containsValue(haystack []any, needle any) bool {
	for _, e := range haystack {
		if reflect.DeepEqual(e, needle) {
			return true
		}
	}

	return false
}
