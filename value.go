package treeconf

// A config value is an untyped tree, the shape gopkg.in/yaml.v3 produces when
// decoding into any: map[string]any for mappings, []any for sequences and
// plain Go scalars (string, bool, int, float64, nil) for leaves. Mapping keys
// may carry a single leading directive character that locally overrides the
// merge mode for that key.

// Directive is the per-key merge override encoded in a stored mapping key.
type Directive int

const (
	// DirectiveNormal is the implicit directive of an unprefixed key.
	DirectiveNormal Directive = iota
	// DirectiveKeep ("*") protects the left value, the right value is discarded.
	DirectiveKeep
	// DirectiveSubtract ("-") computes a numeric difference or removes sequence elements.
	DirectiveSubtract
	// DirectiveAdd ("+") computes a numeric sum or concatenates sequences.
	DirectiveAdd
	// DirectiveReplace (".") forces a normal merge for this key.
	DirectiveReplace
	// DirectiveAltReplace ("^") is the alternate spelling of DirectiveReplace.
	DirectiveAltReplace
	// DirectiveDelete ("!") removes the key from the merge result.
	DirectiveDelete
)

func (d Directive) String() string {
	switch d {
	case DirectiveKeep:
		return "keep"
	case DirectiveSubtract:
		return "subtract"
	case DirectiveAdd:
		return "add"
	case DirectiveReplace:
		return "replace"
	case DirectiveAltReplace:
		return "alt-replace"
	case DirectiveDelete:
		return "delete"
	default:
		return "normal"
	}
}

// splitDirective splits a stored mapping key into its directive and the
// logical key callers address it by. A bare prefix character is a regular
// key, not a directive.
func splitDirective(key string) (Directive, string) {
	if len(key) < 2 {
		return DirectiveNormal, key
	}

	switch key[0] {
	case '*':
		return DirectiveKeep, key[1:]
	case '-':
		return DirectiveSubtract, key[1:]
	case '+':
		return DirectiveAdd, key[1:]
	case '.':
		return DirectiveReplace, key[1:]
	case '^':
		return DirectiveAltReplace, key[1:]
	case '!':
		return DirectiveDelete, key[1:]
	}

	return DirectiveNormal, key
}

// logicalKey strips any directive prefix from a stored key.
func logicalKey(key string) string {
	_, k := splitDirective(key)

	return k
}

// deepCopy clones a value tree. Merge results never alias their inputs, the
// sources keep exclusive ownership of the trees they loaded.
func deepCopy(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = deepCopy(e)
		}

		return out
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = deepCopy(e)
		}

		return out
	default:
		return v
	}
}
