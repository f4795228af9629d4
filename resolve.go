package treeconf

import (
	"strconv"

	"github.com/gopasspw/gopass/pkg/debug"
)

// Prefix candidate orders for mapping-key resolution. A logical key may be
// stored with a directive prefix, resolution tries the stored variants in a
// fixed order and returns the first one present. Two orders exist, the seven
// entry order is the package default and CompatPrefixOrder skips the
// alternate replace spelling for data written before it existed.
var (
	// DefaultPrefixOrder tries "", "*", "-", "+", ".", "^", "!".
	DefaultPrefixOrder = []string{"", "*", "-", "+", ".", "^", "!"}
	// CompatPrefixOrder tries "", "*", "-", "+", ".", "!" and skips "^".
	CompatPrefixOrder = []string{"", "*", "-", "+", ".", "!"}
)

// KeyResolver maps logical path segments to the possibly prefixed keys a
// mapping actually stores, and descends into sequences by integer index.
// The zero value uses DefaultPrefixOrder.
type KeyResolver struct {
	prefixes []string
}

// NewKeyResolver returns a resolver with the given candidate prefix order.
// An empty order falls back to DefaultPrefixOrder.
func NewKeyResolver(prefixes ...string) KeyResolver {
	return KeyResolver{prefixes: prefixes}
}

func (r KeyResolver) order() []string {
	if len(r.prefixes) == 0 {
		return DefaultPrefixOrder
	}

	return r.prefixes
}

// ResolveBranch resolves one logical segment inside a container.
//
// For mappings it tries the stored key variants in the resolver's prefix
// order and returns the first one present. A variant carrying the delete
// directive is a deletion ghost and reported as absent, it never surfaces
// as a value. For sequences the segment must be a non-negative integer
// literal in range. Anything else is absent.
func (r KeyResolver) ResolveBranch(container any, segment string) (any, bool) {
	switch c := container.(type) {
	case map[string]any:
		for _, prefix := range r.order() {
			v, present := c[prefix+segment]
			if !present {
				continue
			}
			if prefix == "!" {
				debug.V(3).Log("segment %q only present as deletion ghost", segment)

				return nil, false
			}

			return v, true
		}

		return nil, false
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil, false
		}

		return c[idx], true
	default:
		return nil, false
	}
}

// StoredKey reports which stored key of the mapping the logical segment
// resolves to, following the same precedence as ResolveBranch.
func (r KeyResolver) StoredKey(m map[string]any, segment string) (string, bool) {
	for _, prefix := range r.order() {
		if _, present := m[prefix+segment]; present {
			return prefix + segment, true
		}
	}

	return "", false
}

// GetBranch descends from tree along relPath, resolving each segment in turn.
// It is used to locate a mount-relative branch inside a coarser tree returned
// by a source. relPath may be absolute or a bare segment sequence.
func (r KeyResolver) GetBranch(tree any, relPath string) (any, bool) {
	cur := tree
	for _, seg := range splitPath(relPath) {
		next, ok := r.ResolveBranch(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}

	return cur, true
}
