package treeconf

import (
	"fmt"
	"regexp"

	"github.com/gopasspw/gopass/pkg/debug"
	"github.com/gopasspw/gopass/pkg/set"
	"github.com/spf13/cast"
)

// Handle is the caller-facing view of a single source or a composed tree.
// It keeps a current working position for relative addressing, a directory
// stack for Pushd/Popd and optional include/exclude path filters.
//
// Fields:
// - IncludePath: when set, only paths matching it are visible
// - ExcludePath: when set, matching paths are never returned even if present
// - ReadOnly: refuse Set/Unset on this handle regardless of the source
// - Resolver: prefix candidate order for key resolution, zero value is fine
//
// Handle is not thread-safe. Concurrent access from multiple goroutines is
// not supported, callers must provide synchronization if needed.
type Handle struct {
	IncludePath *regexp.Regexp
	ExcludePath *regexp.Regexp
	ReadOnly    bool
	Resolver    KeyResolver

	src      TreeSource
	cwd      string
	dirstack []string
	modified bool
}

// NewHandle creates a handle over a source with the working position at "/".
func NewHandle(src TreeSource) *Handle {
	return &Handle{
		src: src,
		cwd: "/",
	}
}

// String implements fmt.Stringer for debugging.
func (h *Handle) String() string {
	return fmt.Sprintf("Handle{Source: %s - CWD: %s - Stack: %v}", h.src.ID(), h.cwd, h.dirstack)
}

// Source returns the underlying tree provider.
func (h *Handle) Source() TreeSource {
	return h.src
}

// CWD returns the current working position.
func (h *Handle) CWD() string {
	return h.cwd
}

// Modified reports whether this handle performed any successful mutation.
func (h *Handle) Modified() bool {
	return h.modified
}

// NormalizePath resolves path against the current working position.
func (h *Handle) NormalizePath(path string) string {
	return NormalizePath(h.cwd, path)
}

// CD changes the current working position. An empty path is an error.
func (h *Handle) CD(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	h.cwd = NormalizePath(h.cwd, path)

	return nil
}

// Pushd pushes the current working position onto the directory stack and,
// when path is non-empty, changes into it.
func (h *Handle) Pushd(path string) error {
	h.dirstack = append(h.dirstack, h.cwd)
	if path == "" {
		return nil
	}

	return h.CD(path)
}

// Popd pops the directory stack into the current working position and
// returns the new position. It fails with ErrStackUnderflow on an empty
// stack.
func (h *Handle) Popd() (string, error) {
	if len(h.dirstack) == 0 {
		return "", ErrStackUnderflow
	}
	h.cwd = h.dirstack[len(h.dirstack)-1]
	h.dirstack = h.dirstack[:len(h.dirstack)-1]

	return h.cwd, nil
}

// Get returns the value at path, resolved against the current working
// position. A missing path is not an error, it reports found == false.
// Errors surface only for structural failures such as a merge conflict in
// the underlying composition.
func (h *Handle) Get(path string) (any, bool, error) {
	p := NormalizePath(h.cwd, path)
	if h.pathExcluded(p) {
		debug.V(2).Log("path %q is excluded", p)

		return nil, false, nil
	}

	t, err := h.src.GetTreeFor(p)
	if err != nil {
		return nil, false, err
	}
	if t.Value == nil {
		return nil, false, nil
	}

	rootPath := NormalizePath("/", t.Path)
	if !pathIsAncestor(rootPath, p) {
		return nil, false, fmt.Errorf("%w: got %q for %q from %s", ErrBadSourceRoot, t.Path, p, h.src.ID())
	}

	cur := t.Value
	prefix := rootPath
	for _, seg := range pathRemainder(rootPath, p) {
		if prefix == "/" {
			prefix = "/" + seg
		} else {
			prefix += "/" + seg
		}
		if h.pathExcluded(prefix) {
			debug.V(2).Log("intermediate path %q is excluded", prefix)

			return nil, false, nil
		}

		next, found := h.Resolver.ResolveBranch(cur, seg)
		if !found {
			return nil, false, nil
		}
		cur = next
	}

	return cur, true, nil
}

// GetString returns the value at path coerced to a string. Lookup and
// coercion failures report found == false, structural errors are logged.
func (h *Handle) GetString(path string) (string, bool) {
	v, found, err := h.Get(path)
	if err != nil {
		debug.Log("get %q failed: %s", path, err)

		return "", false
	}
	if !found {
		return "", false
	}

	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}

	return s, true
}

// GetInt returns the value at path coerced to an int, see GetString.
func (h *Handle) GetInt(path string) (int, bool) {
	v, found, err := h.Get(path)
	if err != nil {
		debug.Log("get %q failed: %s", path, err)

		return 0, false
	}
	if !found {
		return 0, false
	}

	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, false
	}

	return n, true
}

// GetBool returns the value at path coerced to a bool, see GetString.
func (h *Handle) GetBool(path string) (bool, bool) {
	v, found, err := h.Get(path)
	if err != nil {
		debug.Log("get %q failed: %s", path, err)

		return false, false
	}
	if !found {
		return false, false
	}

	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, false
	}

	return b, true
}

// Set stores value at path on the underlying source. It fails with
// ErrReadOnly on a read-only handle and with ErrUnsupported when the source
// does not accept writes, composed views in particular.
func (h *Handle) Set(path string, value any) (any, error) {
	if h.ReadOnly {
		return nil, ErrReadOnly
	}

	ms, writable := h.src.(MutableSource)
	if !writable {
		return nil, fmt.Errorf("%w: source %s is not writable", ErrUnsupported, h.src.ID())
	}

	old, err := ms.Set(NormalizePath(h.cwd, path), value)
	if err != nil {
		return nil, err
	}
	h.modified = true

	return old, nil
}

// Unset removes the leaf at path on the underlying source, see Set.
func (h *Handle) Unset(path string) (any, error) {
	if h.ReadOnly {
		return nil, ErrReadOnly
	}

	ms, writable := h.src.(MutableSource)
	if !writable {
		return nil, fmt.Errorf("%w: source %s is not writable", ErrUnsupported, h.src.ID())
	}

	old, err := ms.Unset(NormalizePath(h.cwd, path))
	if err != nil {
		return nil, err
	}
	h.modified = true

	return old, nil
}

// Save persists pending modifications of the underlying source.
func (h *Handle) Save() error {
	ms, writable := h.src.(MutableSource)
	if !writable {
		return fmt.Errorf("%w: source %s is not writable", ErrUnsupported, h.src.ID())
	}

	return ms.Save()
}

// Keys returns the sorted logical paths of all leaves visible through this
// handle. Deletion ghosts and excluded paths are omitted, directive
// prefixes are stripped.
func (h *Handle) Keys() []string {
	t, err := h.src.GetTreeFor("/")
	if err != nil {
		debug.Log("listing keys of %s failed: %s", h.src.ID(), err)

		return nil
	}
	if t.Value == nil {
		return nil
	}

	keys := make([]string, 0, 128)
	h.collectLeaves(t.Value, NormalizePath("/", t.Path), &keys)

	return set.Sorted(keys)
}

// List returns all leaf paths below the given prefix, List("/") is
// identical to Keys.
func (h *Handle) List(prefix string) []string {
	p := NormalizePath(h.cwd, prefix)

	return set.SortedFiltered(h.Keys(), func(k string) bool {
		return pathIsAncestor(p, k)
	})
}

func (h *Handle) collectLeaves(v any, prefix string, out *[]string) {
	m, isMap := v.(map[string]any)
	if !isMap {
		if !h.pathExcluded(prefix) {
			*out = append(*out, prefix)
		}

		return
	}

	for k, e := range m {
		dir, lk := splitDirective(k)
		if dir == DirectiveDelete {
			continue
		}
		child := "/" + lk
		if prefix != "/" {
			child = prefix + "/" + lk
		}
		if h.pathExcluded(child) {
			continue
		}
		h.collectLeaves(e, child, out)
	}
}

// pathExcluded applies the include/exclude filters. An excluded path is
// never returned even if present in the tree.
func (h *Handle) pathExcluded(p string) bool {
	if h.ExcludePath != nil && h.ExcludePath.MatchString(p) {
		return true
	}
	if h.IncludePath != nil && !h.IncludePath.MatchString(p) {
		return true
	}

	return false
}
