package treeconf

import (
	"fmt"
	"strings"
	"time"

	"github.com/gopasspw/gopass/pkg/debug"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the per-compositor merge cache. The cache is a
// safety valve against repeated re-merging, not a hard requirement, so a
// small capacity is enough.
const DefaultCacheSize = 10

// Mount associates a source with a path prefix in a composition. Mode is the
// merge mode for the pairwise step that merges everything mounted before
// this mount into its successor; the zero value is ModeNormal. Schema, if
// set, validates the final merged tree when this mount is the last
// contributor.
type Mount struct {
	Path   string
	Source TreeSource
	Mode   Mode
	Schema Schema
}

// ResolverFunc produces the mounts relevant to a requested path. It is
// invoked fresh on every composed GetTreeFor, which supports context
// dependent composition such as a different set of config files per
// user branch of the path.
type ResolverFunc func(path string) []Mount

// Compositor combines an ordered list of mounted sources into one logical
// tree. Subtrees are fetched per mount, folded pairwise left to right
// through the merger, optionally validated and cached.
//
// A Compositor is itself a TreeSource, compositions nest. It is not
// thread-safe, the cache is private mutable state and callers sharing a
// compositor across goroutines must lock around GetTreeFor.
type Compositor struct {
	id        string
	mounts    []Mount
	resolve   ResolverFunc
	keys      KeyResolver
	merger    *Merger
	cache     *lru.Cache[string, Tree]
	cacheSize int
	schema    Schema
	policy    Policy
}

// CompositorOption customizes a Compositor at construction time.
type CompositorOption func(*Compositor)

// WithResolver installs a dynamic mount resolver, replacing the static
// mount list for every request.
func WithResolver(fn ResolverFunc) CompositorOption {
	return func(c *Compositor) {
		c.resolve = fn
	}
}

// WithCacheSize overrides the merge cache capacity.
func WithCacheSize(n int) CompositorOption {
	return func(c *Compositor) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// WithDefaultSchema installs a composition wide schema, used when the last
// contributing mount declares none.
func WithDefaultSchema(s Schema) CompositorOption {
	return func(c *Compositor) {
		c.schema = s
	}
}

// WithPolicy selects the validation failure policy, PolicyDie by default.
func WithPolicy(p Policy) CompositorOption {
	return func(c *Compositor) {
		c.policy = p
	}
}

// WithPrefixOrder selects the prefix candidate order used for key
// resolution and merging, DefaultPrefixOrder by default.
func WithPrefixOrder(prefixes ...string) CompositorOption {
	return func(c *Compositor) {
		c.keys = NewKeyResolver(prefixes...)
	}
}

// NewCompositor creates a compositor over the given mounts. Mount order is
// significant, merges are applied strictly left to right.
func NewCompositor(id string, mounts []Mount, opts ...CompositorOption) *Compositor {
	c := &Compositor{
		id:        id,
		mounts:    mounts,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.merger = NewMerger(c.keys)
	// the size is always positive, New only fails otherwise
	c.cache, _ = lru.New[string, Tree](c.cacheSize)

	return c
}

// ID implements TreeSource.
func (c *Compositor) ID() string {
	return c.id
}

// MergeCalls reports how many merge steps the compositor has performed.
// Cache hits skip merging entirely, which tests observe through this
// counter.
func (c *Compositor) MergeCalls() int {
	return c.merger.Calls()
}

type contribution struct {
	mount Mount
	value any
	mtime time.Time
}

// GetTreeFor implements TreeSource for the composed view. The returned tree
// is always rooted at "/".
func (c *Compositor) GetTreeFor(wanted string) (Tree, error) {
	wanted = NormalizePath("/", wanted)

	mounts := c.mounts
	if c.resolve != nil {
		mounts = c.resolve(wanted)
	}

	contribs, err := c.gather(mounts)
	if err != nil {
		return Tree{}, err
	}
	if len(contribs) == 0 {
		debug.V(2).Log("[%s] no mount contributes a tree for %q", c.id, wanted)

		return Tree{Path: "/"}, nil
	}

	key := cacheKey(contribs)
	if t, found := c.cache.Get(key); found {
		debug.V(2).Log("[%s] cache hit for %q", c.id, wanted)

		return copyTree(t), nil
	}

	merged, err := c.fold(contribs)
	if err != nil {
		return Tree{}, err
	}

	if err := c.validate(wanted, contribs, merged); err != nil {
		return Tree{}, err
	}

	var mtime time.Time
	for _, ct := range contribs {
		if ct.mtime.After(mtime) {
			mtime = ct.mtime
		}
	}

	t := Tree{Path: "/", Value: merged, MTime: mtime}
	c.cache.Add(key, t)

	// callers get a copy, the cached tree stays pristine no matter what they
	// do with the result
	return copyTree(t), nil
}

// gather fetches each mount's subtree. A source may answer with a tree
// rooted at an ancestor of the mount path, in which case the mount relative
// branch is located by prefix aware descent. Mounts without a tree are
// skipped, missing configuration is not an error.
func (c *Compositor) gather(mounts []Mount) ([]contribution, error) {
	contribs := make([]contribution, 0, len(mounts))

	for _, mt := range mounts {
		mountPath := NormalizePath("/", mt.Path)

		t, err := mt.Source.GetTreeFor(mountPath)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", mt.Source.ID(), err)
		}
		if t.Value == nil {
			debug.V(3).Log("[%s] mount %q (%s) has no tree", c.id, mountPath, mt.Source.ID())

			continue
		}

		val := t.Value
		treePath := NormalizePath("/", t.Path)
		if treePath != mountPath {
			if !pathIsAncestor(treePath, mountPath) {
				return nil, fmt.Errorf("%w: %q for mount %q from %s", ErrBadSourceRoot, t.Path, mountPath, mt.Source.ID())
			}
			branch, found := c.keys.GetBranch(val, joinPath(pathRemainder(treePath, mountPath)))
			if !found {
				debug.V(3).Log("[%s] mount %q not present in tree from %s", c.id, mountPath, mt.Source.ID())

				continue
			}
			val = branch
		}

		contribs = append(contribs, contribution{mount: mt, value: val, mtime: t.MTime})
	}

	return contribs, nil
}

// fold merges all contributions pairwise, left to right. The mode of each
// step comes from the earlier mount in the pair, so a mount declaring
// ModeKeep shields everything merged up to and including it from all later
// mounts.
func (c *Compositor) fold(contribs []contribution) (any, error) {
	merged := wrapAt(contribs[0].mount.Path, contribs[0].value)
	if len(contribs) == 1 {
		// single contributor, copy so the source keeps ownership
		return deepCopy(merged), nil
	}

	var err error
	for i := 1; i < len(contribs); i++ {
		mode := contribs[i-1].mount.Mode
		right := wrapAt(contribs[i].mount.Path, contribs[i].value)

		merged, err = c.merger.Merge(merged, right, mode)
		if err != nil {
			return nil, fmt.Errorf("merging mount %q (%s): %w", contribs[i].mount.Path, contribs[i].mount.Source.ID(), err)
		}
	}

	return merged, nil
}

func (c *Compositor) validate(wanted string, contribs []contribution, merged any) error {
	schema := contribs[len(contribs)-1].mount.Schema
	if schema == nil {
		schema = c.schema
	}
	if schema == nil {
		return nil
	}

	errs := schema.Validate(merged)
	if len(errs) == 0 {
		return nil
	}

	switch c.policy {
	case PolicyWarn:
		debug.Log("[%s] merged tree for %q failed validation with %d error(s): %v", c.id, wanted, len(errs), errs)
	case PolicyQuiet:
	default:
		return fmt.Errorf("%w: tree for %q has %d error(s), first: %v", ErrValidation, wanted, len(errs), errs[0])
	}

	return nil
}

// Set implements MutableSource by failing fast. A composed tree has no well
// defined single writeback target, mutation must address one individual
// source directly.
func (c *Compositor) Set(string, any) (any, error) {
	return nil, fmt.Errorf("%w: cannot set on the composed view %s", ErrUnsupported, c.id)
}

// Unset implements MutableSource by failing fast, see Set.
func (c *Compositor) Unset(string) (any, error) {
	return nil, fmt.Errorf("%w: cannot unset on the composed view %s", ErrUnsupported, c.id)
}

// Save implements MutableSource by failing fast, see Set.
func (c *Compositor) Save() error {
	return fmt.Errorf("%w: cannot save the composed view %s", ErrUnsupported, c.id)
}

// cacheKey builds the cache key from the ordered tuple of mount path,
// source identity, merge mode and subtree modification time across all
// contributing mounts. The string fields are quoted so that separator
// characters inside a path or source ID cannot collide two distinct tuples.
func cacheKey(contribs []contribution) string {
	var sb strings.Builder
	for _, ct := range contribs {
		fmt.Fprintf(&sb, "%q|%q|%s|%d;", ct.mount.Path, ct.mount.Source.ID(), ct.mount.Mode, ct.mtime.UnixNano())
	}

	return sb.String()
}

// wrapAt re-roots a mount's subtree at "/" by nesting it under the mount
// path segments, so that trees from differently mounted sources merge in a
// single namespace.
func wrapAt(mountPath string, value any) any {
	segs := splitPath(NormalizePath("/", mountPath))
	for i := len(segs) - 1; i >= 0; i-- {
		value = map[string]any{segs[i]: value}
	}

	return value
}
