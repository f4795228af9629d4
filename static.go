package treeconf

import (
	"fmt"
	"time"

	"github.com/gopasspw/gopass/pkg/debug"
)

// Static is an in-memory source wrapping a plain data structure. It is the
// simplest TreeSource and the building block for presets and tests.
type Static struct {
	id       string
	rootPath string
	root     map[string]any
	keys     KeyResolver
	mtime    time.Time
	readonly bool
	modified bool
}

// NewStatic creates a mutable in-memory source rooted at "/".
func NewStatic(id string, data map[string]any) *Static {
	return &Static{
		id:       id,
		rootPath: "/",
		root:     data,
		mtime:    time.Now(),
	}
}

// NewStaticAt creates an in-memory source whose data is rooted at rootPath
// instead of "/". This grafts a bare fragment into a composition, e.g. a
// quota override mounted below /limits without spelling out the wrapper
// mappings.
func NewStaticAt(id, rootPath string, data map[string]any) *Static {
	s := NewStatic(id, data)
	s.rootPath = NormalizePath("/", rootPath)

	return s
}

// NewPreset creates a read-only in-memory source, typically used for
// built-in defaults mounted below every other source.
func NewPreset(id string, data map[string]any) *Static {
	s := NewStatic(id, data)
	s.readonly = true

	return s
}

// ID implements TreeSource.
func (s *Static) ID() string {
	return s.id
}

// GetTreeFor implements TreeSource. A static source always answers with its
// whole tree, callers descend the rest.
func (s *Static) GetTreeFor(string) (Tree, error) {
	if s.root == nil {
		return Tree{Path: "/"}, nil
	}

	return Tree{Path: s.rootPath, Value: s.root, MTime: s.mtime}, nil
}

// Set implements MutableSource.
func (s *Static) Set(path string, value any) (any, error) {
	if s.readonly {
		return nil, fmt.Errorf("%w: static source %s", ErrReadOnly, s.id)
	}

	segs, err := s.relSegments(path)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: cannot set the root", ErrInvalidPath)
	}

	if s.root == nil {
		s.root = make(map[string]any)
	}

	old := storeAt(s.root, segs, value, s.keys)
	s.modified = true
	s.mtime = time.Now()

	debug.V(3).Log("[%s] set %q", s.id, path)

	return old, nil
}

// Unset implements MutableSource.
func (s *Static) Unset(path string) (any, error) {
	if s.readonly {
		return nil, fmt.Errorf("%w: static source %s", ErrReadOnly, s.id)
	}

	segs, err := s.relSegments(path)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 || s.root == nil {
		return nil, nil
	}

	old, present := removeAt(s.root, segs, s.keys)
	if !present {
		return nil, nil
	}
	s.modified = true
	s.mtime = time.Now()

	return old, nil
}

// Save implements MutableSource. A static source has no backing store, Save
// only resets the modified flag.
func (s *Static) Save() error {
	if s.readonly {
		return fmt.Errorf("%w: static source %s", ErrReadOnly, s.id)
	}
	if !s.modified {
		return ErrNotModified
	}
	s.modified = false

	return nil
}

// relSegments translates an absolute path into segments below the source's
// own root.
func (s *Static) relSegments(path string) ([]string, error) {
	p := NormalizePath("/", path)
	if !pathIsAncestor(s.rootPath, p) {
		return nil, fmt.Errorf("%w: %q is outside this source's root %q", ErrInvalidPath, p, s.rootPath)
	}

	return pathRemainder(s.rootPath, p), nil
}
