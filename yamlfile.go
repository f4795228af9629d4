package treeconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gopasspw/gopass/pkg/debug"
	"gopkg.in/yaml.v3"
)

// YAMLFile is a source backed by a single YAML document on disk.
//
// The file is loaded lazily on first access and transparently reloaded when
// its modification time changes, unless there are unsaved in-memory changes.
// A missing file is an absent tree, not an error.
//
// Fields:
// - ReadOnly: refuse any modification, even in-memory
// - NoWrites: allow in-memory changes but never persist them (for tests)
type YAMLFile struct {
	ReadOnly bool
	NoWrites bool

	path     string
	keys     KeyResolver
	value    any
	mtime    time.Time
	loaded   bool
	modified bool
}

// NewYAMLFile creates a source for the YAML document at path.
func NewYAMLFile(path string) *YAMLFile {
	return &YAMLFile{path: path}
}

// ID implements TreeSource.
func (f *YAMLFile) ID() string {
	return f.path
}

// GetTreeFor implements TreeSource. The whole document is returned rooted
// at "/", callers descend the rest.
func (f *YAMLFile) GetTreeFor(string) (Tree, error) {
	if err := f.refresh(); err != nil {
		return Tree{}, err
	}
	if f.value == nil {
		return Tree{Path: "/"}, nil
	}

	return Tree{Path: "/", Value: f.value, MTime: f.mtime}, nil
}

// refresh loads or reloads the document if the file changed on disk.
// Unsaved in-memory changes are never clobbered by a reload.
func (f *YAMLFile) refresh() error {
	st, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		if !f.modified {
			f.value = nil
			f.loaded = true
			f.mtime = time.Time{}
		}

		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", f.path, err)
	}

	if f.loaded && (f.modified || st.ModTime().Equal(f.mtime)) {
		return nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", f.path, err)
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to parse %q: %w", f.path, err)
	}

	f.value = v
	f.mtime = st.ModTime()
	f.loaded = true

	debug.V(2).Log("loaded %q (mtime %s)", f.path, f.mtime)

	return nil
}

// Set implements MutableSource. Intermediate nodes are created as needed, an
// intermediate of the wrong kind is replaced with a fresh mapping.
func (f *YAMLFile) Set(path string, value any) (any, error) {
	if f.ReadOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, f.path)
	}
	if err := f.refresh(); err != nil {
		return nil, err
	}

	segs := splitPath(NormalizePath("/", path))
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: cannot set the root", ErrInvalidPath)
	}

	root, isMap := f.value.(map[string]any)
	if !isMap {
		// a scalar or sequence document cannot hold keyed values
		root = make(map[string]any)
		f.value = root
	}

	old := storeAt(root, segs, value, f.keys)
	f.modified = true
	f.mtime = time.Now()

	return old, nil
}

// Unset implements MutableSource.
func (f *YAMLFile) Unset(path string) (any, error) {
	if f.ReadOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, f.path)
	}
	if err := f.refresh(); err != nil {
		return nil, err
	}

	root, isMap := f.value.(map[string]any)
	if !isMap {
		return nil, nil
	}

	segs := splitPath(NormalizePath("/", path))
	if len(segs) == 0 {
		return nil, nil
	}

	old, present := removeAt(root, segs, f.keys)
	if !present {
		return nil, nil
	}
	f.modified = true
	f.mtime = time.Now()

	return old, nil
}

// Save implements MutableSource and writes the document back to disk.
func (f *YAMLFile) Save() error {
	if f.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, f.path)
	}
	if !f.modified {
		return ErrNotModified
	}
	if f.NoWrites {
		debug.V(3).Log("not writing changes to disk (NoWrites true, path %q)", f.path)
		f.modified = false

		return nil
	}

	data, err := yaml.Marshal(f.value)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", f.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create directory %q for %q: %w", filepath.Dir(f.path), f.path, err)
	}

	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", f.path, err)
	}

	f.modified = false
	if st, err := os.Stat(f.path); err == nil {
		f.mtime = st.ModTime()
	}

	debug.V(1).Log("wrote config to %s", f.path)

	return nil
}
