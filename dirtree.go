package treeconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/gopasspw/gopass/pkg/debug"
	"gopkg.in/yaml.v3"
)

// DirTree is a read-only source backed by a directory hierarchy. Every
// subdirectory becomes a mapping branch and every regular file a leaf or
// subtree holding the file's YAML content. The ".yaml" and ".yml" extensions
// are stripped from file names when forming keys, so "quota.yaml" is
// addressed as "quota". Hidden entries are skipped.
//
// Directives work here too: a file named "+quota.yaml" contributes an add
// override for "quota" when the directory tree is merged over another source.
type DirTree struct {
	dir     string
	include glob.Glob
	exclude glob.Glob
}

// NewDirTree creates a directory source. includePattern and excludePattern
// are glob patterns applied to entry names, an empty pattern means no
// filtering. Names matching excludePattern are skipped, and when
// includePattern is set only matching file names are read.
func NewDirTree(dir, includePattern, excludePattern string) (*DirTree, error) {
	d := &DirTree{dir: dir}

	if includePattern != "" {
		g, err := glob.Compile(includePattern)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", includePattern, err)
		}
		d.include = g
	}
	if excludePattern != "" {
		g, err := glob.Compile(excludePattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", excludePattern, err)
		}
		d.exclude = g
	}

	return d, nil
}

// ID implements TreeSource.
func (d *DirTree) ID() string {
	return d.dir
}

// GetTreeFor implements TreeSource. The source descends along the wanted
// path as far as matching subdirectories exist and returns the subtree
// rooted there, so callers receive a tree no coarser than necessary.
func (d *DirTree) GetTreeFor(wanted string) (Tree, error) {
	dir := d.dir
	treePath := "/"

	for _, seg := range splitPath(NormalizePath("/", wanted)) {
		// stop above hidden or excluded directories, readDir skips them and
		// descending past the filter would resurface them
		if strings.HasPrefix(seg, ".") || (d.exclude != nil && d.exclude.Match(seg)) {
			break
		}
		next := filepath.Join(dir, seg)
		fi, err := os.Stat(next)
		if err != nil || !fi.IsDir() {
			break
		}
		dir = next
		if treePath == "/" {
			treePath = "/" + seg
		} else {
			treePath += "/" + seg
		}
	}

	value, mtime, err := d.readDir(dir)
	if err != nil {
		return Tree{}, err
	}
	if value == nil {
		return Tree{Path: "/"}, nil
	}

	return Tree{Path: treePath, Value: value, MTime: mtime}, nil
}

func (d *DirTree) readDir(dir string) (map[string]any, time.Time, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read directory %q: %w", dir, err)
	}

	out := make(map[string]any, len(entries))
	var mtime time.Time

	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if d.exclude != nil && d.exclude.Match(name) {
			debug.V(3).Log("skipping excluded entry %q", name)

			continue
		}

		if e.IsDir() {
			sub, subMtime, err := d.readDir(filepath.Join(dir, name))
			if err != nil {
				return nil, time.Time{}, err
			}
			if sub == nil {
				continue
			}
			out[name] = sub
			if subMtime.After(mtime) {
				mtime = subMtime
			}

			continue
		}

		if d.include != nil && !d.include.Match(name) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to read %q: %w", filepath.Join(dir, name), err)
		}

		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to parse %q: %w", filepath.Join(dir, name), err)
		}

		key := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		out[key] = v

		if fi, err := e.Info(); err == nil && fi.ModTime().After(mtime) {
			mtime = fi.ModTime()
		}
	}

	return out, mtime, nil
}
