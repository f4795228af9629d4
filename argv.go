package treeconf

import (
	"strings"
	"time"

	"github.com/gopasspw/gopass/pkg/debug"
)

// Cmdline is a read-only source built from command line overrides of the
// form "path/to/key=value" or "--path/to/key=value". Values are YAML-parsed
// so "=5" contributes an int and "=true" a bool. Arguments without "=" are
// ignored, flag parsing proper is somebody else's job.
type Cmdline struct {
	root  map[string]any
	mtime time.Time
}

// NewCmdline parses the given arguments, typically os.Args[1:].
func NewCmdline(args []string) *Cmdline {
	var keys KeyResolver
	root := make(map[string]any)

	for _, arg := range args {
		arg = strings.TrimPrefix(arg, "--")
		k, v, found := strings.Cut(arg, "=")
		if !found || k == "" {
			debug.V(3).Log("skipping argument %q, not a path=value override", arg)

			continue
		}

		segs := splitPath(NormalizePath("/", k))
		if len(segs) == 0 {
			continue
		}

		storeAt(root, segs, parseScalar(v), keys)
	}

	return &Cmdline{
		root:  root,
		mtime: time.Now(),
	}
}

// ID implements TreeSource.
func (c *Cmdline) ID() string {
	return "cmdline"
}

// GetTreeFor implements TreeSource.
func (c *Cmdline) GetTreeFor(string) (Tree, error) {
	if len(c.root) == 0 {
		return Tree{Path: "/"}, nil
	}

	return Tree{Path: "/", Value: c.root, MTime: c.mtime}, nil
}
