package treeconf

import (
	"os"
	"strings"
	"time"

	"github.com/gopasspw/gopass/pkg/debug"
)

// Env is a read-only source built from environment variables sharing a
// common prefix. A double underscore in the variable name separates path
// segments and segments are lowercased, so with prefix "APP_" the variable
// APP_FEATURES__MYSQL=1 contributes the value 1 at /features/mysql.
//
// Values are YAML-parsed so numbers and booleans come out typed.
type Env struct {
	prefix  string
	keys    KeyResolver
	environ func() []string
	mtime   time.Time
}

// NewEnv creates an environment source for all variables starting with
// prefix. The tree's modification time is fixed at construction, a process
// environment does not change underneath a running composition.
func NewEnv(prefix string) *Env {
	return &Env{
		prefix:  prefix,
		environ: os.Environ,
		mtime:   time.Now(),
	}
}

// ID implements TreeSource.
func (e *Env) ID() string {
	return "env:" + e.prefix
}

// GetTreeFor implements TreeSource.
func (e *Env) GetTreeFor(string) (Tree, error) {
	root := make(map[string]any)

	for _, kv := range e.environ() {
		k, v, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(k, e.prefix) {
			continue
		}

		var segs []string
		for _, s := range strings.Split(strings.TrimPrefix(k, e.prefix), "__") {
			if s == "" {
				continue
			}
			segs = append(segs, strings.ToLower(s))
		}
		if len(segs) == 0 {
			continue
		}

		storeAt(root, segs, parseScalar(v), e.keys)
		debug.V(3).Log("added %s from env", k)
	}

	if len(root) == 0 {
		return Tree{Path: "/"}, nil
	}

	return Tree{Path: "/", Value: root, MTime: e.mtime}, nil
}
