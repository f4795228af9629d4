package treeconf

import (
	"path/filepath"
	"strings"

	"github.com/gopasspw/gopass/pkg/appdir"
	"github.com/gopasspw/gopass/pkg/debug"
)

// Standard builds the conventional composition for an application called
// name and returns a handle over it. The scopes, from lowest to highest
// precedence:
//
//   - preset  - built-in defaults, read-only (optional, may be nil)
//   - system  - /etc/<name>/config.yaml, read-only
//   - user    - <user config dir>/<name>/config.yaml
//   - local   - <workdir>/.<name>.yaml (skipped when workdir is empty)
//   - env     - <NAME>_ prefixed environment variables
//
// All scopes are mounted at "/" with normal mode, so later scopes override
// earlier ones branch by branch. Missing files simply contribute nothing.
func Standard(name, workdir string, preset map[string]any) *Handle {
	mounts := make([]Mount, 0, 5)

	if preset != nil {
		mounts = append(mounts, Mount{Path: "/", Source: NewPreset(name+"-preset", preset)})
	}

	system := NewYAMLFile(filepath.Join("/etc", name, "config.yaml"))
	// the system config is for operators and package maintainers, it should
	// never be written from here
	system.ReadOnly = true
	mounts = append(mounts, Mount{Path: "/", Source: system})

	user := NewYAMLFile(filepath.Join(appdir.New(name).UserConfig(), "config.yaml"))
	mounts = append(mounts, Mount{Path: "/", Source: user})

	if workdir != "" {
		local := NewYAMLFile(filepath.Join(workdir, "."+name+".yaml"))
		mounts = append(mounts, Mount{Path: "/", Source: local})
	}

	env := NewEnv(strings.ToUpper(name) + "_")
	mounts = append(mounts, Mount{Path: "/", Source: env})

	debug.V(1).Log("[%s] standard composition with %d mounts", name, len(mounts))

	return NewHandle(NewCompositor(name, mounts))
}
