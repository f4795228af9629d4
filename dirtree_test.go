package treeconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestDirTree(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "features"), 0o700))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "limits"), 0o700))

	files := map[string]string{
		"features/mysql.yaml": "1\n",
		"features/pgsql.yml":  "0\n",
		"limits/quota.yaml":   "2000\n",
		"limits/+burst.yaml":  "5\n",
		"server.yaml":         "host: localhost\nport: 8080\n",
		".hidden.yaml":        "secret: true\n",
		"notes.txt":           "just text\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	return dir
}

func TestDirTreeGet(t *testing.T) {
	t.Parallel()

	d, err := NewDirTree(writeTestDirTree(t), "", "")
	require.NoError(t, err)
	h := NewHandle(d)

	v, found, err := h.Get("/features/mysql")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, v)

	// files hold whole subtrees, not just scalars
	v, found, err = h.Get("/server/port")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 8080, v)

	// directive prefixes in file names resolve like any other stored key
	v, found, err = h.Get("/limits/burst")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 5, v)

	// hidden files are skipped
	_, found, err = h.Get("/hidden/secret")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDirTreeRootsAtDeepestDirectory(t *testing.T) {
	t.Parallel()

	d, err := NewDirTree(writeTestDirTree(t), "", "")
	require.NoError(t, err)

	tr, err := d.GetTreeFor("/features/mysql")
	require.NoError(t, err)
	assert.Equal(t, "/features", tr.Path)

	m, isMap := tr.Value.(map[string]any)
	require.True(t, isMap)
	assert.Equal(t, 1, m["mysql"])
}

func TestDirTreeIncludeExclude(t *testing.T) {
	t.Parallel()

	d, err := NewDirTree(writeTestDirTree(t), "*.{yaml,yml}", "")
	require.NoError(t, err)
	h := NewHandle(d)

	// notes.txt does not match the include pattern
	_, found, err := h.Get("/notes.txt")
	require.NoError(t, err)
	assert.False(t, found)

	v, found, err := h.Get("/features/pgsql")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0, v)

	d, err = NewDirTree(writeTestDirTree(t), "", "limits")
	require.NoError(t, err)
	h = NewHandle(d)

	_, found, err = h.Get("/limits/quota")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDirTreeInvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewDirTree(t.TempDir(), "[", "")
	require.Error(t, err)
}

func TestDirTreeMissingDirIsAbsent(t *testing.T) {
	t.Parallel()

	d, err := NewDirTree(filepath.Join(t.TempDir(), "nope"), "", "")
	require.NoError(t, err)

	tr, err := d.GetTreeFor("/")
	require.NoError(t, err)
	assert.Nil(t, tr.Value)
}

func TestDirTreeMergesOverFileSource(t *testing.T) {
	t.Parallel()

	base := NewStatic("base", map[string]any{
		"limits": map[string]any{"quota": 2000, "burst": 1},
	})
	d, err := NewDirTree(writeTestDirTree(t), "", "")
	require.NoError(t, err)

	h := NewHandle(NewCompositor("mixed", []Mount{
		{Path: "/", Source: base},
		{Path: "/limits", Source: d},
	}))

	// the directory tree's quota file replaces the static value
	v, ok := h.GetInt("/limits/quota")
	assert.True(t, ok)
	assert.Equal(t, 2000, v)

	// and its +burst file adds to it
	v, ok = h.GetInt("/limits/burst")
	assert.True(t, ok)
	assert.Equal(t, 6, v)
}
