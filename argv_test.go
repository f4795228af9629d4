package treeconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdlineSource(t *testing.T) {
	t.Parallel()

	c := NewCmdline([]string{
		"limits/quota=2500",
		"--features/mysql=1",
		"/server/host=localhost",
		"verbose=true",
		"not-an-override",
		"=novalue",
	})

	h := NewHandle(c)

	v, found, err := h.Get("/limits/quota")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2500, v)

	v, found, err = h.Get("/features/mysql")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, v)

	s, found := h.GetString("/server/host")
	assert.True(t, found)
	assert.Equal(t, "localhost", s)

	b, found := h.GetBool("/verbose")
	assert.True(t, found)
	assert.True(t, b)

	_, found, err = h.Get("/not-an-override")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCmdlineOverridesComposition(t *testing.T) {
	t.Parallel()

	defaults := NewStatic("defaults", map[string]any{
		"limits": map[string]any{"quota": 2000},
	})
	args := NewCmdline([]string{"limits/+quota=500"})

	h := NewHandle(NewCompositor("app", []Mount{
		{Path: "/", Source: defaults},
		{Path: "/", Source: args},
	}))

	v, ok := h.GetInt("/limits/quota")
	assert.True(t, ok)
	assert.Equal(t, 2500, v)
}

func TestCmdlineEmpty(t *testing.T) {
	t.Parallel()

	tr, err := NewCmdline(nil).GetTreeFor("/")
	require.NoError(t, err)
	assert.Nil(t, tr.Value)
}
