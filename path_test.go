package treeconf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		cwd  string
		in   string
		want string
	}{
		{"/", "/", "/"},
		{"/", "", "/"},
		{"/", "foo", "/foo"},
		{"/", "/foo/bar", "/foo/bar"},
		{"/", "foo//bar///baz", "/foo/bar/baz"},
		{"/a/b", "..", "/a"},
		{"/a", "../../../x", "/x"},
		{"/a/b", "c", "/a/b/c"},
		{"/a/b", "./c/./d", "/a/b/c/d"},
		{"/a/b", "../c", "/a/c"},
		{"/", "..", "/"},
		{"/", "../../..", "/"},
		{"/a", "/b/../c", "/c"},
		{"/deep/down", ".", "/deep/down"},
	} {
		assert.Equal(t, tc.want, NormalizePath(tc.cwd, tc.in), "cwd=%q in=%q", tc.cwd, tc.in)
	}
}

func TestNormalizePathAlwaysCanonical(t *testing.T) {
	t.Parallel()

	// any input yields an absolute path without "." or ".." segments
	for _, in := range []string{
		"", ".", "..", "../..", "a/../../b", "////", "./..//.", "x/y/z/../../../../q",
	} {
		got := NormalizePath("/some/cwd", in)
		assert.True(t, strings.HasPrefix(got, "/"), "input %q -> %q", in, got)
		for _, seg := range splitPath(got) {
			assert.NotEqual(t, ".", seg, "input %q -> %q", in, got)
			assert.NotEqual(t, "..", seg, "input %q -> %q", in, got)
		}
	}
}

func TestHandleCD(t *testing.T) {
	t.Parallel()

	h := NewHandle(NewStatic("test", nil))
	assert.Equal(t, "/", h.CWD())

	require.NoError(t, h.CD("/foo/bar"))
	assert.Equal(t, "/foo/bar", h.CWD())

	require.NoError(t, h.CD(".."))
	assert.Equal(t, "/foo", h.CWD())

	require.Error(t, h.CD(""))
	assert.Equal(t, "/foo", h.CWD())

	assert.Equal(t, "/foo/baz", h.NormalizePath("baz"))
}

func TestHandlePushdPopd(t *testing.T) {
	t.Parallel()

	h := NewHandle(NewStatic("test", nil))

	require.NoError(t, h.CD("/a"))
	require.NoError(t, h.Pushd("/b"))
	assert.Equal(t, "/b", h.CWD())

	require.NoError(t, h.Pushd(""))
	assert.Equal(t, "/b", h.CWD())

	cwd, err := h.Popd()
	require.NoError(t, err)
	assert.Equal(t, "/b", cwd)

	cwd, err = h.Popd()
	require.NoError(t, err)
	assert.Equal(t, "/a", cwd)

	_, err = h.Popd()
	require.ErrorIs(t, err, ErrStackUnderflow)
}
