package treeconf

import "strings"

// NormalizePath resolves input against cwd into a canonical absolute path.
// Relative inputs are taken relative to cwd, "." segments are dropped and
// ".." pops the previous segment. Excess ".." at the root is absorbed, the
// same way a shell treats "cd .." in /. The function is total, any input
// yields a well-formed absolute path.
//
// Examples:
//   - NormalizePath("/a/b", "..") -> "/a"
//   - NormalizePath("/a", "../../../x") -> "/x"
//   - NormalizePath("/", "foo//bar/./baz") -> "/foo/bar/baz"
func NormalizePath(cwd, input string) string {
	var segs []string
	if !strings.HasPrefix(input, "/") {
		segs = splitPath(cwd)
	}

	for _, seg := range splitPath(input) {
		switch seg {
		case ".":
			continue
		case "..":
			if len(segs) > 0 {
				segs = segs[:len(segs)-1]
			}
		default:
			segs = append(segs, seg)
		}
	}

	return joinPath(segs)
}

// splitPath splits a slash-delimited path into its non-empty segments.
func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	segs := make([]string, 0, len(parts))
	for _, s := range parts {
		if s == "" {
			continue
		}
		segs = append(segs, s)
	}

	return segs
}

func joinPath(segs []string) string {
	if len(segs) == 0 {
		return "/"
	}

	return "/" + strings.Join(segs, "/")
}

// pathIsAncestor reports whether ancestor is path itself or one of its
// ancestors. Both arguments must be normalized absolute paths.
func pathIsAncestor(ancestor, path string) bool {
	if ancestor == "/" || ancestor == path {
		return true
	}

	return strings.HasPrefix(path, ancestor+"/")
}

// pathRemainder returns the segments of path below ancestor. The caller must
// have established the ancestor relation first.
func pathRemainder(ancestor, path string) []string {
	if ancestor == "/" {
		return splitPath(path)
	}

	return splitPath(strings.TrimPrefix(path, ancestor))
}
