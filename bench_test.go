package treeconf

import (
	"fmt"
	"testing"
)

func benchTree(width int) map[string]any {
	root := make(map[string]any, width)
	for i := range width {
		root[fmt.Sprintf("branch%d", i)] = map[string]any{
			"enabled": true,
			"quota":   i * 100,
			"tags":    []any{"a", "b", "c"},
		}
	}

	return root
}

func BenchmarkMerge(b *testing.B) {
	left := benchTree(20)
	right := benchTree(20)
	m := NewMerger(KeyResolver{})

	for b.Loop() {
		if _, err := m.Merge(left, right, ModeNormal); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHandleGet(b *testing.B) {
	h := NewHandle(NewStatic("bench", benchTree(20)))

	for b.Loop() {
		_, found, err := h.Get("/branch7/quota")
		if err != nil {
			b.Fatal(err)
		}
		if !found {
			b.Fatal("missing key")
		}
	}
}

func BenchmarkComposedGet(b *testing.B) {
	comp := NewCompositor("bench", []Mount{
		{Path: "/", Source: NewStatic("lower", benchTree(20))},
		{Path: "/", Source: NewStatic("upper", benchTree(5))},
	})
	h := NewHandle(comp)

	// after the first request the merge cache serves all further ones
	for b.Loop() {
		_, found, err := h.Get("/branch3/quota")
		if err != nil {
			b.Fatal(err)
		}
		if !found {
			b.Fatal("missing key")
		}
	}
}
