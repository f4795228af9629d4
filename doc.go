// Package treeconf provides unified hierarchical access to configuration
// drawn from multiple heterogeneous sources through a single filesystem-like
// addressing scheme. Static data, YAML files, YAML-populated directory
// trees, environment variables and command line overrides all answer the
// same question - "what is the subtree at this path" - and a compositor
// folds their answers into one consistent tree under explicit per-mount
// merge modes.
//
// # Addressing
//
// Paths are slash-delimited and resolved like shell paths: "." and ".." work
// the way cd treats them and every handle keeps a current working position
// with Pushd/Popd support:
//
//	h := treeconf.NewHandle(src)
//	h.CD("/features")
//	v, ok, _ := h.Get("mysql")
//
// # Merging
//
// Compositions are ordered lists of mounts. Later mounts override earlier
// ones under normal mode, branch by branch, and a mount may instead declare
// keep, add, subtract or delete mode for its pairwise merge step:
//
//	comp := treeconf.NewCompositor("app", []treeconf.Mount{
//		{Path: "/", Source: defaults},
//		{Path: "/limits", Source: overrides},
//	})
//	h := treeconf.NewHandle(comp)
//
// Individual mapping keys can override the mode locally with a single
// leading directive character on the stored key: "*" protects the existing
// value, "+" adds or concatenates, "-" subtracts or removes, "!" deletes,
// "." and "^" force a normal merge. Callers always address keys by their
// prefix-stripped logical name:
//
//	// plan:  {limits: {quota: 2000}}
//	// user:  {limits: {+quota: 500}}
//	quota, ok := h.GetInt("/limits/quota") // 2500, true
//
// # Mutation
//
// Set and Unset work on handles over a single mutable source and
// auto-vivify intermediate mappings. Composed views reject mutation with
// ErrUnsupported, writes must target one individual source because a merged
// tree has no well-defined writeback target.
//
// Mutation goes through Set and Unset only. Subtrees returned by Get on a
// plain source may alias the source's live tree, writing into them directly
// corrupts the source. Composed views hand out fresh copies.
//
// # Error handling
//
// Missing configuration is never an error, Get reports found == false.
// Structural problems surface as wrapped sentinel errors that callers can
// test with errors.Is:
//
//	if _, err := h.Set("/core/editor", "vim"); errors.Is(err, treeconf.ErrReadOnly) {
//		// handle read-only config
//	}
//
// # Concurrency
//
// The package is single-threaded by design. Handles, sources and
// compositors are not safe for concurrent use, callers sharing them across
// goroutines must provide their own locking.
package treeconf
