package treeconf

import "errors"

var (
	// ErrInvalidPath indicates a malformed or empty path argument.
	ErrInvalidPath = errors.New("invalid path")
	// ErrMergeConflict indicates an add or subtract step on values that are
	// neither both numeric nor both sequences. It aborts the whole composition.
	ErrMergeConflict = errors.New("merge conflict")
	// ErrReadOnly indicates a mutation was attempted on a read-only source or handle.
	ErrReadOnly = errors.New("config is read-only")
	// ErrStackUnderflow indicates Popd was called with an empty directory stack.
	ErrStackUnderflow = errors.New("directory stack is empty")
	// ErrValidation indicates a merged tree failed schema validation under PolicyDie.
	ErrValidation = errors.New("validation failed")
	// ErrUnsupported indicates an operation that is not meaningful on this
	// handle, e.g. Set on a composed view.
	ErrUnsupported = errors.New("operation not supported")
	// ErrNotModified indicates Save was called but there is nothing to persist.
	ErrNotModified = errors.New("not modified")
	// ErrBadSourceRoot indicates a source violated its contract by returning a
	// tree that is not rooted at an ancestor of the requested path.
	ErrBadSourceRoot = errors.New("source returned a tree not rooted at an ancestor of the requested path")
)
