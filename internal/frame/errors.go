package frame

import "errors"

// Structural tree errors. All are checked before any mutation begins, so a
// failed operation never leaves the tree partially modified.
var (
	ErrCannotSplitNonLeaf = errors.New("cannot split a non-leaf frame")
	ErrCannotCloseRoot    = errors.New("cannot close the root frame")
	ErrFrameNotInParent   = errors.New("frame not found among its parent's children")
	ErrDuplicateWindow    = errors.New("window already present in frame")
	ErrWindowNotFound     = errors.New("window not found in frame")
	ErrFrameNotFound      = errors.New("no such frame")
)
