package tree

import "github.com/pkg/errors"

var (
	ErrNodeNotFound   = errors.New("node not found")
	ErrBranchNotFound = errors.New("branch not found")
	ErrInvalidName    = errors.New("invalid name")
	ErrInvariant      = errors.New("tree invariant violated")
)
