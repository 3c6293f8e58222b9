// Package linalg provides the dense row-major matrix and vector primitives
// the LSI engine is built on, plus the Jacobi SVD that decomposes the
// term-document matrix.
package linalg

import "errors"

// ErrShapeMismatch is returned by any arithmetic operation whose operands
// have incompatible dimensions. It signals a programming error in the
// caller, not a property of user data.
var ErrShapeMismatch = errors.New("linalg: shape mismatch")
