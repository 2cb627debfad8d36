package vector

import "errors"

var (
	// ErrIndexOutOfRange is returned for writes or checked reads outside [0, Dim()).
	ErrIndexOutOfRange = errors.New("vector: index out of range")

	// ErrShrink is returned when ExtendDimensionality is asked to reduce the dimension.
	ErrShrink = errors.New("vector: dimensionality can only grow")

	// ErrShapeMismatch is returned when two vectors of different shapes are combined.
	ErrShapeMismatch = errors.New("vector: shape mismatch")

	// ErrInvalidShape is returned for a negative dimension or a non-positive chunk width.
	ErrInvalidShape = errors.New("vector: invalid shape")

	// ErrMemoryLimit is returned when the memory acquirer refuses a chunk allocation.
	ErrMemoryLimit = errors.New("vector: memory limit exceeded")
)
