package vector

// MemoryAcquirer accounts for chunk allocations.
// It is satisfied by *resource.Controller.
type MemoryAcquirer interface {
	TryAcquireMemory(bytes int64) bool
	ReleaseMemory(bytes int64)
}

type options struct {
	mem MemoryAcquirer
}

// Option configures a Vector.
type Option func(*options)

// WithMemory charges every chunk allocation to m. Chunks are refunded by
// Clear and Release.
func WithMemory(m MemoryAcquirer) Option {
	return func(o *options) {
		o.mem = m
	}
}
