package resource

import (
	"context"
	"io"
)

// RateLimitedReader wraps an io.Reader with read throughput limiting.
type RateLimitedReader struct {
	r   io.Reader
	rc  *Controller
	ctx context.Context
}

// NewRateLimitedReader creates a new RateLimitedReader.
func NewRateLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *RateLimitedReader {
	return &RateLimitedReader{
		r:   r,
		rc:  rc,
		ctx: ctx,
	}
}

func (r *RateLimitedReader) Read(p []byte) (int, error) {
	// Tokens are taken for the full buffer; a short read simply under-uses them.
	if err := r.rc.AcquireIO(r.ctx, len(p)); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// LimitReadCloser wraps rc with rate limiting and keeps the original Close.
// It returns rc unchanged when the controller has no IO limit.
func LimitReadCloser(ctx context.Context, rc io.ReadCloser, c *Controller) io.ReadCloser {
	if c == nil || c.ioLimiter == nil {
		return rc
	}
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: NewRateLimitedReader(ctx, rc, c),
		Closer: rc,
	}
}
