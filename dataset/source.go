package dataset

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/hupe1980/bsvm/blobstore"
	"github.com/hupe1980/bsvm/internal/fs"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Source yields the raw bytes of a dataset. Open is called once per pass.
type Source interface {
	// Name identifies the source in errors and logs.
	Name() string
	// Open returns a fresh reader positioned at the start of the data.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads a local file.
func FileSource(path string) Source {
	return &fileSource{path: path, fsys: fs.Default}
}

type fileSource struct {
	path string
	fsys fs.FileSystem
}

func (s *fileSource) Name() string { return s.path }

func (s *fileSource) Open(context.Context) (io.ReadCloser, error) {
	return s.fsys.Open(s.path)
}

// BlobSource reads the blob name from store. It works with every
// blobstore.Store, including the S3 and MinIO stores.
func BlobSource(store blobstore.Store, name string) Source {
	return &blobSource{store: store, name: name}
}

type blobSource struct {
	store blobstore.Store
	name  string
}

func (s *blobSource) Name() string { return s.name }

func (s *blobSource) Open(ctx context.Context) (io.ReadCloser, error) {
	b, err := s.store.Open(ctx, s.name)
	if err != nil {
		return nil, err
	}
	r, err := blobstore.NewReader(ctx, b)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return &multiCloser{Reader: r, closers: []io.Closer{r, b}}, nil
}

// TextSource serves an in-memory document, mostly useful in tests and
// small tools.
func TextSource(name, text string) Source {
	return &bytesSource{name: name, data: []byte(text)}
}

// BytesSource serves an in-memory, possibly compressed, document.
func BytesSource(name string, data []byte) Source {
	return &bytesSource{name: name, data: data}
}

type bytesSource struct {
	name string
	data []byte
}

func (s *bytesSource) Name() string { return s.name }

func (s *bytesSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Compression names the detected source encoding.
type Compression string

// Detected encodings.
const (
	Plain Compression = "plain"
	Gzip  Compression = "gzip"
	Zstd  Compression = "zstd"
	LZ4   Compression = "lz4"
)

// decompress sniffs the first bytes of rc and wraps it in the matching
// decoder. Closing the result closes rc.
func decompress(rc io.ReadCloser) (io.ReadCloser, Compression, error) {
	br := bufio.NewReaderSize(rc, 64*1024)
	head, _ := br.Peek(4)

	switch {
	case bytes.HasPrefix(head, magicGzip):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, Gzip, err
		}
		return &multiCloser{Reader: zr, closers: []io.Closer{zr, rc}}, Gzip, nil
	case bytes.HasPrefix(head, magicZstd):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, Zstd, err
		}
		return &multiCloser{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), rc}}, Zstd, nil
	case bytes.HasPrefix(head, magicLZ4):
		return &multiCloser{Reader: lz4.NewReader(br), closers: []io.Closer{rc}}, LZ4, nil
	default:
		return &multiCloser{Reader: br, closers: []io.Closer{rc}}, Plain, nil
	}
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
