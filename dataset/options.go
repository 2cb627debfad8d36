package dataset

import (
	"log/slog"
	"time"

	"github.com/hupe1980/bsvm/diag"
	"github.com/hupe1980/bsvm/internal/blockcodec"
	"github.com/hupe1980/bsvm/internal/fs"
	"github.com/hupe1980/bsvm/resource"
)

// ChunkObserver is notified after every loaded chunk.
type ChunkObserver interface {
	OnChunkLoaded(rows, nonZeros int, elapsed time.Duration)
}

type options struct {
	dimension   int
	bias        float64
	labels      []int
	evaluation  bool
	keepAssign  bool
	spillDir    string
	spillCodec  blockcodec.Codec
	sink        diag.Sink
	logger      *slog.Logger
	controller  *resource.Controller
	fsys        fs.FileSystem
	observer    ChunkObserver
	maxLineSize int
}

func defaultOptions() options {
	return options{
		spillCodec:  blockcodec.LZ4,
		sink:        diag.Default(),
		logger:      slog.Default(),
		fsys:        fs.Default,
		maxLineSize: 16 << 20,
	}
}

// Option configures a Dataset.
type Option func(*options)

// WithDimension seeds HighestDimension with a known feature count.
func WithDimension(d int) Option {
	return func(o *options) { o.dimension = d }
}

// WithBias sets the bias term added by SquaredNorm.
func WithBias(b float64) Option {
	return func(o *options) { o.bias = b }
}

// WithLabels freezes the label list and switches the dataset to evaluation
// mode. Pass the labels learned from the training set.
func WithLabels(labels []int) Option {
	return func(o *options) {
		o.labels = append([]int(nil), labels...)
		o.evaluation = true
	}
}

// WithAssignments keeps per-example assignments across passes. Streamed
// datasets spill them to a temporary file in dir ("" selects os.TempDir).
func WithAssignments(dir string) Option {
	return func(o *options) {
		o.keepAssign = true
		o.spillDir = dir
	}
}

// WithSpillCodec selects the block compression of the spill file.
func WithSpillCodec(c blockcodec.Codec) Option {
	return func(o *options) { o.spillCodec = c }
}

// WithSink sets the diagnostic sink.
func WithSink(s diag.Sink) Option {
	return func(o *options) {
		if s != nil {
			o.sink = s
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithResourceController throttles source reads to the controller's IO limit.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) { o.controller = c }
}

// WithObserver registers a chunk observer, typically a metrics collector.
func WithObserver(obs ChunkObserver) Option {
	return func(o *options) { o.observer = obs }
}

// WithMaxLineSize bounds the length of one input line in bytes.
func WithMaxLineSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLineSize = n
		}
	}
}

func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) { o.fsys = fsys }
}
