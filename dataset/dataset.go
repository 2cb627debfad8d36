package dataset

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bsvm/resource"
	"github.com/hupe1980/bsvm/vector"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hupe1980/bsvm/dataset")

// veryDenseFraction is the share of non-zero features below which data is
// treated as very sparse.
const veryDenseFraction = 0.05

// Stats summarizes the data loaded so far.
type Stats struct {
	// Rows is the number of rows loaded in the current pass.
	Rows int64
	// NonZeros is the number of stored features loaded in the current pass.
	NonZeros int64
	// Passes counts how many times the source has been opened.
	Passes int
	// LoadTime is the cumulative time spent in LoadNextChunk.
	LoadTime time.Duration
	// Compression is the encoding detected on the last open.
	Compression Compression
}

// Example is one labeled row, used to build a Resident dataset.
type Example struct {
	Label int
	Row   vector.Row
}

// Dataset is a chunked view over a LIBSVM source. It is not safe for
// concurrent use; a single training loop drives it.
type Dataset struct {
	opts options
	src  Source

	// current chunk
	ai []int     // row start offsets into aj/an
	aj []uint32  // 1-based feature indices
	an []float32 // feature values
	al []int     // label index per row

	labels     []int
	labelIndex map[int]int
	highestDim int

	resident bool
	rc       io.ReadCloser
	scanner  *bufio.Scanner
	opened   bool

	unpredictable *roaring.Bitmap
	stats         Stats

	assign assignments

	closeOnce sync.Once
	closed    bool
}

// New creates a streaming dataset over src. No data is read until the
// first LoadNextChunk. With WithAssignments the spill file is created here.
func New(src Source, opts ...Option) (*Dataset, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := newDataset(o)
	d.src = src

	if o.keepAssign {
		if err := d.assign.create(o.fsys, o.spillDir, o.spillCodec); err != nil {
			return nil, d.opts.sink.Fatal(err)
		}
	}
	return d, nil
}

// Resident creates a dataset whose rows are all in memory. LoadNextChunk
// never replaces them and assignments are kept in memory.
func Resident(examples []Example, opts ...Option) (*Dataset, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := newDataset(o)
	d.resident = true
	d.assign.resident = true

	start := time.Now()
	unseen := 0
	first := 0
	for i, ex := range examples {
		if len(ex.Row.Index) != len(ex.Row.Value) {
			return nil, d.opts.sink.Fatal(fmt.Errorf("%w: row %d has %d indices and %d values", ErrParse, i, len(ex.Row.Index), len(ex.Row.Value)))
		}
		for _, idx := range ex.Row.Index {
			if idx == 0 {
				return nil, d.opts.sink.Fatal(fmt.Errorf("%w: feature index 0 in row %d", ErrParse, i))
			}
		}
		if d.appendRow(ex.Label, ex.Row.Index, ex.Row.Value) {
			if unseen == 0 {
				first = ex.Label
			}
			unseen++
		}
	}
	d.warnUnseen(unseen, first)
	d.stats.Passes = 1
	d.stats.LoadTime = time.Since(start)
	return d, nil
}

func newDataset(o options) *Dataset {
	d := &Dataset{
		opts:          o,
		labelIndex:    make(map[int]int, len(o.labels)),
		highestDim:    max(o.dimension, 0),
		unpredictable: roaring.New(),
	}
	for _, l := range o.labels {
		if _, ok := d.labelIndex[l]; !ok {
			d.labelIndex[l] = len(d.labels)
			d.labels = append(d.labels, l)
		}
	}
	return d
}

// Len returns the number of rows in the current chunk.
func (d *Dataset) Len() int {
	return len(d.ai)
}

// Resident reports whether all rows are held in memory.
func (d *Dataset) Resident() bool {
	return d.resident
}

// Evaluation reports whether the label list is frozen.
func (d *Dataset) Evaluation() bool {
	return d.opts.evaluation
}

// Bias returns the configured bias term.
func (d *Dataset) Bias() float64 {
	return d.opts.bias
}

// Labels returns the ordered label list. The slice must not be modified.
func (d *Dataset) Labels() []int {
	return d.labels
}

// HighestDimension returns the largest feature index seen so far, or the
// configured dimension if that is larger.
func (d *Dataset) HighestDimension() int {
	return d.highestDim
}

// Unpredictable returns the rows of the current pass whose label was not
// in the frozen label list. Row numbers count from the start of the pass.
func (d *Dataset) Unpredictable() *roaring.Bitmap {
	return d.unpredictable
}

// Stats returns load statistics.
func (d *Dataset) Stats() Stats {
	return d.stats
}

// VerySparse reports whether fewer than 5% of the features of the loaded
// rows are non-zero.
func (d *Dataset) VerySparse() bool {
	if d.stats.Rows == 0 || d.highestDim == 0 {
		return false
	}
	return float64(d.stats.NonZeros) < veryDenseFraction*float64(d.stats.Rows)*float64(d.highestDim)
}

// Row returns the features of row i of the current chunk. The slices alias
// the chunk buffers and are invalidated by the next LoadNextChunk.
func (d *Dataset) Row(i int) vector.Row {
	start, end := d.bounds(i)
	return vector.Row{Index: d.aj[start:end:end], Value: d.an[start:end:end]}
}

// Label returns the label index of row i of the current chunk.
func (d *Dataset) Label(i int) int {
	return d.al[i]
}

func (d *Dataset) bounds(i int) (int, int) {
	end := len(d.aj)
	if i+1 < len(d.ai) {
		end = d.ai[i+1]
	}
	return d.ai[i], end
}

// LoadNextChunk discards the current chunk and reads up to maxRows rows
// (maxRows <= 0 reads to the end of the source). It reports true when
// exactly maxRows rows were read, meaning more data may follow. At the end
// of the source it closes it and reports false; the next call starts a new
// pass. A Resident dataset reports false and keeps its rows.
func (d *Dataset) LoadNextChunk(ctx context.Context, maxRows int) (bool, error) {
	if d.closed {
		return false, ErrClosed
	}
	if d.resident {
		return false, nil
	}

	ctx, span := tracer.Start(ctx, "dataset.LoadNextChunk",
		trace.WithAttributes(
			attribute.String("dataset.source", d.src.Name()),
			attribute.Int("dataset.max_rows", maxRows),
		),
	)
	defer span.End()

	start := time.Now()
	d.flush()

	more, err := d.load(ctx, maxRows)
	elapsed := time.Since(start)
	d.stats.LoadTime += elapsed

	span.SetAttributes(
		attribute.Int("dataset.rows", d.Len()),
		attribute.Int("dataset.nonzeros", len(d.aj)),
		attribute.Bool("dataset.more", more),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.closeSource()
		return false, d.opts.sink.Fatal(err)
	}

	if d.opts.observer != nil {
		d.opts.observer.OnChunkLoaded(d.Len(), len(d.aj), elapsed)
	}
	d.opts.logger.Debug("chunk loaded",
		slog.String("source", d.src.Name()),
		slog.Int("rows", d.Len()),
		slog.Int("nonzeros", len(d.aj)),
		slog.Bool("more", more),
		slog.Duration("elapsed", elapsed),
	)
	return more, nil
}

func (d *Dataset) load(ctx context.Context, maxRows int) (bool, error) {
	if !d.opened {
		if err := d.openSource(ctx); err != nil {
			return false, err
		}
	}

	unseen := 0
	first := 0
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}

		label, isUnseen, err := d.parseRow(line)
		if err != nil {
			return false, fmt.Errorf("%s: row %d: %w", d.src.Name(), d.stats.Rows, err)
		}
		if isUnseen {
			if unseen == 0 {
				first = label
			}
			unseen++
		}

		if maxRows > 0 && d.Len() == maxRows {
			d.warnUnseen(unseen, first)
			return true, nil
		}
	}
	d.warnUnseen(unseen, first)

	if err := d.scanner.Err(); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrSource, d.src.Name(), err)
	}

	d.closeSource()
	return false, nil
}

func (d *Dataset) openSource(ctx context.Context) error {
	rc, err := d.src.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrSource, d.src.Name(), err)
	}
	rc = resource.LimitReadCloser(ctx, rc, d.opts.controller)

	r, compression, err := decompress(rc)
	if err != nil {
		_ = rc.Close()
		return fmt.Errorf("%w: %s: %s stream: %w", ErrSource, d.src.Name(), compression, err)
	}

	d.rc = r
	d.scanner = bufio.NewScanner(r)
	d.scanner.Buffer(make([]byte, 0, 64*1024), d.opts.maxLineSize)
	d.opened = true

	d.stats.Rows = 0
	d.stats.NonZeros = 0
	d.stats.Passes++
	d.stats.Compression = compression
	d.unpredictable.Clear()
	d.assign.startPass()
	return nil
}

func (d *Dataset) closeSource() {
	if d.rc != nil {
		_ = d.rc.Close()
	}
	d.rc = nil
	d.scanner = nil
	d.opened = false
}

// parseRow parses one non-empty line and appends it to the chunk.
func (d *Dataset) parseRow(line string) (int, bool, error) {
	fields := strings.Fields(line)
	label, err := parseLabel(fields[0])
	if err != nil {
		return 0, false, err
	}

	start := len(d.aj)
	for _, tok := range fields[1:] {
		idx, val, err := parseFeature(tok)
		if err != nil {
			d.aj = d.aj[:start]
			d.an = d.an[:start]
			return 0, false, err
		}
		d.aj = append(d.aj, idx)
		d.an = append(d.an, val)
	}
	return label, d.finishRow(label, start), nil
}

// appendRow copies a row into the chunk and reports whether its label is
// unseen in evaluation mode.
func (d *Dataset) appendRow(label int, idx []uint32, val []float32) bool {
	start := len(d.aj)
	d.aj = append(d.aj, idx...)
	d.an = append(d.an, val...)
	return d.finishRow(label, start)
}

// finishRow registers the features stored from start on as one row and
// resolves its label.
func (d *Dataset) finishRow(label, start int) bool {
	ordinal := d.stats.Rows
	idx := d.aj[start:]
	sortRow(idx, d.an[start:])
	d.ai = append(d.ai, start)

	if n := len(idx); n > 0 && int(idx[n-1]) > d.highestDim {
		d.highestDim = int(idx[n-1])
	}
	d.stats.Rows++
	d.stats.NonZeros += int64(len(idx))

	li, ok := d.labelIndex[label]
	switch {
	case ok:
		d.al = append(d.al, li)
		return false
	case !d.opts.evaluation:
		d.labelIndex[label] = len(d.labels)
		d.al = append(d.al, len(d.labels))
		d.labels = append(d.labels, label)
		return false
	default:
		d.al = append(d.al, len(d.labels))
		if ordinal >= 0 && ordinal <= int64(^uint32(0)) {
			d.unpredictable.Add(uint32(ordinal))
		}
		return true
	}
}

func (d *Dataset) warnUnseen(count, first int) {
	if count == 0 {
		return
	}
	d.opts.sink.Warn("testing labels not seen in training",
		"label", first,
		"rows", count,
	)
}

func (d *Dataset) flush() {
	d.ai = d.ai[:0]
	d.aj = d.aj[:0]
	d.an = d.an[:0]
	d.al = d.al[:0]
}

// Element returns feature (0-based) of row. Out-of-range rows or features
// produce a warning and 0.
func (d *Dataset) Element(row, feature int) float32 {
	if row < 0 || row >= d.Len() {
		d.opts.sink.Warn("row index out of bounds, returning 0", "row", row, "rows", d.Len())
		return 0
	}
	if feature < 0 || feature >= d.highestDim {
		d.opts.sink.Warn("feature index out of bounds, returning 0", "feature", feature, "dimension", d.highestDim)
		return 0
	}

	want := uint32(feature) + 1
	start, end := d.bounds(row)
	for k := start; k < end; k++ {
		switch {
		case d.aj[k] == want:
			return d.an[k]
		case d.aj[k] > want:
			return 0
		}
	}
	return 0
}

// SquaredNorm returns the squared L2 norm of row including bias² when a
// bias is configured. Out-of-range rows warn and return 0.
func (d *Dataset) SquaredNorm(row int) float64 {
	if row < 0 || row >= d.Len() {
		d.opts.sink.Warn("row index out of bounds, returning 0", "row", row, "rows", d.Len())
		return 0
	}
	return d.Row(row).SquaredNorm(d.opts.bias)
}

// Distance returns the squared Euclidean distance between rows a and b.
func (d *Dataset) Distance(a, b int) float64 {
	if a < 0 || a >= d.Len() || b < 0 || b >= d.Len() {
		d.opts.sink.Warn("row index out of bounds, returning 0", "a", a, "b", b, "rows", d.Len())
		return 0
	}
	if a == b {
		return 0
	}
	return RowDistance(d.Row(a), d.Row(b))
}

// RowDistance returns ‖x−y‖² for two rows with ascending indices, in one
// merge pass over both.
func RowDistance(x, y vector.Row) float64 {
	var xx, yy, xy float64
	i, j := 0, 0
	for i < len(x.Index) && j < len(y.Index) {
		switch {
		case x.Index[i] == y.Index[j]:
			xy += float64(x.Value[i]) * float64(y.Value[j])
			xx += float64(x.Value[i]) * float64(x.Value[i])
			yy += float64(y.Value[j]) * float64(y.Value[j])
			i++
			j++
		case x.Index[i] < y.Index[j]:
			xx += float64(x.Value[i]) * float64(x.Value[i])
			i++
		default:
			yy += float64(y.Value[j]) * float64(y.Value[j])
			j++
		}
	}
	for ; i < len(x.Index); i++ {
		xx += float64(x.Value[i]) * float64(x.Value[i])
	}
	for ; j < len(y.Index); j++ {
		yy += float64(y.Value[j]) * float64(y.Value[j])
	}
	return xx + yy - 2*xy
}

// Close releases the source and removes the spill file. It is idempotent.
func (d *Dataset) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.closed = true
		d.closeSource()
		err = d.assign.remove()
	})
	return err
}
