package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/bsvm/blobstore"
	"github.com/hupe1980/bsvm/diag"
	"github.com/hupe1980/bsvm/internal/blockcodec"
	"github.com/hupe1980/bsvm/internal/fs"
	"github.com/hupe1980/bsvm/resource"
	"github.com/hupe1980/bsvm/testutil"
	"github.com/hupe1980/bsvm/vector"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fourRows = `+1 1:1.0 3:2.0
+1 2:1.0
-1 1:-1.0
-1 3:-2.0
`

type loadedRow struct {
	label int
	index []uint32
	value []float32
}

func drain(t *testing.T, d *Dataset, chunk int) []loadedRow {
	t.Helper()
	var rows []loadedRow
	for {
		more, err := d.LoadNextChunk(context.Background(), chunk)
		require.NoError(t, err)
		for i := 0; i < d.Len(); i++ {
			r := d.Row(i)
			rows = append(rows, loadedRow{
				label: d.Labels()[d.Label(i)],
				index: append([]uint32(nil), r.Index...),
				value: append([]float32(nil), r.Value...),
			})
		}
		if !more {
			return rows
		}
	}
}

func TestLoadNextChunk_FourRows(t *testing.T) {
	d, err := New(TextSource("four", fourRows), WithDimension(3), WithBias(1))
	require.NoError(t, err)
	defer d.Close()

	more, err := d.LoadNextChunk(context.Background(), 10)
	require.NoError(t, err)
	assert.False(t, more)
	require.Equal(t, 4, d.Len())

	assert.Equal(t, []int{1, -1}, d.Labels())
	assert.Equal(t, 0, d.Label(0))
	assert.Equal(t, 0, d.Label(1))
	assert.Equal(t, 1, d.Label(2))
	assert.Equal(t, 1, d.Label(3))
	assert.Equal(t, 3, d.HighestDimension())

	assert.Equal(t, []uint32{1, 3}, d.Row(0).Index)
	assert.Equal(t, []float32{1, 2}, d.Row(0).Value)

	assert.InDelta(t, 6.0, d.SquaredNorm(0), 1e-12) // 1 + 4 + bias²
	assert.InDelta(t, 2.0, d.SquaredNorm(2), 1e-12)
	assert.InDelta(t, 8.0, d.Distance(0, 2), 1e-12) // 2² + 2²
	assert.InDelta(t, 6.0, d.Distance(0, 1), 1e-12)
	assert.Zero(t, d.Distance(1, 1))

	st := d.Stats()
	assert.Equal(t, int64(4), st.Rows)
	assert.Equal(t, int64(5), st.NonZeros)
	assert.Equal(t, 1, st.Passes)
	assert.Equal(t, Plain, st.Compression)
}

func TestLoadNextChunk_ChunkingIsComplete(t *testing.T) {
	rng := testutil.NewRNG(7)
	examples := rng.Examples(23, 40, 6, "1", "2", "3")
	text := testutil.LibSVM(examples)

	for size := 1; size <= len(examples); size++ {
		t.Run(fmt.Sprintf("chunk=%d", size), func(t *testing.T) {
			d, err := New(TextSource("rand", text))
			require.NoError(t, err)
			defer d.Close()

			rows := drain(t, d, size)
			require.Len(t, rows, len(examples))
			for i, ex := range examples {
				assert.Equal(t, ex.Label, fmt.Sprint(rows[i].label), "row %d", i)
				assert.Equal(t, ex.Index, rows[i].index, "row %d", i)
				assert.Equal(t, ex.Value, rows[i].value, "row %d", i)
			}
		})
	}
}

func TestLoadNextChunk_ExactMultipleAndPasses(t *testing.T) {
	d, err := New(TextSource("four", fourRows))
	require.NoError(t, err)
	defer d.Close()

	ctx := context.Background()

	more, err := d.LoadNextChunk(ctx, 2)
	require.NoError(t, err)
	assert.True(t, more)
	more, err = d.LoadNextChunk(ctx, 2)
	require.NoError(t, err)
	assert.True(t, more)
	more, err = d.LoadNextChunk(ctx, 2)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Zero(t, d.Len())

	// A new pass starts from the top.
	more, err = d.LoadNextChunk(ctx, 0)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, 4, d.Len())
	assert.Equal(t, 2, d.Stats().Passes)
	assert.Equal(t, int64(4), d.Stats().Rows)
}

func TestLoadNextChunk_BlankLinesAndOrdering(t *testing.T) {
	d, err := New(TextSource("messy", "\n  \n2 5:1 2:3\n\n1.0 1:0.5\n"))
	require.NoError(t, err)
	defer d.Close()

	_, err = d.LoadNextChunk(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())
	assert.Equal(t, []uint32{2, 5}, d.Row(0).Index)
	assert.Equal(t, []float32{3, 1}, d.Row(0).Value)
	assert.Equal(t, []int{2, 1}, d.Labels())
	assert.Equal(t, 5, d.HighestDimension())
}

func TestLoadNextChunk_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bad label", "x 1:1\n"},
		{"fractional label", "1.5 1:1\n"},
		{"missing colon", "1 11\n"},
		{"zero index", "1 0:1\n"},
		{"negative index", "1 -2:1\n"},
		{"bad value", "1 1:abc\n"},
		{"empty value", "1 1:\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &diag.Recorder{}
			d, err := New(TextSource("bad", tt.text), WithSink(rec))
			require.NoError(t, err)
			defer d.Close()

			_, err = d.LoadNextChunk(context.Background(), 0)
			assert.ErrorIs(t, err, ErrParse)
			assert.Len(t, rec.Fatals(), 1)
		})
	}
}

func TestLoadNextChunk_SourceErrors(t *testing.T) {
	d, err := New(FileSource(filepath.Join(t.TempDir(), "missing.txt")))
	require.NoError(t, err)

	_, err = d.LoadNextChunk(context.Background(), 1)
	assert.ErrorIs(t, err, ErrSource)
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.NoError(t, d.Close())

	_, err = d.LoadNextChunk(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLoadNextChunk_FailingRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.txt")
	require.NoError(t, os.WriteFile(path, []byte(fourRows), 0o600))

	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("train.txt", fs.Fault{FailOnRead: true, FailAfterBytes: -1})

	d, err := New(&fileSource{path: path, fsys: faulty})
	require.NoError(t, err)
	defer d.Close()

	_, err = d.LoadNextChunk(context.Background(), 0)
	assert.ErrorIs(t, err, ErrSource)
	assert.ErrorIs(t, err, fs.ErrInjected)
}

func TestLoadNextChunk_Cancelled(t *testing.T) {
	d, err := New(TextSource("four", fourRows))
	require.NoError(t, err)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.LoadNextChunk(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluationLabels(t *testing.T) {
	rec := &diag.Recorder{}
	text := "1 1:1\n3 1:1\n-1 2:1\n3 2:2\n7 1:1\n"
	d, err := New(TextSource("test", text), WithLabels([]int{1, -1}), WithSink(rec))
	require.NoError(t, err)
	defer d.Close()

	_, err = d.LoadNextChunk(context.Background(), 0)
	require.NoError(t, err)

	assert.True(t, d.Evaluation())
	assert.Equal(t, []int{1, -1}, d.Labels())
	assert.Equal(t, 0, d.Label(0))
	assert.Equal(t, 2, d.Label(1))
	assert.Equal(t, 1, d.Label(2))
	assert.Equal(t, 2, d.Label(3))
	assert.Equal(t, 2, d.Label(4))
	assert.Equal(t, []uint32{1, 3, 4}, d.Unpredictable().ToArray())

	require.Len(t, rec.Warnings(), 1)
	assert.Contains(t, rec.Warnings()[0], "label=3")
	assert.Contains(t, rec.Warnings()[0], "rows=3")
}

func TestEvaluationLabels_OneWarningPerChunk(t *testing.T) {
	rec := &diag.Recorder{}
	d, err := New(TextSource("test", "9 1:1\n9 1:1\n9 1:1\n"), WithLabels([]int{1}), WithSink(rec))
	require.NoError(t, err)
	defer d.Close()

	ctx := context.Background()
	_, err = d.LoadNextChunk(ctx, 2)
	require.NoError(t, err)
	_, err = d.LoadNextChunk(ctx, 2)
	require.NoError(t, err)

	assert.Len(t, rec.Warnings(), 2)
	assert.Equal(t, []uint32{0, 1, 2}, d.Unpredictable().ToArray())
}

func TestElement(t *testing.T) {
	rec := &diag.Recorder{}
	d, err := New(TextSource("four", fourRows), WithSink(rec))
	require.NoError(t, err)
	defer d.Close()

	_, err = d.LoadNextChunk(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, float32(1), d.Element(0, 0))
	assert.Equal(t, float32(0), d.Element(0, 1))
	assert.Equal(t, float32(2), d.Element(0, 2))
	assert.Equal(t, float32(1), d.Element(1, 1))
	assert.Empty(t, rec.Warnings())

	assert.Zero(t, d.Element(4, 0))
	assert.Zero(t, d.Element(0, 3))
	assert.Len(t, rec.Warnings(), 2)
}

func TestCompressedSources(t *testing.T) {
	plain := []byte(fourRows)

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zs := enc.EncodeAll(plain, nil)
	require.NoError(t, enc.Close())

	var lz bytes.Buffer
	lw := lz4.NewWriter(&lz)
	_, err = lw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, lw.Close())

	tests := []struct {
		data []byte
		want Compression
	}{
		{plain, Plain},
		{gz.Bytes(), Gzip},
		{zs, Zstd},
		{lz.Bytes(), LZ4},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			d, err := New(BytesSource("data", tt.data))
			require.NoError(t, err)
			defer d.Close()

			rows := drain(t, d, 3)
			require.Len(t, rows, 4)
			assert.Equal(t, tt.want, d.Stats().Compression)
			assert.Equal(t, []uint32{3}, rows[3].index)
		})
	}
}

func TestBlobSource(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "train.txt", []byte(fourRows)))

	c := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	d, err := New(BlobSource(store, "train.txt"), WithResourceController(c))
	require.NoError(t, err)
	defer d.Close()

	rows := drain(t, d, 0)
	assert.Len(t, rows, 4)

	missing, err := New(BlobSource(store, "nope"))
	require.NoError(t, err)
	_, err = missing.LoadNextChunk(ctx, 1)
	assert.ErrorIs(t, err, ErrSource)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

type chunkCounter struct {
	chunks, rows, nnz int
}

func (c *chunkCounter) OnChunkLoaded(rows, nonZeros int, _ time.Duration) {
	c.chunks++
	c.rows += rows
	c.nnz += nonZeros
}

func TestObserverAndStats(t *testing.T) {
	obs := &chunkCounter{}
	d, err := New(TextSource("four", fourRows), WithObserver(obs), WithDimension(100))
	require.NoError(t, err)
	defer d.Close()

	drain(t, d, 3)
	assert.Equal(t, 2, obs.chunks)
	assert.Equal(t, 4, obs.rows)
	assert.Equal(t, 5, obs.nnz)
	assert.True(t, d.VerySparse())
	assert.Equal(t, 100, d.HighestDimension())
}

func TestResident(t *testing.T) {
	examples := []Example{
		{Label: 1, Row: vector.Row{Index: []uint32{3, 1}, Value: []float32{2, 1}}},
		{Label: 1, Row: vector.Row{Index: []uint32{2}, Value: []float32{1}}},
		{Label: -1, Row: vector.Row{Index: []uint32{1}, Value: []float32{-1}}},
		{Label: -1, Row: vector.Row{Index: []uint32{3}, Value: []float32{-2}}},
	}
	d, err := Resident(examples, WithAssignments(""))
	require.NoError(t, err)
	defer d.Close()

	assert.True(t, d.Resident())
	assert.Empty(t, d.SpillPath())
	assert.Equal(t, []uint32{1, 3}, d.Row(0).Index)
	assert.Equal(t, []float32{1, 2}, d.Row(0).Value)

	more, err := d.LoadNextChunk(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, 4, d.Len())

	_, err = d.ChunkAssignments()
	assert.ErrorIs(t, err, ErrNoAssignments)

	require.NoError(t, d.SaveAssignments([]uint32{0, 1, 1, 0}))
	got, err := d.ChunkAssignments()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 1, 0}, got)

	_, err = Resident([]Example{{Label: 1, Row: vector.Row{Index: []uint32{0}, Value: []float32{1}}}})
	assert.ErrorIs(t, err, ErrParse)
}

func TestLabelsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SaveLabels(&buf, []int{1, -1, 4}, nil))

	labels, err := LoadLabels(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int{1, -1, 4}, labels)

	_, err = LoadLabels(bytes.NewBufferString("xml\n<labels/>"))
	assert.ErrorIs(t, err, ErrParse)
}

func TestAssignments_WriteThenRead(t *testing.T) {
	for _, c := range []blockcodec.Codec{blockcodec.None, blockcodec.LZ4, blockcodec.ZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			dir := t.TempDir()
			d, err := New(TextSource("four", fourRows), WithAssignments(dir), WithSpillCodec(c))
			require.NoError(t, err)

			path := d.SpillPath()
			require.FileExists(t, path)
			ctx := context.Background()

			// Write pass.
			var want [][]uint32
			for {
				more, err := d.LoadNextChunk(ctx, 3)
				require.NoError(t, err)
				a := make([]uint32, d.Len())
				for i := range a {
					a[i] = uint32(10*len(want) + i)
				}
				require.NoError(t, d.SaveAssignments(a))
				want = append(want, a)
				if !more {
					break
				}
			}

			// Read pass.
			for k := 0; ; k++ {
				more, err := d.LoadNextChunk(ctx, 3)
				require.NoError(t, err)
				got, err := d.ChunkAssignments()
				require.NoError(t, err)
				assert.Equal(t, want[k], got)
				if !more {
					break
				}
			}

			// A later write pass truncates.
			_, err = d.LoadNextChunk(ctx, 0)
			require.NoError(t, err)
			require.NoError(t, d.SaveAssignments([]uint32{9, 9, 9, 9}))
			_, err = d.LoadNextChunk(ctx, 0)
			require.NoError(t, err)
			got, err := d.ChunkAssignments()
			require.NoError(t, err)
			assert.Equal(t, []uint32{9, 9, 9, 9}, got)

			require.NoError(t, d.Close())
			assert.NoFileExists(t, path)
			require.NoError(t, d.Close())
		})
	}
}

func TestAssignments_PhaseViolation(t *testing.T) {
	d, err := New(TextSource("four", fourRows), WithAssignments(t.TempDir()))
	require.NoError(t, err)
	defer d.Close()

	ctx := context.Background()
	_, err = d.LoadNextChunk(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, d.SaveAssignments([]uint32{1, 2}))

	_, err = d.ChunkAssignments()
	assert.ErrorIs(t, err, ErrAssignmentPhase)

	err = d.SaveAssignments([]uint32{1})
	assert.ErrorIs(t, err, ErrAssignmentCount)
}

func TestAssignments_Disabled(t *testing.T) {
	d, err := New(TextSource("four", fourRows))
	require.NoError(t, err)
	defer d.Close()

	assert.Empty(t, d.SpillPath())
	assert.ErrorIs(t, d.SaveAssignments(nil), ErrAssignmentsDisabled)
	_, err = d.ChunkAssignments()
	assert.ErrorIs(t, err, ErrAssignmentsDisabled)
}

func TestAssignments_SpillFaults(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		faulty := fs.NewFaultyFS(nil)
		faulty.AddRule(".assign", fs.Fault{FailOnCreate: true, FailAfterBytes: -1})

		rec := &diag.Recorder{}
		_, err := New(TextSource("four", fourRows),
			WithAssignments(t.TempDir()), withFileSystem(faulty), WithSink(rec))
		assert.ErrorIs(t, err, ErrSpill)
		assert.ErrorIs(t, err, fs.ErrInjected)
		assert.Len(t, rec.Fatals(), 1)
	})

	t.Run("write", func(t *testing.T) {
		faulty := fs.NewFaultyFS(nil)
		faulty.AddRule(".assign", fs.Fault{FailAfterBytes: 0})

		d, err := New(TextSource("four", fourRows), WithAssignments(t.TempDir()), withFileSystem(faulty))
		require.NoError(t, err)
		defer d.Close()

		_, err = d.LoadNextChunk(context.Background(), 0)
		require.NoError(t, err)
		err = d.SaveAssignments([]uint32{0, 0, 0, 0})
		assert.ErrorIs(t, err, ErrSpill)
	})

	t.Run("read before write", func(t *testing.T) {
		d, err := New(TextSource("four", fourRows), WithAssignments(t.TempDir()))
		require.NoError(t, err)
		defer d.Close()

		_, err = d.LoadNextChunk(context.Background(), 0)
		require.NoError(t, err)
		_, err = d.ChunkAssignments()
		assert.ErrorIs(t, err, ErrNoAssignments)
	})
}

func TestFatalGoesThroughSink(t *testing.T) {
	// The sink decides what happens on fatal errors; the dataset always
	// returns the error the sink hands back.
	var lines []string
	d, err := New(TextSource("bad", "x\n"), WithSink(diag.Func(func(s string) { lines = append(lines, s) })))
	require.NoError(t, err)
	defer d.Close()

	_, err = d.LoadNextChunk(context.Background(), 0)
	require.Error(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "error: ")
}
