package blockcodec

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repetitive(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i % 7)
	}
	return out
}

func TestEncodeDecode(t *testing.T) {
	data := PutUint32s(repetitive(4096))

	for _, c := range []Codec{None, LZ4, ZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			block, err := Encode(data, c)
			require.NoError(t, err)

			if c != None {
				assert.Less(t, len(block), len(data), "repetitive data should compress")
				assert.NotZero(t, binary.LittleEndian.Uint32(block[4:]))
			}

			got, err := Decode(block, c)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestEncode_IncompressibleStoredRaw(t *testing.T) {
	data := []byte{1, 2, 3}
	block, err := Encode(data, LZ4)
	require.NoError(t, err)
	assert.Zero(t, binary.LittleEndian.Uint32(block[4:]))
	assert.Len(t, block, HeaderSize+len(data))

	got, err := Decode(block, LZ4)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := Decode([]byte{1, 2}, None)
	assert.ErrorIs(t, err, ErrCorrupt)

	block, err := Encode([]byte("abcdef"), None)
	require.NoError(t, err)
	_, err = Decode(block[:len(block)-1], None)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestWriterReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, ZSTD)

	chunks := [][]uint32{repetitive(100), {5}, repetitive(3000), {}}
	for _, c := range chunks {
		require.NoError(t, w.WriteBlock(PutUint32s(c)))
	}
	assert.Equal(t, int64(buf.Len()), w.BytesWritten())

	r := NewReader(&buf, ZSTD)
	for _, want := range chunks {
		block, err := r.ReadBlock()
		require.NoError(t, err)
		got, err := Uint32s(block)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := r.ReadBlock()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_TruncatedStream(t *testing.T) {
	block, err := Encode([]byte("0123456789"), None)
	require.NoError(t, err)

	r := NewReader(bytes.NewReader(block[:HeaderSize+3]), None)
	_, err = r.ReadBlock()
	assert.ErrorIs(t, err, ErrCorrupt)

	r = NewReader(bytes.NewReader(block[:4]), None)
	_, err = r.ReadBlock()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestParseCodec(t *testing.T) {
	for _, c := range []Codec{None, LZ4, ZSTD} {
		got, err := ParseCodec(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCodec("snappy")
	assert.Error(t, err)
}
