// Package blockcodec frames and optionally compresses byte blocks.
//
// Block format: [UncompressedSize uint32][CompressedSize uint32][Data...],
// little endian. CompressedSize == 0 means the data is stored raw. Blocks that
// do not shrink below 90% of their input are stored raw.
package blockcodec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the block compression algorithm.
type Codec uint8

const (
	// None stores blocks raw.
	None Codec = 0
	// LZ4 uses LZ4 block compression.
	LZ4 Codec = 1
	// ZSTD uses zstd block compression.
	ZSTD Codec = 2
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// ParseCodec parses a codec name as produced by String.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("blockcodec: unknown codec %q", s)
	}
}

// ErrCorrupt is returned for truncated or inconsistent blocks.
var ErrCorrupt = errors.New("blockcodec: corrupt block")

// HeaderSize is the size of the block header in bytes.
const HeaderSize = 8

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode returns data framed as a single block.
func Encode(data []byte, c Codec) ([]byte, error) {
	var compressed []byte
	switch c {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("blockcodec: unknown codec %d", c)
	}

	stored := compressed
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		stored = nil
	}

	payload := data
	if stored != nil {
		payload = stored
	}
	out := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(stored)))
	copy(out[HeaderSize:], payload)
	return out, nil
}

// Decode reverses Encode for a complete block.
func Decode(block []byte, c Codec) ([]byte, error) {
	if len(block) < HeaderSize {
		return nil, ErrCorrupt
	}
	rawSize := binary.LittleEndian.Uint32(block[0:])
	compSize := binary.LittleEndian.Uint32(block[4:])
	body := block[HeaderSize:]

	if compSize == 0 {
		if uint64(len(body)) < uint64(rawSize) {
			return nil, ErrCorrupt
		}
		return body[:rawSize], nil
	}
	if uint64(len(body)) < uint64(compSize) {
		return nil, ErrCorrupt
	}
	return decompress(body[:compSize], rawSize, c)
}

func decompress(src []byte, rawSize uint32, c Codec) ([]byte, error) {
	out := make([]byte, rawSize)
	switch c {
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(src, out[:0])
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != rawSize {
			return nil, ErrCorrupt
		}
		return decoded, nil
	case LZ4:
		n, err := lz4.UncompressBlock(src, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != rawSize {
			return nil, ErrCorrupt
		}
		return out, nil
	default:
		return nil, fmt.Errorf("blockcodec: compressed block with codec %s", c)
	}
}

// Writer appends framed blocks to an underlying writer.
type Writer struct {
	w       io.Writer
	codec   Codec
	written int64
}

// NewWriter creates a block writer.
func NewWriter(w io.Writer, c Codec) *Writer {
	return &Writer{w: w, codec: c}
}

// WriteBlock encodes p as one block and writes it.
func (w *Writer) WriteBlock(p []byte) error {
	block, err := Encode(p, w.codec)
	if err != nil {
		return err
	}
	n, err := w.w.Write(block)
	w.written += int64(n)
	return err
}

// BytesWritten returns the total number of framed bytes written.
func (w *Writer) BytesWritten() int64 {
	return w.written
}

// Reader reads framed blocks sequentially.
type Reader struct {
	r     io.Reader
	codec Codec
	hdr   [HeaderSize]byte
}

// NewReader creates a block reader.
func NewReader(r io.Reader, c Codec) *Reader {
	return &Reader{r: r, codec: c}
}

// ReadBlock returns the next decoded block. It returns io.EOF when the
// stream ends on a block boundary.
func (r *Reader) ReadBlock() ([]byte, error) {
	if _, err := io.ReadFull(r.r, r.hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorrupt
		}
		return nil, err
	}
	rawSize := binary.LittleEndian.Uint32(r.hdr[0:])
	compSize := binary.LittleEndian.Uint32(r.hdr[4:])

	size := rawSize
	if compSize != 0 {
		size = compSize
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r.r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorrupt
		}
		return nil, err
	}
	if compSize == 0 {
		return body, nil
	}
	return decompress(body, rawSize, r.codec)
}

// PutUint32s encodes values as little-endian bytes.
func PutUint32s(values []uint32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

// Uint32s decodes little-endian bytes produced by PutUint32s.
func Uint32s(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, ErrCorrupt
	}
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return out, nil
}
