package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/bsvm/internal/conv"
)

// parseLabel accepts integer labels and integral floats such as "1.0".
func parseLabel(tok string) (int, error) {
	if v, err := strconv.Atoi(tok); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: label %q", ErrParse, tok)
	}
	return int(f), nil
}

// parseFeature splits "index:value". The index is 1-based.
func parseFeature(tok string) (uint32, float32, error) {
	colon := strings.IndexByte(tok, ':')
	if colon <= 0 || colon == len(tok)-1 {
		return 0, 0, fmt.Errorf("%w: feature %q", ErrParse, tok)
	}
	idx, err := strconv.ParseInt(tok[:colon], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: feature index %q", ErrParse, tok[:colon])
	}
	pos, err := conv.FeatureIndex(idx)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrParse, err)
	}
	one, err := conv.IntToUint32(pos + 1)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrParse, err)
	}
	val, err := strconv.ParseFloat(tok[colon+1:], 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: feature value %q", ErrParse, tok[colon+1:])
	}
	return one, float32(val), nil
}

// sortRow orders one row's features by index when the input was not
// already ascending.
func sortRow(idx []uint32, val []float32) {
	if sort.SliceIsSorted(idx, func(a, b int) bool { return idx[a] < idx[b] }) {
		return
	}
	sort.Stable(featureSorter{idx, val})
}

type featureSorter struct {
	idx []uint32
	val []float32
}

func (s featureSorter) Len() int           { return len(s.idx) }
func (s featureSorter) Less(a, b int) bool { return s.idx[a] < s.idx[b] }
func (s featureSorter) Swap(a, b int) {
	s.idx[a], s.idx[b] = s.idx[b], s.idx[a]
	s.val[a], s.val[b] = s.val[b], s.val[a]
}
