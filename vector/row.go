package vector

// Row is a read-only view of one sparse example: parallel slices of 1-based
// feature indices (ascending) and values.
type Row struct {
	Index []uint32
	Value []float32
}

// Len returns the number of stored features.
func (r Row) Len() int {
	return len(r.Index)
}

// MaxIndex returns the largest 1-based feature index, or 0 for an empty row.
func (r Row) MaxIndex() int {
	if len(r.Index) == 0 {
		return 0
	}
	return int(r.Index[len(r.Index)-1])
}

// SquaredNorm returns the sum of squared values plus bias² when bias != 0.
func (r Row) SquaredNorm(bias float64) float64 {
	var sum float64
	for _, v := range r.Value {
		sum += float64(v) * float64(v)
	}
	if bias != 0 {
		sum += bias * bias
	}
	return sum
}
