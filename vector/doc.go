// Package vector implements the chunked sparse/dense hybrid vector used for
// weights, support vectors and landmarks.
//
// A Vector of dimensionality D is split into ceil(D/W) chunks of width W.
// Chunks are allocated lazily on first write; an absent chunk reads as all
// zeros. The last chunk holds only D-(n-1)*W values.
//
//	v := vector.MustNew(1_000_000, 1000)
//	_ = v.Set(42, 1.5)      // allocates chunk 0 only
//	x, _ := v.Get(999_999)  // 0, chunk 999 is absent
//
// Values are stored as float32; norms and dot products accumulate in float64.
//
// Each Vector keeps a cached squared L2 norm that every mutating method keeps
// up to date, and a process-unique ID that changes whenever the content
// changes. Kernel value caches key on that ID.
//
// A Vector is not safe for concurrent mutation. Concurrent reads are safe.
package vector
