// Package testutil provides testing utilities for bsvm.
//
// This package is intended for use in tests and benchmarks only.
// It generates random sparse examples, renders them as LIBSVM text and
// provides dense reference computations to check chunked code against.
//
//	rng := testutil.NewRNG(seed)
//	idx, val := rng.SparseRow(10_000, 25) // 25 non-zeros, 1-based indices
//	dense := testutil.Densify(idx, val, 10_000)
//	want := testutil.DenseSquaredNorm(dense)
package testutil
