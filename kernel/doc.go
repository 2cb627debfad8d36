// Package kernel evaluates kernel functions directly on chunked vectors and
// on dataset rows.
//
// Distance based kernels (Gaussian, exponential) use the cached squared norms
// of their inputs, so each evaluation costs one sparse dot product:
//
//	‖a-b‖² = ‖a‖² + ‖b‖² - 2·<a,b>
//
// All evaluations are pure functions of their inputs and the Params. They
// never mutate the vectors and may run concurrently.
package kernel
