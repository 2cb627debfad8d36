// Package kmeans clusters sparse rows for landmark selection.
//
// Centroids are dense; distances between a sparse row and a centroid use the
// norm expansion ‖x−c‖² = ‖x‖² + ‖c‖² − 2·x·c so only the row's non-zeros are
// visited.
package kmeans
