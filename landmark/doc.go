// Package landmark picks the landmark points of a low-rank (LLSVM) model and
// computes the transform that maps kernel values against the landmarks into
// a finite feature space.
//
// Landmarks are chosen from the rows of the currently loaded dataset chunk,
// either uniformly at random, as k-means centroids or as k-medoids.
package landmark
