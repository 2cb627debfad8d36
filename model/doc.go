// Package model holds the vectors retained by a budgeted classifier.
//
// Three algorithm families keep different auxiliary data next to a vector:
//
//   - KindWeight: a per-class weight with a degradation scalar (Pegasos, AMM).
//   - KindSupport: a support vector with one alpha per class (BSGD).
//   - KindLandmark: a landmark point with no auxiliary data (LLSVM).
//
// Budgeted is a single tagged type over these shapes. The vector is owned
// exclusively by the Budgeted value; Release frees its chunks.
package model
