// Package budget keeps the number of retained vectors of a model at or
// below a fixed budget.
//
// A Maintainer is configured once, validated eagerly, and then applied to a
// WorkingSet after every model update that may have grown it. While the set
// is larger than the budget it performs one step per excess element:
//
//   - Removal drops the element with the smallest score (ties go to the
//     lowest index).
//   - Merging (Gaussian kernel, support vectors only) replaces the pair whose
//     merge degrades the model least with a single merged vector.
//
// Maintenance is exclusive: a Maintainer serializes concurrent Maintain calls.
package budget
