// Package conv provides checked integer conversions for values read from
// disk (spill block lengths, assignment values) and for 1-based feature
// indices parsed from text.
package conv
