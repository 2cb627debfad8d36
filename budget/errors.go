package budget

import "errors"

var (
	// ErrInvalidStrategy is returned for unknown strategies and for strategy,
	// family and kernel combinations that cannot work together.
	ErrInvalidStrategy = errors.New("budget: invalid maintenance strategy")

	// ErrInvalidBudget is returned when the budget is smaller than 1.
	ErrInvalidBudget = errors.New("budget: budget must be at least 1")

	// ErrFamilyMismatch is returned when the working set holds vectors of a
	// different family than the maintainer was configured for.
	ErrFamilyMismatch = errors.New("budget: working set does not match family")
)
