package bsvm

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bsvm/budget"
	"github.com/hupe1980/bsvm/config"
	"github.com/hupe1980/bsvm/dataset"
	"github.com/hupe1980/bsvm/kernel"
	"github.com/hupe1980/bsvm/landmark"
	"github.com/hupe1980/bsvm/vector"
)

var (
	// ErrInvalidConfig is returned for parameter and strategy errors.
	ErrInvalidConfig = errors.New("bsvm: invalid configuration")

	// ErrIO is returned when a data source or spill file fails.
	ErrIO = errors.New("bsvm: i/o error")

	// ErrMalformedInput is returned for unparsable training data.
	ErrMalformedInput = errors.New("bsvm: malformed input")

	// ErrOutOfRange is returned when a feature index lies outside a vector.
	ErrOutOfRange = errors.New("bsvm: index out of range")

	// ErrMemoryLimit is returned when the memory budget is exhausted.
	ErrMemoryLimit = errors.New("bsvm: memory limit exceeded")
)

// ErrDimensionMismatch indicates a model and dataset with incompatible
// dimensionality.
type ErrDimensionMismatch struct {
	Model   int
	Dataset int
	cause   error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("bsvm: dimension mismatch: model %d, dataset %d", e.Model, e.Dataset)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// translateError maps package errors to the root sentinels while keeping
// the original error in the chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, budget.ErrInvalidStrategy),
		errors.Is(err, budget.ErrInvalidBudget),
		errors.Is(err, kernel.ErrUnknownKind),
		errors.Is(err, landmark.ErrInvalidStrategy):
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	case errors.Is(err, dataset.ErrSource),
		errors.Is(err, dataset.ErrSpill):
		return fmt.Errorf("%w: %w", ErrIO, err)
	case errors.Is(err, dataset.ErrParse):
		return fmt.Errorf("%w: %w", ErrMalformedInput, err)
	case errors.Is(err, vector.ErrIndexOutOfRange),
		errors.Is(err, kernel.ErrRowTooLong):
		return fmt.Errorf("%w: %w", ErrOutOfRange, err)
	case errors.Is(err, vector.ErrMemoryLimit):
		return fmt.Errorf("%w: %w", ErrMemoryLimit, err)
	}
	return err
}
