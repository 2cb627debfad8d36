package dataset

import "errors"

var (
	// ErrSource is returned when the source cannot be opened or read.
	ErrSource = errors.New("dataset: source error")

	// ErrParse is returned for malformed label or feature tokens.
	ErrParse = errors.New("dataset: malformed input")

	// ErrSpill is returned when the assignment spill file cannot be created,
	// written or read.
	ErrSpill = errors.New("dataset: assignment spill error")

	// ErrAssignmentPhase is returned when assignments are saved and read in
	// the same pass.
	ErrAssignmentPhase = errors.New("dataset: assignments cannot be saved and read in the same pass")

	// ErrAssignmentsDisabled is returned by assignment calls on a dataset
	// created without WithAssignments.
	ErrAssignmentsDisabled = errors.New("dataset: assignments not kept")

	// ErrNoAssignments is returned when assignments are read before any were saved.
	ErrNoAssignments = errors.New("dataset: no saved assignments")

	// ErrAssignmentCount is returned when the number of assignments does not
	// match the rows of the current chunk.
	ErrAssignmentCount = errors.New("dataset: assignment count does not match chunk")

	// ErrClosed is returned by operations on a closed dataset.
	ErrClosed = errors.New("dataset: closed")
)
