// Package dataset streams labeled sparse examples in LIBSVM text format in
// bounded-memory chunks.
//
// A Dataset owns a Source and a cursor into it. Each call to LoadNextChunk
// discards the previous chunk and parses up to maxRows lines of
//
//	label index:value index:value ...
//
// into parallel arrays. Reaching the end of the source closes it; the next
// call starts a new pass from the beginning. Sources may be plain text or
// gzip, zstd or lz4 compressed; the format is detected from the leading
// magic bytes.
//
// # Labels
//
// In training mode (the default) labels are assigned dense indices in the
// order they are first seen. WithLabels freezes the label list for
// evaluation: a label that was never seen in training gets the index
// len(Labels()), which no model can predict, the row is recorded in
// Unpredictable and one warning per chunk goes to the diagnostic sink.
//
// # Assignments
//
// Batch algorithms keep one integer per example across passes. With
// WithAssignments the dataset creates a spill file at construction, appends
// one compressed block per chunk in SaveAssignments and reads the blocks back
// with ChunkAssignments on a later pass. A pass is either a write pass or a
// read pass. Close removes the spill file. A Resident dataset keeps
// assignments in memory instead.
package dataset
