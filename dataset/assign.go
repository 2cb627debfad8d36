package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/bsvm/internal/blockcodec"
	"github.com/hupe1980/bsvm/internal/fs"
)

type phase uint8

const (
	phaseNone phase = iota
	phaseWrite
	phaseRead
)

func (p phase) String() string {
	switch p {
	case phaseWrite:
		return "write"
	case phaseRead:
		return "read"
	default:
		return "none"
	}
}

// assignments is the per-example side channel. Streamed datasets append one
// block per chunk to a spill file; resident datasets keep a single slice.
type assignments struct {
	resident bool

	fsys  fs.FileSystem
	codec blockcodec.Codec
	path  string

	phase phase
	file  fs.File
	w     *blockcodec.Writer
	r     *blockcodec.Reader

	memory []uint32
}

func (a *assignments) create(fsys fs.FileSystem, dir string, c blockcodec.Codec) error {
	f, err := fsys.CreateTemp(dir, "bsvm-*.assign")
	if err != nil {
		return fmt.Errorf("%w: create: %w", ErrSpill, err)
	}
	a.path = f.Name()
	if err := f.Close(); err != nil {
		_ = fsys.Remove(a.path)
		return fmt.Errorf("%w: create: %w", ErrSpill, err)
	}
	a.fsys = fsys
	a.codec = c
	return nil
}

// startPass closes any open spill handle so the next pass picks its own phase.
func (a *assignments) startPass() {
	_ = a.closeFile()
	a.phase = phaseNone
}

func (a *assignments) closeFile() error {
	var err error
	if a.file != nil {
		err = a.file.Close()
	}
	a.file = nil
	a.w = nil
	a.r = nil
	return err
}

func (a *assignments) remove() error {
	closeErr := a.closeFile()
	if a.path == "" {
		return closeErr
	}
	err := a.fsys.Remove(a.path)
	a.path = ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove: %w", ErrSpill, err)
	}
	return closeErr
}

func (a *assignments) enter(p phase) error {
	switch a.phase {
	case p:
		return nil
	case phaseNone:
	default:
		return fmt.Errorf("%w: pass is in %s phase", ErrAssignmentPhase, a.phase)
	}

	var (
		f   fs.File
		err error
	)
	if p == phaseWrite {
		f, err = a.fsys.OpenFile(a.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	} else {
		f, err = a.fsys.OpenFile(a.path, os.O_RDONLY, 0)
	}
	if err != nil {
		return fmt.Errorf("%w: open for %s: %w", ErrSpill, p, err)
	}

	a.file = f
	a.phase = p
	if p == phaseWrite {
		a.w = blockcodec.NewWriter(f, a.codec)
	} else {
		a.r = blockcodec.NewReader(f, a.codec)
	}
	return nil
}

func (a *assignments) save(values []uint32) error {
	if a.resident {
		a.memory = append(a.memory[:0], values...)
		return nil
	}
	if err := a.enter(phaseWrite); err != nil {
		return err
	}
	if err := a.w.WriteBlock(blockcodec.PutUint32s(values)); err != nil {
		return fmt.Errorf("%w: write: %w", ErrSpill, err)
	}
	return nil
}

func (a *assignments) next() ([]uint32, error) {
	if a.resident {
		if a.memory == nil {
			return nil, ErrNoAssignments
		}
		return append([]uint32(nil), a.memory...), nil
	}
	if err := a.enter(phaseRead); err != nil {
		return nil, err
	}
	block, err := a.r.ReadBlock()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoAssignments
		}
		return nil, fmt.Errorf("%w: read: %w", ErrSpill, err)
	}
	values, err := blockcodec.Uint32s(block)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", ErrSpill, err)
	}
	return values, nil
}

// SaveAssignments stores one assignment per row of the current chunk. The
// first save of a pass starts a new spill file; later saves append.
func (d *Dataset) SaveAssignments(values []uint32) error {
	if err := d.checkAssignments(); err != nil {
		return d.opts.sink.Fatal(err)
	}
	if len(values) != d.Len() {
		return d.opts.sink.Fatal(fmt.Errorf("%w: %d assignments for %d rows", ErrAssignmentCount, len(values), d.Len()))
	}
	if err := d.assign.save(values); err != nil {
		return d.opts.sink.Fatal(err)
	}
	return nil
}

// ChunkAssignments returns the assignments saved for the current chunk in
// an earlier pass.
func (d *Dataset) ChunkAssignments() ([]uint32, error) {
	if err := d.checkAssignments(); err != nil {
		return nil, d.opts.sink.Fatal(err)
	}
	values, err := d.assign.next()
	if err != nil {
		return nil, d.opts.sink.Fatal(err)
	}
	if len(values) != d.Len() {
		return nil, d.opts.sink.Fatal(fmt.Errorf("%w: %d assignments for %d rows", ErrAssignmentCount, len(values), d.Len()))
	}
	return values, nil
}

// SpillPath returns the path of the spill file, or "" when assignments are
// not spilled.
func (d *Dataset) SpillPath() string {
	return d.assign.path
}

func (d *Dataset) checkAssignments() error {
	if d.closed {
		return ErrClosed
	}
	if !d.opts.keepAssign {
		return ErrAssignmentsDisabled
	}
	return nil
}
