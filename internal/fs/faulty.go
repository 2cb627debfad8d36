package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the error returned by a Fault that does not set Err.
var ErrInjected = errors.New("fs: injected fault")

// Fault describes the failures injected for files whose name matches a rule.
type Fault struct {
	FailOnCreate   bool  // Open, OpenFile and CreateTemp fail
	FailAfterBytes int64 // writes beyond this many bytes fail; negative disables
	FailOnRead     bool
	FailOnClose    bool
	Err            error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// FaultyFS wraps a FileSystem and injects failures by file name pattern.
type FaultyFS struct {
	FS FileSystem

	mu    sync.Mutex
	rules map[string]Fault
	opens map[string]int
}

// NewFaultyFS creates a FaultyFS on top of fs (Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{
		FS:    fs,
		rules: make(map[string]Fault),
		opens: make(map[string]int),
	}
}

// AddRule injects fault for every file whose name contains pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// Opens reports how many times files matching pattern were opened or created.
func (f *FaultyFS) Opens(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens[pattern]
}

func (f *FaultyFS) match(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fault, found := Fault{FailAfterBytes: -1}, false
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			f.opens[pattern]++
			fault, found = rule, true
		}
	}
	return fault, found
}

func (f *FaultyFS) wrap(name string, open func() (File, error)) (File, error) {
	fault, found := f.match(name)
	if found && fault.FailOnCreate {
		return nil, &os.PathError{Op: "open", Path: name, Err: fault.err()}
	}
	file, err := open()
	if err != nil || !found {
		return file, err
	}
	return &faultyFile{File: file, fault: fault}, nil
}

func (f *FaultyFS) Open(name string) (File, error) {
	return f.wrap(name, func() (File, error) { return f.FS.Open(name) })
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return f.wrap(name, func() (File, error) { return f.FS.OpenFile(name, flag, perm) })
}

// CreateTemp matches rules against pattern since the final name is not known
// before creation.
func (f *FaultyFS) CreateTemp(dir, pattern string) (File, error) {
	return f.wrap(pattern, func() (File, error) { return f.FS.CreateTemp(dir, pattern) })
}

func (f *FaultyFS) Remove(name string) error                     { return f.FS.Remove(name) }
func (f *FaultyFS) Stat(name string) (os.FileInfo, error)        { return f.FS.Stat(name) }
func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error { return f.FS.MkdirAll(path, perm) }

type faultyFile struct {
	File
	fault   Fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if ff.fault.FailAfterBytes >= 0 && ff.written+int64(len(p)) > ff.fault.FailAfterBytes {
		return 0, ff.fault.err()
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Read(p []byte) (int, error) {
	if ff.fault.FailOnRead {
		return 0, ff.fault.err()
	}
	return ff.File.Read(p)
}

func (ff *faultyFile) Close() error {
	err := ff.File.Close()
	if ff.fault.FailOnClose {
		return ff.fault.err()
	}
	return err
}
