// Package fs is the file system seam used for dataset sources and
// assignment spill files.
//
//   - [FileSystem]: open, create-temp, remove, stat
//   - [LocalFS]: production implementation on top of the os package
//   - [FaultyFS]: wrapper that injects create, write, read and close failures
//
// Production code uses fs.Default. Tests inject a FaultyFS:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".assign", fs.Fault{FailOnCreate: true})
//
// Local file operations are not cancellable, so the interfaces carry no
// context. Remote sources go through the blobstore package instead.
package fs
