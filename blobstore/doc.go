// Package blobstore provides read access to training and test sources kept
// outside the local file system, and a place to publish small artifacts such
// as label sets and run summaries.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system
//   - MemoryStore: in-memory store for tests
//   - StagingStore: copies remote objects to a local directory on first open
//     so that every later training pass reads locally
//   - s3.Store: Amazon S3 (ranged GetObject reads, manager.Uploader writes)
//   - minio.Store: MinIO and other S3-compatible services
//
// Sources are read sequentially, once per pass:
//
//	blob, _ := store.Open(ctx, "train.txt.zst")
//	r, _ := blobstore.NewReader(ctx, blob)
//	defer r.Close()
package blobstore
