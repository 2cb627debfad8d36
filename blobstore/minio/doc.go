// Package minio provides a blobstore.Store backed by the MinIO client.
//
// It works against MinIO and other S3-compatible systems (Ceph, Garage,
// SeaweedFS) without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minioblob.Dial("localhost:9000", "datasets", "minioadmin", "minioadmin",
//	    minioblob.WithPrefix("a9a/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	src := dataset.BlobSource(store, "a9a.train.gz")
//
// An existing *minio.Client can be wrapped with NewStore.
package minio
