// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("datasets/"),
//	    s3.WithRegion("us-east-1"),
//	)
//	src := dataset.BlobSource(store, "covtype.train.zst")
//
// # Features
//
//   - Ranged GetObject reads streamed straight into the dataset parser
//   - Multipart uploads through manager.Uploader
//   - Automatic pagination for listing
//   - Configurable key prefix
package s3
