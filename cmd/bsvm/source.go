package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hupe1980/bsvm/blobstore"
	"github.com/hupe1980/bsvm/blobstore/minio"
	"github.com/hupe1980/bsvm/blobstore/s3"
	"github.com/hupe1980/bsvm/dataset"
)

// sourceRef is a parsed data location:
//
//	path/to/file
//	s3://bucket/key
//	minio://host:port/bucket/key
type sourceRef struct {
	scheme   string
	endpoint string
	bucket   string
	key      string
}

func parseSourceRef(ref string) (sourceRef, error) {
	scheme, rest, ok := strings.Cut(ref, "://")
	if !ok {
		if ref == "" {
			return sourceRef{}, fmt.Errorf("empty source")
		}
		return sourceRef{scheme: "file", key: ref}, nil
	}

	parts := strings.SplitN(rest, "/", 3)
	switch scheme {
	case "s3":
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return sourceRef{}, fmt.Errorf("source %q: want s3://bucket/key", ref)
		}
		return sourceRef{scheme: scheme, bucket: parts[0], key: strings.Join(parts[1:], "/")}, nil
	case "minio":
		if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return sourceRef{}, fmt.Errorf("source %q: want minio://endpoint/bucket/key", ref)
		}
		return sourceRef{scheme: scheme, endpoint: parts[0], bucket: parts[1], key: parts[2]}, nil
	default:
		return sourceRef{}, fmt.Errorf("source %q: unsupported scheme %q", ref, scheme)
	}
}

// openSource resolves ref to a dataset source. MinIO credentials come from
// MINIO_ACCESS_KEY and MINIO_SECRET_KEY; MINIO_SECURE=true enables TLS. S3
// uses the default AWS credential chain.
func (a *app) openSource(ctx context.Context, ref string) (dataset.Source, error) {
	r, err := parseSourceRef(ref)
	if err != nil {
		return nil, err
	}

	var store blobstore.Store
	switch r.scheme {
	case "file":
		return dataset.FileSource(r.key), nil
	case "s3":
		st, err := s3.New(ctx, r.bucket)
		if err != nil {
			return nil, err
		}
		store = st
	case "minio":
		var opts []minio.Option
		if os.Getenv("MINIO_SECURE") == "true" {
			opts = append(opts, minio.WithTLS())
		}
		st, err := minio.Dial(r.endpoint, r.bucket, os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), opts...)
		if err != nil {
			return nil, err
		}
		store = st
	}

	if a.stageDir != "" {
		store = blobstore.NewStagingStore(store, a.stageDir)
	}
	return dataset.BlobSource(store, r.key), nil
}
