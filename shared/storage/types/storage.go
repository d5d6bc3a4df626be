// Package types declares the object store contract shared by the S3 and
// local directory adapters.
package types

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound is returned by Get and GetWithMetadata for a missing key.
	ErrObjectNotFound = errors.New("object not found")
	ErrBucketNotFound = errors.New("bucket not found")
)

// ObjectStorage is a flat key space per bucket. Keys are file names such
// as "3-1700000000000.csv"; a "/" in a key has no special meaning except
// as part of a List prefix.
type ObjectStorage interface {
	// Put returns only after the object is visible to Get and List.
	Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ObjectMetadata) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	GetWithMetadata(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectMetadata, error)
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	// CreateBucket succeeds when the bucket already exists.
	CreateBucket(ctx context.Context, bucket string) error
}

// ObjectMetadata travels with an object. Zero values are not sent.
type ObjectMetadata struct {
	ContentType     string
	ContentLength   int64
	ContentEncoding string
	CacheControl    string
	UserMetadata    map[string]string

	// set by the store on read
	LastModified time.Time
	ETag         string
}

// ObjectInfo is one List entry.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}
