// Package mocks holds a testify double for types.ObjectStorage.
package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"petsync/shared/storage/types"
)

// MockObjectStorage records every call. Nil return values may be given as
// untyped nil in Return.
type MockObjectStorage struct {
	mock.Mock
}

var _ types.ObjectStorage = (*MockObjectStorage)(nil)

// result reads the i-th return value, tolerating an untyped nil.
func result[T any](args mock.Arguments, i int) T {
	v, _ := args.Get(i).(T)
	return v
}

func (m *MockObjectStorage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	return m.Called(ctx, bucket, key, reader, metadata).Error(0)
}

func (m *MockObjectStorage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	return result[io.ReadCloser](args, 0), args.Error(1)
}

func (m *MockObjectStorage) GetWithMetadata(ctx context.Context, bucket, key string) (io.ReadCloser, *types.ObjectMetadata, error) {
	args := m.Called(ctx, bucket, key)
	return result[io.ReadCloser](args, 0), result[*types.ObjectMetadata](args, 1), args.Error(2)
}

func (m *MockObjectStorage) Delete(ctx context.Context, bucket, key string) error {
	return m.Called(ctx, bucket, key).Error(0)
}

func (m *MockObjectStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	args := m.Called(ctx, bucket, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStorage) List(ctx context.Context, bucket, prefix string) ([]types.ObjectInfo, error) {
	args := m.Called(ctx, bucket, prefix)
	return result[[]types.ObjectInfo](args, 0), args.Error(1)
}

func (m *MockObjectStorage) CreateBucket(ctx context.Context, bucket string) error {
	return m.Called(ctx, bucket).Error(0)
}
