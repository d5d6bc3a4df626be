package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"petsync/shared/observability"
	"petsync/shared/storage/adapters/fs"
	mockStorage "petsync/shared/storage/mocks"
	"petsync/shared/storage/types"
)

func newTestTransfer(t *testing.T) (*Transfer, *fs.Storage) {
	t.Helper()
	obs := observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: io.Discard})

	store, err := fs.NewStorage(t.TempDir(), obs.Logger("storage.fs"), obs.Metrics("storage.fs"))
	require.NoError(t, err)
	return NewTransfer(store, obs.Logger("transfer"), obs.Metrics("transfer")), store
}

func TestTransfer_UploadDownload(t *testing.T) {
	transfer, store := newTestTransfer(t)
	ctx := context.Background()
	require.NoError(t, store.CreateBucket(ctx, "input"))

	local := filepath.Join(t.TempDir(), "3-1700000000000.csv")
	require.NoError(t, os.WriteFile(local, []byte("id,owner_id,name\n5,3,\n"), 0o644))

	require.NoError(t, transfer.Upload(ctx, local, "input", "3-1700000000000.csv"))

	_, meta, err := store.GetWithMetadata(ctx, "input", "3-1700000000000.csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", meta.ContentType)

	target := filepath.Join(t.TempDir(), "nested", "copy.csv")
	require.NoError(t, transfer.Download(ctx, "input", "3-1700000000000.csv", target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "id,owner_id,name\n5,3,\n", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.WithinDuration(t, meta.LastModified, info.ModTime(), time.Second)
}

func TestTransfer_UploadMissingFile(t *testing.T) {
	transfer, _ := newTestTransfer(t)

	err := transfer.Upload(context.Background(), filepath.Join(t.TempDir(), "none.csv"), "input", "none.csv")

	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "upload", transferErr.Op)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTransfer_UploadUnconfirmed(t *testing.T) {
	obs := observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: io.Discard})
	store := new(mockStorage.MockObjectStorage)
	transfer := NewTransfer(store, obs.Logger("transfer"), obs.Metrics("transfer"))

	local := filepath.Join(t.TempDir(), "1-1.csv")
	require.NoError(t, os.WriteFile(local, []byte("id,owner_id,name\n"), 0o644))

	confirmErr := errors.New("object not confirmed")
	store.On("Put", mock.Anything, "input", "1-1.csv", mock.Anything, mock.Anything).Return(confirmErr)

	err := transfer.Upload(context.Background(), local, "input", "1-1.csv")
	assert.ErrorIs(t, err, confirmErr)
	store.AssertExpectations(t)
}

func TestTransfer_Sync(t *testing.T) {
	transfer, store := newTestTransfer(t)
	ctx := context.Background()
	require.NoError(t, store.CreateBucket(ctx, "output"))

	for _, key := range []string{"2-1700000000001.csv", "1-1700000000000.csv", "archive/old.csv"} {
		require.NoError(t, store.Put(ctx, "output", key, strings.NewReader(key), types.ObjectMetadata{}))
	}

	localDir := t.TempDir()
	paths, err := transfer.Sync(ctx, "output", "", localDir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(localDir, "1-1700000000000.csv"),
		filepath.Join(localDir, "2-1700000000001.csv"),
		filepath.Join(localDir, "archive", "old.csv"),
	}, paths)
	for _, p := range paths {
		assert.FileExists(t, p)
	}

	remaining, err := store.List(ctx, "output", "")
	require.NoError(t, err)
	assert.Empty(t, remaining, "remote copies are removed after download")

	t.Run("nothing left", func(t *testing.T) {
		paths, err := transfer.Sync(ctx, "output", "", localDir)
		require.NoError(t, err)
		assert.Empty(t, paths)
	})
}

func TestTransfer_SyncListFailure(t *testing.T) {
	transfer, _ := newTestTransfer(t)

	_, err := transfer.Sync(context.Background(), "missing", "", t.TempDir())

	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "list", transferErr.Op)
	assert.ErrorIs(t, err, types.ErrBucketNotFound)
}

func TestTransfer_SyncKeepsRemoteOnDownloadFailure(t *testing.T) {
	obs := observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: io.Discard})
	store := new(mockStorage.MockObjectStorage)
	transfer := NewTransfer(store, obs.Logger("transfer"), obs.Metrics("transfer"))

	store.On("List", mock.Anything, "output", "").Return([]types.ObjectInfo{{Key: "1-1.csv"}}, nil)
	store.On("GetWithMetadata", mock.Anything, "output", "1-1.csv").Return(nil, nil, types.ErrObjectNotFound)

	_, err := transfer.Sync(context.Background(), "output", "", t.TempDir())

	assert.ErrorIs(t, err, types.ErrObjectNotFound)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestTransfer_SyncRejectsKeysOutsideDir(t *testing.T) {
	obs := observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: io.Discard})
	store := new(mockStorage.MockObjectStorage)
	transfer := NewTransfer(store, obs.Logger("transfer"), obs.Metrics("transfer"))

	store.On("List", mock.Anything, "output", "").
		Return([]types.ObjectInfo{{Key: "1-1.csv"}, {Key: "../escaped.csv"}}, nil)

	parent := t.TempDir()
	paths, err := transfer.Sync(context.Background(), "output", "", filepath.Join(parent, "inbox"))

	assert.Nil(t, paths)
	assert.ErrorIs(t, err, ErrUnsafeKey)
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "../escaped.csv", transferErr.Key)

	assert.NoFileExists(t, filepath.Join(parent, "escaped.csv"))
	store.AssertNotCalled(t, "GetWithMetadata", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransfer_SyncLeavesHiddenObjects(t *testing.T) {
	transfer, store := newTestTransfer(t)
	ctx := context.Background()
	require.NoError(t, store.CreateBucket(ctx, "output"))
	for _, key := range []string{"1-1.csv", ".2-2.csv", "batch/.3-3.csv"} {
		require.NoError(t, store.Put(ctx, "output", key, strings.NewReader(key), types.ObjectMetadata{}))
	}

	localDir := t.TempDir()
	paths, err := transfer.Sync(ctx, "output", "", localDir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(localDir, "1-1.csv")}, paths)

	remaining, err := store.List(ctx, "output", "")
	require.NoError(t, err)
	var keys []string
	for _, o := range remaining {
		keys = append(keys, o.Key)
	}
	assert.Equal(t, []string{".2-2.csv", "batch/.3-3.csv"}, keys, "hidden objects are not downloaded or deleted")
}
