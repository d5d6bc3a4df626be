package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"petsync/shared/observability"
	"petsync/shared/storage/types"
)

// ErrUnsafeKey is returned by Sync for a key that would land outside the
// local directory.
var ErrUnsafeKey = errors.New("object key resolves outside the local directory")

// TransferError reports a failed movement of a file between local disk
// and object storage.
type TransferError struct {
	Op     string // upload, download, list or delete
	Bucket string
	Key    string
	Path   string
	Err    error
}

func (e *TransferError) Error() string {
	target := e.Bucket
	if e.Key != "" {
		target += "/" + e.Key
	}
	if e.Path != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, target, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, target, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Transfer moves files between the local filesystem and an ObjectStorage.
type Transfer struct {
	store   types.ObjectStorage
	logger  observability.Logger
	metrics observability.Metrics
}

// NewTransfer creates a Transfer over store
func NewTransfer(store types.ObjectStorage, logger observability.Logger, metrics observability.Metrics) *Transfer {
	return &Transfer{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Upload puts the file at localPath under bucket/key and returns once the
// store has confirmed the object.
func (t *Transfer) Upload(ctx context.Context, localPath, bucket, key string) error {
	t.metrics.StartOperation("upload")
	defer t.metrics.EndOperation("upload")
	start := time.Now()
	defer func() {
		t.metrics.RecordDuration("upload", time.Since(start).Seconds())
	}()

	fail := func(err error) error {
		t.metrics.RecordError("upload", "transfer")
		return &TransferError{Op: "upload", Bucket: bucket, Key: key, Path: localPath, Err: err}
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fail(err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fail(err)
	}

	metadata := types.ObjectMetadata{
		ContentType:   contentType(localPath),
		ContentLength: info.Size(),
	}
	if err := t.store.Put(ctx, bucket, key, file, metadata); err != nil {
		return fail(err)
	}

	t.metrics.RecordSuccess("upload")
	t.metrics.RecordFileSize(fileType(localPath), info.Size())
	t.logger.Info(ctx, "File uploaded", observability.Fields{
		"bucket": bucket,
		"key":    key,
		"file":   localPath,
		"bytes":  info.Size(),
	})

	return nil
}

// Download writes bucket/key to localPath, creating parent directories.
// The content lands in a temp file first and is renamed into place, so a
// failed stream never leaves a truncated file at localPath. The remote
// last-modified time is preserved on the local file.
func (t *Transfer) Download(ctx context.Context, bucket, key, localPath string) error {
	t.metrics.StartOperation("download")
	defer t.metrics.EndOperation("download")
	start := time.Now()
	defer func() {
		t.metrics.RecordDuration("download", time.Since(start).Seconds())
	}()

	if err := t.download(ctx, bucket, key, localPath); err != nil {
		t.metrics.RecordError("download", "transfer")
		return &TransferError{Op: "download", Bucket: bucket, Key: key, Path: localPath, Err: err}
	}

	t.metrics.RecordSuccess("download")
	t.logger.Debug(ctx, "File downloaded", observability.Fields{
		"bucket": bucket,
		"key":    key,
		"file":   localPath,
	})
	return nil
}

func (t *Transfer) download(ctx context.Context, bucket, key, localPath string) error {
	body, metadata, err := t.store.GetWithMetadata(ctx, bucket, key)
	if err != nil {
		return err
	}
	defer body.Close()

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("stream object: %w", err)
	}

	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return fmt.Errorf("move into place: %w", err)
	}

	if metadata != nil && !metadata.LastModified.IsZero() {
		if err := os.Chtimes(localPath, metadata.LastModified, metadata.LastModified); err != nil {
			return fmt.Errorf("preserve timestamp: %w", err)
		}
	}

	t.metrics.RecordFileSize(fileType(localPath), written)
	return nil
}

// Sync downloads every object under prefix into localDir and deletes each
// remote copy once its download succeeded. It returns the absolute local
// paths in key order. Keys are checked before anything moves: one that
// escapes localDir fails the sync with ErrUnsafeKey, and one whose file
// name starts with "." stays in the bucket. The first transfer failure
// stops the sync; files fetched before it stay on disk and their remote
// copies are already gone.
func (t *Transfer) Sync(ctx context.Context, bucket, prefix, localDir string) ([]string, error) {
	t.metrics.StartOperation("sync")
	defer t.metrics.EndOperation("sync")
	start := time.Now()
	defer func() {
		t.metrics.RecordDuration("sync", time.Since(start).Seconds())
	}()

	objects, err := t.store.List(ctx, bucket, prefix)
	if err != nil {
		t.metrics.RecordError("sync", "list")
		return nil, &TransferError{Op: "list", Bucket: bucket, Key: prefix, Err: err}
	}

	absDir, err := filepath.Abs(localDir)
	if err != nil {
		return nil, fmt.Errorf("resolve local directory: %w", err)
	}

	type move struct{ key, path string }
	var moves []move
	var skipped []string
	for _, object := range objects {
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		path, err := localPathFor(absDir, object.Key)
		if err != nil {
			t.metrics.RecordError("sync", "key")
			return nil, &TransferError{Op: "download", Bucket: bucket, Key: object.Key, Path: absDir, Err: err}
		}
		if strings.HasPrefix(filepath.Base(path), ".") {
			skipped = append(skipped, object.Key)
			continue
		}
		moves = append(moves, move{key: object.Key, path: path})
	}
	if len(skipped) > 0 {
		t.metrics.RecordItems("sync", "skipped", len(skipped))
		t.logger.Warn(ctx, "Hidden objects left in bucket", observability.Fields{"bucket": bucket, "keys": skipped})
	}

	paths := make([]string, 0, len(moves))
	for _, m := range moves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := t.Download(ctx, bucket, m.key, m.path); err != nil {
			return nil, err
		}
		if err := t.store.Delete(ctx, bucket, m.key); err != nil {
			t.metrics.RecordError("sync", "delete")
			return nil, &TransferError{Op: "delete", Bucket: bucket, Key: m.key, Err: err}
		}
		paths = append(paths, m.path)
	}

	t.metrics.RecordSuccess("sync")
	t.metrics.RecordItems("sync", "moved", len(paths))
	t.logger.Info(ctx, "Remote files synchronized", observability.Fields{
		"bucket": bucket,
		"prefix": prefix,
		"count":  len(paths),
	})

	return paths, nil
}

// localPathFor maps key to a file strictly inside dir.
func localPathFor(dir, key string) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(key))
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrUnsafeKey
	}
	return path, nil
}

func contentType(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return "text/csv"
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func fileType(path string) string {
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return "unknown"
}
