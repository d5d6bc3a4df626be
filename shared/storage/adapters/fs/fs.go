// Package fs keeps buckets as directories on local disk. It backs the
// agents in development and in tests that need a real store.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"petsync/shared/observability"
	"petsync/shared/storage/types"
)

const (
	// sidecar holding an object's ObjectMetadata as JSON
	metadataSuffix = ".metadata.json"
	tempPrefix     = ".put-"
)

// Storage implements types.ObjectStorage with one directory per bucket
// under root. Keys map to slash-separated relative paths.
type Storage struct {
	root    string
	logger  observability.Logger
	metrics observability.Metrics
}

func NewStorage(root string, logger observability.Logger, metrics observability.Metrics) (*Storage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &Storage{
		root:    root,
		logger:  logger.WithFields(observability.Fields{"root": root}),
		metrics: metrics,
	}, nil
}

// observe records one call under "fs_<operation>". reason labels the error.
func (s *Storage) observe(operation string, start time.Time, reason string, err error) error {
	name := "fs_" + operation
	s.metrics.RecordDuration(name, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError(name, reason)
		return err
	}
	s.metrics.RecordSuccess(name)
	return nil
}

func (s *Storage) bucketDir(bucket string) (string, error) {
	dir := filepath.Join(s.root, bucket)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", types.ErrBucketNotFound, bucket)
	}
	return dir, nil
}

// objectPath rejects keys that would resolve outside the bucket.
func (s *Storage) objectPath(bucket, key string) (string, error) {
	dir := filepath.Join(s.root, bucket)
	key = strings.TrimPrefix(key, "/")
	path := filepath.Join(dir, filepath.FromSlash(key))
	if key == "" || !strings.HasPrefix(path, dir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return path, nil
}

// Put writes to a synced temp file and renames it into place, so a
// visible object is always complete.
func (s *Storage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	start := time.Now()
	if _, err := s.bucketDir(bucket); err != nil {
		return s.observe("put", start, "bucket", err)
	}
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return s.observe("put", start, "key", err)
	}

	written, err := writeAtomic(path, reader)
	if err != nil {
		s.logger.Error(ctx, "Failed to write object", err, observability.Fields{"bucket": bucket, "key": key})
		return s.observe("put", start, "write", fmt.Errorf("write %s/%s: %w", bucket, key, err))
	}

	metadata.ContentLength = written
	if err := writeMetadata(path, metadata); err != nil {
		return s.observe("put", start, "metadata", fmt.Errorf("write metadata for %s/%s: %w", bucket, key, err))
	}

	s.logger.Debug(ctx, "Object stored", observability.Fields{"bucket": bucket, "key": key, "bytes": written})
	return s.observe("put", start, "", nil)
}

func writeAtomic(path string, reader io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), tempPrefix+"*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, reader)
	if err == nil {
		err = tmp.Sync()
	}
	err = errors.Join(err, tmp.Close())
	if err != nil {
		return 0, err
	}
	return n, os.Rename(tmp.Name(), path)
}

func (s *Storage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	body, _, err := s.GetWithMetadata(ctx, bucket, key)
	return body, err
}

// GetWithMetadata fills ContentLength and LastModified from the file
// itself; the rest comes from the sidecar when there is one.
func (s *Storage) GetWithMetadata(_ context.Context, bucket, key string) (io.ReadCloser, *types.ObjectMetadata, error) {
	start := time.Now()
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, nil, s.observe("get", start, "key", err)
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, types.ErrObjectNotFound
	}
	if err != nil {
		return nil, nil, s.observe("get", start, "open", fmt.Errorf("open %s/%s: %w", bucket, key, err))
	}

	metadata, err := readMetadata(path)
	var info fs.FileInfo
	if err == nil {
		info, err = file.Stat()
	}
	if err != nil {
		file.Close()
		return nil, nil, s.observe("get", start, "stat", fmt.Errorf("describe %s/%s: %w", bucket, key, err))
	}
	metadata.ContentLength = info.Size()
	metadata.LastModified = info.ModTime().UTC()

	return file, &metadata, s.observe("get", start, "", nil)
}

// Delete of a missing object succeeds.
func (s *Storage) Delete(ctx context.Context, bucket, key string) error {
	start := time.Now()
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return s.observe("delete", start, "key", err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error(ctx, "Failed to delete object", err, observability.Fields{"bucket": bucket, "key": key})
		return s.observe("delete", start, "remove", fmt.Errorf("delete %s/%s: %w", bucket, key, err))
	}
	_ = os.Remove(path + metadataSuffix)
	return s.observe("delete", start, "", nil)
}

func (s *Storage) Exists(_ context.Context, bucket, key string) (bool, error) {
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return false, err
	}
	switch _, err := os.Stat(path); {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// List walks the bucket directory and returns objects sorted by key.
// Sidecars and temp files from an interrupted Put are skipped.
func (s *Storage) List(ctx context.Context, bucket, prefix string) ([]types.ObjectInfo, error) {
	start := time.Now()
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return nil, s.observe("list", start, "bucket", err)
	}

	var objects []types.ObjectInfo
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isObject(d.Name()) {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, types.ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime().UTC()})
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "Failed to list objects", err, observability.Fields{"bucket": bucket, "prefix": prefix})
		return nil, s.observe("list", start, "walk", fmt.Errorf("list %s/%s: %w", bucket, prefix, err))
	}

	slices.SortFunc(objects, func(a, b types.ObjectInfo) int { return strings.Compare(a.Key, b.Key) })
	return objects, s.observe("list", start, "", nil)
}

func isObject(name string) bool {
	return !strings.HasSuffix(name, metadataSuffix) && !strings.HasPrefix(name, tempPrefix)
}

func (s *Storage) CreateBucket(_ context.Context, bucket string) error {
	if err := os.MkdirAll(filepath.Join(s.root, bucket), 0o755); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

func writeMetadata(objectPath string, metadata types.ObjectMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(objectPath+metadataSuffix, data, 0o644)
}

// readMetadata returns zero metadata for an object without a sidecar.
func readMetadata(objectPath string) (types.ObjectMetadata, error) {
	var metadata types.ObjectMetadata
	data, err := os.ReadFile(objectPath + metadataSuffix)
	if errors.Is(err, fs.ErrNotExist) {
		return metadata, nil
	}
	if err != nil {
		return metadata, err
	}
	return metadata, json.Unmarshal(data, &metadata)
}
