package s3

import (
	"context"
	"encoding/pem"
	"io"
	"os"
	"path/filepath"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsync/shared/config"
	"petsync/shared/observability"
	"petsync/shared/storage/types"
)

// fakeS3 is a minimal path-style S3 endpoint backed by a map.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		w.Header().Set("Content-Type", "application/xml")
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
		b.WriteString(`<Name>` + path + `</Name><IsTruncated>false</IsTruncated>`)
		for key, data := range f.objects {
			bucket, name, _ := strings.Cut(key, "/")
			if bucket != path || !strings.HasPrefix(name, r.URL.Query().Get("prefix")) {
				continue
			}
			b.WriteString(`<Contents><Key>` + name + `</Key><LastModified>2024-01-02T03:04:05.000Z</LastModified>`)
			b.WriteString(`<ETag>"etag"</ETag><Size>` + strconv.Itoa(len(data)) + `</Size></Contents>`)
		}
		b.WriteString(`</ListBucketResult>`)
		_, _ = io.WriteString(w, b.String())
	case r.Method == http.MethodGet:
		data, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write(data)
	case r.Method == http.MethodPut:
		// body framing varies with checksum mode; only presence matters here
		data, _ := io.ReadAll(r.Body)
		f.objects[path] = data
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		if _, ok := f.objects[path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete:
		delete(f.objects, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, _ := newObservedClient(t, server)
	return client
}

func newObservedClient(t *testing.T, server *httptest.Server) (*Client, *observability.DefaultProvider) {
	t.Helper()
	provider := observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: io.Discard})

	client, err := NewClient(&config.StorageConfig{
		Provider:   "s3",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		S3: config.S3Config{
			Region:          "us-east-1",
			AccessKeyID:     "test",
			SecretAccessKey: "test",
			Endpoint:        server.URL,
			UsePathStyle:    true,
			ConfirmTimeout:  5 * time.Second,
		},
	}, provider.Logger("storage.s3"), provider.Metrics("storage.s3"))
	require.NoError(t, err)
	return client, provider
}

func TestClient_PutListDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	server := httptest.NewServer(fake)
	defer server.Close()

	client := newTestClient(t, server)
	ctx := context.Background()

	err := client.Put(ctx, "input", "1-1700000000000.csv", strings.NewReader("id,owner_id,name\n"), types.ObjectMetadata{ContentType: "text/csv"})
	require.NoError(t, err)

	exists, err := client.Exists(ctx, "input", "1-1700000000000.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	objects, err := client.List(ctx, "input", "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "1-1700000000000.csv", objects[0].Key)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), objects[0].LastModified)

	require.NoError(t, client.Delete(ctx, "input", "1-1700000000000.csv"))

	exists, err = client.Exists(ctx, "input", "1-1700000000000.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_ListFiltersByPrefix(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"output/batch/a.csv": []byte("a"),
		"output/other.csv":   []byte("b"),
	}}
	server := httptest.NewServer(fake)
	defer server.Close()

	client := newTestClient(t, server)

	objects, err := client.List(context.Background(), "output", "batch/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "batch/a.csv", objects[0].Key)
	assert.Equal(t, int64(1), objects[0].Size)
}

func TestClient_Get(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"output/1-1.csv": []byte("id,name\n1,Rex\n")}}
	server := httptest.NewServer(fake)
	defer server.Close()

	client, provider := newObservedClient(t, server)
	ctx := context.Background()

	body, meta, err := client.GetWithMetadata(ctx, "output", "1-1.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Rex\n", string(data))
	assert.Equal(t, "text/csv", meta.ContentType)

	_, err = client.Get(ctx, "output", "missing.csv")
	assert.ErrorIs(t, err, types.ErrObjectNotFound)

	failures, err := testutil.GatherAndCount(provider.Registry(), "petsync_errors_total")
	require.NoError(t, err)
	assert.Zero(t, failures, "a missing key is not a request failure")
}

func TestNewClient_HonoursCABundle(t *testing.T) {
	server := httptest.NewTLSServer(&fakeS3{objects: map[string][]byte{}})
	defer server.Close()

	bundle := filepath.Join(t.TempDir(), "ca.pem")
	cert := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
	require.NoError(t, os.WriteFile(bundle, cert, 0o644))
	t.Setenv("AWS_CA_BUNDLE", bundle)

	client := newTestClient(t, server)

	exists, err := client.Exists(context.Background(), "input", "none.csv")
	require.NoError(t, err, "the bundle makes the test server trusted")
	assert.False(t, exists)
}

func TestNewClient_InvalidConfig(t *testing.T) {
	provider := observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: io.Discard})

	_, err := NewClient(&config.StorageConfig{
		Provider: "s3",
		S3:       config.S3Config{Region: "us-east-1", AccessKeyID: "only-key"},
	}, provider.Logger("storage.s3"), provider.Metrics("storage.s3"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid S3 configuration")
}
