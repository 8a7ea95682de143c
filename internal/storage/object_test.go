package storage

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"inmomarket/internal/config"
	"inmomarket/internal/models"
	"inmomarket/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 accepts object PUT and DELETE requests and remembers which keys exist.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	denyPut bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		if f.denyPut {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
			return
		}
		f.objects[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestObjectStore(t *testing.T, backend *fakeS3) *ObjectStore {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	store, err := NewObjectStore(context.Background(), ObjectStoreConfig{
		Endpoint:        strings.TrimPrefix(srv.URL, "http://"),
		AccessKey:       "test",
		SecretKey:       "testsecret",
		Bucket:          "listings",
		SkipBucketCheck: true,
	})
	require.NoError(t, err)
	return store
}

func TestObjectStore_UploadAndDelete(t *testing.T) {
	backend := &fakeS3{objects: map[string]string{}}
	store := newTestObjectStore(t, backend)
	ctx := context.Background()

	refs, err := store.Upload(ctx, 3, []ImageUpload{{Filename: "a.png", Content: testutil.TinyPNG(t, 8, 8)}})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Contains(t, refs[0].URL, "/listings/publications/3/")

	backend.mu.Lock()
	assert.Len(t, backend.objects, 2)
	assert.Equal(t, "image/jpeg", backend.objects["/listings/"+refs[0].Key+".jpg"])
	assert.Equal(t, "image/webp", backend.objects["/listings/"+refs[0].Key+".webp"])
	backend.mu.Unlock()

	require.NoError(t, store.Delete(ctx, refs[0]))
	backend.mu.Lock()
	assert.Empty(t, backend.objects)
	backend.mu.Unlock()
}

func TestObjectStore_UploadFailureIsImageStoreError(t *testing.T) {
	backend := &fakeS3{objects: map[string]string{}, denyPut: true}
	store := newTestObjectStore(t, backend)

	refs, err := store.Upload(context.Background(), 3, []ImageUpload{{Filename: "a.png", Content: testutil.TinyPNG(t, 8, 8)}})
	assert.Nil(t, refs)
	assert.True(t, models.IsCode(err, models.CodeImageStore), "got %v", err)
}

func TestNewObjectStore_RequiresBucket(t *testing.T) {
	_, err := NewObjectStore(context.Background(), ObjectStoreConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestNew_SelectsBackend(t *testing.T) {
	store, err := New(context.Background(), &config.Config{ImageStore: "local", ImageUploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = New(context.Background(), &config.Config{ImageStore: "ftp"})
	assert.Error(t, err)
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}
