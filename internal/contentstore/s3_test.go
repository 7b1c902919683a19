package contentstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"revsite/internal/site"
)

// fakeS3 serves a single bucket over path-style requests. It keeps the size
// of every object, and its bytes when the upload was not chunk-encoded.
type fakeS3 struct {
	bucket string

	mu      sync.Mutex
	sizes   map[string]int64
	objects map[string][]byte
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{
		bucket:  bucket,
		sizes:   make(map[string]int64),
		objects: make(map[string][]byte),
	}
}

func (f *fakeS3) put(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizes[key] = int64(len(data))
	f.objects[key] = data
}

func (f *fakeS3) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sizes[key]
	return ok
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest, ok := strings.CutPrefix(r.URL.Path, "/"+f.bucket)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		http.Error(w, "no such bucket", http.StatusNotFound)
		return
	}
	key := strings.TrimPrefix(rest, "/")
	if key == "" {
		// HeadBucket
		w.WriteHeader(http.StatusOK)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	size, exists := f.sizes[key]

	switch r.Method {
	case http.MethodHead:
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		if !exists {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		data := f.objects[key]
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		w.Write(data)

	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if decoded := r.Header.Get("X-Amz-Decoded-Content-Length"); decoded != "" {
			n, err := strconv.ParseInt(decoded, 10, 64)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.sizes[key] = n
			f.objects[key] = nil
		} else {
			f.sizes[key] = int64(len(body))
			f.objects[key] = body
		}
		w.Header().Set("ETag", `"fake"`)
		w.WriteHeader(http.StatusOK)

	case http.MethodDelete:
		delete(f.sizes, key)
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func newTestS3Store(t *testing.T, prefix string) (*S3Store, *fakeS3) {
	t.Helper()

	fake := newFakeS3("site-cache")
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test", "test", ""),
	})
	return NewS3StoreFromClient(client, fake.bucket, prefix), fake
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()

	t.Run("stat miss", func(t *testing.T) {
		store, _ := newTestS3Store(t, "blobs")

		size, ok, err := store.StatContent(ctx, "abc")
		if err != nil {
			t.Fatalf("StatContent() error = %v", err)
		}
		if ok || size != 0 {
			t.Errorf("StatContent() = %d, %v, want 0, false", size, ok)
		}
	})

	t.Run("put then stat", func(t *testing.T) {
		store, fake := newTestS3Store(t, "blobs")

		data := []byte("hello")
		if err := store.PutContent(ctx, "abc", bytes.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}
		if !fake.has("blobs/abc") {
			t.Fatal("object not stored under prefix")
		}

		size, ok, err := store.StatContent(ctx, "abc")
		if err != nil {
			t.Fatalf("StatContent() error = %v", err)
		}
		if !ok || size != int64(len(data)) {
			t.Errorf("StatContent() = %d, %v, want %d, true", size, ok, len(data))
		}
	})

	t.Run("put existing key with same size is a no-op", func(t *testing.T) {
		store, fake := newTestS3Store(t, "")
		fake.put("abc", []byte("hello"))

		if err := store.PutContent(ctx, "abc", bytes.NewReader([]byte("world")), 5); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}

		var buf bytes.Buffer
		if err := store.GetContent(ctx, "abc", &buf); err != nil {
			t.Fatalf("GetContent() error = %v", err)
		}
		if buf.String() != "hello" {
			t.Errorf("content = %q, want original %q", buf.String(), "hello")
		}
	})

	t.Run("put existing key with different size", func(t *testing.T) {
		store, _ := newTestS3Store(t, "blobs")

		data := []byte("hello")
		if err := store.PutContent(ctx, "abc", bytes.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}

		longer := []byte("hello!")
		err := store.PutContent(ctx, "abc", bytes.NewReader(longer), int64(len(longer)))
		if !errors.Is(err, site.ErrIntegrity) {
			t.Errorf("PutContent() error = %v, want ErrIntegrity", err)
		}
	})

	t.Run("get", func(t *testing.T) {
		store, fake := newTestS3Store(t, "blobs")
		fake.put("blobs/abc", []byte("stored bytes"))

		var buf bytes.Buffer
		if err := store.GetContent(ctx, "abc", &buf); err != nil {
			t.Fatalf("GetContent() error = %v", err)
		}
		if buf.String() != "stored bytes" {
			t.Errorf("GetContent() = %q, want %q", buf.String(), "stored bytes")
		}
	})

	t.Run("get miss", func(t *testing.T) {
		store, _ := newTestS3Store(t, "blobs")

		err := store.GetContent(ctx, "missing", io.Discard)
		if !errors.Is(err, site.ErrContentNotFound) {
			t.Errorf("GetContent() error = %v, want ErrContentNotFound", err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		store, fake := newTestS3Store(t, "blobs")
		fake.put("blobs/abc", []byte("x"))

		if err := store.RemoveContent(ctx, "abc"); err != nil {
			t.Fatalf("RemoveContent() error = %v", err)
		}
		if fake.has("blobs/abc") {
			t.Error("object still present after RemoveContent")
		}
	})

	t.Run("remove miss", func(t *testing.T) {
		store, _ := newTestS3Store(t, "blobs")

		err := store.RemoveContent(ctx, "missing")
		if !errors.Is(err, site.ErrContentNotFound) {
			t.Errorf("RemoveContent() error = %v, want ErrContentNotFound", err)
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		store, _ := newTestS3Store(t, "")

		if err := store.ValidateSetup(ctx); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("validate setup with missing bucket", func(t *testing.T) {
		store, fake := newTestS3Store(t, "")
		store.bucket = fake.bucket + "-other"

		if err := store.ValidateSetup(ctx); err == nil {
			t.Error("ValidateSetup() succeeded for a missing bucket")
		}
	})
}
