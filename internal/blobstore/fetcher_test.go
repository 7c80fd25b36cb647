package blobstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verinews/relayer/internal/cache"
	"github.com/verinews/relayer/internal/model"
)

func TestFetch_PlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blob123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte("Paris is the capital of France. I think it's beautiful."))
	}))
	defer server.Close()

	f := NewFetcher(server.URL, 5*time.Second, 1<<20, nil, 0)

	text, err := f.Fetch(context.Background(), "blob123")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if text != "Paris is the capital of France. I think it's beautiful." {
		t.Errorf("unexpected body: %q", text)
	}
}

func TestFetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewFetcher(server.URL, 5*time.Second, 1<<20, nil, 0)

	_, err := f.Fetch(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	var fetchErr *model.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *model.FetchError, got %T", err)
	}
	if fetchErr.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", fetchErr.Status)
	}
}

func TestFetch_StripsHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<!DOCTYPE html><html><head><script>alert(1)</script></head><body><p>Paris is the capital of France.</p></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher(server.URL, 5*time.Second, 1<<20, nil, 0)

	text, err := f.Fetch(context.Background(), "article.html")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if strings.Contains(text, "alert") {
		t.Errorf("script content leaked into text: %q", text)
	}
	if !strings.Contains(text, "Paris is the capital of France.") {
		t.Errorf("visible text missing: %q", text)
	}
}

func TestFetch_CacheHit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("cached body"))
	}))
	defer server.Close()

	articles := cache.NewMemoryCache(time.Minute, time.Minute)
	f := NewFetcher(server.URL, 5*time.Second, 1<<20, articles, time.Minute)

	for i := 0; i < 3; i++ {
		text, err := f.Fetch(context.Background(), "blob123")
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
		if text != "cached body" {
			t.Errorf("unexpected body: %q", text)
		}
	}

	if hits.Load() != 1 {
		t.Errorf("gateway hit %d times, want 1", hits.Load())
	}
}

func TestFetch_Unreachable(t *testing.T) {
	f := NewFetcher("http://127.0.0.1:1", time.Second, 1<<20, nil, 0)

	_, err := f.Fetch(context.Background(), "blob123")
	if err == nil {
		t.Fatal("expected error")
	}
	var fetchErr *model.FetchError
	if !errors.As(err, &fetchErr) {
		t.Errorf("expected *model.FetchError, got %T", err)
	}
}
