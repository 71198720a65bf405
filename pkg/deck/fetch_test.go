package deck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestFetchLocalPathPassthrough(t *testing.T) {
	f := NewFetcher(t.TempDir(), 0)
	got, err := f.Fetch(context.Background(), "/images/ditre/sofa/alta/u1.jpg")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got != "/images/ditre/sofa/alta/u1.jpg" {
		t.Fatalf("local path rewritten to %q", got)
	}
}

func TestFetchDownloadsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("not-really-a-png"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 100)
	got, err := f.Fetch(context.Background(), srv.URL+"/img")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer os.Remove(got)

	if !strings.HasSuffix(got, ".png") {
		t.Fatalf("extension not taken from Content-Type: %q", got)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != "not-really-a-png" {
		t.Fatalf("downloaded body = %q", data)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 100)
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.jpg"); err == nil {
		t.Fatal("Fetch of 404 should fail")
	}
}

func TestExtFor(t *testing.T) {
	tests := []struct {
		contentType, ref, want string
	}{
		{"image/png", "https://x/y", ".png"},
		{"image/webp", "https://x/y", ".webp"},
		{"image/jpeg", "https://x/y", ".jpg"},
		{"", "https://x/y.PNG", ".png"},
		{"", "https://x/y.jpeg", ".jpeg"},
		{"text/plain", "https://x/y", ".jpg"},
	}
	for _, tt := range tests {
		if got := extFor(tt.contentType, tt.ref); got != tt.want {
			t.Errorf("extFor(%q, %q) = %q, want %q", tt.contentType, tt.ref, got, tt.want)
		}
	}
}
