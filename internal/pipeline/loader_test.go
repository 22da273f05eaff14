package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dkarpov/annotext/internal/model"
)

func testLoader(t *testing.T) *Loader {
	t.Helper()
	return NewLoader(model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "annotext-test/0.1",
		MaxBodyBytes: 1 << 20,
	}, nil)
}

func TestLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("The parks are clean."), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := testLoader(t).Load(context.Background(), path, "en")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Text != "The parks are clean." || doc.Language != "en" {
		t.Errorf("doc: %q %q", doc.Text, doc.Language)
	}
	if doc.Store() == nil || doc.Store().Len() != 0 {
		t.Error("fresh document must carry an empty store")
	}
}

func TestLoader_EmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.txt")
	if err := os.WriteFile(path, []byte("   \n\t  "), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := testLoader(t).Load(context.Background(), path, "en"); err == nil {
		t.Error("whitespace-only document accepted")
	}
}

func TestLoader_MissingFile(t *testing.T) {
	if _, err := testLoader(t).Load(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), "en"); err == nil {
		t.Error("missing file accepted")
	}
}

func TestLoader_URLPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "annotext-test") {
			t.Errorf("user agent: %q", ua)
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Fetched document body."))
	}))
	defer srv.Close()

	doc, err := testLoader(t).Load(context.Background(), srv.URL+"/doc", "en")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Text != "Fetched document body." {
		t.Errorf("text: %q", doc.Text)
	}
}

func TestLoader_URLHTMLIsReducedToVisibleText(t *testing.T) {
	const page = `<html><head><title>T</title><style>body{}</style></head>` +
		`<body><script>alert(1)</script><p>The parks are clean.</p><p>Really.</p></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	doc, err := testLoader(t).Load(context.Background(), srv.URL+"/page", "en")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Contains(doc.Text, "alert") || strings.Contains(doc.Text, "body{}") {
		t.Errorf("script or style leaked into text: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "The parks are clean.") || !strings.Contains(doc.Text, "Really.") {
		t.Errorf("visible text lost: %q", doc.Text)
	}
}

func TestLoader_URLRobotsDisallowed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secret"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	loader := testLoader(t)
	if _, err := loader.Load(context.Background(), srv.URL+"/private/doc", "en"); err == nil {
		t.Error("robots-disallowed fetch succeeded")
	}

	// Paths outside the disallow rule stay fetchable.
	if _, err := loader.Load(context.Background(), srv.URL+"/public/doc", "en"); err != nil {
		t.Errorf("allowed fetch failed: %v", err)
	}
}

func TestLoader_URLBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := testLoader(t).Load(context.Background(), srv.URL+"/doc", "en"); err == nil {
		t.Error("5xx response accepted")
	}
}

func TestLoader_MaxBodyBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	loader := NewLoader(model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "annotext-test/0.1",
		MaxBodyBytes: 10,
	}, nil)
	doc, err := loader.Load(context.Background(), srv.URL+"/doc", "en")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.Text) != 10 {
		t.Errorf("body not truncated: %d bytes", len(doc.Text))
	}
}

func TestVisibleText(t *testing.T) {
	got, err := visibleText(`<div>one <b>two</b><script>x()</script> three</div>`)
	if err != nil {
		t.Fatal(err)
	}
	if got != "one two three" {
		t.Errorf("visible text: %q", got)
	}
}
