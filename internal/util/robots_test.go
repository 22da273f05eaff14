package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_DisallowedPath(t *testing.T) {
	var robotsHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&robotsHits, 1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	checker := NewRobotsChecker("annotext-test/0.1", 5*time.Second)
	ctx := context.Background()

	allowed, err := checker.CanFetch(ctx, srv.URL+"/private/doc")
	if err != nil || allowed {
		t.Errorf("disallowed path: allowed=%v err=%v", allowed, err)
	}
	allowed, err = checker.CanFetch(ctx, srv.URL+"/public/doc")
	if err != nil || !allowed {
		t.Errorf("allowed path: allowed=%v err=%v", allowed, err)
	}

	// Same host, one robots.txt fetch.
	if atomic.LoadInt32(&robotsHits) != 1 {
		t.Errorf("robots.txt fetched %d times", robotsHits)
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	checker := NewRobotsChecker("annotext-test/0.1", 5*time.Second)
	allowed, err := checker.CanFetch(context.Background(), srv.URL+"/anything")
	if err != nil || !allowed {
		t.Errorf("404 robots.txt must allow: allowed=%v err=%v", allowed, err)
	}
}

func TestRobotsChecker_UnreachableHostAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	checker := NewRobotsChecker("annotext-test/0.1", time.Second)
	allowed, err := checker.CanFetch(context.Background(), srv.URL+"/doc")
	if err != nil || !allowed {
		t.Errorf("unreachable robots.txt must allow: allowed=%v err=%v", allowed, err)
	}
}
