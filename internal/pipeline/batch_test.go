package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestBatchProcessor_Process(t *testing.T) {
	p, err := NewPipeline(testConfig(t), nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	dir := t.TempDir()
	var sources []string
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, fmt.Sprintf("doc%d.txt", i))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("Document number %d is fine.", i)), 0o644); err != nil {
			t.Fatal(err)
		}
		sources = append(sources, path)
	}

	results := NewBatchProcessor(p, 2).Process(context.Background(), sources, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, res := range results {
		if res.GetError() != nil {
			t.Errorf("source %s: %v", res.Source, res.GetError())
		}
		if res.Report == nil || res.Report.Status != string(StatusCompleted) {
			t.Errorf("source %s: report %+v", res.Source, res.Report)
		}
	}
}

func TestBatchProcessor_ErrorsAreIsolated(t *testing.T) {
	p, err := NewPipeline(testConfig(t), nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	good := filepath.Join(t.TempDir(), "good.txt")
	if err := os.WriteFile(good, []byte("A perfectly normal sentence."), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(t.TempDir(), "missing.txt")

	results := NewBatchProcessor(p, 2).Process(context.Background(), []string{good, missing}, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	failed := 0
	for _, res := range results {
		if res.GetError() != nil {
			failed++
			if res.Source != missing {
				t.Errorf("wrong source failed: %s", res.Source)
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	p, err := NewPipeline(testConfig(t), nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if results := NewBatchProcessor(p, 2).Process(context.Background(), nil, nil); len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}
