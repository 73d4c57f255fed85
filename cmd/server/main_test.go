package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"field-route-service/internal/config"
)

func testConfig(dir string) config.Config {
	return config.Config{
		Port:             "0",
		DBPath:           filepath.Join(dir, "app.db"),
		SeedPath:         filepath.Join(dir, "missing-seed.json"),
		OptimizerURL:     "local",
		OptimizerTimeout: time.Second,
		OptimizerRate:    1,
	}
}

func TestRunReturnsStoreError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	cfg := testConfig(dir)
	cfg.DBPath = filepath.Join(blocker, "app.db")

	if err := run(context.Background(), cfg); err == nil {
		t.Fatalf("run err = nil, want store open error")
	}
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, testConfig(t.TempDir())) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run err = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not return after context ended")
	}
}
