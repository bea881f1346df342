package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tendant/simple-cms/pkg/cms"
)

func TestFSBackend_StoreAndRemove(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()

	url, err := backend.Store(ctx, strings.NewReader("hello fs"), cms.StoreParams{ObjectKey: "1700000000000.txt"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if url != "/uploads/1700000000000.txt" {
		t.Fatalf("unexpected url %q", url)
	}

	got, err := os.ReadFile(filepath.Join(tmp, "1700000000000.txt"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(got) != "hello fs" {
		t.Fatalf("content mismatch: %q", string(got))
	}

	if err := backend.Remove(ctx, url); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "1700000000000.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}

	// Removing again is not an error
	if err := backend.Remove(ctx, url); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestFSBackend_NestedKeysCleanUp(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp, URLPrefix: "/static/"})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()

	url, err := backend.Store(ctx, strings.NewReader("x"), cms.StoreParams{ObjectKey: "ab/cdef.png"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if url != "/static/ab/cdef.png" {
		t.Fatalf("unexpected url %q", url)
	}

	if err := backend.Remove(ctx, url); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "ab")); !os.IsNotExist(err) {
		t.Fatalf("expected empty shard directory removed, stat err=%v", err)
	}
	if _, err := os.Stat(tmp); err != nil {
		t.Fatalf("base directory must survive cleanup: %v", err)
	}
}

func TestFSBackend_RejectsEscapingKeys(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: filepath.Join(tmp, "uploads")})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()

	if _, err := backend.Store(ctx, strings.NewReader("x"), cms.StoreParams{ObjectKey: "../outside.txt"}); err == nil {
		t.Fatal("expected error for key escaping base directory")
	}
	if _, err := os.Stat(filepath.Join(tmp, "outside.txt")); !os.IsNotExist(err) {
		t.Fatalf("file must not be written outside base dir, stat err=%v", err)
	}

	if err := backend.Remove(ctx, "/uploads/../../etc/passwd"); err == nil {
		t.Fatal("expected error for url escaping base directory")
	}
}

func TestFSBackend_IgnoresForeignURLs(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	if err := backend.Remove(context.Background(), "https://cdn.example.com/a.png"); err != nil {
		t.Fatalf("expected foreign url to be ignored, got %v", err)
	}
}

func TestFSBackend_RequiresBaseDir(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without base directory")
	}
}
