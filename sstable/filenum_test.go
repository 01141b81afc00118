package sstable

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFileNumberingStartsAtZeroForEmptyDir(t *testing.T) {
	dir := t.TempDir()
	fn, st := NewFileNumbering(dir)
	if !st.Ok() {
		t.Fatal(st)
	}

	id, path := fn.Next()
	if id != 0 {
		t.Fatalf("expected first id 0, got %d", id)
	}
	if filepath.Base(path) != "000000.sst" {
		t.Fatalf("got path %q, want 000000.sst", path)
	}
}

func TestNewFileNumberingResumesAfterHighestExisting(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000000.sst", "000003.sst", "000001.sst"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// A non-matching file must be ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	fn, st := NewFileNumbering(dir)
	if !st.Ok() {
		t.Fatal(st)
	}

	id, _ := fn.Next()
	if id != 4 {
		t.Fatalf("expected to resume at 4, got %d", id)
	}
}

func TestFileNumberingCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "tables")
	if _, st := NewFileNumbering(dir); !st.Ok() {
		t.Fatal(st)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory to be created")
	}
}
