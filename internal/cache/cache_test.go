package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func addVersion(t *testing.T, dir, v string, size int) {
	t.Helper()
	vdir := filepath.Join(dir, v)
	if err := os.MkdirAll(vdir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(vdir, "glint-linux-amd64"), make([]byte, size), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestManager_List(t *testing.T) {
	dir := t.TempDir()
	addVersion(t, dir, "1.2.0", 10)
	addVersion(t, dir, "1.10.0", 20)
	addVersion(t, dir, "1.9.1", 30)
	addVersion(t, dir, "scratch", 5)
	if err := os.WriteFile(filepath.Join(dir, "stray.part"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cached, err := NewManager(dir).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"1.10.0", "1.9.1", "1.2.0", "scratch"}
	if len(cached) != len(want) {
		t.Fatalf("List() returned %d entries, want %d", len(cached), len(want))
	}
	for i, v := range want {
		if cached[i].Version != v {
			t.Errorf("List()[%d] = %s, want %s", i, cached[i].Version, v)
		}
	}
	if cached[0].Size != 20 {
		t.Errorf("Size = %d, want 20", cached[0].Size)
	}
}

func TestManager_ListMissingDir(t *testing.T) {
	cached, err := NewManager(filepath.Join(t.TempDir(), "missing")).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(cached) != 0 {
		t.Errorf("List() = %v, want empty", cached)
	}
}

func TestManager_ListUnversionedByTime(t *testing.T) {
	dir := t.TempDir()
	addVersion(t, dir, "old", 1)
	addVersion(t, dir, "new", 1)

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "old"), past, past); err != nil {
		t.Fatal(err)
	}

	cached, err := NewManager(dir).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if cached[0].Version != "new" {
		t.Errorf("List()[0] = %s, want new", cached[0].Version)
	}
}

func TestManager_Get(t *testing.T) {
	dir := t.TempDir()
	addVersion(t, dir, "1.0.0", 1)
	addVersion(t, dir, "1.1.0", 1)
	m := NewManager(dir)

	latest, err := m.Get("latest")
	if err != nil || latest.Version != "1.1.0" {
		t.Errorf("Get(latest) = %v, %v; want 1.1.0", latest, err)
	}

	entry, err := m.Get("1.0.0")
	if err != nil || entry.Path != filepath.Join(dir, "1.0.0") {
		t.Errorf("Get(1.0.0) = %v, %v", entry, err)
	}

	if _, err := m.Get("2.0.0"); err == nil {
		t.Error("expected error for unknown version")
	}
	if _, err := NewManager(t.TempDir()).Get("latest"); err == nil {
		t.Error("expected error for empty cache")
	}
}

func TestManager_Delete(t *testing.T) {
	dir := t.TempDir()
	addVersion(t, dir, "1.0.0", 1)
	m := NewManager(dir)

	if err := m.Delete("1.0.0"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "1.0.0")); !os.IsNotExist(err) {
		t.Error("version directory should be gone")
	}
	if err := m.Delete("1.0.0"); err == nil {
		t.Error("expected error deleting a missing version")
	}
}
