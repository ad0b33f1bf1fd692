package cache

import (
	"testing"
)

func TestManager_Prune(t *testing.T) {
	dir := t.TempDir()
	for _, v := range []string{"1.0.0", "1.1.0", "1.2.0", "1.3.0", "1.4.0"} {
		addVersion(t, dir, v, 1)
	}
	m := NewManager(dir)

	result, err := m.Prune(2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	if result.Kept != 2 {
		t.Errorf("Prune() Kept = %v, want 2", result.Kept)
	}
	if len(result.Deleted) != 3 {
		t.Errorf("Prune() Deleted count = %v, want 3", len(result.Deleted))
	}

	cached, err := m.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(cached) != 2 || cached[0].Version != "1.4.0" || cached[1].Version != "1.3.0" {
		t.Errorf("List() after prune = %+v", cached)
	}
}

func TestManager_PruneProtected(t *testing.T) {
	dir := t.TempDir()
	for _, v := range []string{"1.0.0", "1.1.0", "1.2.0"} {
		addVersion(t, dir, v, 1)
	}
	m := NewManager(dir)

	result, err := m.Prune(0, "1.0.0")
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if result.Kept != 1 || len(result.Deleted) != 2 {
		t.Errorf("Prune() = %+v, want 1 kept and 2 deleted", result)
	}

	cached, _ := m.List()
	if len(cached) != 1 || cached[0].Version != "1.0.0" {
		t.Errorf("protected version should remain, got %+v", cached)
	}
}

func TestManager_PruneNoOp(t *testing.T) {
	dir := t.TempDir()
	addVersion(t, dir, "1.0.0", 1)

	result, err := NewManager(dir).Prune(DefaultKeepCount)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if result.Kept != 1 || len(result.Deleted) != 0 {
		t.Errorf("Prune() = %+v, want nothing deleted", result)
	}
}

func TestManager_PruneNegative(t *testing.T) {
	if _, err := NewManager(t.TempDir()).Prune(-1); err == nil {
		t.Error("expected error for negative keep")
	}
}
