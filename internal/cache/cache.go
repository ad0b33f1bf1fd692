// Package cache manages the directory downloaded updates are staged in.
// Every version gets its own subdirectory.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-version"
)

// Entry describes one cached version
type Entry struct {
	Version   string    `json:"version" yaml:"version"`
	Path      string    `json:"path" yaml:"path"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	Size      int64     `json:"size" yaml:"size"`
}

// Manager handles the download cache.
type Manager struct {
	dir string
}

// NewManager creates a manager for dir
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Dir returns the cache directory
func (m *Manager) Dir() string {
	return m.dir
}

// List returns the cached versions, newest first. Directories whose name is
// not a version sort after the rest, most recently modified first.
func (m *Manager) List() ([]Entry, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var cached []Entry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		size, err := dirSize(path)
		if err != nil {
			continue
		}

		cached = append(cached, Entry{
			Version:   entry.Name(),
			Path:      path,
			UpdatedAt: info.ModTime(),
			Size:      size,
		})
	}

	sort.SliceStable(cached, func(i, j int) bool {
		return newer(cached[i], cached[j])
	})

	return cached, nil
}

func newer(a, b Entry) bool {
	va, errA := version.NewVersion(a.Version)
	vb, errB := version.NewVersion(b.Version)
	switch {
	case errA == nil && errB == nil:
		return va.GreaterThan(vb)
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a.UpdatedAt.After(b.UpdatedAt)
	}
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// Get returns a cached version. Use "latest" for the newest one.
func (m *Manager) Get(v string) (*Entry, error) {
	cached, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(cached) == 0 {
		return nil, fmt.Errorf("no cached updates found")
	}
	if v == "latest" {
		return &cached[0], nil
	}
	for i := range cached {
		if cached[i].Version == v {
			return &cached[i], nil
		}
	}
	return nil, fmt.Errorf("cached update not found: %s", v)
}

// Delete removes a cached version.
func (m *Manager) Delete(v string) error {
	path := filepath.Join(m.dir, filepath.Base(v))

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("cached update not found: %s", v)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete cached update: %w", err)
	}

	return nil
}
