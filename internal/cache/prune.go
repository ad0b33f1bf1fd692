package cache

import (
	"fmt"
)

// DefaultKeepCount is the default number of cached versions to retain.
const DefaultKeepCount = 2

// PruneResult contains information about what was pruned.
type PruneResult struct {
	Deleted []Entry `json:"deleted" yaml:"deleted"`
	Kept    int     `json:"kept" yaml:"kept"`
}

// Prune removes old versions, keeping only the newest keep of them. Versions
// listed in protect are never removed and do not count against keep.
func (m *Manager) Prune(keep int, protect ...string) (*PruneResult, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep count must be non-negative")
	}

	cached, err := m.List()
	if err != nil {
		return nil, err
	}

	protected := make(map[string]bool, len(protect))
	for _, v := range protect {
		protected[v] = true
	}

	result := &PruneResult{}
	kept := 0
	for _, entry := range cached {
		if protected[entry.Version] {
			result.Kept++
			continue
		}
		if kept < keep {
			kept++
			result.Kept++
			continue
		}
		if err := m.Delete(entry.Version); err != nil {
			return nil, fmt.Errorf("failed to delete cached update %s: %w", entry.Version, err)
		}
		result.Deleted = append(result.Deleted, entry)
	}

	return result, nil
}
