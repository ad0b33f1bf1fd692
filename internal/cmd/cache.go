package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamancini/glint/internal/cache"
	"github.com/adamancini/glint/internal/update"
)

func newCacheCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune downloaded updates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List downloaded updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			return runCacheList(s, cacheManager(s))
		},
	})

	var keep int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Remove all but the newest downloaded updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			return runCachePrune(s, cacheManager(s), keep)
		},
	}
	prune.Flags().IntVar(&keep, "keep", cache.DefaultKeepCount, "Number of versions to keep")
	cmd.AddCommand(prune)

	cmd.AddCommand(&cobra.Command{
		Use:   "show [version|latest]",
		Short: "Show one downloaded update",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			v := "latest"
			if len(args) == 1 {
				v = args[0]
			}
			return runCacheShow(s, cacheManager(s), v)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <version>",
		Short: "Remove one downloaded update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			return runCacheDelete(s, cacheManager(s), args[0])
		},
	})

	return cmd
}

// cacheManager opens the cache without wiring the whole updater
func cacheManager(s *session) *cache.Manager {
	dir := s.cfg.Updater.DownloadDir
	if dir == "" {
		dir = update.DefaultDownloadDir()
	}
	return cache.NewManager(dir)
}

// cacheList renders as a table in text mode
type cacheList []cache.Entry

func (l cacheList) String() string {
	if len(l) == 0 {
		return "No downloaded updates"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %10s  %s", "VERSION", "SIZE", "DOWNLOADED")
	for _, e := range l {
		fmt.Fprintf(&b, "\n%-16s %10d  %s", e.Version, e.Size, e.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

// cacheEntry renders one entry in text mode
type cacheEntry cache.Entry

func (e cacheEntry) String() string {
	return fmt.Sprintf("Version:    %s\nPath:       %s\nSize:       %d\nDownloaded: %s",
		e.Version, e.Path, e.Size, e.UpdatedAt.Format("2006-01-02 15:04"))
}

func runCacheShow(s *session, m *cache.Manager, v string) error {
	entry, err := m.Get(v)
	if err != nil {
		return err
	}
	if s.out.Structured() {
		return s.out.Write(entry)
	}
	return s.out.Write(cacheEntry(*entry))
}

func runCacheDelete(s *session, m *cache.Manager, v string) error {
	if err := m.Delete(v); err != nil {
		return err
	}
	s.say("Removed %s", v)
	return nil
}

func runCacheList(s *session, m *cache.Manager) error {
	cached, err := m.List()
	if err != nil {
		return err
	}
	if s.out.Structured() {
		return s.out.Write(cached)
	}
	return s.out.Write(cacheList(cached))
}

func runCachePrune(s *session, m *cache.Manager, keep int) error {
	result, err := m.Prune(keep)
	if err != nil {
		return err
	}
	if s.out.Structured() {
		return s.out.Write(result)
	}
	for _, e := range result.Deleted {
		s.say("Removed %s", e.Version)
	}
	s.say("Kept %d", result.Kept)
	return nil
}
