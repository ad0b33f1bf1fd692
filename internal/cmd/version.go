package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adamancini/glint/internal/coordinator"
)

// versionReport adds build details to the version the UI sees
type versionReport struct {
	coordinator.VersionInfo `yaml:",inline"`
	Commit                  string `json:"commit" yaml:"commit"`
	Date                    string `json:"date" yaml:"date"`
}

func newVersionCmd(flags *globalFlags, build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the running glint version.

Examples:
  glint version           # Name and version
  glint version -v        # Include commit and build date
  glint version -o json   # Machine readable`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			return runVersion(s, build)
		},
	}
}

func runVersion(s *session, build BuildInfo) error {
	info := coordinator.VersionInfo{Name: s.cfg.App.Name, Version: build.Version}
	if !s.out.Structured() {
		if err := s.out.Write(info); err != nil {
			return err
		}
		if s.flags.verbose {
			s.say("commit: %s\nbuilt:  %s", build.Commit, build.Date)
		}
		return nil
	}
	return s.out.Write(versionReport{VersionInfo: info, Commit: build.Commit, Date: build.Date})
}
