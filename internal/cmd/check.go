package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

func newCheckCmd(flags *globalFlags, build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the release feed for a newer version",
		Long: `Ask the configured feed for the newest release and compare it with the
running version.

Examples:
  glint check           # Human readable report
  glint check -o json   # Same result the UI receives`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			comps, err := buildComponents(s.cfg, build, false)
			if err != nil {
				return err
			}
			defer comps.updater.Close()

			return runCheck(s, comps)
		},
	}
}

func runCheck(s *session, comps *components) error {
	res := comps.coordinator.CheckForUpdates(s.context)
	if err := s.out.Write(res); err != nil {
		return err
	}
	if !res.Success {
		return errors.New("update check failed")
	}
	return nil
}
