package cmd

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adamancini/glint/internal/interactive"
	"github.com/adamancini/glint/internal/surface"
	"github.com/adamancini/glint/internal/types"
	"github.com/adamancini/glint/internal/update"
)

// confirmer asks before downloading and before installing
type confirmer interface {
	ConfirmDownload(current, latest string) bool
	ConfirmRestart(version string) bool
}

// autoConfirm answers yes to everything, for --yes
type autoConfirm struct{}

func (autoConfirm) ConfirmDownload(string, string) bool { return true }
func (autoConfirm) ConfirmRestart(string) bool          { return true }

func newUpdateCmd(flags *globalFlags, build BuildInfo) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download and install the latest version",
		Long: `Check the feed, download the newest release, verify it and replace the
running binary.

Declining the install leaves the update staged; it is installed when glint
exits if updater.auto_install_on_app_quit is set.

Examples:
  glint update         # Ask before downloading and installing
  glint update --yes   # No questions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}

			var c confirmer = autoConfirm{}
			if !yes {
				if !interactive.IsTerminal() {
					return errors.New("not a terminal, use --yes to update without confirmation")
				}
				c = interactive.NewPrompter()
			}

			comps, err := buildComponents(s.cfg, build, false)
			if err != nil {
				return err
			}
			defer comps.app.Quit()

			return runUpdate(s, comps, c)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompts")

	return cmd
}

// runUpdate drives the same operations the UI uses and listens on a surface
// of its own for the relayed events
func runUpdate(s *session, comps *components, c confirmer) error {
	events := comps.surfaces.Register()
	defer comps.surfaces.Unregister(events.ID())

	res := comps.coordinator.CheckForUpdates(s.context)
	if err := s.out.Write(res); err != nil {
		return err
	}
	if !res.Success {
		return errors.New("update check failed")
	}
	if !res.UpdateAvailable {
		return nil
	}

	if !c.ConfirmDownload(res.CurrentVersion, res.LatestVersion) {
		s.say("Update skipped.")
		return nil
	}

	dl := comps.coordinator.DownloadAndInstall(s.context)
	if !dl.Success {
		return fmt.Errorf("download failed: %s", dl.Error)
	}
	s.say("%s", dl.Message)

	if err := waitForDownload(s, events); err != nil {
		return err
	}
	s.say("\nDownloaded %s", res.LatestVersion)

	if !c.ConfirmRestart(res.LatestVersion) {
		return nil
	}

	comps.coordinator.QuitAndInstall()
	if msg, failed := pendingError(events); failed {
		return fmt.Errorf("installation failed: %s", msg)
	}

	s.say("Successfully updated to %s", res.LatestVersion)
	return nil
}

// waitForDownload prints progress until the download finished or failed
func waitForDownload(s *session, events *surface.Surface) error {
	for {
		select {
		case <-s.context.Done():
			return s.context.Err()
		case <-events.Done():
			return errors.New("event stream closed before the download finished")
		case msg := <-events.Outbox():
			switch msg.Channel {
			case types.ChannelUpdateDownloadProgress:
				if p, ok := msg.Payload.(update.Progress); ok {
					s.out.Progress(p)
				}
			case types.ChannelUpdateDownloaded:
				return nil
			case types.ChannelUpdateError:
				return fmt.Errorf("download failed: %v", msg.Payload)
			default:
				log.Debugf("ignoring %s event", msg.Channel)
			}
		}
	}
}

// pendingError drains queued events and returns the first error message
func pendingError(events *surface.Surface) (string, bool) {
	for {
		select {
		case msg := <-events.Outbox():
			if msg.Channel == types.ChannelUpdateError {
				return fmt.Sprint(msg.Payload), true
			}
		default:
			return "", false
		}
	}
}
