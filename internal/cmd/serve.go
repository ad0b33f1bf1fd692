package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adamancini/glint/internal/cache"
	"github.com/adamancini/glint/internal/ipc"
)

type serveOptions struct {
	listen       string
	checkOnStart bool
}

func newServeCmd(flags *globalFlags, build BuildInfo) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge the UI connects to",
		Long: `Start the local HTTP and WebSocket bridge.

Windows invoke operations with POST /ipc/{channel} or over /ws, and receive
update-download-progress, update-downloaded and update-error events on /ws.

Examples:
  glint serve                        # Listen on the configured address
  glint serve --listen 127.0.0.1:0   # Pick a free port
  glint serve --check-on-start       # Check the feed once at startup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			if opts.listen != "" {
				s.cfg.Server.Listen = opts.listen
			}

			comps, err := buildComponents(s.cfg, build, true)
			if err != nil {
				return err
			}

			listener, err := net.Listen("tcp", s.cfg.Server.Listen)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(s.context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, s, comps, listener, opts.checkOnStart)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&opts.checkOnStart, "check-on-start", false, "Check for updates once the bridge is up")

	return cmd
}

// runServe serves until ctx is cancelled or the app quits, then runs the
// quit hooks. A relaunch requested by quit-and-install starts only after the
// listener is closed so the new process can bind the same address.
func runServe(ctx context.Context, s *session, comps *components, listener net.Listener, checkOnStart bool) error {
	router := ipc.NewRouter(comps.metrics)
	ipc.RegisterUpdateHandlers(router, comps.coordinator)
	ipc.RegisterUIStateHandlers(router, comps.store)

	server := ipc.NewServer(router, comps.surfaces, ipc.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		Gatherer:       comps.registry,
	})

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-comps.app.Done():
			cancel()
		case <-serveCtx.Done():
		}
	}()

	updaterCfg := comps.coordinator.Config()
	log.WithFields(log.Fields{
		"packaged":                 comps.packaged,
		"auto_download":            updaterCfg.AutoDownload,
		"auto_install_on_app_quit": updaterCfg.AutoInstallOnAppQuit,
		"dev_feed":                 updaterCfg.ForceDevUpdateConfig,
	}).Infof("%s %s starting", comps.app.Name(), comps.app.Version())
	if s.path != "" {
		log.Debugf("using config %s", s.path)
	}
	s.say("Listening on %s", listener.Addr())

	if result, err := comps.cache.Prune(cache.DefaultKeepCount); err != nil {
		log.Warnf("failed to prune download cache: %v", err)
	} else if len(result.Deleted) > 0 {
		log.Infof("removed %d old downloads from %s", len(result.Deleted), comps.cache.Dir())
	}

	if checkOnStart {
		go func() {
			res := comps.coordinator.CheckForUpdates(serveCtx)
			if !res.Success {
				log.Warnf("startup check failed: %s", res.Error)
				return
			}
			log.WithField("available", res.UpdateAvailable).Infof("startup check found %s", res.LatestVersion)
		}()
	}

	err := server.ServeListener(serveCtx, listener)
	comps.app.Quit()
	if rerr := comps.app.StartPendingRelaunch(); rerr != nil {
		log.Error(rerr)
		if err == nil {
			err = rerr
		}
	}
	return err
}
