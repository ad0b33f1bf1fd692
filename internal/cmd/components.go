package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/adamancini/glint/internal/cache"
	"github.com/adamancini/glint/internal/config"
	"github.com/adamancini/glint/internal/coordinator"
	"github.com/adamancini/glint/internal/host"
	"github.com/adamancini/glint/internal/metrics"
	"github.com/adamancini/glint/internal/surface"
	"github.com/adamancini/glint/internal/uistate"
	"github.com/adamancini/glint/internal/update"
)

const feedClientTimeout = 30 * time.Second

// components is the wired application: host, updater, surfaces and the
// coordinator between them
type components struct {
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	app         *host.App
	packaged    bool
	updater     *update.Updater
	cache       *cache.Manager
	surfaces    *surface.Registry
	store       *uistate.Store
	coordinator *coordinator.Coordinator
}

// buildComponents wires everything from cfg. relaunch controls whether
// quit-and-install starts the new binary again, which only makes sense for
// the long running bridge.
func buildComponents(cfg *config.Config, build BuildInfo, relaunch bool, overrides ...func(*update.Options)) (*components, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	detected := build.Version != "" && build.Version != host.DevVersion
	packaged := cfg.IsPackaged(detected)
	app := host.New(cfg.App.Name, build.Version, packaged)

	client := &http.Client{
		Timeout:   feedClientTimeout,
		Transport: m.RoundTripper(http.DefaultTransport),
	}

	feed, err := update.NewFeed(cfg.Feed.FeedConfig(), client)
	if err != nil {
		return nil, fmt.Errorf("failed to create update feed: %w", err)
	}

	opts := update.Options{
		CurrentVersion: build.Version,
		IsPackaged:     packaged,
		Feed:           feed,
		HTTPClient:     client,
		DevConfigPath:  cfg.Updater.DevConfigPath,
		DownloadDir:    cfg.Updater.DownloadDir,
		// downloads can take longer than any sane request timeout
		Downloader: update.NewHTTPDownloader().WithClient(&http.Client{
			Transport: m.RoundTripper(http.DefaultTransport),
		}),
	}
	if relaunch {
		opts.Relauncher = app
	}
	for _, override := range overrides {
		override(&opts)
	}
	updater := update.NewUpdater(opts)

	surfaces := surface.NewRegistry(cfg.Server.QueueSize, m)

	coordCfg := coordinator.DefaultConfig(packaged)
	coordCfg.AutoDownload = cfg.Updater.AutoDownload
	coordCfg.AutoInstallOnAppQuit = cfg.Updater.AutoInstallOnAppQuit

	coord := coordinator.New(coordCfg, updater, app, surfaces, coordinator.WithMetrics(m))

	// Install before the updater stops its downloads
	app.OnQuit(updater.InstallOnQuit)
	app.OnQuit(updater.Close)
	app.OnQuit(surfaces.Close)

	return &components{
		registry:    registry,
		metrics:     m,
		app:         app,
		packaged:    packaged,
		updater:     updater,
		cache:       cache.NewManager(updater.DownloadDir()),
		surfaces:    surfaces,
		store:       uistate.New(),
		coordinator: coord,
	}, nil
}
