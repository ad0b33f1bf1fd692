// Package coordinator exposes update checks, downloads and installs to the
// UI and relays provider events to every open surface.
package coordinator

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/glint/internal/metrics"
	"github.com/adamancini/glint/internal/types"
	"github.com/adamancini/glint/internal/update"
)

// DownloadStartedMessage acknowledges a download request
const DownloadStartedMessage = "update download started"

// Config is applied to the provider once, at construction
type Config struct {
	AutoDownload         bool
	AutoInstallOnAppQuit bool
	ForceDevUpdateConfig bool
}

// DefaultConfig never downloads on its own, installs a downloaded update on
// quit and uses the dev feed in builds that are not packaged.
func DefaultConfig(isPackaged bool) Config {
	return Config{
		AutoDownload:         false,
		AutoInstallOnAppQuit: true,
		ForceDevUpdateConfig: !isPackaged,
	}
}

// Provider locates, downloads and applies updates
type Provider interface {
	Configure(update.Settings)
	CheckForUpdates(ctx context.Context) (*update.CheckResult, error)
	DownloadUpdate(ctx context.Context) error
	QuitAndInstall()
	On(event string, handler update.Handler)
}

// Host exposes the running application's metadata
type Host interface {
	Name() string
	Version() string
}

// Broadcaster pushes a notification to every open UI surface and returns how
// many surfaces it reached
type Broadcaster interface {
	Broadcast(channel types.Channel, payload interface{}) int
}

// UpdateCheckResult is returned by CheckForUpdates
type UpdateCheckResult struct {
	Success         bool   `json:"success" yaml:"success"`
	UpdateAvailable bool   `json:"updateAvailable" yaml:"updateAvailable"`
	CurrentVersion  string `json:"currentVersion" yaml:"currentVersion"`
	LatestVersion   string `json:"latestVersion,omitempty" yaml:"latestVersion,omitempty"`
	ReleaseNotes    string `json:"releaseNotes" yaml:"releaseNotes"`
	Error           string `json:"error,omitempty" yaml:"error,omitempty"`
}

// DownloadResult is returned by DownloadAndInstall
type DownloadResult struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// VersionInfo is returned by GetAppVersion
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Name    string `json:"name" yaml:"name"`
}

// Coordinator sits between the host, the update provider and the UI
type Coordinator struct {
	config      Config
	provider    Provider
	host        Host
	broadcaster Broadcaster
	metrics     *metrics.Metrics
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithMetrics records check and download outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// New configures the provider and subscribes to its events
func New(cfg Config, provider Provider, host Host, broadcaster Broadcaster, opts ...Option) *Coordinator {
	c := &Coordinator{
		config:      cfg,
		provider:    provider,
		host:        host,
		broadcaster: broadcaster,
	}
	for _, opt := range opts {
		opt(c)
	}

	provider.Configure(update.Settings{
		AutoDownload:         cfg.AutoDownload,
		AutoInstallOnAppQuit: cfg.AutoInstallOnAppQuit,
		ForceDevUpdateConfig: cfg.ForceDevUpdateConfig,
	})

	provider.On(update.EventDownloadProgress, c.onDownloadProgress)
	provider.On(update.EventUpdateDownloaded, c.onUpdateDownloaded)
	provider.On(update.EventError, c.onError)

	return c
}

// Config returns the configuration applied to the provider
func (c *Coordinator) Config() Config {
	return c.config
}

// CheckForUpdates asks the provider for the newest release. It never returns
// an error: failures are reported in the result.
func (c *Coordinator) CheckForUpdates(ctx context.Context) (result UpdateCheckResult) {
	current := c.host.Version()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("check for updates panicked: %v", r)
			result = checkFailed(current, fmt.Errorf("%v", r))
			c.metrics.CheckCompleted(metrics.OutcomeFailure)
		}
	}()

	res, err := c.provider.CheckForUpdates(ctx)
	if err != nil {
		log.Errorf("check for updates error: %v", err)
		c.metrics.CheckCompleted(metrics.OutcomeFailure)
		return checkFailed(current, err)
	}

	if res == nil {
		c.metrics.CheckCompleted(metrics.OutcomeUnpublished)
		return UpdateCheckResult{
			Success:         true,
			UpdateAvailable: false,
			CurrentVersion:  "v" + current,
			LatestVersion:   "v" + current,
			ReleaseNotes:    "",
		}
	}

	info := res.UpdateInfo
	available := info.Version != current
	if available {
		c.metrics.CheckCompleted(metrics.OutcomeAvailable)
	} else {
		c.metrics.CheckCompleted(metrics.OutcomeUpToDate)
	}

	return UpdateCheckResult{
		Success:         true,
		UpdateAvailable: available,
		CurrentVersion:  "v" + current,
		LatestVersion:   "v" + info.Version,
		ReleaseNotes:    flattenReleaseNotes(info.ReleaseNotes),
	}
}

func checkFailed(current string, err error) UpdateCheckResult {
	return UpdateCheckResult{
		Success:         false,
		UpdateAvailable: false,
		Error:           err.Error(),
		CurrentVersion:  "v" + current,
	}
}

// DownloadAndInstall starts downloading the release found by the last
// check. Completion arrives later as an update-downloaded notification and
// installation happens on quit-and-install or when the app quits.
func (c *Coordinator) DownloadAndInstall(ctx context.Context) (result DownloadResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("download update panicked: %v", r)
			result = DownloadResult{Success: false, Error: fmt.Sprintf("%v", r)}
			c.metrics.DownloadRequested(metrics.OutcomeFailure)
		}
	}()

	if err := c.provider.DownloadUpdate(ctx); err != nil {
		log.Errorf("download update error: %v", err)
		c.metrics.DownloadRequested(metrics.OutcomeFailure)
		return DownloadResult{Success: false, Error: err.Error()}
	}

	c.metrics.DownloadRequested(metrics.OutcomeSuccess)
	return DownloadResult{Success: true, Message: DownloadStartedMessage}
}

// GetAppVersion reads the host metadata
func (c *Coordinator) GetAppVersion() VersionInfo {
	return VersionInfo{
		Version: c.host.Version(),
		Name:    c.host.Name(),
	}
}

// QuitAndInstall hands over to the provider, which installs the staged
// update and relaunches the app
func (c *Coordinator) QuitAndInstall() {
	log.Info("quit and install requested")
	c.provider.QuitAndInstall()
}

func (c *Coordinator) onDownloadProgress(payload interface{}) {
	c.broadcaster.Broadcast(types.ChannelUpdateDownloadProgress, payload)
}

func (c *Coordinator) onUpdateDownloaded(interface{}) {
	c.broadcaster.Broadcast(types.ChannelUpdateDownloaded, nil)
}

func (c *Coordinator) onError(payload interface{}) {
	c.broadcaster.Broadcast(types.ChannelUpdateError, errorMessage(payload))
}

func errorMessage(payload interface{}) string {
	switch v := payload.(type) {
	case nil:
		return ""
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// flattenReleaseNotes turns provider release notes into one string. A list
// contributes each entry's note, joined by newlines; entries without a note
// contribute an empty line.
func flattenReleaseNotes(notes interface{}) string {
	switch v := notes.(type) {
	case string:
		return v
	case []update.ReleaseNoteInfo:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = n.Note
		}
		return strings.Join(parts, "\n")
	case []*update.ReleaseNoteInfo:
		parts := make([]string, len(v))
		for i, n := range v {
			if n != nil {
				parts[i] = n.Note
			}
		}
		return strings.Join(parts, "\n")
	case []interface{}:
		parts := make([]string, len(v))
		for i, entry := range v {
			parts[i] = noteOf(entry)
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

func noteOf(entry interface{}) string {
	switch e := entry.(type) {
	case update.ReleaseNoteInfo:
		return e.Note
	case *update.ReleaseNoteInfo:
		if e != nil {
			return e.Note
		}
	case map[string]interface{}:
		if note, ok := e["note"].(string); ok {
			return note
		}
	case map[string]string:
		return e["note"]
	}
	return ""
}
