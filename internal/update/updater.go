package update

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoUpdateChecked is returned by DownloadUpdate before a successful check
	ErrNoUpdateChecked = errors.New("please check for updates before downloading")
	// ErrDownloadInProgress is returned when a download is already running
	ErrDownloadInProgress = errors.New("download already in progress")
	// ErrNoStagedUpdate is emitted when QuitAndInstall has nothing to install
	ErrNoStagedUpdate = errors.New("No valid update available, can't quit and install")
)

// Settings are the behaviour switches of the Updater
type Settings struct {
	// AutoDownload starts a download as soon as a check finds a new version
	AutoDownload bool
	// AutoInstallOnAppQuit installs a staged update when the host quits
	AutoInstallOnAppQuit bool
	// ForceDevUpdateConfig reads the feed from the dev config file, also in
	// builds that are not packaged
	ForceDevUpdateConfig bool
}

// Options are the collaborators of the Updater. Zero values are replaced by
// working defaults in NewUpdater.
type Options struct {
	CurrentVersion string
	IsPackaged     bool
	Feed           Feed
	// HTTPClient is used for feeds built from the dev config
	HTTPClient     *http.Client
	DevConfigPath  string
	DownloadDir    string
	Downloader     Downloader
	Replacer       Replacer
	Relauncher     Relauncher
}

type stagedUpdate struct {
	info UpdateInfo
	path string
}

// Updater checks a feed, downloads and verifies releases and installs them
// on request or when the host quits.
type Updater struct {
	emitter

	opts  Options
	group singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	settings    Settings
	latest      *UpdateInfo
	downloading bool
	staged      *stagedUpdate
	installing  bool
}

// DefaultDownloadDir is used when no download directory is configured
func DefaultDownloadDir() string {
	return filepath.Join(os.TempDir(), "glint-updates")
}

// NewUpdater creates an Updater. The feed may be nil when only a dev config
// is going to be used.
func NewUpdater(opts Options) *Updater {
	if opts.DownloadDir == "" {
		opts.DownloadDir = DefaultDownloadDir()
	}
	if opts.DevConfigPath == "" {
		opts.DevConfigPath = DefaultDevConfigPath
	}
	if opts.Downloader == nil {
		opts.Downloader = NewHTTPDownloader()
	}
	if opts.Replacer == nil && Detect().IsSupported() {
		if exe, err := os.Executable(); err == nil {
			opts.Replacer = NewBinaryReplacer(exe)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Updater{
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Configure replaces the updater settings
func (u *Updater) Configure(s Settings) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.settings = s
}

func (u *Updater) currentSettings() Settings {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.settings
}

// DownloadDir is where downloads are staged, one subdirectory per version
func (u *Updater) DownloadDir() string {
	return u.opts.DownloadDir
}

// Close cancels running downloads and waits for them to stop
func (u *Updater) Close() {
	u.cancel()
	u.wg.Wait()
}

// CheckForUpdates asks the feed for the newest release. Concurrent calls
// share one request. It returns nil, nil when the updater is inactive or the
// feed has nothing published.
func (u *Updater) CheckForUpdates(ctx context.Context) (*CheckResult, error) {
	settings := u.currentSettings()
	if !u.opts.IsPackaged && !settings.ForceDevUpdateConfig {
		log.Info("skip checkForUpdates because application is not packed and dev update config is not forced")
		return nil, nil
	}

	ch := u.group.DoChan("check", func() (interface{}, error) {
		return u.check(u.ctx, settings)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		result, _ := res.Val.(*CheckResult)
		return result, nil
	}
}

func (u *Updater) check(ctx context.Context, settings Settings) (*CheckResult, error) {
	u.emit(EventCheckingForUpdate, nil)

	feed, err := u.resolveFeed(settings)
	if err != nil {
		u.emit(EventError, err)
		return nil, err
	}

	info, err := feed.Latest(ctx)
	if err != nil {
		err = fmt.Errorf("failed to check for updates: %w", err)
		u.emit(EventError, err)
		return nil, err
	}

	if info == nil {
		log.Info("no releases published")
		u.emit(EventUpdateNotAvailable, nil)
		return nil, nil
	}

	available := isNewer(info.Version, u.opts.CurrentVersion)

	u.mu.Lock()
	u.latest = info
	u.mu.Unlock()

	log.WithField("version", info.Version).Infof("found version %s (current %s)", info.Version, u.opts.CurrentVersion)

	if !available {
		u.emit(EventUpdateNotAvailable, *info)
		return &CheckResult{UpdateInfo: *info}, nil
	}

	u.emit(EventUpdateAvailable, *info)
	if settings.AutoDownload {
		if err := u.DownloadUpdate(ctx); err != nil {
			log.Warnf("auto download not started: %v", err)
		}
	}
	return &CheckResult{UpdateInfo: *info, IsUpdateAvailable: true}, nil
}

// resolveFeed picks the dev config feed when forced, the configured feed
// otherwise
func (u *Updater) resolveFeed(settings Settings) (Feed, error) {
	if settings.ForceDevUpdateConfig {
		cfg, err := LoadDevConfig(u.opts.DevConfigPath)
		if err != nil {
			return nil, err
		}
		return NewFeed(*cfg, u.opts.HTTPClient)
	}
	if u.opts.Feed == nil {
		return nil, errors.New("no update feed configured")
	}
	return u.opts.Feed, nil
}

// DownloadUpdate starts downloading the release found by the last check and
// returns. Progress, completion and failures are reported as events.
func (u *Updater) DownloadUpdate(ctx context.Context) error {
	u.mu.Lock()
	info := u.latest
	switch {
	case info == nil:
		u.mu.Unlock()
		return ErrNoUpdateChecked
	case u.downloading:
		u.mu.Unlock()
		return ErrDownloadInProgress
	case u.staged != nil && u.staged.info.Version == info.Version:
		staged := u.staged.info
		u.mu.Unlock()
		log.Infof("update %s already downloaded", staged.Version)
		u.emit(EventUpdateDownloaded, staged)
		return nil
	}
	if len(info.Files) == 0 {
		u.mu.Unlock()
		return fmt.Errorf("no files published for version %s", info.Version)
	}
	u.downloading = true
	u.mu.Unlock()

	if err := ctx.Err(); err != nil {
		u.setDownloading(false)
		return err
	}

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer u.setDownloading(false)

		path, err := u.download(u.ctx, *info)
		if err != nil {
			log.Errorf("update download failed: %v", err)
			u.emit(EventError, err)
			return
		}

		u.mu.Lock()
		u.staged = &stagedUpdate{info: *info, path: path}
		u.mu.Unlock()

		log.Infof("update %s downloaded to %s", info.Version, path)
		u.emit(EventUpdateDownloaded, *info)
	}()

	return nil
}

func (u *Updater) setDownloading(v bool) {
	u.mu.Lock()
	u.downloading = v
	u.mu.Unlock()
}

func (u *Updater) download(ctx context.Context, info UpdateInfo) (string, error) {
	file := info.Files[0]
	dir := filepath.Join(u.opts.DownloadDir, info.Version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	dst := filepath.Join(dir, file.Name)
	onProgress := func(p Progress) {
		u.emit(EventDownloadProgress, p)
	}

	if err := u.opts.Downloader.Download(ctx, file.URL, dst, onProgress); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", file.Name, err)
	}

	if err := u.opts.Downloader.Verify(ctx, dst, file); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("downloaded update failed verification: %w", err)
	}

	return dst, nil
}

// Staged returns the downloaded update waiting to be installed, if any
func (u *Updater) Staged() (UpdateInfo, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.staged == nil {
		return UpdateInfo{}, false
	}
	return u.staged.info, true
}

// QuitAndInstall installs the staged update and relaunches the host.
// Only the first call does anything.
func (u *Updater) QuitAndInstall() {
	if err := u.install(true); err != nil {
		u.emit(EventError, err)
	}
}

// InstallOnQuit is the host quit hook. It installs a staged update without
// relaunching when AutoInstallOnAppQuit is set.
func (u *Updater) InstallOnQuit() {
	if !u.currentSettings().AutoInstallOnAppQuit {
		return
	}
	u.mu.Lock()
	hasStaged := u.staged != nil
	u.mu.Unlock()
	if !hasStaged {
		return
	}
	if err := u.install(false); err != nil {
		log.Errorf("install on quit failed: %v", err)
	}
}

func (u *Updater) install(relaunch bool) error {
	u.mu.Lock()
	if u.installing {
		u.mu.Unlock()
		log.Warn("install already in progress, ignoring quitAndInstall")
		return nil
	}
	staged := u.staged
	if staged == nil {
		u.mu.Unlock()
		return ErrNoStagedUpdate
	}
	u.installing = true
	u.mu.Unlock()

	if u.opts.Replacer == nil {
		u.resetInstalling()
		return errors.New("no installer available on this platform")
	}

	log.Infof("installing update %s", staged.info.Version)
	if err := u.opts.Replacer.Replace(staged.path); err != nil {
		u.resetInstalling()
		return fmt.Errorf("failed to install update %s: %w", staged.info.Version, err)
	}

	u.mu.Lock()
	u.staged = nil
	u.mu.Unlock()

	if relaunch && u.opts.Relauncher != nil {
		if err := u.opts.Relauncher.Relaunch(); err != nil {
			return fmt.Errorf("failed to relaunch: %w", err)
		}
	}
	return nil
}

func (u *Updater) resetInstalling() {
	u.mu.Lock()
	u.installing = false
	u.mu.Unlock()
}
