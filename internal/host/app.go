// Package host models the running glint process: its metadata and its
// quit lifecycle.
package host

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/glint/internal/update"
)

// DevVersion is the version string of builds made without release ldflags
const DevVersion = "dev"

// App describes the running application
type App struct {
	name     string
	version  string
	packaged bool

	mu       sync.Mutex
	hooks    []func()
	quitting bool
	done     chan struct{}

	// start launches a detached copy of the executable
	start   func(path string, args []string) error
	pending *relaunch
}

type relaunch struct {
	path string
	args []string
}

// New creates the host. The version is stored without a leading v. Builds
// with an empty or "dev" version are never packaged.
func New(name, version string, packaged bool) *App {
	version = update.NormalizeVersion(version)
	if version == "" || version == DevVersion {
		packaged = false
	}
	return &App{
		name:     name,
		version:  version,
		packaged: packaged,
		done:     make(chan struct{}),
		start:    startProcess,
	}
}

// Name returns the application name
func (a *App) Name() string {
	return a.name
}

// Version returns the running version
func (a *App) Version() string {
	return a.version
}

// IsPackaged reports whether this is a release build
func (a *App) IsPackaged() bool {
	return a.packaged
}

// OnQuit registers fn to run when the app quits. Hooks run in registration
// order.
func (a *App) OnQuit(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Quit runs the quit hooks once and closes Done
func (a *App) Quit() {
	a.mu.Lock()
	if a.quitting {
		a.mu.Unlock()
		return
	}
	a.quitting = true
	hooks := append([]func(){}, a.hooks...)
	a.mu.Unlock()

	log.Infof("%s quitting", a.name)
	for _, fn := range hooks {
		fn()
	}
	close(a.done)
}

// Done is closed after the app quit
func (a *App) Done() <-chan struct{} {
	return a.done
}

// WithStarter replaces the function used to start the relaunched process
func (a *App) WithStarter(start func(path string, args []string) error) *App {
	a.start = start
	return a
}

// Relaunch quits the app and schedules a new copy of the executable with the
// same arguments. The copy is started by StartPendingRelaunch, once the
// caller has released what the new process needs, such as its listen
// address.
func (a *App) Relaunch() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	a.mu.Lock()
	a.pending = &relaunch{path: exe, args: os.Args[1:]}
	a.mu.Unlock()

	log.Infof("relaunching %s after quit", exe)
	a.Quit()
	return nil
}

// StartPendingRelaunch starts the process scheduled by Relaunch, if any. It
// waits for Done.
func (a *App) StartPendingRelaunch() error {
	<-a.done

	a.mu.Lock()
	r := a.pending
	a.pending = nil
	a.mu.Unlock()
	if r == nil {
		return nil
	}

	if err := a.start(r.path, r.args); err != nil {
		return fmt.Errorf("failed to relaunch %s: %w", r.path, err)
	}
	log.Infof("relaunched %s", r.path)
	return nil
}

func startProcess(path string, args []string) error {
	cmd := exec.Command(path, args...)
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
