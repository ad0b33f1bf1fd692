package update

import "context"

// UpdateInfo describes the newest release published by a feed
type UpdateInfo struct {
	Version     string `json:"version"`               // Published version, without "v" prefix
	ReleaseName string `json:"releaseName,omitempty"` // Human readable release title
	// ReleaseNotes is either a string or a []ReleaseNoteInfo, depending on the feed
	ReleaseNotes interface{} `json:"releaseNotes,omitempty"`
	ReleaseDate  string      `json:"releaseDate,omitempty"` // RFC 3339 publish date
	ReleaseURL   string      `json:"releaseUrl,omitempty"`  // Release page
	Files        []FileInfo  `json:"files"`                 // Downloadable artifacts
}

// ReleaseNoteInfo is one entry of a multi-version changelog
type ReleaseNoteInfo struct {
	Version string `json:"version" yaml:"version"`
	Note    string `json:"note" yaml:"note"`
}

// FileInfo describes a downloadable artifact and how to verify it
type FileInfo struct {
	Name        string `json:"name"`                  // File name on disk
	URL         string `json:"url"`                   // Absolute download URL
	Size        int64  `json:"size,omitempty"`        // Expected size in bytes, 0 if unknown
	SHA512      string `json:"sha512,omitempty"`      // Base64 encoded SHA-512
	SHA256      string `json:"sha256,omitempty"`      // Hex encoded SHA-256
	ChecksumURL string `json:"checksumUrl,omitempty"` // URL to a checksums.txt listing
}

// CheckResult is what the updater returns when a feed published metadata
type CheckResult struct {
	UpdateInfo UpdateInfo
	// IsUpdateAvailable is true when the published version sorts after the
	// running one by semver precedence, or differs from it when either is not
	// a semver version
	IsUpdateAvailable bool
}

// Progress reports download progress
type Progress struct {
	Total          int64   `json:"total"`
	Delta          int64   `json:"delta"`
	Transferred    int64   `json:"transferred"`
	Percent        float64 `json:"percent"`
	BytesPerSecond int64   `json:"bytesPerSecond"`
}

// ProgressFunc receives progress updates during a download
type ProgressFunc func(Progress)

// Platform describes the current system platform
type Platform struct {
	OS   string // Operating system (darwin, linux, windows)
	Arch string // Architecture (amd64, arm64)
}

// Feed resolves the newest published release.
// Latest returns nil, nil when nothing has been published yet.
type Feed interface {
	Latest(ctx context.Context) (*UpdateInfo, error)
}

// Downloader downloads and verifies artifacts
type Downloader interface {
	Download(ctx context.Context, url string, dst string, onProgress ProgressFunc) error
	Verify(ctx context.Context, file string, info FileInfo) error
}

// Replacer installs a new binary over the running one. Implementations roll
// back on their own when the install fails.
type Replacer interface {
	Replace(newBinary string) error
}

// Relauncher restarts the host process after an install
type Relauncher interface {
	Relaunch() error
}
