package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
)

const (
	defaultGitHubAPI = "https://api.github.com"
	checksumsAsset   = "checksums.txt"
)

// GitHubFeed reads releases from the GitHub API
type GitHubFeed struct {
	githubToken     string // Optional, for rate limiting and private repos
	owner           string // Repository owner
	repo            string // Repository name
	allowPrerelease bool
	platform        Platform
	client          *http.Client
	baseURL         string // Base URL for GitHub API (for testing)
}

// GitHubRelease represents a GitHub release response
type GitHubRelease struct {
	TagName     string        `json:"tag_name"`
	Name        string        `json:"name"`
	Body        string        `json:"body"`
	HTMLURL     string        `json:"html_url"`
	Draft       bool          `json:"draft"`
	Prerelease  bool          `json:"prerelease"`
	PublishedAt string        `json:"published_at"`
	Assets      []GitHubAsset `json:"assets"`
}

// GitHubAsset is a file attached to a release
type GitHubAsset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	Digest             string `json:"digest"` // "sha256:<hex>" on recent releases
	BrowserDownloadURL string `json:"browser_download_url"`
}

// NewGitHubFeed creates a feed for owner/repo
func NewGitHubFeed(owner, repo string) *GitHubFeed {
	return &GitHubFeed{
		owner:    owner,
		repo:     repo,
		platform: Detect(),
		client: &http.Client{
			Timeout: feedTimeout,
		},
		baseURL: defaultGitHubAPI,
	}
}

// WithToken sets an optional GitHub token for authentication
func (f *GitHubFeed) WithToken(token string) *GitHubFeed {
	f.githubToken = token
	return f
}

// WithPrerelease allows prereleases to be offered
func (f *GitHubFeed) WithPrerelease(allow bool) *GitHubFeed {
	f.allowPrerelease = allow
	return f
}

// WithPlatform overrides the platform used to pick assets
func (f *GitHubFeed) WithPlatform(p Platform) *GitHubFeed {
	f.platform = p
	return f
}

// WithBaseURL points the feed at a different API endpoint
func (f *GitHubFeed) WithBaseURL(baseURL string) *GitHubFeed {
	f.baseURL = strings.TrimSuffix(baseURL, "/")
	return f
}

// Latest returns the highest versioned release. Drafts are never offered,
// prereleases only when allowed.
func (f *GitHubFeed) Latest(ctx context.Context) (*UpdateInfo, error) {
	releases, err := f.listReleases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases for %s/%s: %w", f.owner, f.repo, err)
	}

	var (
		best    *GitHubRelease
		bestVer *goversion.Version
	)
	for i := range releases {
		release := &releases[i]
		if release.Draft || (release.Prerelease && !f.allowPrerelease) {
			continue
		}
		v, err := ParseVersion(release.TagName)
		if err != nil {
			log.Debugf("skipping release %q: %v", release.TagName, err)
			continue
		}
		if v.Prerelease() != "" && !f.allowPrerelease {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = release, v
		}
	}

	if best == nil {
		return nil, nil
	}

	return &UpdateInfo{
		Version:      NormalizeVersion(best.TagName),
		ReleaseName:  best.Name,
		ReleaseNotes: best.Body,
		ReleaseDate:  best.PublishedAt,
		ReleaseURL:   best.HTMLURL,
		Files:        f.findAssets(best),
	}, nil
}

func (f *GitHubFeed) listReleases(ctx context.Context) ([]GitHubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=30", f.baseURL, f.owner, f.repo)

	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	if f.githubToken != "" {
		header.Set("Authorization", "Bearer "+f.githubToken)
	}

	body, err := fetchMetadata(ctx, f.client, url, header)
	if err != nil {
		return nil, err
	}

	var releases []GitHubRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return releases, nil
}

// findAssets returns the binary for the feed's platform, if published
func (f *GitHubFeed) findAssets(release *GitHubRelease) []FileInfo {
	binaryName := f.platform.BinaryName()
	var binary *GitHubAsset
	var checksumURL string

	for i := range release.Assets {
		asset := &release.Assets[i]
		switch asset.Name {
		case binaryName:
			binary = asset
		case checksumsAsset:
			checksumURL = asset.BrowserDownloadURL
		}
	}

	if binary == nil {
		return []FileInfo{}
	}

	file := FileInfo{
		Name:        binary.Name,
		URL:         binary.BrowserDownloadURL,
		Size:        binary.Size,
		ChecksumURL: checksumURL,
	}
	if strings.HasPrefix(binary.Digest, "sha256:") {
		file.SHA256 = strings.TrimPrefix(binary.Digest, "sha256:")
	}
	return []FileInfo{file}
}

// String implements fmt.Stringer
func (f *GitHubFeed) String() string {
	return fmt.Sprintf("github:%s/%s", f.owner, f.repo)
}

var _ Feed = (*GitHubFeed)(nil)
