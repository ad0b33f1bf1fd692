package update

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

// GenericFeed reads electron-builder style channel files (latest.yml and
// friends) from a static HTTP server.
type GenericFeed struct {
	baseURL  string
	platform Platform
	client   *http.Client
}

// channelFile mirrors the layout of latest.yml
type channelFile struct {
	Version      string        `yaml:"version"`
	Files        []channelItem `yaml:"files"`
	Path         string        `yaml:"path"`
	SHA512       string        `yaml:"sha512"`
	ReleaseName  string        `yaml:"releaseName"`
	ReleaseNotes interface{}   `yaml:"releaseNotes"`
	ReleaseDate  string        `yaml:"releaseDate"`
}

type channelItem struct {
	URL    string `yaml:"url"`
	SHA512 string `yaml:"sha512"`
	Size   int64  `yaml:"size"`
}

// NewGenericFeed creates a feed rooted at baseURL
func NewGenericFeed(baseURL string) *GenericFeed {
	return &GenericFeed{
		baseURL:  strings.TrimSuffix(baseURL, "/") + "/",
		platform: Detect(),
		client:   &http.Client{Timeout: feedTimeout},
	}
}

// WithPlatform overrides the platform used to pick the channel file
func (f *GenericFeed) WithPlatform(p Platform) *GenericFeed {
	f.platform = p
	return f
}

// Latest fetches and parses the channel file for the feed's platform.
// A missing channel file means nothing has been published.
func (f *GenericFeed) Latest(ctx context.Context) (*UpdateInfo, error) {
	channelURL := f.baseURL + f.platform.ChannelFile()

	body, err := fetchMetadata(ctx, f.client, channelURL, nil)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", channelURL, err)
	}

	var cf channelFile
	if err := yaml.Unmarshal(body, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", channelURL, err)
	}
	if strings.TrimSpace(cf.Version) == "" {
		return nil, fmt.Errorf("%s has no version", channelURL)
	}

	files, err := f.resolveFiles(cf)
	if err != nil {
		return nil, err
	}

	return &UpdateInfo{
		Version:      NormalizeVersion(cf.Version),
		ReleaseName:  cf.ReleaseName,
		ReleaseNotes: normalizeReleaseNotes(cf.ReleaseNotes),
		ReleaseDate:  cf.ReleaseDate,
		Files:        files,
	}, nil
}

// resolveFiles turns relative file urls into absolute ones. Old channel
// files only carry the top level path and sha512.
func (f *GenericFeed) resolveFiles(cf channelFile) ([]FileInfo, error) {
	items := cf.Files
	if len(items) == 0 && cf.Path != "" {
		items = []channelItem{{URL: cf.Path, SHA512: cf.SHA512}}
	}

	base, err := url.Parse(f.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url %q: %w", f.baseURL, err)
	}

	files := make([]FileInfo, 0, len(items))
	for _, item := range items {
		ref, err := url.Parse(item.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid file url %q: %w", item.URL, err)
		}
		abs := base.ResolveReference(ref)
		files = append(files, FileInfo{
			Name:   pathBase(abs.Path),
			URL:    abs.String(),
			Size:   item.Size,
			SHA512: item.SHA512,
		})
	}
	return files, nil
}

// normalizeReleaseNotes keeps a string as is and converts a changelog list
// into []ReleaseNoteInfo. Anything else is dropped.
func normalizeReleaseNotes(v interface{}) interface{} {
	switch notes := v.(type) {
	case string:
		return notes
	case []interface{}:
		out := make([]ReleaseNoteInfo, 0, len(notes))
		for _, entry := range notes {
			m, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			var info ReleaseNoteInfo
			if s, ok := m["version"]; ok && s != nil {
				info.Version = fmt.Sprint(s)
			}
			if s, ok := m["note"]; ok && s != nil {
				info.Note = fmt.Sprint(s)
			}
			out = append(out, info)
		}
		return out
	default:
		return nil
	}
}

func pathBase(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// String implements fmt.Stringer
func (f *GenericFeed) String() string {
	return "generic:" + f.baseURL
}

var _ Feed = (*GenericFeed)(nil)
