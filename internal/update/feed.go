package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/adamancini/glint/internal/types"
)

const (
	feedRetries      = 2
	maxMetadataBytes = 10 << 20
	feedTimeout      = 30 * time.Second
)

// FeedConfig says where release metadata is published. The yaml keys match
// the publish section of dev-app-update.yml.
type FeedConfig struct {
	Provider        types.FeedProvider `yaml:"provider" json:"provider"`
	Owner           string             `yaml:"owner,omitempty" json:"owner,omitempty"`
	Repo            string             `yaml:"repo,omitempty" json:"repo,omitempty"`
	URL             string             `yaml:"url,omitempty" json:"url,omitempty"`
	Token           string             `yaml:"token,omitempty" json:"token,omitempty"`
	AllowPrerelease bool               `yaml:"allowPrerelease,omitempty" json:"allowPrerelease,omitempty"`
}

// Validate checks that the settings required by the provider are present.
func (c FeedConfig) Validate() error {
	if err := c.Provider.Validate(); err != nil {
		return err
	}
	if c.Provider.RequiresRepo() && (c.Owner == "" || c.Repo == "") {
		return fmt.Errorf("%s feed requires owner and repo", c.Provider)
	}
	if c.Provider.RequiresURL() && c.URL == "" {
		return fmt.Errorf("%s feed requires url", c.Provider)
	}
	return nil
}

// NewFeed builds the feed described by cfg
func NewFeed(cfg FeedConfig, client *http.Client) (Feed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feed config: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: feedTimeout}
	}

	switch cfg.Provider {
	case types.FeedProviderGitHub:
		feed := NewGitHubFeed(cfg.Owner, cfg.Repo).
			WithToken(cfg.Token).
			WithPrerelease(cfg.AllowPrerelease)
		feed.client = client
		return feed, nil
	case types.FeedProviderGeneric:
		feed := NewGenericFeed(cfg.URL)
		feed.client = client
		return feed, nil
	default:
		return nil, fmt.Errorf("unsupported feed provider: %s", cfg.Provider)
	}
}

// fetchMetadata GETs a small metadata document, retrying transient failures
func fetchMetadata(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, values := range header {
			for _, v := range values {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return statusError(resp.StatusCode)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Debugf("fetching %s failed, retrying in %v: %v", url, wait, err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newRetryBackOff(), feedRetries), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return body, nil
}
