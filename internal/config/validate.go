package config

import (
	"fmt"
	"net"
	"net/url"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the config for required fields and valid values. Every
// problem is reported, not just the first.
func Validate(c *Config) error {
	var merr *multierror.Error

	if c.App.Name == "" {
		merr = multierror.Append(merr, ValidationError{Field: "app.name", Message: "name is required"})
	}

	for _, err := range validateFeed(c.Feed) {
		merr = multierror.Append(merr, err)
	}

	for _, err := range validateServer(c.Server) {
		merr = multierror.Append(merr, err)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		merr = multierror.Append(merr, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Log.Level),
		})
	}

	return merr.ErrorOrNil()
}

func validateFeed(f Feed) []error {
	if err := f.Provider.Validate(); err != nil {
		return []error{ValidationError{Field: "feed.provider", Message: err.Error()}}
	}

	var errs []error
	if f.Provider.RequiresRepo() {
		if f.Owner == "" {
			errs = append(errs, ValidationError{Field: "feed.owner", Message: "owner is required for github feed"})
		}
		if f.Repo == "" {
			errs = append(errs, ValidationError{Field: "feed.repo", Message: "repo is required for github feed"})
		}
	}

	if f.Provider.RequiresURL() {
		u, err := url.Parse(f.URL)
		switch {
		case f.URL == "":
			errs = append(errs, ValidationError{Field: "feed.url", Message: "url is required for generic feed"})
		case err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "":
			errs = append(errs, ValidationError{Field: "feed.url", Message: fmt.Sprintf("invalid url '%s' (must be http or https)", f.URL)})
		}
	}

	return errs
}

func validateServer(s Server) []error {
	var errs []error

	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		errs = append(errs, ValidationError{
			Field:   "server.listen",
			Message: fmt.Sprintf("invalid address '%s' (must be host:port)", s.Listen),
		})
	}

	if s.QueueSize < 0 {
		errs = append(errs, ValidationError{Field: "server.queue_size", Message: "queue_size cannot be negative"})
	}

	return errs
}
