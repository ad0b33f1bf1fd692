// Package types provides type-safe constants shared across glint.
//
// Channel names are part of the wire contract with UI surfaces, so they live
// here rather than in the bridge package. Feed provider kinds and log levels
// are shared between the config loader and the update provider.
package types

import (
	"fmt"
	"strings"
)

// Channel names an operation a UI surface can invoke, or a notification glint
// pushes to every open surface.
type Channel string

// Request/response channels.
const (
	ChannelCheckForUpdates    Channel = "check-for-updates"
	ChannelDownloadAndInstall Channel = "download-and-install-update"
	ChannelGetAppVersion      Channel = "get-app-version"
	ChannelQuitAndInstall     Channel = "quit-and-install"
	ChannelGetGlowColor       Channel = "get-glow-color"
	ChannelSetGlowColor       Channel = "set-glow-color"
	ChannelResetGlowColor     Channel = "reset-glow-color"
)

// Push notification channels.
const (
	ChannelUpdateDownloadProgress Channel = "update-download-progress"
	ChannelUpdateDownloaded       Channel = "update-downloaded"
	ChannelUpdateError            Channel = "update-error"
)

// AllInvokeChannels returns every channel a surface may invoke.
func AllInvokeChannels() []Channel {
	return []Channel{
		ChannelCheckForUpdates,
		ChannelDownloadAndInstall,
		ChannelGetAppVersion,
		ChannelQuitAndInstall,
		ChannelGetGlowColor,
		ChannelSetGlowColor,
		ChannelResetGlowColor,
	}
}

// AllNotificationChannels returns every channel glint pushes to surfaces.
func AllNotificationChannels() []Channel {
	return []Channel{
		ChannelUpdateDownloadProgress,
		ChannelUpdateDownloaded,
		ChannelUpdateError,
	}
}

// Validate checks if the Channel is a known invoke or notification channel.
func (c Channel) Validate() error {
	if c == "" {
		return fmt.Errorf("channel is required")
	}
	if c.IsInvoke() || c.IsNotification() {
		return nil
	}
	return fmt.Errorf("unknown channel '%s'", c)
}

// String returns the string representation of the Channel.
func (c Channel) String() string {
	return string(c)
}

// IsInvoke returns true if surfaces may invoke the channel.
func (c Channel) IsInvoke() bool {
	for _, ch := range AllInvokeChannels() {
		if c == ch {
			return true
		}
	}
	return false
}

// IsNotification returns true if the channel is pushed to surfaces.
func (c Channel) IsNotification() bool {
	for _, ch := range AllNotificationChannels() {
		if c == ch {
			return true
		}
	}
	return false
}

// ParseChannel parses a string into a Channel.
// Returns an error if the string is not a known channel.
func ParseChannel(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if err := ch.Validate(); err != nil {
		return "", err
	}
	return ch, nil
}

// FeedProvider represents where release metadata is published.
type FeedProvider string

const (
	// FeedProviderGitHub reads releases from the GitHub releases API.
	FeedProviderGitHub FeedProvider = "github"
	// FeedProviderGeneric reads a latest.yml file from a plain HTTP location.
	FeedProviderGeneric FeedProvider = "generic"
)

// AllFeedProviders returns all valid feed providers.
func AllFeedProviders() []FeedProvider {
	return []FeedProvider{FeedProviderGitHub, FeedProviderGeneric}
}

// Validate checks if the FeedProvider is a valid value.
func (p FeedProvider) Validate() error {
	switch p {
	case FeedProviderGitHub, FeedProviderGeneric:
		return nil
	case "":
		return fmt.Errorf("feed provider is required")
	default:
		return fmt.Errorf("invalid feed provider '%s' (must be github or generic)", p)
	}
}

// String returns the string representation of the FeedProvider.
func (p FeedProvider) String() string {
	return string(p)
}

// IsGitHub returns true if the provider is GitHub.
func (p FeedProvider) IsGitHub() bool {
	return p == FeedProviderGitHub
}

// IsGeneric returns true if the provider is a generic HTTP server.
func (p FeedProvider) IsGeneric() bool {
	return p == FeedProviderGeneric
}

// RequiresRepo returns true if the provider needs owner and repo settings.
func (p FeedProvider) RequiresRepo() bool {
	return p == FeedProviderGitHub
}

// RequiresURL returns true if the provider needs a base URL.
func (p FeedProvider) RequiresURL() bool {
	return p == FeedProviderGeneric
}

// ParseFeedProvider parses a string into a FeedProvider.
// Returns an error if the string is not a valid provider.
func ParseFeedProvider(s string) (FeedProvider, error) {
	fp := FeedProvider(strings.ToLower(s))
	if err := fp.Validate(); err != nil {
		return "", err
	}
	return fp, nil
}
