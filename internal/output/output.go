// Package output renders command results as text, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adamancini/glint/internal/coordinator"
	"github.com/adamancini/glint/internal/update"
)

// Format represents an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the accepted --output values
func Formats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatYAML)}
}

// Writer handles output in the specified format.
type Writer struct {
	format Format
	w      io.Writer
}

// NewWriter creates a new output writer.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{format: format, w: w}
}

// Structured reports whether the writer emits machine readable output
func (w *Writer) Structured() bool {
	return w.format == FormatJSON || w.format == FormatYAML
}

// Write outputs the given value in the configured format.
func (w *Writer) Write(v interface{}) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w.w, text(v))
		return err
	}
}

// Progress prints a single download progress line. Structured formats stay
// silent so their output remains parseable.
func (w *Writer) Progress(p update.Progress) {
	if w.Structured() {
		return
	}
	if p.Total > 0 {
		_, _ = fmt.Fprintf(w.w, "\rDownloading... %3.0f%% (%s / %s)", p.Percent, humanBytes(p.Transferred), humanBytes(p.Total))
		return
	}
	_, _ = fmt.Fprintf(w.w, "\rDownloading... %s", humanBytes(p.Transferred))
}

func text(v interface{}) string {
	switch r := v.(type) {
	case coordinator.UpdateCheckResult:
		return checkText(r)
	case coordinator.VersionInfo:
		return fmt.Sprintf("%s version %s", r.Name, r.Version)
	case coordinator.DownloadResult:
		if !r.Success {
			return "Download failed: " + r.Error
		}
		return r.Message
	case fmt.Stringer:
		return r.String()
	default:
		return fmt.Sprintf("%+v", v)
	}
}

func checkText(r coordinator.UpdateCheckResult) string {
	var b strings.Builder
	if !r.Success {
		fmt.Fprintf(&b, "Update check failed: %s", r.Error)
		return b.String()
	}

	fmt.Fprintf(&b, "Current version: %s", r.CurrentVersion)
	if !r.UpdateAvailable {
		b.WriteString("\nAlready running the latest version")
		return b.String()
	}

	fmt.Fprintf(&b, "\nLatest version: %s available", r.LatestVersion)
	if r.ReleaseNotes != "" {
		fmt.Fprintf(&b, "\n\nRelease notes:\n%s", r.ReleaseNotes)
	}
	return b.String()
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// ParseFormat parses a format string into a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}
