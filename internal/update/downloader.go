package update

import (
	"bufio"
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const (
	defaultDownloadRetries  = 3
	defaultProgressInterval = 250 * time.Millisecond
	userAgent               = "glint-updater"
)

// HTTPDownloader downloads artifacts over HTTP
type HTTPDownloader struct {
	client           *http.Client
	retries          uint64
	progressInterval time.Duration
}

// NewHTTPDownloader creates a new HTTP downloader
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		client:           &http.Client{},
		retries:          defaultDownloadRetries,
		progressInterval: defaultProgressInterval,
	}
}

// WithClient sets the HTTP client used for downloads
func (d *HTTPDownloader) WithClient(client *http.Client) *HTTPDownloader {
	if client != nil {
		d.client = client
	}
	return d
}

// WithRetries sets how many times a failed transfer is retried
func (d *HTTPDownloader) WithRetries(retries uint64) *HTTPDownloader {
	d.retries = retries
	return d
}

// WithProgressInterval sets the minimum time between progress callbacks
func (d *HTTPDownloader) WithProgressInterval(interval time.Duration) *HTTPDownloader {
	d.progressInterval = interval
	return d
}

// Download downloads a file from url to dst.
// The body is written to dst+".part" and renamed once complete, so dst never
// holds a partial file. Server errors and network failures are retried with
// exponential backoff; 4xx responses are not.
func (d *HTTPDownloader) Download(ctx context.Context, url string, dst string, onProgress ProgressFunc) error {
	partPath := dst + ".part"

	operation := func() error {
		return d.downloadOnce(ctx, url, partPath, onProgress)
	}
	notify := func(err error, wait time.Duration) {
		log.Warnf("download of %s failed, retrying in %v: %v", url, wait, err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newRetryBackOff(), d.retries), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		_ = os.Remove(partPath)
		return err
	}

	if err := os.Rename(partPath, dst); err != nil {
		_ = os.Remove(partPath)
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	log.Debugf("downloaded %s to %s", url, dst)
	return nil
}

func (d *HTTPDownloader) downloadOnce(ctx context.Context, url, dst string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create destination file %q: %w", dst, err))
	}

	progress := newProgressWriter(resp.ContentLength, d.progressInterval, onProgress)
	_, copyErr := io.Copy(io.MultiWriter(out, progress), resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf("failed to write response body to file: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close destination file: %w", closeErr)
	}

	progress.finish()
	return nil
}

// Verify checks the downloaded file against whatever checksum the feed
// published. SHA-512 wins over SHA-256, which wins over a checksums file.
func (d *HTTPDownloader) Verify(ctx context.Context, file string, info FileInfo) error {
	if info.Size > 0 {
		stat, err := os.Stat(file)
		if err != nil {
			return fmt.Errorf("failed to stat download: %w", err)
		}
		if stat.Size() != info.Size {
			return fmt.Errorf("size mismatch: got %d bytes, want %d", stat.Size(), info.Size)
		}
	}

	switch {
	case info.SHA512 != "":
		actual, err := calculateSHA512(file)
		if err != nil {
			return err
		}
		if actual != strings.TrimSpace(info.SHA512) {
			return fmt.Errorf("sha512 checksum mismatch: got %s, want %s", actual, info.SHA512)
		}
		return nil
	case info.SHA256 != "":
		actual, err := calculateSHA256(file)
		if err != nil {
			return err
		}
		expected := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(info.SHA256), "sha256:"))
		if actual != expected {
			return fmt.Errorf("checksum mismatch: got %s, want %s", actual, expected)
		}
		return nil
	case info.ChecksumURL != "":
		return d.VerifyChecksum(ctx, file, info.ChecksumURL)
	default:
		return fmt.Errorf("no checksum published for %s", info.Name)
	}
}

// VerifyChecksum verifies the downloaded file against a checksums.txt listing
func (d *HTTPDownloader) VerifyChecksum(ctx context.Context, file, checksumURL string) error {
	checksums, err := d.downloadChecksums(ctx, checksumURL)
	if err != nil {
		return fmt.Errorf("failed to download checksums: %w", err)
	}

	filename := filepath.Base(file)
	expected, ok := checksums[filename]
	if !ok {
		return fmt.Errorf("checksum for %s not found in checksums file", filename)
	}

	actual, err := calculateSHA256(file)
	if err != nil {
		return err
	}

	if actual != expected {
		return fmt.Errorf("checksum mismatch: got %s, want %s", actual, expected)
	}

	return nil
}

// downloadChecksums fetches and parses a "<sha256>  <filename>" listing
func (d *HTTPDownloader) downloadChecksums(ctx context.Context, url string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}

	checksums := make(map[string]string)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		checksums[strings.TrimPrefix(fields[1], "*")] = strings.ToLower(fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}

	return checksums, nil
}

func calculateSHA256(path string) (string, error) {
	sum, err := hashFile(path, sha256.New())
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// calculateSHA512 returns the base64 encoded digest, the encoding used in
// electron-builder metadata files.
func calculateSHA512(path string) (string, error) {
	sum, err := hashFile(path, sha512.New())
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sum), nil
}

func hashFile(path string, h hash.Hash) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

// HTTPStatusError is returned when a server answers with an unexpected status
type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status: %d", e.Code)
}

// statusError turns an unexpected HTTP status into an error, marking client
// errors as permanent so they are not retried.
func statusError(code int) error {
	err := &HTTPStatusError{Code: code}
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}

func newRetryBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return b
}

// progressWriter counts bytes and reports them at most once per interval
type progressWriter struct {
	total        int64
	transferred  int64
	lastReported int64
	started      time.Time
	lastReport   time.Time
	interval     time.Duration
	fn           ProgressFunc
}

func newProgressWriter(total int64, interval time.Duration, fn ProgressFunc) *progressWriter {
	now := time.Now()
	return &progressWriter{
		total:      total,
		started:    now,
		lastReport: now,
		interval:   interval,
		fn:         fn,
	}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.transferred += int64(len(p))
	if w.fn != nil && time.Since(w.lastReport) >= w.interval {
		w.report()
	}
	return len(p), nil
}

// finish emits the final 100% event
func (w *progressWriter) finish() {
	if w.fn == nil {
		return
	}
	if w.total <= 0 {
		w.total = w.transferred
	}
	w.report()
}

func (w *progressWriter) report() {
	now := time.Now()
	total := w.total
	if total < 0 {
		total = 0
	}

	var percent float64
	if total > 0 {
		percent = float64(w.transferred) * 100 / float64(total)
	}

	var bps int64
	if elapsed := now.Sub(w.started).Seconds(); elapsed > 0 {
		bps = int64(float64(w.transferred) / elapsed)
	}

	w.fn(Progress{
		Total:          total,
		Delta:          w.transferred - w.lastReported,
		Transferred:    w.transferred,
		Percent:        percent,
		BytesPerSecond: bps,
	})
	w.lastReported = w.transferred
	w.lastReport = now
}
