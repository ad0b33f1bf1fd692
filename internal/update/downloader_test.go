package update

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusSequence answers with each status in turn, then 200 with body
func statusSequence(t *testing.T, body string, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func fastDownloader() *HTTPDownloader {
	return NewHTTPDownloader().WithRetries(3)
}

func TestHTTPDownloader_Download(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantErr   bool
		wantCalls int32
	}{
		{name: "first attempt", wantCalls: 1},
		{name: "retries unavailable", statuses: []int{http.StatusServiceUnavailable}, wantCalls: 2},
		{name: "retries rate limit", statuses: []int{http.StatusTooManyRequests}, wantCalls: 2},
		{name: "not found is permanent", statuses: []int{http.StatusNotFound}, wantErr: true, wantCalls: 1},
		{name: "forbidden is permanent", statuses: []int{http.StatusForbidden}, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, calls := statusSequence(t, "glint 1.1.0", tt.statuses...)
			dst := filepath.Join(t.TempDir(), "glint-1.1.0")

			err := fastDownloader().Download(context.Background(), server.URL, dst, nil)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
			assert.NoFileExists(t, dst+".part")

			if tt.wantErr {
				require.Error(t, err)
				var statusErr *HTTPStatusError
				assert.ErrorAs(t, err, &statusErr)
				assert.NoFileExists(t, dst)
				return
			}
			require.NoError(t, err)
			content, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, "glint 1.1.0", string(content))
		})
	}
}

func TestHTTPDownloader_DownloadUnreachable(t *testing.T) {
	err := NewHTTPDownloader().WithRetries(0).
		Download(context.Background(), "http://127.0.0.1:1/glint", filepath.Join(t.TempDir(), "bin"), nil)
	assert.Error(t, err)
}

func TestHTTPDownloader_DownloadBadDestination(t *testing.T) {
	server, _ := statusSequence(t, "payload")
	dst := filepath.Join(t.TempDir(), "missing", "dir", "bin")

	err := fastDownloader().Download(context.Background(), server.URL, dst, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create destination file")
}

func TestHTTPDownloader_DownloadCancelled(t *testing.T) {
	server, _ := statusSequence(t, "", http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, fastDownloader().Download(ctx, server.URL, filepath.Join(t.TempDir(), "bin"), nil))
}

func TestHTTPDownloader_DownloadProgress(t *testing.T) {
	payload := strings.Repeat("g", 8192)
	server, _ := statusSequence(t, payload)

	var events []Progress
	err := NewHTTPDownloader().WithProgressInterval(time.Hour).
		Download(context.Background(), server.URL, filepath.Join(t.TempDir(), "bin"), func(p Progress) {
			events = append(events, p)
		})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, int64(len(payload)), last.Transferred)
	assert.Equal(t, int64(len(payload)), last.Total)
	assert.Equal(t, float64(100), last.Percent)

	var delta int64
	for _, e := range events {
		delta += e.Delta
	}
	assert.Equal(t, int64(len(payload)), delta, "deltas add up to the transfer")
}

func TestProgressWriter_UnknownLength(t *testing.T) {
	var got []Progress
	w := newProgressWriter(-1, time.Hour, func(p Progress) { got = append(got, p) })
	_, _ = w.Write([]byte("abc"))
	_, _ = w.Write([]byte("de"))
	w.finish()

	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].Total)
	assert.Equal(t, float64(100), got[0].Percent)
}

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCalculateDigests(t *testing.T) {
	path := writeArtifact(t, "glint-linux-amd64", "glint")

	sum256 := sha256.Sum256([]byte("glint"))
	got256, err := calculateSHA256(path)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum256[:]), got256)

	sum512 := sha512.Sum512([]byte("glint"))
	got512, err := calculateSHA512(path)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum512[:]), got512)

	_, err = calculateSHA256(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestHTTPDownloader_Verify(t *testing.T) {
	const content = "glint release build"
	path := writeArtifact(t, "glint-linux-amd64", content)

	sum512 := sha512.Sum512([]byte(content))
	sha512b64 := base64.StdEncoding.EncodeToString(sum512[:])
	sum256 := sha256.Sum256([]byte(content))
	sha256hex := hex.EncodeToString(sum256[:])

	tests := []struct {
		name    string
		info    FileInfo
		wantErr string
	}{
		{name: "sha512", info: FileInfo{SHA512: sha512b64}},
		{name: "sha512 with size", info: FileInfo{SHA512: sha512b64, Size: int64(len(content))}},
		{name: "sha512 mismatch", info: FileInfo{SHA512: base64.StdEncoding.EncodeToString(make([]byte, 64))}, wantErr: "sha512 checksum mismatch"},
		{name: "sha512 preferred over sha256", info: FileInfo{SHA512: sha512b64, SHA256: "deadbeef"}},
		{name: "sha256 prefixed upper case", info: FileInfo{SHA256: "sha256:" + strings.ToUpper(sha256hex)}},
		{name: "sha256 mismatch", info: FileInfo{SHA256: strings.Repeat("0", 64)}, wantErr: "checksum mismatch"},
		{name: "size mismatch", info: FileInfo{SHA256: sha256hex, Size: 1}, wantErr: "size mismatch"},
		{name: "nothing published", info: FileInfo{Name: "glint-linux-amd64"}, wantErr: "no checksum published"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewHTTPDownloader().Verify(context.Background(), path, tt.info)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func checksumServer(t *testing.T, status int, listing string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(listing))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPDownloader_VerifyChecksumsFile(t *testing.T) {
	const content = "glint darwin build"
	path := writeArtifact(t, "glint-darwin-arm64", content)
	sum := sha256.Sum256([]byte(content))
	good := hex.EncodeToString(sum[:])

	tests := []struct {
		name    string
		status  int
		listing string
		wantErr string
	}{
		{
			name:    "listed",
			status:  http.StatusOK,
			listing: strings.Repeat("0", 64) + "  glint-linux-amd64\n" + strings.ToUpper(good) + "  glint-darwin-arm64\n",
		},
		{
			name:    "binary mode marker",
			status:  http.StatusOK,
			listing: good + " *glint-darwin-arm64\n",
		},
		{
			name:    "malformed lines skipped",
			status:  http.StatusOK,
			listing: "garbage\n\n" + good + "  glint-darwin-arm64  extra\n" + good + "  glint-darwin-arm64\n",
		},
		{
			name:    "mismatch",
			status:  http.StatusOK,
			listing: strings.Repeat("f", 64) + "  glint-darwin-arm64\n",
			wantErr: "checksum mismatch",
		},
		{
			name:    "not listed",
			status:  http.StatusOK,
			listing: good + "  glint-linux-amd64\n",
			wantErr: "not found in checksums file",
		},
		{
			name:    "listing unavailable",
			status:  http.StatusNotFound,
			wantErr: "failed to download checksums",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := checksumServer(t, tt.status, tt.listing)
			err := NewHTTPDownloader().Verify(context.Background(), path, FileInfo{ChecksumURL: server.URL + "/checksums.txt"})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPDownloader_VerifyChecksumsFileCancelled(t *testing.T) {
	path := writeArtifact(t, "glint-linux-amd64", "glint")

	stalled := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-stalled:
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(stalled) })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- NewHTTPDownloader().Verify(ctx, path, FileInfo{ChecksumURL: server.URL + "/checksums.txt"})
	}()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("checksums fetch ignored the context")
	}
}
