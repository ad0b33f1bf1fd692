package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func newChannelServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGenericFeedLatest(t *testing.T) {
	server := newChannelServer(t, map[string]string{
		"/releases/latest-linux.yml": `version: 1.0.1
files:
  - url: glint-1.0.1.AppImage
    sha512: c2hhNTEy
    size: 1024
  - url: https://mirror.example.com/glint-1.0.1.deb
    sha512: b3RoZXI=
path: glint-1.0.1.AppImage
sha512: c2hhNTEy
releaseName: Glint 1.0.1
releaseNotes: Bug fixes
releaseDate: '2026-01-02T03:04:05.000Z'
`,
	})

	feed := NewGenericFeed(server.URL + "/releases").
		WithPlatform(Platform{OS: "linux", Arch: "amd64"})

	info, err := feed.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if info == nil {
		t.Fatal("Latest() returned nil")
	}

	if info.Version != "1.0.1" {
		t.Errorf("Version = %s, want 1.0.1", info.Version)
	}
	if info.ReleaseNotes != "Bug fixes" {
		t.Errorf("ReleaseNotes = %v, want Bug fixes", info.ReleaseNotes)
	}
	if info.ReleaseName != "Glint 1.0.1" {
		t.Errorf("ReleaseName = %s", info.ReleaseName)
	}

	want := []FileInfo{
		{Name: "glint-1.0.1.AppImage", URL: server.URL + "/releases/glint-1.0.1.AppImage", Size: 1024, SHA512: "c2hhNTEy"},
		{Name: "glint-1.0.1.deb", URL: "https://mirror.example.com/glint-1.0.1.deb", SHA512: "b3RoZXI="},
	}
	if !reflect.DeepEqual(info.Files, want) {
		t.Errorf("Files = %+v, want %+v", info.Files, want)
	}
}

func TestGenericFeedLatest_LegacyPath(t *testing.T) {
	server := newChannelServer(t, map[string]string{
		"/latest-mac.yml": "version: v2.0.0\npath: glint-2.0.0.zip\nsha512: abc=\n",
	})

	feed := NewGenericFeed(server.URL).WithPlatform(Platform{OS: "darwin", Arch: "arm64"})

	info, err := feed.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if info.Version != "2.0.0" {
		t.Errorf("Version = %s, want 2.0.0", info.Version)
	}
	if len(info.Files) != 1 || info.Files[0].SHA512 != "abc=" || info.Files[0].Name != "glint-2.0.0.zip" {
		t.Errorf("Files = %+v", info.Files)
	}
	if info.ReleaseNotes != nil {
		t.Errorf("ReleaseNotes = %v, want nil", info.ReleaseNotes)
	}
}

func TestGenericFeedLatest_ReleaseNotesList(t *testing.T) {
	server := newChannelServer(t, map[string]string{
		"/latest.yml": `version: 1.2.0
releaseNotes:
  - version: 1.2.0
    note: Faster startup
  - version: 1.1.0
    note: Dark mode
  - version: 1.0.0
    note: null
`,
	})

	feed := NewGenericFeed(server.URL).WithPlatform(Platform{OS: "windows", Arch: "amd64"})

	info, err := feed.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}

	want := []ReleaseNoteInfo{
		{Version: "1.2.0", Note: "Faster startup"},
		{Version: "1.1.0", Note: "Dark mode"},
		{Version: "1.0.0"},
	}
	if !reflect.DeepEqual(info.ReleaseNotes, want) {
		t.Errorf("ReleaseNotes = %#v, want %#v", info.ReleaseNotes, want)
	}
}

func TestGenericFeedLatest_NotPublished(t *testing.T) {
	server := newChannelServer(t, map[string]string{})
	feed := NewGenericFeed(server.URL).WithPlatform(Platform{OS: "linux", Arch: "amd64"})

	info, err := feed.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if info != nil {
		t.Errorf("Latest() = %+v, want nil", info)
	}
}

func TestGenericFeedLatest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad yaml", body: "version: [unterminated"},
		{name: "missing version", body: "path: glint.zip\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newChannelServer(t, map[string]string{"/latest-linux.yml": tt.body})
			feed := NewGenericFeed(server.URL).WithPlatform(Platform{OS: "linux", Arch: "amd64"})

			if _, err := feed.Latest(context.Background()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNormalizeReleaseNotes(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  interface{}
	}{
		{name: "string", input: "notes", want: "notes"},
		{name: "nil", input: nil, want: nil},
		{name: "number", input: 42, want: nil},
		{
			name:  "list skips non maps",
			input: []interface{}{"junk", map[string]interface{}{"version": "1.0.0", "note": "x"}},
			want:  []ReleaseNoteInfo{{Version: "1.0.0", Note: "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeReleaseNotes(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeReleaseNotes() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
