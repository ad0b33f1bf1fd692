package update

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	p := Detect()
	assert.Equal(t, runtime.GOOS, p.OS)
	assert.Equal(t, runtime.GOARCH, p.Arch)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, p.String())
}

func TestPlatform(t *testing.T) {
	tests := []struct {
		p         Platform
		binary    string
		channel   string
		supported bool
	}{
		{Platform{"darwin", "arm64"}, "glint-darwin-arm64", "latest-mac.yml", true},
		{Platform{"darwin", "amd64"}, "glint-darwin-amd64", "latest-mac.yml", true},
		{Platform{"darwin", "386"}, "glint-darwin-386", "latest-mac.yml", false},
		{Platform{"linux", "amd64"}, "glint-linux-amd64", "latest-linux.yml", true},
		{Platform{"linux", "arm64"}, "glint-linux-arm64", "latest-linux.yml", true},
		{Platform{"windows", "amd64"}, "glint-windows-amd64.exe", "latest.yml", false},
		{Platform{"freebsd", "amd64"}, "glint-freebsd-amd64", "latest.yml", false},
	}

	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			assert.Equal(t, tt.binary, tt.p.BinaryName())
			assert.Equal(t, tt.channel, tt.p.ChannelFile())
			assert.Equal(t, tt.supported, tt.p.IsSupported())
		})
	}
}
