package update

import (
	"runtime"
	"strings"
)

// installable lists the targets where a running binary can be swapped in place
var installable = map[string][]string{
	"darwin": {"amd64", "arm64"},
	"linux":  {"amd64", "arm64"},
}

// Detect returns the platform glint was built for
func Detect() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// String returns os/arch
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// BinaryName is the release asset glint publishes for p,
// such as glint-linux-arm64 or glint-windows-amd64.exe.
func (p Platform) BinaryName() string {
	var b strings.Builder
	b.WriteString("glint-")
	b.WriteString(p.OS)
	b.WriteString("-")
	b.WriteString(p.Arch)
	if p.OS == "windows" {
		b.WriteString(".exe")
	}
	return b.String()
}

// ChannelFile names the metadata file a generic feed serves for p. The
// names match electron-builder output.
func (p Platform) ChannelFile() string {
	switch p.OS {
	case "darwin":
		return "latest-mac.yml"
	case "linux":
		return "latest-linux.yml"
	}
	return "latest.yml"
}

// IsSupported reports whether updates can be installed in place on p.
// Windows locks running executables.
func (p Platform) IsSupported() bool {
	for _, arch := range installable[p.OS] {
		if arch == p.Arch {
			return true
		}
	}
	return false
}
