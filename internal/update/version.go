package update

import (
	"errors"
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

var errEmptyVersion = errors.New("empty version")

// ParseVersion parses a release tag or version such as v1.2.0 or 1.3.0-beta.2
func ParseVersion(s string) (*goversion.Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyVersion
	}
	v, err := goversion.NewSemver(s)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q", s)
	}
	return v, nil
}

// NormalizeVersion strips surrounding space and a leading v
func NormalizeVersion(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "v")
}

// compareVersions orders a and b by semver precedence
func compareVersions(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// isNewer reports whether latest sorts after current. Tags that are not
// semver, such as nightly builds, count as newer whenever they differ.
func isNewer(latest, current string) bool {
	cmp, err := compareVersions(latest, current)
	if err != nil {
		return NormalizeVersion(latest) != NormalizeVersion(current)
	}
	return cmp > 0
}
