package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a config file encoding
type Format int

const (
	FormatUnknown Format = iota
	FormatYAML
	FormatTOML
	FormatJSON
)

var formatNames = map[Format]string{
	FormatYAML: "yaml",
	FormatTOML: "toml",
	FormatJSON: "json",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

var extensionFormats = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".toml": FormatTOML,
	".json": FormatJSON,
}

var decoders = map[Format]func([]byte, interface{}) error{
	FormatYAML: yaml.Unmarshal,
	FormatTOML: toml.Unmarshal,
	FormatJSON: json.Unmarshal,
}

// detectFormat trusts the file extension and falls back to sniffing content
func detectFormat(path string, content []byte) Format {
	if f, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]; ok {
		return f
	}
	return sniffFormat(content)
}

// sniffFormat guesses from the first significant line
func sniffFormat(content []byte) Format {
	content = bytes.TrimSpace(content)
	if bytes.HasPrefix(content, []byte("{")) {
		return FormatJSON
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "", strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "["), strings.Contains(line, " = "):
			return FormatTOML
		case strings.Contains(line, ":"):
			return FormatYAML
		}
	}
	return FormatUnknown
}

// envRef matches ${NAME} and ${NAME:-fallback}
var envRef = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvVars substitutes environment references. Unset or empty
// variables take the fallback when one is given.
func expandEnvVars(content []byte) []byte {
	return envRef.ReplaceAllFunc(content, func(ref []byte) []byte {
		m := envRef.FindSubmatch(ref)
		if value := os.Getenv(string(m[1])); value != "" {
			return []byte(value)
		}
		return m[2]
	})
}

// parse decodes content over Default(), so absent keys keep their defaults
func parse(content []byte, format Format) (*Config, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("unknown file format")
	}

	cfg := Default()
	if err := decode(expandEnvVars(content), cfg); err != nil {
		return nil, fmt.Errorf("%s parse error: %w", strings.ToUpper(format.String()), err)
	}
	return cfg, nil
}
