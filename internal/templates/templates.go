// Package templates embeds the starter files written by glint init.
package templates

import (
	"embed"
	"fmt"
	"sort"

	"github.com/adamancini/glint/internal/config"
	"github.com/adamancini/glint/internal/update"
)

//go:embed *.yaml
var templatesFS embed.FS

// Kind says what a template produces
type Kind string

const (
	// KindConfig is a glint config file
	KindConfig Kind = "config"
	// KindDevFeed is a dev-app-update.yml feed override
	KindDevFeed Kind = "dev-feed"
)

// Template is a starter file
type Template struct {
	Name        string
	Description string
	Kind        Kind
	Content     []byte
}

type builtin struct {
	description string
	kind        Kind
}

var builtins = map[string]builtin{
	"minimal": {"GitHub releases feed with defaults", KindConfig},
	"generic": {"Self-hosted feed serving latest.yml files", KindConfig},
	"full":    {"Every setting with its default value", KindConfig},
	"dev":     {"dev-app-update.yml for testing updates in dev builds", KindDevFeed},
}

// List returns the built-in template names in alphabetical order
func List() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get loads a built-in template
func Get(name string) (*Template, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("template '%s' not found (available: %v)", name, List())
	}
	content, err := templatesFS.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read template '%s': %w", name, err)
	}
	return &Template{
		Name:        name,
		Description: b.description,
		Kind:        b.kind,
		Content:     content,
	}, nil
}

// GetDescription returns the one-line summary of a template
func GetDescription(name string) string {
	if b, ok := builtins[name]; ok {
		return b.description
	}
	return "Custom template"
}

// DefaultFileName is the name the template is written under when no
// output path is given
func (t *Template) DefaultFileName() string {
	if t.Kind == KindDevFeed {
		return update.DefaultDevConfigPath
	}
	return "config.yaml"
}

// Validate parses the content the way glint will read it once written
func (t *Template) Validate() error {
	if t.Kind == KindDevFeed {
		_, err := update.ParseDevConfig(t.Content)
		return err
	}
	_, err := config.Parse(t.Content, t.DefaultFileName())
	return err
}
