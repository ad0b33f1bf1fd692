package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamancini/glint/internal/interactive"
	"github.com/adamancini/glint/internal/templates"
	"github.com/adamancini/glint/internal/update"
)

const remoteTemplateTimeout = 30 * time.Second

type initOptions struct {
	template string
	path     string
	force    bool
	quiet    bool
}

func newInitCmd(flags *globalFlags) *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Write a glint config file, or a dev-app-update.yml, from a built-in
template or a template URL. Without --template a menu is shown.

Config files go to $XDG_CONFIG_HOME/glint/config.yaml and the dev template
goes to ./dev-app-update.yml unless --path says otherwise.`,
		Example: `  glint init
  glint init -t generic
  glint init -t dev
  glint init -t https://example.com/glint.yaml --path ./glint.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.quiet = flags.quiet
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "built-in template name or URL")
	cmd.Flags().StringVar(&opts.path, "path", "", "where to write the file")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite without asking")

	_ = cmd.RegisterFlagCompletionFunc("template", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := templates.List()
		for i, name := range names {
			names[i] = name + "\t" + templates.GetDescription(name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(stdin io.Reader, stdout, stderr io.Writer, opts initOptions) error {
	prompter := interactive.NewPrompterWithIO(stdin, stdout)

	if opts.template == "" {
		names := templates.List()
		choices := make([]interactive.Choice, len(names))
		for i, name := range names {
			choices[i] = interactive.Choice{Label: name, Detail: templates.GetDescription(name)}
		}
		picked, err := prompter.Choose("Select a template:", choices)
		if err != nil {
			return err
		}
		opts.template = names[picked]
	}

	tmpl, err := loadTemplate(opts.template)
	if err != nil {
		return err
	}
	if err := tmpl.Validate(); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	path := opts.path
	if path == "" {
		path = defaultInitPath(tmpl)
	}
	path = expandHomePath(path)

	if _, err := os.Stat(path); err == nil && !opts.force {
		if !prompter.ConfirmOverwrite(path) {
			_, _ = fmt.Fprintln(stderr, "Left existing file untouched.")
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, tmpl.Content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if !opts.quiet {
		printInitNextSteps(stdout, path, tmpl.Kind)
	}
	return nil
}

func printInitNextSteps(w io.Writer, path string, kind templates.Kind) {
	steps := []string{
		"Edit the feed section",
		"Run 'glint check' to query the feed",
		"Run 'glint serve' to start the bridge",
	}
	if kind == templates.KindDevFeed {
		steps = []string{
			"Point url at a directory serving latest.yml",
			"Run 'glint check' from this directory with a dev build",
		}
	}

	_, _ = fmt.Fprintf(w, "\nCreated %s\n\nNext steps:\n", path)
	for i, step := range steps {
		_, _ = fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}
}

// loadTemplate resolves a built-in name, or downloads a URL as a config
// template
func loadTemplate(name string) (*templates.Template, error) {
	if !strings.HasPrefix(name, "http://") && !strings.HasPrefix(name, "https://") {
		return templates.Get(name)
	}

	content, err := fetchRemoteTemplate(name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template: %w", err)
	}
	return &templates.Template{
		Name:        "custom",
		Description: templates.GetDescription("custom"),
		Kind:        templates.KindConfig,
		Content:     content,
	}, nil
}

// fetchRemoteTemplate downloads url with the updater's retrying client
func fetchRemoteTemplate(url string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "glint-template-")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	ctx, cancel := context.WithTimeout(context.Background(), remoteTemplateTimeout)
	defer cancel()

	dst := filepath.Join(dir, "template")
	if err := update.NewHTTPDownloader().Download(ctx, url, dst, nil); err != nil {
		return nil, err
	}
	return os.ReadFile(dst)
}

// defaultInitPath is the first config search location, or the working
// directory for a dev feed
func defaultInitPath(tmpl *templates.Template) string {
	if tmpl.Kind == templates.KindDevFeed {
		return tmpl.DefaultFileName()
	}

	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return tmpl.DefaultFileName()
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "glint", tmpl.DefaultFileName())
}

// expandHomePath expands a leading ~/
func expandHomePath(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
