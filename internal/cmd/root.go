package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/glint/internal/config"
	"github.com/adamancini/glint/internal/logging"
	"github.com/adamancini/glint/internal/output"
)

// BuildInfo is stamped into the binary with ldflags
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// globalFlags are shared by every subcommand
type globalFlags struct {
	outputFormat string
	configPath   string
	logLevel     string
	logFile      string
	verbose      bool
	quiet        bool
}

func Execute(version, commit, date string) error {
	return newRootCmd(BuildInfo{Version: version, Commit: commit, Date: date}).Execute()
}

func newRootCmd(build BuildInfo) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "glint",
		Short: "Self-updating desktop backend",
		Long: `glint is the backend of the glint desktop app. It checks a release feed,
downloads and installs updates, and pushes update progress to every open window.

Run glint serve to start the bridge the UI connects to.`,
		Version:      build.Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Log file path or console (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "Quiet mode (errors only)")

	rootCmd.AddCommand(newInitCmd(flags))
	rootCmd.AddCommand(newServeCmd(flags, build))
	rootCmd.AddCommand(newCheckCmd(flags, build))
	rootCmd.AddCommand(newUpdateCmd(flags, build))
	rootCmd.AddCommand(newVersionCmd(flags, build))
	rootCmd.AddCommand(newCacheCmd(flags))
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return output.Formats(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"trace", "debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

// session is what every command starts from: the resolved config, logging
// set up and an output writer
type session struct {
	cfg     *config.Config
	path    string
	out     *output.Writer
	stdout  io.Writer
	flags   *globalFlags
	context context.Context
}

func newSession(cmd *cobra.Command, flags *globalFlags) (*session, error) {
	format, err := output.ParseFormat(flags.outputFormat)
	if err != nil {
		return nil, err
	}

	cfg, path, err := config.Resolve(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	switch {
	case flags.logLevel != "":
		level = flags.logLevel
	case flags.verbose:
		level = "debug"
	case flags.quiet:
		level = "error"
	}
	logFile := cfg.Log.File
	if flags.logFile != "" {
		logFile = flags.logFile
	}
	if err := logging.InitLog(level, logFile); err != nil {
		return nil, err
	}

	return &session{
		cfg:     cfg,
		path:    path,
		out:     output.NewWriter(cmd.OutOrStdout(), format),
		stdout:  cmd.OutOrStdout(),
		flags:   flags,
		context: cmd.Context(),
	}, nil
}

// say prints a human readable line unless the output is structured or quiet
func (s *session) say(format string, args ...interface{}) {
	if s.out.Structured() || s.flags.quiet {
		return
	}
	_, _ = fmt.Fprintf(s.stdout, format+"\n", args...)
}
