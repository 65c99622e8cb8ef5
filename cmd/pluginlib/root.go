// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/invowk/pluginlib/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

func newRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "pluginlib",
		Short: "Resolve, relocate and activate runtime libraries",
		Long: TitleStyle.Render("pluginlib") + SubtitleStyle.Render(" - runtime libraries for plugin hosts") + `

pluginlib reads the runtime-libraries section of a host manifest
(plugin.yml, plugin.cue or plugin.toml), downloads every declared
artifact into a per-application cache, rewrites package names where
relocations are declared and activates the results in order.

` + SubtitleStyle.Render("Examples:") + `
  pluginlib resolve                 Resolve and activate every library
  pluginlib urls                    Show where each library comes from
  pluginlib which com.example.Foo   Find the archive providing a class
  pluginlib exec -- java -jar app.jar
  pluginlib cache ls --digest       List cached artifacts`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable debug logging and detailed errors")
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is the user config directory's pluginlib/config.cue)")
	pf.StringVarP(&app.flags.manifestPath, "manifest", "m", "", "host manifest (default is the first of plugin.yml, plugin.yaml, plugin.cue, plugin.toml)")
	pf.StringVar(&app.flags.cacheDir, "cache-dir", "", "cache root holding one directory per application")

	root.AddCommand(
		newResolveCommand(app),
		newURLsCommand(app),
		newClasspathCommand(app),
		newExecCommand(app),
		newWhichCommand(app),
		newCacheCommand(app),
		newConfigCommand(app),
	)
	return root
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command line and exits the process. It is called by main.main().
func Execute() {
	os.Exit(Main())
}

// Main runs the command line and returns the process exit code.
func Main() int {
	app := NewApp(Dependencies{})
	err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// fail prints err for the user and returns an ExitError carrying it. In
// verbose mode the linked catalog entry is rendered below the error.
func (a *App) fail(cmd *cobra.Command, err error) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error:"), formatErrorForDisplay(err, a.flags.verbose))

	var ae *issue.ActionableError
	if a.flags.verbose && errors.As(err, &ae) && ae.Issue != 0 {
		if entry := issue.Get(ae.Issue); entry != nil {
			if rendered, renderErr := entry.Render("dark"); renderErr == nil {
				fmt.Fprint(a.stderr, rendered)
			}
		}
	}
	return &ExitError{Code: 1, Err: err}
}

// formatErrorForDisplay uses ActionableError.Format when err carries one.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
