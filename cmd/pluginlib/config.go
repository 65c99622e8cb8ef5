// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/invowk/pluginlib/internal/config"
	"github.com/invowk/pluginlib/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `pluginlib config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pluginlib configuration",
		Long: `Manage pluginlib configuration.

Configuration is stored in:
  - Linux: ~/.config/pluginlib/config.cue
  - macOS: ~/Library/Application Support/pluginlib/config.cue
  - Windows: %APPDATA%\pluginlib\config.cue

Every key can be overridden with a PLUGINLIB_* environment variable, for
example PLUGINLIB_HTTP_TIMEOUT=30s.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := showConfig(cmd.Context(), app); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: app.flags.configPath})
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.configFilePath()
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Long:  "Write the default configuration unless a file already exists.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.configFilePath()
			if err != nil {
				return app.fail(cmd, err)
			}
			written, err := config.CreateDefaultConfig(filepath.Dir(path))
			if err != nil {
				return app.fail(cmd, issue.NewErrorContext().
					WithOperation("create config").
					WithResource(path).
					WithIssue(issue.PermissionDeniedId).
					Wrap(err).
					BuildError())
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), written)
			return nil
		},
	})

	return cfgCmd
}

// configFilePath returns --config, or config.cue in the user config directory.
func (a *App) configFilePath() (string, error) {
	if a.flags.configPath != "" {
		return a.flags.configPath, nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt), nil
}

func showConfig(ctx context.Context, app *App) error {
	loaded, err := config.LoadWithPath(ctx, config.LoadOptions{ConfigFilePath: app.flags.configPath})
	if err != nil {
		return err
	}
	cfg := loaded.Config
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	source := SubtitleStyle.Render("(using defaults)")
	if loaded.Path != "" {
		source = loaded.Path
	}
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), source)
	fmt.Fprintln(w)

	cacheDir := app.flags.cacheDir
	if cacheDir == "" {
		if cacheDir, err = cfg.ResolvedCacheDir(app.getenv); err != nil {
			cacheDir = SubtitleStyle.Render("(unavailable)")
		}
	}
	repository := cfg.DefaultRepository
	if repository == "" {
		repository = SubtitleStyle.Render("(maven central)")
	}
	timeout := cfg.HTTP.Timeout.String()
	if cfg.HTTP.Timeout == 0 {
		timeout = SubtitleStyle.Render("(none)")
	}
	userAgent := cfg.HTTP.UserAgent
	if userAgent == "" {
		userAgent = SubtitleStyle.Render("(default)")
	}

	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("cache_dir"), SuccessStyle.Render(cacheDir))
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("default_repository"), SuccessStyle.Render(repository))
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("log_level"), SuccessStyle.Render(cfg.LogLevel.String()))
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("concurrency"), SuccessStyle.Render(fmt.Sprint(cfg.Concurrency)))
	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("http"))
	fmt.Fprintf(w, "  timeout: %s\n", SuccessStyle.Render(timeout))
	fmt.Fprintf(w, "  user_agent: %s\n", SuccessStyle.Render(userAgent))
	return nil
}
