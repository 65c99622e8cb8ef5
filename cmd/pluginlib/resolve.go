// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/invowk/pluginlib/pkg/activate"
	"github.com/invowk/pluginlib/pkg/pipeline"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const stateColumnWidth = 19

func newResolveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve and activate every declared library",
		Long: `Download, relocate and activate every library declared in the manifest.

Artifacts already present in the cache are reused. Libraries that cannot be
fetched or rewritten are reported after the others complete; an activation
failure stops the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}

			var searchPath activate.SearchPath
			b, err := s.bootstrap(cmd.Context(), &searchPath)
			if b != nil {
				renderReport(app.stdout, b)
			}
			if err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}
}

func newClasspathCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "classpath",
		Short: "Print the activated classpath",
		Long: `Resolve every library and print the activated artifacts joined with the
platform's path list separator.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}

			var searchPath activate.SearchPath
			if _, err := s.bootstrap(cmd.Context(), &searchPath); err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprintln(app.stdout, searchPath.String())
			return nil
		},
	}
}

// renderReport prints one line per declared library and a summary.
func renderReport(w io.Writer, b *pipeline.Bootstrapped) {
	fmt.Fprintln(w, TitleStyle.Render(b.Manifest.AppName)+" "+SubtitleStyle.Render(b.Cache.Dir()))
	for _, st := range b.Report.Statuses {
		state := stateStyle(st.State).Width(stateColumnWidth).Render(st.State.String())
		detail := st.Path
		if st.Err != nil {
			detail = st.Err.Error()
		}
		fmt.Fprintf(w, "  %s %s %s\n", state, KeyStyle.Render(st.Key), SubtitleStyle.Render(detail))
	}

	activated := len(b.Report.Activated())
	summary := fmt.Sprintf("%d of %d libraries activated", activated, len(b.Report.Statuses))
	if failed := len(b.Report.Failed()); failed > 0 {
		fmt.Fprintln(w, ErrorStyle.Render(summary))
		return
	}
	fmt.Fprintln(w, SuccessStyle.Render(summary))
}

func stateStyle(s pipeline.State) lipgloss.Style {
	switch {
	case s == pipeline.Activated:
		return SuccessStyle
	case s.Failed():
		return ErrorStyle
	default:
		return WarningStyle
	}
}
