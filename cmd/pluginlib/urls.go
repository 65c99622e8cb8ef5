// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newURLsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "urls",
		Short: "Show where each declared library is downloaded from",
		Long: `Expand the manifest and print every library's download URL and cache file,
followed by its relocation rules. Nothing is downloaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}
			manifest, err := s.loadManifest(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}

			c := s.cacheFor(manifest)
			for _, e := range manifest.Libraries {
				d := e.Descriptor
				fmt.Fprintf(app.stdout, "%s %s\n", KeyStyle.Render(e.Key), d.URL())
				fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("cache"), c.FinalPath(d))
				for _, r := range d.Relocations() {
					fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("relocate"), r)
				}
			}
			return nil
		},
	}
}
