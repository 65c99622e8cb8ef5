// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/invowk/pluginlib/internal/issue"
	"github.com/invowk/pluginlib/pkg/cache"
	"github.com/invowk/pluginlib/pkg/library"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

func newCacheCommand(app *App) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clean the application's library cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cacheCmd.AddCommand(newCacheListCommand(app), newCachePruneCommand(app))
	return cacheCmd
}

func newCacheListCommand(app *App) *cobra.Command {
	var withDigest bool

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cached artifacts",
		Long: `List the artifacts in the manifest's cache directory, grouped by artifact
and ordered by version. Entries no declared library resolves to are marked
unused; 'pluginlib cache prune' removes them.`,
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
			entries, err := c.Entries()
			if err != nil {
				return app.fail(cmd, cacheError(c.Dir(), err))
			}
			unused, err := c.Prune(manifest.Descriptors(), true)
			if err != nil {
				return app.fail(cmd, cacheError(c.Dir(), err))
			}

			fmt.Fprintln(app.stdout, TitleStyle.Render(c.Dir()))
			if len(entries) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("  (empty)"))
				return nil
			}

			sortEntries(entries)
			for _, e := range entries {
				line := fmt.Sprintf("  %s %s", KeyStyle.Render(e.Name), SubtitleStyle.Render(fmt.Sprintf("%d bytes", e.Size)))
				if withDigest {
					digest, err := cache.Digest(e.Path)
					if err != nil {
						return app.fail(cmd, cacheError(e.Path, err))
					}
					line += " " + digest
				}
				if slices.Contains(unused, e.Path) {
					line += " " + WarningStyle.Render("unused")
				}
				fmt.Fprintln(app.stdout, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withDigest, "digest", false, "show the BLAKE3 digest of each artifact")
	return cmd
}

func newCachePruneCommand(app *App) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove cached artifacts no declared library uses",
		Long: `Remove every artifact and leftover temporary file in the manifest's cache
directory that no declared library resolves to.`,
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
			removed, err := c.Prune(manifest.Descriptors(), dryRun)
			if err != nil {
				return app.fail(cmd, cacheError(c.Dir(), err))
			}

			verb := SuccessStyle.Render("removed")
			if dryRun {
				verb = WarningStyle.Render("would remove")
			}
			for _, path := range removed {
				fmt.Fprintf(app.stdout, "%s %s\n", verb, path)
			}
			if len(removed) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("nothing to prune"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be removed without removing it")
	return cmd
}

func cacheError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("read cache").
		WithResource(path).
		WithIssue(issue.PermissionDeniedId).
		Wrap(err).
		BuildError()
}

// sortEntries orders entries by artifact name, then by version with semver
// precedence, then by name. Raw and relocated copies of one version stay
// adjacent.
func sortEntries(entries []cache.Entry) {
	slices.SortFunc(entries, func(a, b cache.Entry) int {
		aArtifact, aVersion := splitEntryName(a.Name)
		bArtifact, bVersion := splitEntryName(b.Name)
		return cmp.Or(
			cmp.Compare(aArtifact, bArtifact),
			semver.Compare(aVersion, bVersion),
			cmp.Compare(a.Name, b.Name),
		)
	})
}

// splitEntryName splits "<artifact>-<version>[-relocated].jar" at the first
// hyphen followed by a digit. The version is returned in semver's "v" form;
// versions semver does not accept sort before valid ones.
func splitEntryName(name string) (artifact, version string) {
	stem := strings.TrimSuffix(name, library.ArchiveExt)
	stem = strings.TrimSuffix(stem, cache.RelocatedSuffix)
	for i := 0; i < len(stem)-1; i++ {
		if stem[i] == '-' && unicode.IsDigit(rune(stem[i+1])) {
			return stem[:i], "v" + stem[i+1:]
		}
	}
	return stem, ""
}
