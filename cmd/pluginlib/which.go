// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/invowk/pluginlib/internal/issue"
	"github.com/invowk/pluginlib/pkg/activate"

	"github.com/spf13/cobra"
)

func newWhichCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "which <class|resource>",
		Short: "Find the activated archive that provides a class",
		Long: `Resolve every library and print the first activated archive containing the
class or resource. Class names use dots (com.example.Foo); anything containing
a slash is looked up as an archive entry name. Relocated classes are found
under their relocated names.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}

			index := activate.NewArchiveIndex()
			defer func() { _ = index.Close() }() // read-only archives

			if _, err := s.bootstrap(cmd.Context(), index); err != nil {
				return app.fail(cmd, err)
			}

			name := entryName(args[0])
			archive, ok := index.Lookup(name)
			if !ok {
				return app.fail(cmd, issue.NewErrorContext().
					WithOperation("find class").
					WithResource(args[0]).
					WithIssue(issue.ClassNotFoundId).
					WithSuggestion("Relocated classes live under the relocation prefix; run 'pluginlib urls' to see the rules").
					Wrap(fmt.Errorf("%s is not in any of %d activated archives", name, len(index.Archives()))).
					BuildError())
			}
			fmt.Fprintln(app.stdout, archive)
			return nil
		},
	}
}

// entryName maps a class name to its archive entry; names with a slash are
// taken as entry names already.
func entryName(arg string) string {
	if strings.Contains(arg, "/") {
		return arg
	}
	return activate.ClassEntryName(arg)
}
