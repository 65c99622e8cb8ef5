// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"os/exec"

	"github.com/invowk/pluginlib/internal/issue"
	"github.com/invowk/pluginlib/pkg/activate"

	"github.com/spf13/cobra"
)

// DefaultClasspathVariable is the environment variable exec sets.
const DefaultClasspathVariable = "CLASSPATH"

func newExecCommand(app *App) *cobra.Command {
	var envName string

	cmd := &cobra.Command{
		Use:   "exec -- <command> [args...]",
		Short: "Run a command with the activated classpath",
		Long: `Resolve every library, then run the command with the activated artifacts
in its environment. The child's exit code becomes pluginlib's exit code.`,
		Example: `  pluginlib exec -- java -cp "$CLASSPATH:app.jar" com.example.Main
  pluginlib exec --env JAVA_CLASSPATH -- ./start.sh`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}

			var searchPath activate.SearchPath
			if _, err := s.bootstrap(cmd.Context(), &searchPath); err != nil {
				return app.fail(cmd, err)
			}

			child := exec.CommandContext(cmd.Context(), args[0], args[1:]...)
			child.Env = append(os.Environ(), searchPath.Environ(envName))
			child.Stdin = os.Stdin
			child.Stdout = app.stdout
			child.Stderr = app.stderr

			s.logger.Debug("starting child process", "command", args[0], "classpath", searchPath.String())
			if err := child.Run(); err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					cmd.SilenceErrors = true
					code := exitErr.ExitCode()
					if code < 0 {
						code = 1 // terminated by a signal
					}
					return &ExitError{Code: code}
				}
				return app.fail(cmd, issue.NewErrorContext().
					WithOperation("run command").
					WithResource(args[0]).
					WithSuggestion("Check that the command is installed and on PATH").
					Wrap(err).
					BuildError())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", DefaultClasspathVariable, "environment variable receiving the classpath")
	return cmd
}
