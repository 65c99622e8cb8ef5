// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"pluginlib": Main,
	}))
}

func TestCLI(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "script"),
		Setup: func(env *testscript.Env) error {
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, "config"))
			env.Setenv("PLUGINLIB_CACHE_DIR", filepath.Join(env.WorkDir, "cache"))
			env.Setenv("PLUGINLIB_DEFAULT_REPOSITORY", "file://"+filepath.ToSlash(filepath.Join(env.WorkDir, "repo")))
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"publish": cmdPublish,
		},
		ContinueOnError: true,
	})
}

// cmdPublish writes a single-class jar into a Maven repository layout:
//
//	publish <repo> <groupId> <artifactId> <version> <class/path>
func cmdPublish(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("unsupported: ! publish")
	}
	if len(args) != 5 {
		ts.Fatalf("usage: publish repo groupId artifactId version class/path")
	}
	ts.Check(publishArtifact(ts.MkAbs(args[0]), args[1], args[2], args[3], args[4]))
}
