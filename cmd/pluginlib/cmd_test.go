// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/pluginlib/internal/classfile"
	"github.com/invowk/pluginlib/internal/config"
	"github.com/invowk/pluginlib/internal/issue"
	"github.com/invowk/pluginlib/pkg/cache"

	"github.com/klauspost/compress/zip"
)

const testManifest = `
name: MyPlugin
runtime-libraries:
  relocation-prefix: org.example.libs
  delete-after-relocation: true
  libraries:
    kotlin:
      groupId: org.jetbrains.kotlin
      artifactId: kotlin-stdlib
      version: 1.9.0
      relocation:
        kotlin: kotlin
    gson:
      xml: <dependency><groupId>com.google.code.gson</groupId><artifactId>gson</artifactId><version>2.10.1</version></dependency>
`

type (
	staticConfig struct {
		cfg config.Config
		err error
	}

	fixture struct {
		repo      string
		cacheRoot string
		workDir   string
		stdout    bytes.Buffer
		stderr    bytes.Buffer
		app       *App
	}
)

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg := s.cfg
	return &cfg, nil
}

// publishArtifact writes a jar holding one class into a Maven layout under repo.
func publishArtifact(repo, group, artifact, version, class string) error {
	var cls bytes.Buffer
	_ = binary.Write(&cls, binary.BigEndian, classfile.Magic)
	_ = binary.Write(&cls, binary.BigEndian, []uint16{0, 65, 3})
	cls.WriteByte(classfile.TagUtf8)
	_ = binary.Write(&cls, binary.BigEndian, uint16(len(class)))
	cls.WriteString(class)
	cls.Write([]byte{classfile.TagClass, 0x00, 0x01, 0x00, 0x21})

	var jar bytes.Buffer
	w := zip.NewWriter(&jar)
	dst, err := w.Create(class + ".class")
	if err != nil {
		return err
	}
	if _, err := dst.Write(cls.Bytes()); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	path := filepath.Join(repo, filepath.Join(strings.Split(group, ".")...), artifact, version, artifact+"-"+version+".jar")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, jar.Bytes(), 0o644)
}

func newFixture(t *testing.T, manifest string) *fixture {
	t.Helper()

	f := &fixture{repo: t.TempDir(), cacheRoot: t.TempDir(), workDir: t.TempDir()}
	for _, a := range [][]string{
		{"org.jetbrains.kotlin", "kotlin-stdlib", "1.9.0", "kotlin/Unit"},
		{"com.google.code.gson", "gson", "2.10.1", "com/google/gson/Gson"},
	} {
		if err := publishArtifact(f.repo, a[0], a[1], a[2], a[3]); err != nil {
			t.Fatal(err)
		}
	}
	if manifest != "" {
		if err := os.WriteFile(filepath.Join(f.workDir, "plugin.yml"), []byte(manifest), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.CacheDir = f.cacheRoot
	cfg.DefaultRepository = "file://" + filepath.ToSlash(f.repo)
	cfg.LogLevel = config.LogLevelError

	f.app = NewApp(Dependencies{
		Config: staticConfig{cfg: *cfg},
		Stdout: &f.stdout,
		Stderr: &f.stderr,
		Getenv: func(string) string { return "" },
		Getwd:  func() (string, error) { return f.workDir, nil },
	})
	return f
}

func (f *fixture) run(t *testing.T, args ...string) error {
	t.Helper()

	f.stdout.Reset()
	f.stderr.Reset()
	root := newRootCommand(f.app)
	root.SetArgs(args)
	root.SetOut(&f.stdout)
	root.SetErr(&f.stderr)
	return root.ExecuteContext(t.Context())
}

func (f *fixture) libsDir() string {
	return filepath.Join(f.cacheRoot, "MyPlugin", "libs")
}

func assertIssue(t *testing.T, err error, want issue.Id) {
	t.Helper()

	if exitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1 (err = %v)", exitCode(err), err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error should carry an ActionableError, got %T: %v", err, err)
	}
	if ae.Issue != want {
		t.Errorf("Issue = %v, want %v", ae.Issue, want)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testManifest)
	if err := f.run(t, "resolve"); err != nil {
		t.Fatalf("resolve: %v\n%s", err, f.stderr.String())
	}

	out := f.stdout.String()
	for _, want := range []string{"MyPlugin", "kotlin", "gson", "2 of 2 libraries activated"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(f.libsDir(), "kotlin-stdlib-1.9.0-relocated.jar")); err != nil {
		t.Errorf("relocated artifact missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.libsDir(), "kotlin-stdlib-1.9.0.jar")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("raw artifact should be deleted after relocation, stat error = %v", err)
	}
}

func TestResolve_UnavailableArtifact(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `
name: MyPlugin
runtime-libraries:
  libraries:
    missing:
      groupId: org.example
      artifactId: missing
      version: "1.0"
    gson:
      groupId: com.google.code.gson
      artifactId: gson
      version: 2.10.1
`)
	err := f.run(t, "resolve")
	assertIssue(t, err, issue.ArtifactUnavailableId)
	if !errors.Is(err, cache.ErrArtifactUnavailable) {
		t.Errorf("errors.Is(err, ErrArtifactUnavailable) = false: %v", err)
	}

	out := f.stdout.String()
	if !strings.Contains(out, "failed-fetch") || !strings.Contains(out, "1 of 2 libraries activated") {
		t.Errorf("report:\n%s", out)
	}
	if !strings.Contains(f.stderr.String(), "artifact unavailable") {
		t.Errorf("stderr:\n%s", f.stderr.String())
	}
}

func TestManifestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest string
		want     issue.Id
	}{
		{name: "no manifest", manifest: "", want: issue.ManifestNotFoundId},
		{name: "missing prefix", manifest: `
name: MyPlugin
runtime-libraries:
  libraries:
    gson:
      groupId: com.google.code.gson
      artifactId: gson
      version: 2.10.1
      relocation:
        com#google#gson: gson
`, want: issue.MissingRelocationPrefixId},
		{name: "incomplete library", manifest: `
name: MyPlugin
runtime-libraries:
  libraries:
    direct:
      url: https://example.com/direct.jar
`, want: issue.IncompleteLibraryId},
		{name: "not yaml", manifest: "name: [unclosed", want: issue.ManifestParseErrorId},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.manifest)
			for _, args := range [][]string{{"resolve"}, {"urls"}} {
				assertIssue(t, f.run(t, args...), tt.want)
			}
			if entries, _ := os.ReadDir(f.cacheRoot); len(entries) != 0 {
				t.Errorf("cache root touched: %v", entries)
			}
		})
	}
}

func TestManifestFlag(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	path := filepath.Join(t.TempDir(), "host.yml")
	if err := os.WriteFile(path, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := f.run(t, "--manifest", path, "urls"); err != nil {
		t.Fatalf("urls: %v", err)
	}
	if !strings.Contains(f.stdout.String(), "kotlin-stdlib-1.9.0.jar") {
		t.Errorf("output:\n%s", f.stdout.String())
	}
}

func TestURLs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testManifest)
	if err := f.run(t, "urls"); err != nil {
		t.Fatalf("urls: %v", err)
	}

	repo := "file://" + filepath.ToSlash(f.repo)
	out := f.stdout.String()
	for _, want := range []string{
		repo + "/org/jetbrains/kotlin/kotlin-stdlib/1.9.0/kotlin-stdlib-1.9.0.jar",
		repo + "/com/google/code/gson/gson/2.10.1/gson-2.10.1.jar",
		filepath.Join(f.libsDir(), "kotlin-stdlib-1.9.0-relocated.jar"),
		filepath.Join(f.libsDir(), "gson-2.10.1.jar"),
		"org.example.libs.kotlin",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(f.libsDir()); !errors.Is(err, os.ErrNotExist) {
		t.Error("urls must not download anything")
	}
}

func TestClasspath(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testManifest)
	if err := f.run(t, "classpath"); err != nil {
		t.Fatalf("classpath: %v", err)
	}

	want := filepath.Join(f.libsDir(), "kotlin-stdlib-1.9.0-relocated.jar") +
		string(os.PathListSeparator) + filepath.Join(f.libsDir(), "gson-2.10.1.jar")
	if got := strings.TrimSpace(f.stdout.String()); got != want {
		t.Errorf("classpath = %q, want %q", got, want)
	}
}

func TestWhich(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testManifest)

	tests := []struct {
		arg  string
		want string
	}{
		{arg: "org.example.libs.kotlin.Unit", want: "kotlin-stdlib-1.9.0-relocated.jar"},
		{arg: "com.google.gson.Gson", want: "gson-2.10.1.jar"},
		{arg: "com/google/gson/Gson.class", want: "gson-2.10.1.jar"},
	}
	for _, tt := range tests {
		if err := f.run(t, "which", tt.arg); err != nil {
			t.Fatalf("which %s: %v", tt.arg, err)
		}
		if got := strings.TrimSpace(f.stdout.String()); got != filepath.Join(f.libsDir(), tt.want) {
			t.Errorf("which %s = %q, want %s", tt.arg, got, tt.want)
		}
	}

	err := f.run(t, "which", "kotlin.Unit")
	assertIssue(t, err, issue.ClassNotFoundId)
	if !strings.Contains(f.stderr.String(), "kotlin/Unit.class") {
		t.Errorf("stderr:\n%s", f.stderr.String())
	}
}

func TestExec(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	f := newFixture(t, testManifest)

	if err := f.run(t, "exec", "--", "sh", "-c", `echo "CP=$CLASSPATH"`); err != nil {
		t.Fatalf("exec: %v\n%s", err, f.stderr.String())
	}
	if !strings.Contains(f.stdout.String(), "CP="+filepath.Join(f.libsDir(), "kotlin-stdlib-1.9.0-relocated.jar")) {
		t.Errorf("child output:\n%s", f.stdout.String())
	}

	if err := f.run(t, "exec", "--env", "LIBS", "--", "sh", "-c", `echo "LIBS=$LIBS"`); err != nil {
		t.Fatalf("exec --env: %v", err)
	}
	if !strings.Contains(f.stdout.String(), "LIBS="+f.libsDir()) {
		t.Errorf("child output:\n%s", f.stdout.String())
	}

	if code := exitCode(f.run(t, "exec", "--", "sh", "-c", "exit 3")); code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}

func TestExec_CommandNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testManifest)
	err := f.run(t, "exec", "--", filepath.Join(t.TempDir(), "no-such-command"))
	if exitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", exitCode(err))
	}
	if !strings.Contains(f.stderr.String(), "run command") {
		t.Errorf("stderr:\n%s", f.stderr.String())
	}
}

func TestCacheListAndPrune(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testManifest)
	if err := f.run(t, "resolve"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	stray := filepath.Join(f.libsDir(), "old-lib-0.1.jar")
	if err := os.WriteFile(stray, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := f.run(t, "cache", "ls", "--digest"); err != nil {
		t.Fatalf("cache ls: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(f.stdout.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("cache ls printed %d lines:\n%s", len(lines), f.stdout.String())
	}
	for i, want := range []string{"gson-2.10.1.jar", "kotlin-stdlib-1.9.0-relocated.jar", "old-lib-0.1.jar"} {
		if !strings.Contains(lines[i+1], want) {
			t.Errorf("line %d = %q, want %s", i+1, lines[i+1], want)
		}
	}
	if !strings.Contains(lines[3], "unused") || strings.Contains(lines[1], "unused") {
		t.Errorf("unused marker misplaced:\n%s", f.stdout.String())
	}
	digest, err := cache.Digest(stray)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(lines[3], digest) {
		t.Errorf("digest %s missing from %q", digest, lines[3])
	}

	if err := f.run(t, "cache", "prune", "--dry-run"); err != nil {
		t.Fatalf("prune --dry-run: %v", err)
	}
	if out := f.stdout.String(); !strings.Contains(out, "would remove") || !strings.Contains(out, stray) {
		t.Errorf("dry run output:\n%s", f.stdout.String())
	}
	if _, err := os.Stat(stray); err != nil {
		t.Error("dry run removed the file")
	}

	if err := f.run(t, "cache", "prune"); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if _, err := os.Stat(stray); !errors.Is(err, os.ErrNotExist) {
		t.Error("prune kept the unused file")
	}
	if err := f.run(t, "cache", "prune"); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !strings.Contains(f.stdout.String(), "nothing to prune") {
		t.Errorf("second prune output:\n%s", f.stdout.String())
	}
}

func TestConfigDump(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	if err := f.run(t, "config", "dump"); err != nil {
		t.Fatalf("config dump: %v", err)
	}
	out := f.stdout.String()
	for _, want := range []string{`log_level: "error"`, "concurrency: 1", `default_repository: "file://`} {
		if !strings.Contains(out, want) {
			t.Errorf("dump does not contain %q:\n%s", want, out)
		}
	}
}

func TestConfigLoadFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testManifest)
	loadErr := issue.NewErrorContext().
		WithOperation("load configuration").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(errors.New("boom")).
		BuildError()
	f.app.Config = staticConfig{err: loadErr}

	assertIssue(t, f.run(t, "resolve"), issue.ConfigLoadFailedId)
	if _, err := os.Stat(f.libsDir()); !errors.Is(err, os.ErrNotExist) {
		t.Error("resolve ran without configuration")
	}
}

func TestConfigPathFlag(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	path := filepath.Join(t.TempDir(), "conf", "config.cue")
	if err := f.run(t, "--config", path, "config", "path"); err != nil {
		t.Fatalf("config path: %v", err)
	}
	if got := strings.TrimSpace(f.stdout.String()); got != path {
		t.Errorf("config path = %q, want %q", got, path)
	}

	if err := f.run(t, "--config", path, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != config.GenerateCUE(config.DefaultConfig()) {
		t.Errorf("config init wrote %q", data)
	}
}

func TestVerboseRendersIssue(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	err := f.run(t, "--verbose", "urls")
	assertIssue(t, err, issue.ManifestNotFoundId)
	if !strings.Contains(f.stderr.String(), "Error chain:") {
		t.Errorf("verbose output lacks the error chain:\n%s", f.stderr.String())
	}
	if !strings.Contains(f.stderr.String(), "manifest") {
		t.Errorf("verbose output lacks the issue text:\n%s", f.stderr.String())
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: 0},
		{err: errors.New("plain"), want: 1},
		{err: &ExitError{Code: 7}, want: 7},
		{err: fmt.Errorf("wrapped: %w", &ExitError{Code: 2}), want: 2},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}

	if msg := (&ExitError{Code: 4}).Error(); msg != "exit status 4" {
		t.Errorf("Error() = %q", msg)
	}
}

func TestSplitEntryName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		wantArtifact string
		wantVersion  string
	}{
		{name: "gson-2.10.1.jar", wantArtifact: "gson", wantVersion: "v2.10.1"},
		{name: "kotlin-stdlib-1.9.0-relocated.jar", wantArtifact: "kotlin-stdlib", wantVersion: "v1.9.0"},
		{name: "asm-commons-9.2.jar", wantArtifact: "asm-commons", wantVersion: "v9.2"},
		{name: "noversion.jar", wantArtifact: "noversion", wantVersion: ""},
	}
	for _, tt := range tests {
		artifact, version := splitEntryName(tt.name)
		if artifact != tt.wantArtifact || version != tt.wantVersion {
			t.Errorf("splitEntryName(%q) = %q, %q, want %q, %q", tt.name, artifact, version, tt.wantArtifact, tt.wantVersion)
		}
	}
}

func TestSortEntries(t *testing.T) {
	t.Parallel()

	var entries []cache.Entry
	for _, name := range []string{
		"gson-2.10.1.jar",
		"gson-2.9.0.jar",
		"caffeine-3.1.8-relocated.jar",
		"gson-2.10.1-relocated.jar",
		"caffeine-3.1.8.jar",
	} {
		entries = append(entries, cache.Entry{Name: name})
	}
	sortEntries(entries)

	want := []string{
		"caffeine-3.1.8-relocated.jar",
		"caffeine-3.1.8.jar",
		"gson-2.9.0.jar",
		"gson-2.10.1-relocated.jar",
		"gson-2.10.1.jar",
	}
	for i, e := range entries {
		if e.Name != want[i] {
			t.Errorf("entries[%d] = %s, want %s", i, e.Name, want[i])
		}
	}
}
