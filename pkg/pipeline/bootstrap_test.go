// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/pluginlib/internal/classfile"
	"github.com/invowk/pluginlib/pkg/activate"
	"github.com/invowk/pluginlib/pkg/cache"
	"github.com/invowk/pluginlib/pkg/declaration"

	"github.com/klauspost/compress/zip"
)

const kotlinManifest = `
name: MyPlugin
runtime-libraries:
  relocation-prefix: org.example.libs
  libraries:
    kotlin:
      groupId: org.jetbrains.kotlin
      artifactId: kotlin-stdlib
      version: 1.9.0
      relocation:
        kotlin: kotlin
`

// publish writes a jar with one class into a Maven layout under repo.
func publish(t *testing.T, repo, group, artifact, version, class string) {
	t.Helper()

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
		t.Fatal(err)
	}
	if _, err := dst.Write(cls.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(repo, filepath.Join(strings.Split(group, ".")...), artifact, version, artifact+"-"+version+".jar")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, jar.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "plugin.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBootstrap(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	publish(t, repo, "org.jetbrains.kotlin", "kotlin-stdlib", "1.9.0", "kotlin/Unit")
	cacheRoot := t.TempDir()

	index := activate.NewArchiveIndex()
	t.Cleanup(func() { _ = index.Close() })
	var sp activate.SearchPath

	out, err := Bootstrap(t.Context(), BootstrapOptions{
		Manifest: declaration.LoadOptions{
			Path: writeManifest(t, kotlinManifest),
			ParseOptions: declaration.ParseOptions{
				CacheRoot:         cacheRoot,
				DefaultRepository: "file://" + filepath.ToSlash(repo),
			},
		},
		Loader: activate.Multi(index, &sp),
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	wantDir := filepath.Join(cacheRoot, "MyPlugin", declaration.DefaultLibrariesFolder)
	if out.Cache.Dir() != wantDir {
		t.Errorf("cache dir = %q, want %q", out.Cache.Dir(), wantDir)
	}
	relocated := filepath.Join(wantDir, "kotlin-stdlib-1.9.0-relocated.jar")
	if paths := sp.Paths(); len(paths) != 1 || paths[0] != relocated {
		t.Errorf("search path = %v, want [%s]", paths, relocated)
	}
	if !index.ClassExists("org.example.libs.kotlin.Unit") {
		t.Error("relocated class not found")
	}
	if index.ClassExists("kotlin.Unit") {
		t.Error("original class still present")
	}
	if got := out.Report.Statuses[0]; got.State != Activated || got.Key != "kotlin" {
		t.Errorf("status = %+v", got)
	}
	if out.Manifest.AppName != "MyPlugin" {
		t.Errorf("AppName = %q", out.Manifest.AppName)
	}
}

func TestBootstrap_MissingPrefixFailsBeforeNetwork(t *testing.T) {
	t.Parallel()

	manifest := writeManifest(t, `
name: MyPlugin
runtime-libraries:
  libraries:
    kotlin:
      groupId: org.jetbrains.kotlin
      artifactId: kotlin-stdlib
      version: 1.9.0
      relocation:
        kotlin: kotlin
`)

	fetcher := cache.FetcherFunc(func(context.Context, string) (io.ReadCloser, error) {
		t.Error("fetcher called")
		return nil, errors.New("unexpected fetch")
	})

	out, err := Bootstrap(t.Context(), BootstrapOptions{
		Manifest: declaration.LoadOptions{Path: manifest, ParseOptions: declaration.ParseOptions{CacheRoot: t.TempDir()}},
		Loader:   &activate.SearchPath{},
		Fetcher:  fetcher,
		Logger:   quietLogger(),
	})
	if !errors.Is(err, declaration.ErrMissingRelocationPrefix) {
		t.Fatalf("Bootstrap() error = %v, want ErrMissingRelocationPrefix", err)
	}
	if out != nil {
		t.Errorf("Bootstrap() result = %+v, want nil", out)
	}
}

func TestBootstrap_UnavailableArtifact(t *testing.T) {
	t.Parallel()

	var sp activate.SearchPath
	out, err := Bootstrap(t.Context(), BootstrapOptions{
		Manifest: declaration.LoadOptions{
			Path: writeManifest(t, kotlinManifest),
			ParseOptions: declaration.ParseOptions{
				CacheRoot:         t.TempDir(),
				DefaultRepository: "file://" + filepath.ToSlash(t.TempDir()),
			},
		},
		Loader: &sp,
		Logger: quietLogger(),
	})
	if !errors.Is(err, cache.ErrArtifactUnavailable) {
		t.Fatalf("Bootstrap() error = %v, want ErrArtifactUnavailable", err)
	}
	if out == nil || len(out.Report.Failed()) != 1 || out.Report.Failed()[0].State != FailedFetch {
		t.Errorf("report = %+v", out)
	}
	if len(sp.Paths()) != 0 {
		t.Errorf("search path = %v", sp.Paths())
	}
}

func TestBootstrap_NoLoader(t *testing.T) {
	t.Parallel()

	if _, err := Bootstrap(t.Context(), BootstrapOptions{}); !errors.Is(err, ErrNoLoader) {
		t.Errorf("Bootstrap() error = %v, want ErrNoLoader", err)
	}
}
