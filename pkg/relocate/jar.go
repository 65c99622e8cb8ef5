// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/invowk/pluginlib/internal/classfile"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

const (
	// tempPattern matches the cache's temp file naming so leftovers are pruned.
	tempPattern = ".pluginlib-*.tmp"

	metaInf     = "META-INF/"
	servicesDir = "META-INF/services/"
	versionsDir = "META-INF/versions/"
	classExt    = ".class"
)

// signatureExts are the files of a jar signature. Relocation changes the
// signed content, so they are dropped.
var signatureExts = []string{".SF", ".RSA", ".DSA", ".EC"}

// JarTransformer relocates jar archives:
//
//   - entries under a relocated package move to the new package
//   - CONSTANT_Utf8 entries of every class are rewritten
//   - META-INF/services provider files are renamed and their contents rewritten
//   - signature files are dropped
//
// When two entries end up with the same name, the first one is kept.
type JarTransformer struct {
	// Level is the deflate level for rewritten entries; zero means the default.
	Level int
}

// NewJarTransformer creates a JarTransformer with default settings.
func NewJarTransformer() *JarTransformer {
	return &JarTransformer{}
}

// Transform implements Transformer.
func (t *JarTransformer) Transform(ctx context.Context, in, out string, m Mapping) (err error) {
	r, err := zip.OpenReader(in)
	if err != nil {
		return fmt.Errorf("opening %s: %w", in, err)
	}
	defer func() { _ = r.Close() }() // read-only archive

	f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	w := zip.NewWriter(f)
	if t.Level != 0 {
		level := t.Level
		w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}

	seen := make(map[string]bool, len(r.File))
	for _, entry := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if isSignatureFile(entry.Name) {
			continue
		}
		name := relocateEntryName(entry.Name, m)
		if seen[name] {
			continue
		}
		seen[name] = true

		if err := copyEntry(w, entry, name, m); err != nil {
			return fmt.Errorf("entry %s: %w", entry.Name, err)
		}
	}
	return w.Close()
}

func copyEntry(w *zip.Writer, entry *zip.File, name string, m Mapping) error {
	hdr := &zip.FileHeader{
		Name:          name,
		Comment:       entry.Comment,
		Method:        entry.Method,
		Modified:      entry.Modified,
		ExternalAttrs: entry.ExternalAttrs,
	}
	if strings.HasSuffix(name, "/") {
		hdr.Method = zip.Store
		_, err := w.CreateHeader(hdr)
		return err
	}
	if hdr.Method != zip.Store {
		hdr.Method = zip.Deflate
	}

	rc, err := entry.Open()
	if err != nil {
		return err
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close() // read-only entry
	if err != nil {
		return err
	}

	switch {
	case strings.HasSuffix(entry.Name, classExt):
		rewritten, _, err := classfile.RewriteUTF8(data, m.Rewrite)
		if err != nil {
			return err
		}
		data = rewritten
	case strings.HasPrefix(entry.Name, servicesDir):
		data = rewriteServiceFile(data, m)
	}

	dst, err := w.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = dst.Write(data)
	return err
}

// relocateEntryName moves an entry to its relocated path. Provider files under
// META-INF/services are named after the dotted service interface.
func relocateEntryName(name string, m Mapping) string {
	if rest, ok := strings.CutPrefix(name, servicesDir); ok && rest != "" {
		return servicesDir + m.Rewrite(rest)
	}
	if rest, ok := strings.CutPrefix(name, versionsDir); ok {
		// Multi-release jars keep per-version classes under META-INF/versions/<n>/.
		if version, class, ok := strings.Cut(rest, "/"); ok {
			return versionsDir + version + "/" + m.Rewrite(class)
		}
	}
	if strings.HasPrefix(name, metaInf) {
		return name
	}
	return m.Rewrite(name)
}

// rewriteServiceFile rewrites the provider class names listed in a
// META-INF/services file, leaving comments alone.
func rewriteServiceFile(data []byte, m Mapping) []byte {
	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 4096), len(data)+1)
	for sc.Scan() {
		line := sc.Text()
		code, comment, hasComment := strings.Cut(line, "#")
		out.WriteString(m.Rewrite(code))
		if hasComment {
			out.WriteString("#" + comment)
		}
		out.WriteByte('\n')
	}
	return out.Bytes()
}

func isSignatureFile(name string) bool {
	rest, ok := strings.CutPrefix(name, metaInf)
	if !ok || strings.Contains(rest, "/") {
		return false
	}
	return slices.Contains(signatureExts, strings.ToUpper(path.Ext(rest)))
}
