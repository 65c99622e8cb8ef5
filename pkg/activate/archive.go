// SPDX-License-Identifier: MPL-2.0

package activate

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
)

// ErrIndexClosed is returned by ArchiveIndex after Close.
var ErrIndexClosed = errors.New("archive index closed")

type (
	// ArchiveIndex resolves entry names across activated archives. An entry
	// present in several archives resolves to the one activated first.
	ArchiveIndex struct {
		mu       sync.RWMutex
		archives []*indexedArchive
		closed   bool
	}

	indexedArchive struct {
		path    string
		reader  *zip.ReadCloser
		entries map[string]*zip.File
	}
)

// NewArchiveIndex creates an empty index.
func NewArchiveIndex() *ArchiveIndex {
	return &ArchiveIndex{}
}

// AddArtifact opens the archive at path and indexes its entries. Adding the
// same path twice is a no-op.
func (x *ArchiveIndex) AddArtifact(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return ErrIndexClosed
	}
	for _, a := range x.archives {
		if a.path == abs {
			return nil
		}
	}

	r, err := zip.OpenReader(abs)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", abs, err)
	}
	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		if _, dup := entries[f.Name]; !dup {
			entries[f.Name] = f
		}
	}
	x.archives = append(x.archives, &indexedArchive{path: abs, reader: r, entries: entries})
	return nil
}

// Lookup returns the archive providing the entry name.
func (x *ArchiveIndex) Lookup(name string) (archive string, ok bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if f, a := x.find(name); f != nil {
		return a.path, true
	}
	return "", false
}

// ReadFile returns the contents of the entry name. A missing entry yields an
// error wrapping fs.ErrNotExist.
func (x *ArchiveIndex) ReadFile(name string) ([]byte, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return nil, ErrIndexClosed
	}
	f, _ := x.find(name)
	if f == nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }() // read-only entry
	return io.ReadAll(rc)
}

// ClassExists reports whether a class, given by its binary name
// (com.example.Foo or com.example.Foo$Inner), is provided by an activated archive.
func (x *ArchiveIndex) ClassExists(className string) bool {
	_, ok := x.Lookup(ClassEntryName(className))
	return ok
}

// Archives returns the indexed archive paths in activation order.
func (x *ArchiveIndex) Archives() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	paths := make([]string, len(x.archives))
	for i, a := range x.archives {
		paths[i] = a.path
	}
	return paths
}

// Close releases every archive. Later calls to AddArtifact and ReadFile fail.
func (x *ArchiveIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	var errs []error
	for _, a := range x.archives {
		if err := a.reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	x.archives = nil
	return errors.Join(errs...)
}

func (x *ArchiveIndex) find(name string) (*zip.File, *indexedArchive) {
	for _, a := range x.archives {
		if f, ok := a.entries[name]; ok {
			return f, a
		}
	}
	return nil, nil
}

// ClassEntryName converts a binary class name to its archive entry name.
func ClassEntryName(className string) string {
	return strings.ReplaceAll(className, ".", "/") + ".class"
}
