// SPDX-License-Identifier: MPL-2.0

package activate

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// SearchPath collects activated artifacts as an ordered class path, for hosts
// that hand the artifacts to a child process.
type SearchPath struct {
	mu    sync.Mutex
	paths []string
}

// AddArtifact appends path unless it is already present.
func (s *SearchPath) AddArtifact(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.paths, abs) {
		s.paths = append(s.paths, abs)
	}
	return nil
}

// Paths returns the artifacts in activation order.
func (s *SearchPath) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.paths)
}

// String joins the paths with os.PathListSeparator.
func (s *SearchPath) String() string {
	return strings.Join(s.Paths(), string(os.PathListSeparator))
}

// Environ returns the search path as a NAME=value environment entry.
func (s *SearchPath) Environ(name string) string {
	return name + "=" + s.String()
}
