// SPDX-License-Identifier: MPL-2.0

package declaration

import (
	"path/filepath"

	"github.com/invowk/pluginlib/pkg/library"
)

type (
	// Settings are the resolution settings of one application. They are built
	// once by Parse and read-only afterwards.
	Settings struct {
		// StorageRoot is <cache root>/<application name>.
		StorageRoot string
		// LibrariesFolder is the cache subdirectory under StorageRoot.
		LibrariesFolder string
		// RelocationPrefix is prepended to every relocation value.
		RelocationPrefix string
		// GlobalRelocations are applied to every library.
		GlobalRelocations []library.Relocation
		// DeleteAfterRelocation removes the raw artifact once its relocated copy exists.
		DeleteAfterRelocation bool
	}

	// Entry is one declared library.
	Entry struct {
		// Key is the library's key in the manifest.
		Key        string
		Descriptor library.Descriptor
	}

	// Result is an expanded manifest.
	Result struct {
		AppName   string
		Settings  Settings
		Libraries []Entry
	}
)

// LibrariesDir returns the directory holding the cache entries.
func (s Settings) LibrariesDir() string {
	return filepath.Join(s.StorageRoot, s.LibrariesFolder)
}

// Descriptors returns the descriptors of all libraries in declaration order.
func (r *Result) Descriptors() []library.Descriptor {
	out := make([]library.Descriptor, len(r.Libraries))
	for i, e := range r.Libraries {
		out[i] = e.Descriptor
	}
	return out
}
