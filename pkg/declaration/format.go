// SPDX-License-Identifier: MPL-2.0

package declaration

import (
	"path/filepath"
	"strings"
)

const (
	// FormatYAML is the original plugin.yml format.
	FormatYAML Format = "yaml"
	// FormatCUE is a CUE manifest validated against the embedded #Manifest schema.
	FormatCUE Format = "cue"
	// FormatTOML is a TOML manifest.
	FormatTOML Format = "toml"
)

// Format names a manifest syntax.
type Format string

// FormatFromPath picks the manifest format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", &UnsupportedFormatError{Value: path}
	}
}

// String returns the format name.
func (f Format) String() string { return string(f) }
