// SPDX-License-Identifier: MPL-2.0

package declaration

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"

	"github.com/invowk/pluginlib/pkg/cueutil"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Manifest keys of the runtime-libraries section.
const (
	keyRuntimeLibraries  = "runtime-libraries"
	keyGlobalRelocations = "global-relocations"
	keyLibraries         = "libraries"
	keyRelocation        = "relocation"
)

//go:embed manifest_schema.cue
var manifestSchema []byte

type (
	// document is the format-independent shape of a manifest. Go maps lose the
	// source order, which keyOrder recovers.
	document struct {
		Name    string        `yaml:"name" toml:"name" json:"name"`
		Runtime *runtimeTable `yaml:"runtime-libraries" toml:"runtime-libraries" json:"runtime-libraries"`
	}

	runtimeTable struct {
		RelocationPrefix      string                  `yaml:"relocation-prefix" toml:"relocation-prefix" json:"relocation-prefix"`
		LibrariesFolder       string                  `yaml:"libraries-folder" toml:"libraries-folder" json:"libraries-folder"`
		GlobalRelocations     map[string]string       `yaml:"global-relocations" toml:"global-relocations" json:"global-relocations"`
		DeleteAfterRelocation bool                    `yaml:"delete-after-relocation" toml:"delete-after-relocation" json:"delete-after-relocation"`
		Libraries             map[string]libraryTable `yaml:"libraries" toml:"libraries" json:"libraries"`
	}

	libraryTable struct {
		XML        string            `yaml:"xml" toml:"xml" json:"xml"`
		URL        string            `yaml:"url" toml:"url" json:"url"`
		GroupID    string            `yaml:"groupId" toml:"groupId" json:"groupId"`
		ArtifactID string            `yaml:"artifactId" toml:"artifactId" json:"artifactId"`
		Version    string            `yaml:"version" toml:"version" json:"version"`
		Repository string            `yaml:"repository" toml:"repository" json:"repository"`
		Relocation map[string]string `yaml:"relocation" toml:"relocation" json:"relocation"`
	}

	// keyOrder returns the keys of the mapping at path in source order, or nil
	// when the source format does not keep an order.
	keyOrder func(path ...string) []string
)

// decode parses data in the given format.
func decode(format Format, data []byte, filename string) (*document, keyOrder, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(data)
	case FormatCUE:
		return decodeCUE(data, filename)
	case FormatTOML:
		return decodeTOML(data)
	default:
		return nil, nil, &UnsupportedFormatError{Value: string(format)}
	}
}

func decodeYAML(data []byte) (*document, keyOrder, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, err
	}
	var doc document
	if root.Kind != 0 {
		if err := root.Decode(&doc); err != nil {
			return nil, nil, err
		}
	}
	return &doc, yamlKeyOrder(&root), nil
}

func yamlKeyOrder(root *yaml.Node) keyOrder {
	return func(path ...string) []string {
		n := resolveAlias(root)
		if n.Kind == yaml.DocumentNode {
			if len(n.Content) == 0 {
				return nil
			}
			n = resolveAlias(n.Content[0])
		}
		for _, key := range path {
			if n = yamlLookup(n, key); n == nil {
				return nil
			}
		}
		if n.Kind != yaml.MappingNode {
			return nil
		}
		keys := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keys = append(keys, n.Content[i].Value)
		}
		return keys
	}
}

func yamlLookup(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return resolveAlias(n.Content[i+1])
		}
	}
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func decodeCUE(data []byte, filename string) (*document, keyOrder, error) {
	result, err := cueutil.ParseAndDecode[document](manifestSchema, data, "#Manifest", cueutil.WithFilename(filename))
	if err != nil {
		return nil, nil, err
	}
	order := func(path ...string) []string {
		names, err := cueutil.FieldNames(result.Unified, path...)
		if err != nil {
			return nil
		}
		return names
	}
	return result.Value, order, nil
}

func decodeTOML(data []byte) (*document, keyOrder, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, nil, fmt.Errorf("line %d, column %d: %w", row, col, err)
		}
		return nil, nil, err
	}
	return &doc, func(...string) []string { return nil }, nil
}

// orderedKeys returns the keys of m following order first, then any remaining
// keys in lexical order.
func orderedKeys[V any](m map[string]V, order []string) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range order {
		if _, ok := m[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}
