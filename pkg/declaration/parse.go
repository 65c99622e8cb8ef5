// SPDX-License-Identifier: MPL-2.0

package declaration

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/invowk/pluginlib/pkg/library"
)

// DefaultLibrariesFolder is used when the manifest does not set libraries-folder.
const DefaultLibrariesFolder = "libs"

// ParseOptions controls how a manifest is expanded.
type ParseOptions struct {
	// Filename is used in error messages. Defaults to "<format> manifest".
	Filename string
	// CacheRoot is the directory holding one storage root per application.
	CacheRoot string
	// DefaultRepository replaces Maven Central for coordinate entries that do
	// not set a repository.
	DefaultRepository string
}

// Parse decodes a manifest and expands its runtime-libraries section.
//
// Relocation values are appended to relocation-prefix: a pair
// "com#google#gson: gson" with prefix "org.example.libs" becomes the rule
// com.google.gson -> org.example.libs.gson. Global relocations are added to
// every library. Declaring a relocation without a prefix fails with
// ErrMissingRelocationPrefix before any descriptor is built.
func Parse(format Format, data []byte, opts ParseOptions) (*Result, error) {
	filename := opts.Filename
	if filename == "" {
		filename = format.String() + " manifest"
	}

	doc, order, err := decode(format, data, filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return nil, ErrMissingAppName
	}

	rt := doc.Runtime
	if rt == nil {
		rt = &runtimeTable{}
	}
	prefix := strings.TrimSpace(rt.RelocationPrefix)
	libraryKeys := orderedKeys(rt.Libraries, order(keyRuntimeLibraries, keyLibraries))

	if prefix == "" {
		if len(rt.GlobalRelocations) > 0 {
			return nil, &MissingRelocationPrefixError{}
		}
		for _, key := range libraryKeys {
			if len(rt.Libraries[key].Relocation) > 0 {
				return nil, &MissingRelocationPrefixError{Library: key}
			}
		}
	}

	settings := Settings{
		StorageRoot:           filepath.Join(opts.CacheRoot, name),
		LibrariesFolder:       strings.TrimSpace(rt.LibrariesFolder),
		RelocationPrefix:      prefix,
		DeleteAfterRelocation: rt.DeleteAfterRelocation,
		GlobalRelocations: expandRelocations(prefix, rt.GlobalRelocations,
			order(keyRuntimeLibraries, keyGlobalRelocations)),
	}
	if settings.LibrariesFolder == "" {
		settings.LibrariesFolder = DefaultLibrariesFolder
	}

	result := &Result{AppName: name, Settings: settings}
	for _, key := range libraryKeys {
		entry := rt.Libraries[key]
		b, err := entry.builder(opts.DefaultRepository)
		if err != nil {
			return nil, &LibraryError{Key: key, Err: err}
		}
		rules := expandRelocations(prefix, entry.Relocation,
			order(keyRuntimeLibraries, keyLibraries, key, keyRelocation))
		for _, rule := range rules {
			b.Relocate(rule)
		}
		for _, rule := range settings.GlobalRelocations {
			b.Relocate(rule)
		}
		d, err := b.Build()
		if err != nil {
			return nil, &LibraryError{Key: key, Err: err}
		}
		result.Libraries = append(result.Libraries, Entry{Key: key, Descriptor: d})
	}
	return result, nil
}

// builder starts from the url, then the coordinate document, then an empty
// builder; explicit fields override whatever the starting point provided.
func (l libraryTable) builder(defaultRepository string) (*library.Builder, error) {
	var b *library.Builder
	switch {
	case strings.TrimSpace(l.URL) != "":
		b = library.FromURL(l.URL)
	case strings.TrimSpace(l.XML) != "":
		parsed, err := library.ParseXML(l.XML)
		if err != nil {
			return nil, err
		}
		b = parsed
	default:
		b = library.NewBuilder()
	}

	if defaultRepository != "" {
		b.Repository(defaultRepository)
	}
	if l.GroupID != "" {
		b.Group(l.GroupID)
	}
	if l.ArtifactID != "" {
		b.Artifact(l.ArtifactID)
	}
	if l.Version != "" {
		b.Version(l.Version)
	}
	if l.Repository != "" {
		b.Repository(l.Repository)
	}
	return b, nil
}

func expandRelocations(prefix string, pairs map[string]string, order []string) []library.Relocation {
	if len(pairs) == 0 {
		return nil
	}
	rules := make([]library.Relocation, 0, len(pairs))
	for _, pattern := range orderedKeys(pairs, order) {
		rules = append(rules, library.NewRelocation(pattern, prefix+"."+pairs[pattern]))
	}
	return rules
}
