// SPDX-License-Identifier: MPL-2.0

package library

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// MavenCentral is the default repository base for coordinate-based descriptors.
	MavenCentral = "https://repo1.maven.org/maven2/"
	// JitPack is the JitPack repository base.
	JitPack = "https://jitpack.io/"
	// JCenter is the Bintray JCenter repository base.
	JCenter = "https://jcenter.bintray.com/"
	// Aikar is Aikar's public repository base.
	Aikar = "https://repo.aikar.co/content/groups/aikar/"

	// ArchiveExt is the file extension of every artifact this package describes.
	ArchiveExt = ".jar"
)

const (
	// SourceCoordinates marks a descriptor whose URL is derived from its coordinates.
	SourceCoordinates Source = iota
	// SourceDirectURL marks a descriptor downloaded verbatim from a fixed URL.
	SourceDirectURL
)

type (
	// Source tells how a Descriptor's download URL is obtained.
	Source int

	// Descriptor is an immutable description of one external artifact.
	//
	// The zero value is not valid; use a Builder. A built Descriptor always has a
	// non-empty artifact and version, and an empty group only when it is a
	// direct-URL descriptor.
	Descriptor struct {
		source      Source
		group       string
		artifact    string
		version     string
		repository  string
		directURL   string
		relocations []Relocation
	}
)

// String returns the name of the source kind.
func (s Source) String() string {
	switch s {
	case SourceCoordinates:
		return "coordinates"
	case SourceDirectURL:
		return "direct-url"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Source returns how the download URL of d is derived.
func (d Descriptor) Source() Source { return d.source }

// Group returns the group ID. It is empty only for direct-URL descriptors.
func (d Descriptor) Group() string { return d.group }

// Artifact returns the artifact ID.
func (d Descriptor) Artifact() string { return d.artifact }

// Version returns the artifact version.
func (d Descriptor) Version() string { return d.version }

// Repository returns the repository base URL used for coordinate-based downloads.
func (d Descriptor) Repository() string { return d.repository }

// DirectURL returns the fixed download URL, or "" for coordinate-based descriptors.
func (d Descriptor) DirectURL() string { return d.directURL }

// Relocations returns a copy of the rewrite rules, sorted and deduplicated.
func (d Descriptor) Relocations() []Relocation { return slices.Clone(d.relocations) }

// HasRelocations reports whether the artifact must be rewritten before activation.
func (d Descriptor) HasRelocations() bool { return len(d.relocations) > 0 }

// FileStem returns "<artifact>-<version>", the base name of the cache entries.
func (d Descriptor) FileStem() string {
	return d.artifact + "-" + d.version
}

// Key returns a stable identifier for d. Coordinate-based descriptors use
// "group:artifact:version"; direct-URL descriptors use "artifact:version@url".
func (d Descriptor) Key() string {
	if d.source == SourceDirectURL {
		return d.artifact + ":" + d.version + "@" + d.directURL
	}
	return d.group + ":" + d.artifact + ":" + d.version
}

// URL returns the download URL of the artifact.
//
// Direct-URL descriptors return their URL verbatim. Otherwise the URL is
// "<repository>/<group with dots as slashes>/<artifact>/<version>/<artifact>-<version>.jar"
// with exactly one separator after the repository base.
func (d Descriptor) URL() string {
	switch d.source {
	case SourceDirectURL:
		return d.directURL
	default:
		return CoordinateURL(d.repository, d.group, d.artifact, d.version)
	}
}

// String returns a human-readable representation of the descriptor.
func (d Descriptor) String() string {
	var sb strings.Builder
	sb.WriteString(d.Key())
	if len(d.relocations) > 0 {
		fmt.Fprintf(&sb, " (%d relocation(s))", len(d.relocations))
	}
	return sb.String()
}

// CoordinateURL derives a Maven repository URL from coordinates.
func CoordinateURL(repository, group, artifact, version string) string {
	base := strings.TrimRight(repository, "/")
	return fmt.Sprintf("%s/%s/%s/%s/%s-%s%s",
		base, strings.ReplaceAll(group, ".", "/"), artifact, version, artifact, version, ArchiveExt)
}
