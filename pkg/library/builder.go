// SPDX-License-Identifier: MPL-2.0

package library

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrIncompleteDescriptor is the sentinel error wrapped by IncompleteDescriptorError.
var ErrIncompleteDescriptor = errors.New("incomplete library descriptor")

type (
	// Builder accumulates descriptor fields from any origin and validates them in Build.
	// A Builder is not safe for concurrent use.
	Builder struct {
		group       string
		artifact    string
		version     string
		repository  string
		directURL   string
		relocations []Relocation
	}

	// IncompleteDescriptorError is returned by Build when required fields are unset.
	// It wraps ErrIncompleteDescriptor for errors.Is() compatibility.
	IncompleteDescriptorError struct {
		// Missing lists the unset fields, e.g. "artifactId" or "groupId or url".
		Missing []string
	}
)

// NewBuilder creates a builder for a coordinate-based descriptor using Maven Central.
func NewBuilder() *Builder {
	return &Builder{repository: MavenCentral}
}

// FromURL creates a builder for a descriptor downloaded from a fixed URL.
// The artifact and version cannot be inferred from the URL and must still be set.
func FromURL(url string) *Builder {
	return NewBuilder().DirectURL(url)
}

// Group sets the group ID.
func (b *Builder) Group(group string) *Builder {
	b.group = strings.TrimSpace(group)
	return b
}

// Artifact sets the artifact ID.
func (b *Builder) Artifact(artifact string) *Builder {
	b.artifact = strings.TrimSpace(artifact)
	return b
}

// Version sets the version.
func (b *Builder) Version(version string) *Builder {
	b.version = strings.TrimSpace(version)
	return b
}

// VersionNumbers sets the version by joining the numbers with '.', e.g. (1, 4, 20) -> "1.4.20".
func (b *Builder) VersionNumbers(numbers ...int) *Builder {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return b.Version(strings.Join(parts, "."))
}

// Repository sets the repository base URL. A blank value restores Maven Central.
func (b *Builder) Repository(repository string) *Builder {
	repository = strings.TrimSpace(repository)
	if repository == "" {
		repository = MavenCentral
	}
	b.repository = repository
	return b
}

// MavenCentral sets the repository to Maven Central.
func (b *Builder) MavenCentral() *Builder { return b.Repository(MavenCentral) }

// JitPack sets the repository to JitPack.
func (b *Builder) JitPack() *Builder { return b.Repository(JitPack) }

// JCenter sets the repository to JCenter.
func (b *Builder) JCenter() *Builder { return b.Repository(JCenter) }

// Aikar sets the repository to Aikar's repository.
func (b *Builder) Aikar() *Builder { return b.Repository(Aikar) }

// DirectURL makes the descriptor download from url verbatim instead of deriving
// the URL from its coordinates.
func (b *Builder) DirectURL(url string) *Builder {
	b.directURL = strings.TrimSpace(url)
	return b
}

// Relocate adds a rewrite rule. Duplicate rules are collapsed by Build.
func (b *Builder) Relocate(rule Relocation) *Builder {
	b.relocations = append(b.relocations, rule)
	return b
}

// Build validates the accumulated fields and returns an immutable Descriptor.
//
// It fails with an *IncompleteDescriptorError when the artifact or version is
// unset, or when neither a group nor a direct URL is set.
func (b *Builder) Build() (Descriptor, error) {
	var missing []string
	if b.group == "" && b.directURL == "" {
		missing = append(missing, "groupId or url")
	}
	if b.artifact == "" {
		missing = append(missing, "artifactId")
	}
	if b.version == "" {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return Descriptor{}, &IncompleteDescriptorError{Missing: missing}
	}

	d := Descriptor{
		source:      SourceCoordinates,
		group:       b.group,
		artifact:    b.artifact,
		version:     b.version,
		repository:  b.repository,
		relocations: normalizeRelocations(b.relocations),
	}
	if d.repository == "" {
		d.repository = MavenCentral
	}
	if b.directURL != "" {
		d.source = SourceDirectURL
		d.directURL = b.directURL
	}
	return d, nil
}

// MustBuild is like Build but panics on error. It is intended for descriptors
// declared as package-level values.
func (b *Builder) MustBuild() Descriptor {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

// Error implements the error interface for IncompleteDescriptorError.
func (e *IncompleteDescriptorError) Error() string {
	return fmt.Sprintf("incomplete library descriptor: missing %s", strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrIncompleteDescriptor for errors.Is() compatibility.
func (e *IncompleteDescriptorError) Unwrap() error { return ErrIncompleteDescriptor }
