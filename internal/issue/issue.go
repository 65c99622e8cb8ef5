// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Catalog entries. Zero means "no linked issue".
const (
	ManifestNotFoundId Id = iota + 1
	ManifestParseErrorId
	MissingRelocationPrefixId
	IncompleteLibraryId
	ConfigLoadFailedId
	ArtifactUnavailableId
	RelocationFailedId
	ActivationFailedId
	PermissionDeniedId
	ClassNotFoundId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is Markdown help text.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Issue is long-form help for a class of failures.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No manifest found!

pluginlib reads the libraries to load from the host manifest.

## Things you can try:
- Run the command from the directory that holds your ` + "`plugin.yml`" + `
- Point to it explicitly:
~~~
$ pluginlib --manifest path/to/plugin.yml resolve
~~~

## Minimal manifest:
~~~yaml
name: MyPlugin
runtime-libraries:
  libraries:
    gson:
      groupId: com.google.code.gson
      artifactId: gson
      version: 2.10.1
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# The manifest could not be parsed!

The format is picked from the file extension: ` + "`.yml`/`.yaml`, `.cue` or `.toml`" + `.

## Things you can try:
- Check the syntax reported above
- Make sure every library entry is a mapping and every relocation value is a string`,
	}

	missingRelocationPrefixIssue = &Issue{
		id: MissingRelocationPrefixId,
		mdMsg: `
# Relocations need a prefix!

A library (or the global section) declares relocations, but
` + "`relocation-prefix`" + ` is not set. Each relocation value is appended to the prefix.

## Things you can try:
~~~yaml
runtime-libraries:
  relocation-prefix: org.example.libs
~~~`,
	}

	incompleteLibraryIssue = &Issue{
		id: IncompleteLibraryId,
		mdMsg: `
# A library declaration is incomplete!

Every library needs an ` + "`artifactId`" + ` and a ` + "`version`" + `, plus either a
` + "`groupId`" + ` or a ` + "`url`" + `. A ` + "`url`" + ` alone is not enough: the artifact and
version name the cache entry.

## Things you can try:
- Add the missing fields named in the error
- Use an ` + "`xml`" + ` coordinate document copied from the library's README`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the configuration!

## Things you can try:
- Check the CUE syntax of your config file
- Show the effective configuration:
~~~
$ pluginlib config show
~~~
- Remove the file to fall back to defaults`,
	}

	artifactUnavailableIssue = &Issue{
		id: ArtifactUnavailableId,
		mdMsg: `
# An artifact could not be downloaded!

## Things you can try:
- Check your network connection
- Verify the coordinates and repository in the manifest
- Open the URL shown above in a browser to see what the repository answers`,
	}

	relocationFailedIssue = &Issue{
		id: RelocationFailedId,
		mdMsg: `
# An artifact could not be relocated!

The downloaded archive was kept in the cache; the relocated copy was not written.

## Things you can try:
- Make sure the downloaded file is a valid jar
- Delete the cached file and retry:
~~~
$ pluginlib cache prune
~~~`,
	}

	activationFailedIssue = &Issue{
		id: ActivationFailedId,
		mdMsg: `
# An artifact could not be activated!

Activation failures stop startup: code depending on the library would fail later anyway.

## Things you can try:
- Check that the cache directory is readable
- Run with ` + "`--verbose`" + ` to see which loader rejected the artifact`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

The cache directory must be writable.

## Things you can try:
- Use another cache directory:
~~~
$ pluginlib --cache-dir /tmp/pluginlib resolve
~~~
- Or set ` + "`PLUGINLIB_CACHE_DIR`",
	}

	classNotFoundIssue = &Issue{
		id: ClassNotFoundId,
		mdMsg: `
# Class not found!

None of the activated archives contains the class.

## Things you can try:
- Use the relocated name if the library is relocated
- List the activated archives:
~~~
$ pluginlib classpath
~~~`,
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():        manifestNotFoundIssue,
		manifestParseErrorIssue.Id():      manifestParseErrorIssue,
		missingRelocationPrefixIssue.Id(): missingRelocationPrefixIssue,
		incompleteLibraryIssue.Id():       incompleteLibraryIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		artifactUnavailableIssue.Id():     artifactUnavailableIssue,
		relocationFailedIssue.Id():        relocationFailedIssue,
		activationFailedIssue.Id():        activationFailedIssue,
		permissionDeniedIssue.Id():        permissionDeniedIssue,
		classNotFoundIssue.Id():           classNotFoundIssue,
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the Markdown message with the glamour style at stylePath
// ("dark", "light", "notty", or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also:\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int { return int(a.id - b.id) })
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
