// SPDX-License-Identifier: MPL-2.0

package library

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrMalformedCoordinateDocument is the sentinel error wrapped by MalformedCoordinateDocumentError.
var ErrMalformedCoordinateDocument = errors.New("malformed coordinate document")

// coordinateElements are the elements ParseXML extracts, in reporting order.
var coordinateElements = []string{"groupId", "artifactId", "version"}

// MalformedCoordinateDocumentError is returned when a coordinate document cannot be parsed
// or lacks a required element. It wraps ErrMalformedCoordinateDocument for errors.Is().
type MalformedCoordinateDocumentError struct {
	// Missing lists the required elements that were absent or blank.
	Missing []string
	// Cause is the XML syntax error, if the document is not well-formed.
	Cause error
}

// ParseXML creates a builder from a Maven coordinate document such as
//
//	<dependency>
//	    <groupId>org.jetbrains.kotlin</groupId>
//	    <artifactId>kotlin-stdlib</artifactId>
//	    <version>1.4.20</version>
//	</dependency>
//
// The first occurrence of each element anywhere in the document is used. The
// whole document must be well-formed.
func ParseXML(doc string) (*Builder, error) {
	values, err := scanCoordinates(strings.NewReader(doc))
	if err != nil {
		return nil, &MalformedCoordinateDocumentError{Cause: err}
	}

	var missing []string
	for _, name := range coordinateElements {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MalformedCoordinateDocumentError{Missing: missing}
	}

	return NewBuilder().
		Group(values["groupId"]).
		Artifact(values["artifactId"]).
		Version(values["version"]), nil
}

// scanCoordinates walks the whole token stream and records the trimmed text of
// the first groupId, artifactId and version elements.
func scanCoordinates(r io.Reader) (map[string]string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	values := make(map[string]string, len(coordinateElements))
	var (
		current string
		text    strings.Builder
		roots   int
		depth   int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
			}
			depth++
			if current == "" && slices.Contains(coordinateElements, t.Name.Local) {
				if _, seen := values[t.Name.Local]; !seen {
					current = t.Name.Local
					text.Reset()
				}
			}
		case xml.CharData:
			if current != "" {
				text.Write(t)
			}
		case xml.EndElement:
			depth--
			if current != "" && t.Name.Local == current {
				values[current] = strings.TrimSpace(text.String())
				current = ""
			}
		}
	}

	if roots != 1 {
		return nil, fmt.Errorf("expected exactly one root element, found %d", roots)
	}
	return values, nil
}

// Error implements the error interface for MalformedCoordinateDocumentError.
func (e *MalformedCoordinateDocumentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed coordinate document: %v", e.Cause)
	}
	return fmt.Sprintf("malformed coordinate document: missing %s", strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrMalformedCoordinateDocument and the syntax error, if any.
func (e *MalformedCoordinateDocumentError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrMalformedCoordinateDocument, e.Cause}
	}
	return []error{ErrMalformedCoordinateDocument}
}
