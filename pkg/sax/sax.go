// Package sax defines the public event-consumer and entity-resolver
// contracts for the streaming parser (spec.md section 6), and the
// parse-time Options (spec.md section 1.3). This package has no
// parsing logic of its own; internal/content and internal/dtd drive
// these interfaces, and pkg/xml adapts them into a document tree for
// callers that want one.
package sax

import (
	"io"

	"github.com/google/uuid"
)

// Locator reports the position of the event currently being
// dispatched, per org.xml.sax.Locator's contract (widened with
// ParseID, the per-parse correlation id from spec.md section 2's
// google/uuid wiring). Values returned by a Locator obtained through
// setDocumentLocator are live — they describe "now", not "then" —
// so a handler that needs to remember a position must copy the four
// scalar fields out.
type Locator interface {
	PublicID() string
	SystemID() string
	Line() int
	Column() int
	ParseID() uuid.UUID
}

// Attributes is the read-only view over a start tag's attribute list,
// mirroring org.xml.sax.Attributes. Index returns -1 when qName isn't
// present. All accessors panic on an out-of-range i, matching the
// teacher's convention of failing loudly on programmer error rather
// than returning a zero value that would silently mask a bug.
type Attributes interface {
	Len() int
	Index(qName string) int
	LocalName(i int) string
	URI(i int) string
	QName(i int) string
	Type(i int) string
	Value(i int) string
	ValueByQName(qName string) (string, bool)
}

// ContentHandler receives the structural event stream.
type ContentHandler interface {
	SetDocumentLocator(loc Locator)
	StartDocument() error
	EndDocument() error
	StartPrefixMapping(prefix, uri string) error
	EndPrefixMapping(prefix string) error
	StartElement(uri, localName, qName string, attrs Attributes) error
	EndElement(uri, localName, qName string) error
	Characters(chars []rune) error
	IgnorableWhitespace(chars []rune) error
	ProcessingInstruction(target, data string) error
	SkippedEntity(name string) error
}

// DTDHandler receives notation and unparsed-entity declarations.
type DTDHandler interface {
	NotationDecl(name, publicID, systemID string) error
	UnparsedEntityDecl(name, publicID, systemID, notationName string) error
}

// LexicalHandler receives events org.xml.sax.ext.LexicalHandler also
// reports: comments, CDATA section boundaries, and DTD/entity
// boundaries.
type LexicalHandler interface {
	StartDTD(name, publicID, systemID string) error
	EndDTD() error
	StartEntity(name string) error
	EndEntity(name string) error
	StartCDATA() error
	EndCDATA() error
	Comment(chars []rune) error
}

// ErrorHandler receives the three error channels of spec.md section 7.
// A handler may convert a recoverable Error into a fatal one simply by
// returning a non-nil error from Error — the parser treats that return
// exactly like a FatalError call.
type ErrorHandler interface {
	Warning(err error) error
	Error(err error) error
	FatalError(err error) error
}

// InputSource is what an EntityResolver returns to redirect entity
// resolution: an explicit byte stream (and, optionally, a corrected
// public/system id) rather than the default systemID-as-URL-or-file
// resolution.
type InputSource struct {
	PublicID string
	SystemID string
	Stream   io.ReadCloser
}

// EntityResolver lets a caller intercept external entity resolution.
// A nil return (and nil error) means "use system default resolution".
type EntityResolver interface {
	ResolveEntity(name, publicID, systemID, baseURI string) (*InputSource, error)
}

// Options configures a parse, per spec.md section 6's options table.
// Zero value is not the default configuration — use DefaultOptions.
type Options struct {
	NamespacesEnabled                bool
	NamespacePrefixesEnabled         bool
	ValidationEnabled                bool
	ExternalGeneralEntitiesEnabled   bool
	ExternalParameterEntitiesEnabled bool
	ResolveDTDURIsEnabled            bool
	StringInterning                  bool
}

// DefaultOptions returns spec.md section 6's documented defaults.
func DefaultOptions() Options {
	return Options{
		NamespacesEnabled:                true,
		NamespacePrefixesEnabled:         false,
		ValidationEnabled:                false,
		ExternalGeneralEntitiesEnabled:   true,
		ExternalParameterEntitiesEnabled: true,
		ResolveDTDURIsEnabled:            true,
		StringInterning:                  true,
	}
}
