// Package xml provides XML format parsing and AST generation.
//
// This package implements a tree-walking façade over the streaming
// parser in the module root: it registers a handler that pushes and
// pops ast.ObjectNodes as StartElement/EndElement events arrive, so a
// caller who wants a whole document rather than a stream of events
// still gets one.
//
// # Parsing APIs
//
// The package provides two parsing functions:
//
//   - Parse(string) - Parses XML from a string in memory
//   - ParseReader(io.Reader) - Parses XML from any io.Reader with streaming support
//
// Use Parse() for small XML documents that are already in memory as strings.
// Use ParseReader() for large files, network streams, or any io.Reader source.
//
// # Example usage with Parse:
//
//	xmlStr := `<user id="123"><name>Alice</name></user>`
//	node, err := xml.Parse(xmlStr)
//	if err != nil {
//	    // handle error
//	}
//	// node is now a *ast.ObjectNode representing the XML data
//
// # Example usage with ParseReader:
//
//	file, err := os.Open("data.xml")
//	if err != nil {
//	    // handle error
//	}
//	defer file.Close()
//
//	node, err := xml.ParseReader(file)
//	if err != nil {
//	    // handle error
//	}
//	// node is now a *ast.ObjectNode representing the XML data
package xml

import (
	"io"
	"strings"

	"github.com/shapestone/shape-core/pkg/ast"
	"github.com/shapestone/xmlstream"
	"github.com/shapestone/xmlstream/pkg/sax"
)

// Parse parses XML format into an AST from a string.
//
// The input is a complete XML document with a root element.
//
// Returns an ast.SchemaNode representing the parsed XML:
//   - *ast.ObjectNode for elements
//   - Properties prefixed with "@" for attributes
//   - "#text" property for text content
//   - "#cdata" property for CDATA sections
//
// For parsing large files or streaming data, use ParseReader instead.
//
// Example:
//
//	node, err := xml.Parse(`<user id="123"><name>Alice</name></user>`)
//	obj := node.(*ast.ObjectNode)
//	idNode, _ := obj.GetProperty("@id")
//	id := idNode.(*ast.LiteralNode).Value().(string) // "123"
func Parse(input string) (ast.SchemaNode, error) {
	return ParseReader(strings.NewReader(input))
}

// ParseReader parses XML format into an AST from an io.Reader.
//
// This function is designed for parsing large XML files or streaming data with
// constant memory usage: the underlying Parser reads r in fixed-size chunks
// rather than buffering it whole before parsing starts.
//
// Returns an ast.SchemaNode representing the parsed XML:
//   - *ast.ObjectNode for elements
//   - Properties prefixed with "@" for attributes
//   - "#text" property for text content
//   - "#cdata" property for CDATA sections
func ParseReader(reader io.Reader) (ast.SchemaNode, error) {
	b := newTreeBuilder()
	p := xmlstream.NewParser(sax.DefaultOptions())
	p.Content = b
	p.Lexical = b
	if err := p.Parse(reader); err != nil {
		return nil, err
	}
	return b.root, nil
}

// Format returns the format identifier for this parser.
// Returns "XML" to identify this as the XML data format parser.
func Format() string {
	return "XML"
}

// Validate checks if the given string is valid XML.
//
// Returns nil if the input is valid XML.
// Returns an error with details about why the XML is invalid.
//
// This is the idiomatic Go approach - check the error:
//
//	if err := xml.Validate(input); err != nil {
//	    // Invalid XML
//	    fmt.Println("Invalid XML:", err)
//	}
//	// Valid XML - err is nil
//
// For validating large files or streaming data, use ValidateReader instead.
func Validate(input string) error {
	return ValidateReader(strings.NewReader(input))
}

// ValidateReader checks if the XML from an io.Reader is well-formed.
//
// Unlike Validate/ValidateReader in a DTD-validating sense, this
// reports only well-formedness: no tree is built and no content-model
// checking is requested, since a caller asking only "is this
// well-formed" has no DTD to validate against.
func ValidateReader(reader io.Reader) error {
	p := xmlstream.NewParser(sax.Options{NamespacesEnabled: true})
	p.Content = discardHandler{}
	return p.Parse(reader)
}

// discardHandler implements sax.ContentHandler by dropping every event,
// for ValidateReader's well-formedness-only check.
type discardHandler struct{}

func (discardHandler) SetDocumentLocator(sax.Locator)                   {}
func (discardHandler) StartDocument() error                             { return nil }
func (discardHandler) EndDocument() error                               { return nil }
func (discardHandler) StartPrefixMapping(prefix, uri string) error      { return nil }
func (discardHandler) EndPrefixMapping(prefix string) error             { return nil }
func (discardHandler) EndElement(uri, localName, qName string) error   { return nil }
func (discardHandler) Characters(chars []rune) error                   { return nil }
func (discardHandler) IgnorableWhitespace(chars []rune) error          { return nil }
func (discardHandler) ProcessingInstruction(target, data string) error { return nil }
func (discardHandler) SkippedEntity(name string) error                 { return nil }
func (discardHandler) StartElement(uri, localName, qName string, attrs sax.Attributes) error {
	return nil
}
