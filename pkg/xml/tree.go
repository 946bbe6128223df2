package xml

import (
	"strings"

	"github.com/shapestone/shape-core/pkg/ast"
	"github.com/shapestone/xmlstream/pkg/sax"
)

// frame is one open element's accumulator: attributes go straight into
// props (as "@name"), text and CDATA runs are buffered separately and
// only folded into props once the element closes, mirroring the
// teacher's own parseContent accumulation.
type frame struct {
	props      map[string]ast.SchemaNode
	pos        ast.Position
	textParts  []string
	cdataParts []string
}

// treeBuilder implements sax.ContentHandler and sax.LexicalHandler,
// building an ast.SchemaNode tree one element at a time instead of the
// teacher's own recursive-descent parser walking tokens directly.
type treeBuilder struct {
	loc     sax.Locator
	stack   []*frame
	root    ast.SchemaNode
	inCDATA bool
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{}
}

func (b *treeBuilder) position() ast.Position {
	if b.loc == nil {
		return ast.ZeroPosition()
	}
	return ast.NewPosition(0, b.loc.Line(), b.loc.Column())
}

func (b *treeBuilder) SetDocumentLocator(loc sax.Locator) { b.loc = loc }
func (b *treeBuilder) StartDocument() error               { return nil }
func (b *treeBuilder) EndDocument() error                 { return nil }

func (b *treeBuilder) StartPrefixMapping(prefix, uri string) error { return nil }
func (b *treeBuilder) EndPrefixMapping(prefix string) error        { return nil }

// StartElement opens a new frame, seeding it with the attribute
// properties the teacher's parseAttribute also prefixed with "@".
func (b *treeBuilder) StartElement(uri, localName, qName string, attrs sax.Attributes) error {
	fr := &frame{
		props: make(map[string]ast.SchemaNode, attrs.Len()),
		pos:   b.position(),
	}
	for i := 0; i < attrs.Len(); i++ {
		fr.props["@"+attrs.QName(i)] = ast.NewLiteralNode(attrs.Value(i), b.position())
	}
	b.stack = append(b.stack, fr)
	return nil
}

// EndElement folds the closing frame's buffered text/CDATA into its
// properties, builds the ObjectNode, and attaches it to the parent
// frame under its own qName — storing repeated children as an
// ArrayDataNode rather than the teacher's single placeholder "child"
// key, since a SAX StartElement call already tells us the real name.
func (b *treeBuilder) EndElement(uri, localName, qName string) error {
	fr := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]

	if len(fr.textParts) > 0 {
		trimmed := strings.TrimSpace(strings.Join(fr.textParts, ""))
		if trimmed != "" {
			fr.props["#text"] = ast.NewLiteralNode(trimmed, fr.pos)
		}
	}
	if len(fr.cdataParts) > 0 {
		fr.props["#cdata"] = ast.NewLiteralNode(strings.Join(fr.cdataParts, ""), fr.pos)
	}

	node := ast.NewObjectNode(fr.props, fr.pos)

	if len(b.stack) == 0 {
		b.root = node
		return nil
	}
	parent := b.stack[len(b.stack)-1]
	if existing, ok := parent.props[qName]; ok {
		if arr, ok := existing.(*ast.ArrayDataNode); ok {
			parent.props[qName] = ast.NewArrayDataNode(append(arr.Elements(), node), arr.Position())
		} else {
			parent.props[qName] = ast.NewArrayDataNode([]ast.SchemaNode{existing, node}, existing.Position())
		}
	} else {
		parent.props[qName] = node
	}
	return nil
}

// Characters buffers text for the innermost open element; text outside
// any element (Misc whitespace in the prolog/epilog) has no frame to
// attach to and is simply dropped, the same way the teacher's parser
// never modeled anything outside the root element.
func (b *treeBuilder) Characters(chars []rune) error {
	if len(b.stack) == 0 {
		return nil
	}
	top := b.stack[len(b.stack)-1]
	if b.inCDATA {
		top.cdataParts = append(top.cdataParts, string(chars))
	} else {
		top.textParts = append(top.textParts, string(chars))
	}
	return nil
}

func (b *treeBuilder) IgnorableWhitespace(chars []rune) error { return nil }

func (b *treeBuilder) ProcessingInstruction(target, data string) error { return nil }

func (b *treeBuilder) SkippedEntity(name string) error { return nil }

// StartCDATA/EndCDATA implement sax.LexicalHandler, distinguishing a
// CDATA section's Characters calls from ordinary text the way the
// teacher's "#cdata" property required a dedicated code path for.
func (b *treeBuilder) StartCDATA() error { b.inCDATA = true; return nil }
func (b *treeBuilder) EndCDATA() error   { b.inCDATA = false; return nil }

func (b *treeBuilder) Comment(chars []rune) error                     { return nil }
func (b *treeBuilder) StartDTD(name, publicID, systemID string) error { return nil }
func (b *treeBuilder) EndDTD() error                                  { return nil }
func (b *treeBuilder) StartEntity(name string) error                  { return nil }
func (b *treeBuilder) EndEntity(name string) error                    { return nil }
