// Package content implements spec.md section 4.3: the content parser
// that drives element/attribute/text/entity handling over the token
// stream internal/tokenizer produces, dispatching to the public
// handler contract in pkg/sax and delegating DOCTYPE-interior tokens to
// internal/dtd.
package content

import (
	"fmt"
	"unicode/utf16"

	"github.com/google/uuid"

	"github.com/shapestone/xmlstream/internal/dtd"
	"github.com/shapestone/xmlstream/internal/intern"
	"github.com/shapestone/xmlstream/internal/namespace"
	"github.com/shapestone/xmlstream/internal/tokenizer"
	"github.com/shapestone/xmlstream/internal/validator"
	"github.com/shapestone/xmlstream/internal/xmlerr"
	"github.com/shapestone/xmlstream/pkg/sax"
)

// mode is the content parser's own top-level context, parallel to but
// distinct from the tokenizer's State: several tokenizer states (e.g.
// StateAttrValueApos/Quot) collapse onto one mode here, since the
// consumer-facing event this package reports doesn't distinguish them.
type mode int

const (
	modeContent mode = iota
	modeStartTag
	modeAttrValue
	modeEndTag
	modePIBeforeData
	modePIData
	modeComment
	modeDoctype
)

// rawAttr is one attribute as lexically read, before namespace
// processing splits its QName.
type rawAttr struct {
	qname string
	value string
}

// frame is one open element's bookkeeping: enough to check the end tag
// matches, restore the enclosing namespace scope, and validate its
// children against a declared content model.
type frame struct {
	qname            string
	uri              string
	localName        string
	contentType      dtd.ContentKind
	validator        *validator.Validator
	sawChild         bool
	declaredPrefixes []string // xmlns-bound prefixes to EndPrefixMapping, in declaration order
}

// Parser drives spec.md section 4.3 end to end: it is both a
// tokenizer.Consumer (receiving lexical tokens from the main document
// tokenizer, and from nested tokenizers opened to re-lex entity
// replacement text) and an encoding.Consumer (receiving decoded UTF-16
// chunks to hand the tokenizer).
type Parser struct {
	Opts     sax.Options
	Content  sax.ContentHandler
	DTD      sax.DTDHandler
	Lexical  sax.LexicalHandler
	Errors   sax.ErrorHandler
	Resolver sax.EntityResolver

	tok       *tokenizer.Tokenizer
	activeTok *tokenizer.Tokenizer // tok, or a nested tokenizer while re-lexing entity replacement text
	xml11     bool

	ns     *namespace.Stack
	intern *intern.Pool

	table   *dtd.Table
	doctype *dtd.Parser

	externalSubsetStarted bool

	stack []frame

	mode mode

	startTagName string
	pendingAttrs []rawAttr
	attrName     string
	attrQuote    tokenizer.Kind
	attrBuilder  []rune

	endTagName string

	piTarget string
	piData   []rune

	commentBuf []rune
	inCDATA    bool

	entityStack []string

	rootSeen   bool
	rootClosed bool

	loc *Locator
	err error
}

// New returns a content Parser wired to opts and the given handler
// capabilities (any of which may be nil; events for a nil handler,
// ContentHandler included, are skipped without error).
func New(opts sax.Options, xml11 bool) *Parser {
	p := &Parser{
		Opts:  opts,
		xml11: xml11,
		ns:    namespace.New(),
		table: dtd.NewTable(),
	}
	if opts.StringInterning {
		p.intern = intern.New()
	}
	p.loc = &Locator{parseID: uuid.New()}
	p.tok = tokenizer.New(tokenizer.StatePrologBeforeDoctype, xml11, false, p)
	p.activeTok = p.tok
	return p
}

// Chars implements encoding.Consumer, feeding decoded UTF-16 chunks to
// the document tokenizer.
func (p *Parser) Chars(units []uint16) error {
	if p.err != nil {
		return p.err
	}
	if err := p.tok.Feed(units); err != nil {
		return p.fatal(err)
	}
	return p.err
}

// Close signals end of input: the document tokenizer is closed and, if
// the document never saw a root element, that is itself reported as a
// fatal well-formedness error. EndDocument fires last, only once the
// input has been confirmed well-formed all the way through.
func (p *Parser) Close() error {
	if p.err != nil {
		return p.err
	}
	if err := p.tok.Close(); err != nil {
		return p.fatal(err)
	}
	if !p.rootClosed {
		return p.fatal(fmt.Errorf("document ended without a complete root element"))
	}
	if p.Content != nil {
		if err := p.Content.EndDocument(); err != nil {
			return p.fatal(err)
		}
	}
	return p.err
}

// StartDocument must be called once before the first Chars/Feed call,
// after the caller has wired Content (and the other handler fields) on
// the now-constructed Parser. SetDocumentLocator fires here rather than
// in New, since New returns before a caller has had the chance to set
// Content at all.
func (p *Parser) StartDocument() error {
	if p.Content == nil {
		return nil
	}
	p.Content.SetDocumentLocator(p.loc)
	return p.Content.StartDocument()
}

// StateChanged implements tokenizer.Consumer. The content parser drives
// every state transition it needs explicitly at the point it observes
// the triggering token, so this is a no-op save for locator bookkeeping
// hooks a future caller may add.
func (p *Parser) StateChanged(tokenizer.State) error { return nil }

// Token implements tokenizer.Consumer.
func (p *Parser) Token(tok tokenizer.Token) error {
	if p.err != nil {
		return p.err
	}
	p.loc.line, p.loc.column = p.activeTok.Position()
	text := p.decode(tok)
	if err := p.dispatch(tok.Kind, text); err != nil {
		// A *xmlerr.ValidityError reaching here (as internal/dtd's own
		// validityf can, for a declaration it merely flags rather than
		// rejects outright) is still only a recoverable Validity
		// Constraint violation, not a well-formedness error: route it
		// through the same Errors.Error escalation path elements.go's
		// own validity() uses, rather than treating every dispatch
		// error as fatal regardless of its class.
		if ve, ok := err.(*xmlerr.ValidityError); ok {
			return p.reportValidity(ve)
		}
		return p.fatal(err)
	}
	return nil
}

func (p *Parser) decode(tok tokenizer.Token) string {
	switch {
	case tok.Decoded != nil:
		return string(utf16.Decode(tok.Decoded))
	case tok.Window.Len > 0:
		return string(utf16.Decode(p.activeTok.Text(tok.Window)))
	default:
		return ""
	}
}

func (p *Parser) dispatch(kind tokenizer.Kind, text string) error {
	switch p.mode {
	case modeDoctype:
		return p.tokenDoctype(kind, text)
	case modeContent:
		return p.tokenContent(kind, text)
	case modeStartTag:
		return p.tokenStartTag(kind, text)
	case modeAttrValue:
		return p.tokenAttrValue(kind, text)
	case modeEndTag:
		return p.tokenEndTag(kind, text)
	case modePIBeforeData, modePIData:
		return p.tokenPI(kind, text)
	case modeComment:
		return p.tokenComment(kind, text)
	default:
		return fmt.Errorf("content: unreachable mode %d", p.mode)
	}
}

// fatal records err (first one wins) and reports it through the
// ErrorHandler's fatal channel if one is registered.
func (p *Parser) fatal(err error) error {
	if p.err != nil {
		return p.err
	}
	p.err = err
	if p.Errors != nil {
		se, ok := err.(*xmlerr.SyntaxError)
		if !ok {
			se = xmlerr.NewSyntax(p.location(), "%s", err)
		}
		if herr := p.Errors.FatalError(se); herr != nil {
			p.err = herr
		}
	}
	return p.err
}

// validity reports a recoverable Validity Constraint violation through
// ErrorHandler.Error. Per pkg/sax's own Error doc comment and spec.md
// section 7, a handler may escalate it to fatal simply by returning a
// non-nil error from Error; that return is routed through fatal here,
// the same override fatal already honors for FatalError.
func (p *Parser) validity(format string, args ...any) error {
	return p.reportValidity(xmlerr.NewValidity(p.location(), format, args...))
}

// reportValidity is validity's shared tail, also used by Token for a
// *xmlerr.ValidityError built elsewhere (internal/dtd's own
// validityf) and returned up through dispatch rather than through this
// package's own p.validity call sites.
func (p *Parser) reportValidity(ve *xmlerr.ValidityError) error {
	if p.Errors == nil {
		return nil
	}
	if herr := p.Errors.Error(ve); herr != nil {
		return p.fatal(herr)
	}
	return nil
}

func (p *Parser) location() xmlerr.Locator {
	return xmlerr.Locator{Line: p.loc.Line(), Column: p.loc.Column()}
}

// internString canonicalizes s through the intern pool when
// StringInterning is enabled, otherwise returns s unchanged.
func (p *Parser) internString(s string) string {
	if p.intern == nil {
		return s
	}
	return p.intern.Intern(s)
}
