// Package xmlstream assembles the streaming pipeline spec.md section 2
// describes (decoder -> tokenizer -> content parser -> DTD parser) into
// the single Parser a caller drives. pkg/sax holds the handler
// contracts and Options alone, the way moznion-helium's sax subpackage
// stays opaque interfaces while the module root wires them to an actual
// implementation — internal/content already depends on pkg/sax for
// those contracts, so the wiring has to live above both, not inside
// pkg/sax itself.
package xmlstream

import (
	"fmt"
	"io"

	"github.com/shapestone/xmlstream/internal/content"
	"github.com/shapestone/xmlstream/internal/encoding"
	"github.com/shapestone/xmlstream/pkg/sax"
)

// Parser is the public entry point: register any of Content, DTD,
// Lexical, Errors and Resolver (all optional), set Opts, then drive it
// with either Parse or the Feed/Close pair directly.
type Parser struct {
	Content  sax.ContentHandler
	DTD      sax.DTDHandler
	Lexical  sax.LexicalHandler
	Errors   sax.ErrorHandler
	Resolver sax.EntityResolver
	Opts     sax.Options

	dec *encoding.Decoder
	cp  *content.Parser
}

// NewParser returns a Parser configured with opts. Handler fields are
// set directly on the returned value before the first Feed/Parse call.
func NewParser(opts sax.Options) *Parser {
	return &Parser{Opts: opts}
}

// Chars implements encoding.Consumer. The content parser is constructed
// lazily, on the first chunk of successfully decoded text, since only
// then has the Decoder finished autodetecting the declared XML version
// internal/content's tokenizer needs at construction.
func (p *Parser) Chars(units []uint16) error {
	if p.cp == nil {
		p.cp = content.New(p.Opts, p.dec.XML11())
		p.cp.Content = p.Content
		p.cp.DTD = p.DTD
		p.cp.Lexical = p.Lexical
		p.cp.Errors = p.Errors
		p.cp.Resolver = p.Resolver
		if err := p.cp.StartDocument(); err != nil {
			return err
		}
	}
	return p.cp.Chars(units)
}

// Feed appends raw bytes from the document entity. Call it as many
// times as chunks of input arrive, then Close exactly once.
func (p *Parser) Feed(b []byte) error {
	if p.dec == nil {
		p.dec = encoding.NewDecoder(p, false)
	}
	return p.dec.Feed(b)
}

// Close signals end of input, flushing the decoder and then the content
// parser. It is an error to Close a Parser that never received any
// bytes worth decoding into a root element.
func (p *Parser) Close() error {
	if p.dec == nil {
		return fmt.Errorf("xmlstream: Close called before any input was fed")
	}
	if err := p.dec.Close(); err != nil {
		return err
	}
	if p.cp == nil {
		return fmt.Errorf("xmlstream: input decoded to nothing before end of input")
	}
	return p.cp.Close()
}

// Parse reads r to completion, feeding it through Feed/Close in fixed
// chunks, for a caller that holds a whole io.Reader rather than driving
// the push-mode Feed/Close pair directly.
func (p *Parser) Parse(r io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := p.Feed(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return p.Close()
}
