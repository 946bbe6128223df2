package content

import (
	"io"
	"unicode/utf16"

	"github.com/shapestone/xmlstream/internal/dtd"
	"github.com/shapestone/xmlstream/internal/encoding"
	"github.com/shapestone/xmlstream/internal/tokenizer"
)

// SetState and State implement dtd.TokenizerControl, forwarding to
// whichever tokenizer is presently driving this Parser. A DOCTYPE
// declaration only ever appears in the main document stream, never
// inside a re-entered entity's replacement text, so activeTok is always
// the document tokenizer for the lifetime of a dtd.Parser; the
// indirection only exists so this Parser can satisfy the interface
// without exposing its tokenizer field to internal/dtd directly.
func (p *Parser) SetState(s tokenizer.State) { p.activeTok.SetState(s) }
func (p *Parser) State() tokenizer.State     { return p.activeTok.State() }

// beginDoctype starts DOCTYPE-interior processing: a fresh dtd.Parser
// takes over dispatch of every subsequent token until it reports Done,
// and its declaration table becomes this parser's table for the rest
// of the document (spec.md section 4.4's declarations govern element
// and attribute handling from here on).
func (p *Parser) beginDoctype() error {
	p.doctype = dtd.New(p, p.xml11, p.location)
	p.doctype.Warn = p.reportWarning
	p.table = p.doctype.Table
	p.externalSubsetStarted = false
	p.mode = modeDoctype
	return nil
}

// reportWarning forwards a non-fatal notice (presently: internal/dtd's
// first-declaration-binding duplicates) to ErrorHandler.Warning,
// honoring a non-nil return as an escalation to fatal the same way
// reportValidity already does for ErrorHandler.Error.
func (p *Parser) reportWarning(err error) error {
	if p.Errors == nil {
		return nil
	}
	if herr := p.Errors.Warning(err); herr != nil {
		return p.fatal(herr)
	}
	return nil
}

// tokenDoctype forwards every DOCTYPE-interior token to the dtd.Parser
// unconditionally: its own dispatch already no-ops comment, PI,
// whitespace and CDATA-kind tokens, so no pre-filtering is needed here.
// Once the internal subset (and, if present and resolvable, the
// external subset) has fully closed, this parser reports StartDTD/
// EndDTD and returns to content mode.
func (p *Parser) tokenDoctype(kind tokenizer.Kind, text string) error {
	if err := p.doctype.Token(kind, text); err != nil {
		return err
	}
	if p.doctype.Done() {
		return p.finishDoctype()
	}
	if extID := p.doctype.ExternalSubsetID(); extID != nil && !p.externalSubsetStarted {
		return p.loadExternalSubset(extID)
	}
	return nil
}

// loadExternalSubset resolves and re-lexes a DOCTYPE's external subset
// through the registered EntityResolver. With no resolver registered,
// or one that declines to supply a stream, the external subset is
// simply never read — the conservative default for a non-validating
// parse, and the same "explicit opt-in only" rule general external
// entities follow.
func (p *Parser) loadExternalSubset(extID *dtd.ExternalID) error {
	p.externalSubsetStarted = true
	if p.Resolver == nil {
		if err := p.doctype.FinishExternalSubset(); err != nil {
			return err
		}
		return p.finishDoctype()
	}
	src, err := p.Resolver.ResolveEntity("[dtd]", extID.PublicID, extID.SystemID, "")
	if err != nil {
		return err
	}
	if src == nil || src.Stream == nil {
		if err := p.doctype.FinishExternalSubset(); err != nil {
			return err
		}
		return p.finishDoctype()
	}
	defer src.Stream.Close()

	var units unitSink
	dec := encoding.NewDecoder(&units, true)
	buf := make([]byte, 4096)
	for {
		n, rerr := src.Stream.Read(buf)
		if n > 0 {
			if err := dec.Feed(buf[:n]); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if err := dec.Close(); err != nil {
		return err
	}

	p.doctype.BeginExternalSubset()
	if err := p.reenter("[dtd]", string(utf16.Decode(units)), tokenizer.StateDoctypeInternal); err != nil {
		return err
	}
	if err := p.doctype.FinishExternalSubset(); err != nil {
		return err
	}
	return p.finishDoctype()
}

func (p *Parser) finishDoctype() error {
	name := p.doctype.RootName()
	// the tokenizer never leaves a DOCTYPE-interior state on its own;
	// every transition inside one is driven explicitly by dtd.Parser or,
	// for the declaration's own close, here.
	p.activeTok.SetState(tokenizer.StatePrologAfterDoctype)
	if p.Lexical != nil {
		if err := p.Lexical.StartDTD(name, "", ""); err != nil {
			return err
		}
		if err := p.Lexical.EndDTD(); err != nil {
			return err
		}
	}
	if p.DTD != nil {
		if err := p.reportDTDDeclarations(); err != nil {
			return err
		}
	}
	p.doctype = nil

	p.mode = modeContent
	return nil
}

// reportDTDDeclarations reports every notation and unparsed entity the
// DOCTYPE declared, once it has closed, to DTDHandler. Real SAX2 fires
// these as each declaration is parsed; this parser's dtd.Parser only
// exposes a completed Table once Done(), so both arrive here together
// at EndDTD time instead — the declarations themselves are unaffected,
// only their reporting is batched to document-close rather than
// interleaved with in-progress internal-subset parsing.
func (p *Parser) reportDTDDeclarations() error {
	for _, n := range p.table.Notations {
		if err := p.DTD.NotationDecl(n.Name, n.PublicID, n.SystemID); err != nil {
			return err
		}
	}
	for _, e := range p.table.GeneralEnt {
		if !e.IsUnparsed() {
			continue
		}
		if err := p.DTD.UnparsedEntityDecl(e.Name, e.ExternalID.PublicID, e.ExternalID.SystemID, e.NotationName); err != nil {
			return err
		}
	}
	return nil
}
