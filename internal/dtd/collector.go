package dtd

import "github.com/shapestone/xmlstream/internal/tokenizer"

// flatCollector is the shared sub-parser scaffold for ELEMENT, ATTLIST
// and NOTATION declarations: rather than a hand-rolled nested-paren
// state machine, it collects every token up to the declaration's
// closing '>' into a flat []Event slice (resolving any quoted literal
// along the way to a single literalKind Event, and expanding any
// parameter-entity reference inline), then hands that slice to finish
// for a single-pass grammar parse. This is safe because a markup
// declaration is small and bounded — spec.md section 4.4 itself
// describes incremental, per-token handling as the general shape, but
// nothing requires the content-model/attribute-list grammars
// themselves to be parsed incrementally, and a flat slice is far
// simpler to get right for content models' nested parenthesised
// choice/seq groups. ENTITY declarations use this same scaffold.
type flatCollector struct {
	p      *Parser
	tokens []Event
	lit    *literalReader
	finish func([]Event) error
}

func newFlatCollector(p *Parser, finish func([]Event) error) *flatCollector {
	return &flatCollector{p: p, finish: finish}
}

// token implements declParser.
func (f *flatCollector) token(kind tokenizer.Kind, text string) (bool, error) {
	done, err := f.feed(kind, text)
	if err != nil {
		return false, err
	}
	if !done {
		return false, nil
	}
	return true, f.finish(f.tokens)
}

// feed is also used directly as the sink callback passed to
// (*Parser).expandParamEntityInto, so a parameter-entity reference
// inside a declaration re-enters collection exactly as if its
// replacement text had been typed in place.
func (f *flatCollector) feed(kind tokenizer.Kind, text string) (bool, error) {
	if f.lit != nil {
		return f.feedLiteral(kind, text)
	}
	switch kind {
	case tokenizer.KindGT:
		return true, nil
	case tokenizer.KindApos, tokenizer.KindQuote:
		f.openLiteral(kind)
		return false, nil
	case tokenizer.KindParameterEntityRef:
		return false, f.p.expandParamEntityInto(text, f.feed)
	case tokenizer.KindS:
		return false, nil
	default:
		f.tokens = append(f.tokens, Event{Kind: kind, Text: text})
		return false, nil
	}
}

func (f *flatCollector) openLiteral(openKind tokenizer.Kind) {
	f.lit = &literalReader{}
	f.lit.start(openKind, f.p.ctrl.State())
	f.p.ctrl.SetState(f.p.quotedStateFor(openKind))
}

func (f *flatCollector) feedLiteral(kind tokenizer.Kind, text string) (bool, error) {
	done := f.lit.feed(kind, text)
	if !done {
		return false, nil
	}
	f.p.ctrl.SetState(f.lit.returnState)
	f.tokens = append(f.tokens, Event{Kind: literalKind, Text: f.lit.text(), Parts: f.lit.parts, CharRef: f.lit.sawCharRef})
	f.lit = nil
	return false, nil
}
