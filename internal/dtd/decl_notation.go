package dtd

import "github.com/shapestone/xmlstream/internal/tokenizer"

// newNotationDeclParser returns the sub-parser for a NOTATION
// declaration's body, fed starting right after KindNotationDeclStart:
// Name (ExternalID | PublicID) '>'.
func newNotationDeclParser(p *Parser) declParser {
	return newFlatCollector(p, func(ev []Event) error {
		return finishNotationDecl(p, ev)
	})
}

func finishNotationDecl(p *Parser, ev []Event) error {
	i := 0
	if i >= len(ev) || ev[i].Kind != tokenizer.KindName {
		return p.fatalf("expected a name in NOTATION declaration")
	}
	name := ev[i].Text
	i++

	if i >= len(ev) || ev[i].Kind != tokenizer.KindName {
		return p.fatalf("expected SYSTEM or PUBLIC in NOTATION declaration for %q", name)
	}
	keyword := ev[i].Text
	i++

	decl := &NotationDeclaration{Name: name}
	switch keyword {
	case "SYSTEM":
		if i >= len(ev) || ev[i].Kind != literalKind {
			return p.fatalf("expected a system identifier in NOTATION declaration for %q", name)
		}
		if err := validateSystemLiteral(ev[i].Text); err != nil {
			return p.fatalf("%s", err)
		}
		decl.SystemID = ev[i].Text
		i++
	case "PUBLIC":
		if i >= len(ev) || ev[i].Kind != literalKind {
			return p.fatalf("expected a public identifier in NOTATION declaration for %q", name)
		}
		if err := validatePubidLiteral(ev[i].Text); err != nil {
			return p.fatalf("%s", err)
		}
		decl.PublicID = ev[i].Text
		i++
		if i < len(ev) && ev[i].Kind == literalKind {
			if err := validateSystemLiteral(ev[i].Text); err != nil {
				return p.fatalf("%s", err)
			}
			decl.SystemID = ev[i].Text
			i++
		}
	default:
		return p.fatalf("expected SYSTEM or PUBLIC in NOTATION declaration for %q, got %q", name, keyword)
	}
	if i != len(ev) {
		return p.fatalf("unexpected tokens after identifier in NOTATION declaration for %q", name)
	}

	if !p.Table.DeclareNotation(decl) {
		// first-declaration-binding: the later duplicate is ignored,
		// but still reported as a warning.
		return p.warnf("notation %q is already declared; ignoring duplicate declaration", name)
	}
	return nil
}
