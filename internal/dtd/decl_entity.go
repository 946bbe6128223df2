package dtd

import "github.com/shapestone/xmlstream/internal/tokenizer"

// newEntityDeclParser returns the sub-parser for an ENTITY
// declaration's body, fed starting right after KindEntityDeclStart:
// ('%' S)? Name S (EntityValue | ExternalID NDataDecl?) '>'.
func newEntityDeclParser(p *Parser) declParser {
	return newFlatCollector(p, func(ev []Event) error {
		return finishEntityDecl(p, ev)
	})
}

func finishEntityDecl(p *Parser, ev []Event) error {
	i := 0
	isParam := false
	if i < len(ev) && ev[i].Kind == tokenizer.KindPercent {
		isParam = true
		i++
	}
	if i >= len(ev) || ev[i].Kind != tokenizer.KindName {
		return p.fatalf("expected an entity name in ENTITY declaration")
	}
	name := ev[i].Text
	i++

	decl := &EntityDeclaration{Name: name, IsParameter: isParam}

	if i >= len(ev) {
		return p.fatalf("ENTITY declaration for %q is missing its definition", name)
	}

	switch {
	case ev[i].Kind == literalKind:
		decl.ReplacementText = ev[i].Parts
		if decl.ReplacementText == nil && ev[i].Text != "" {
			decl.ReplacementText = []EntityTextPart{{Literal: ev[i].Text}}
		}
		decl.ContainsCharacterReferences = ev[i].CharRef
		i++
	case ev[i].Kind == tokenizer.KindName && (ev[i].Text == "SYSTEM" || ev[i].Text == "PUBLIC"):
		keyword := ev[i].Text
		i++
		extID := &ExternalID{}
		if keyword == "PUBLIC" {
			if i >= len(ev) || ev[i].Kind != literalKind {
				return p.fatalf("expected a public identifier in ENTITY declaration for %q", name)
			}
			if err := validatePubidLiteral(ev[i].Text); err != nil {
				return p.fatalf("%s", err)
			}
			extID.PublicID = ev[i].Text
			i++
		}
		if i >= len(ev) || ev[i].Kind != literalKind {
			return p.fatalf("expected a system identifier in ENTITY declaration for %q", name)
		}
		if err := validateSystemLiteral(ev[i].Text); err != nil {
			return p.fatalf("%s", err)
		}
		extID.SystemID = ev[i].Text
		i++
		decl.ExternalID = extID

		if i < len(ev) && ev[i].Kind == tokenizer.KindName && ev[i].Text == "NDATA" {
			if isParam {
				return p.fatalf("parameter entity %q cannot declare NDATA", name)
			}
			i++
			if i >= len(ev) || ev[i].Kind != tokenizer.KindName {
				return p.fatalf("expected a notation name after NDATA in ENTITY declaration for %q", name)
			}
			decl.NotationName = ev[i].Text
			i++
		}
	default:
		return p.fatalf("invalid definition in ENTITY declaration for %q", name)
	}
	if i != len(ev) {
		return p.fatalf("unexpected tokens after definition in ENTITY declaration for %q", name)
	}

	newly := p.Table.DeclareEntity(decl)
	if !newly {
		kind := "general"
		if isParam {
			kind = "parameter"
		}
		return p.warnf("%s entity %q is already declared; ignoring duplicate declaration", kind, name)
	}
	if isParam {
		return p.noteParamEntityDeclared(name)
	}
	return nil
}
