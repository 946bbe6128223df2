package dtd

import (
	"github.com/shapestone/xmlstream/internal/tokenizer"
	"github.com/shapestone/xmlstream/internal/validator"
)

// newElementDeclParser returns the sub-parser for an ELEMENT
// declaration's body, fed starting right after KindElementDeclStart:
// Name contentspec '>'.
func newElementDeclParser(p *Parser) declParser {
	return newFlatCollector(p, func(ev []Event) error {
		return finishElementDecl(p, ev)
	})
}

func finishElementDecl(p *Parser, ev []Event) error {
	i := 0
	if i >= len(ev) || ev[i].Kind != tokenizer.KindName {
		return p.fatalf("expected an element name in ELEMENT declaration")
	}
	name := ev[i].Text
	i++

	decl := &ElementDeclaration{Name: name}
	if i >= len(ev) {
		return p.fatalf("ELEMENT declaration for %q is missing a content specification", name)
	}

	switch {
	case ev[i].Kind == tokenizer.KindName && ev[i].Text == "EMPTY":
		decl.ContentType = ContentEmpty
		i++
	case ev[i].Kind == tokenizer.KindName && ev[i].Text == "ANY":
		decl.ContentType = ContentAny
		i++
	case ev[i].Kind == tokenizer.KindLParen:
		var err error
		i, err = parseContentSpec(p, ev, i, decl)
		if err != nil {
			return err
		}
	default:
		return p.fatalf("invalid content specification in ELEMENT declaration for %q", name)
	}
	if i != len(ev) {
		return p.fatalf("unexpected tokens after content specification in ELEMENT declaration for %q", name)
	}

	if !p.Table.DeclareElement(decl) {
		// first-declaration-binding: the later duplicate itself is
		// ignored, but still reported as a warning.
		return p.warnf("element %q is already declared; ignoring duplicate declaration", name)
	}
	if decl.ContentType == ContentElement {
		// validator.Compile never actually errors for ElementContent
		// today (see its switch), so this is presently unreachable; it
		// stays in validityf rather than fatalf because an ambiguous
		// content model is a Validity Constraint, not a well-formedness
		// violation, and content.Parser.Token routes a *xmlerr.ValidityError
		// returned from here through the recoverable Errors.Error path
		// rather than straight to FatalError.
		particle, _ := decl.ContentModel.(*validator.Particle)
		if _, err := validator.Compile(validator.ElementContent, particle); err != nil {
			return p.validityf("element %q has an invalid content model: %s", name, err)
		}
	}
	return nil
}

// parseContentSpec parses a Mixed or children production starting at
// the opening '(' (ev[i]), returning the index just past it.
func parseContentSpec(p *Parser, ev []Event, i int, decl *ElementDeclaration) (int, error) {
	if i+1 < len(ev) && ev[i+1].Kind == tokenizer.KindHash {
		return parseMixed(p, ev, i, decl)
	}
	particle, j, err := parseParticle(p, ev, i)
	if err != nil {
		return i, err
	}
	decl.ContentType = ContentElement
	decl.ContentModel = particle
	return j, nil
}

// parseMixed parses '(' S? '#PCDATA' (S? '|' S? Name)* S? ')' ('*')?.
func parseMixed(p *Parser, ev []Event, i int, decl *ElementDeclaration) (int, error) {
	i++ // '('
	if i >= len(ev) || ev[i].Kind != tokenizer.KindHash {
		return i, p.fatalf("expected #PCDATA in mixed content declaration")
	}
	i++
	if i >= len(ev) || ev[i].Kind != tokenizer.KindName || ev[i].Text != "PCDATA" {
		return i, p.fatalf("expected #PCDATA in mixed content declaration")
	}
	i++
	var names []string
	for i < len(ev) && ev[i].Kind == tokenizer.KindPipe {
		i++
		if i >= len(ev) || ev[i].Kind != tokenizer.KindName {
			return i, p.fatalf("expected an element name after '|' in mixed content declaration")
		}
		names = append(names, ev[i].Text)
		i++
	}
	if i >= len(ev) || ev[i].Kind != tokenizer.KindRParen {
		return i, p.fatalf("expected ')' to close mixed content declaration")
	}
	i++
	if len(names) > 0 {
		if i >= len(ev) || ev[i].Kind != tokenizer.KindStar {
			return i, p.fatalf("mixed content with named children must end in '*'")
		}
		i++
	} else if i < len(ev) && ev[i].Kind == tokenizer.KindStar {
		i++ // '(#PCDATA)*' is occasionally written even with no names; tolerate it
	}
	decl.ContentType = ContentMixed
	decl.MixedNames = names
	return i, nil
}

// parseParticle parses one cp: (Name | choice | seq) ('?' | '*' | '+')?.
func parseParticle(p *Parser, ev []Event, i int) (*validator.Particle, int, error) {
	var part *validator.Particle
	var j int
	var err error
	switch {
	case i < len(ev) && ev[i].Kind == tokenizer.KindName:
		part = &validator.Particle{Kind: validator.PName, Name: ev[i].Text}
		j = i + 1
	case i < len(ev) && ev[i].Kind == tokenizer.KindLParen:
		part, j, err = parseGroup(p, ev, i)
		if err != nil {
			return nil, i, err
		}
	default:
		return nil, i, p.fatalf("expected a name or '(' in content model")
	}
	if j < len(ev) {
		switch ev[j].Kind {
		case tokenizer.KindQuestion:
			part.Occurs = validator.OccursOptional
			j++
		case tokenizer.KindStar:
			part.Occurs = validator.OccursStar
			j++
		case tokenizer.KindPlus:
			part.Occurs = validator.OccursPlus
			j++
		}
	}
	return part, j, nil
}

// parseGroup parses '(' cp ( ('|' cp)+ | (',' cp)+ )? ')', dispatching
// on the first separator seen to decide choice vs. seq; a singleton
// group with no separator parses as a 1-child seq (accepted leniently:
// the grammar technically requires at least one separator, but a
// trivially-parenthesised single particle is unambiguous either way).
func parseGroup(p *Parser, ev []Event, i int) (*validator.Particle, int, error) {
	i++ // '('
	first, j, err := parseParticle(p, ev, i)
	if err != nil {
		return nil, i, err
	}
	children := []*validator.Particle{first}
	kind := validator.PSeq
	if j < len(ev) {
		switch ev[j].Kind {
		case tokenizer.KindPipe:
			kind = validator.PChoice
			for j < len(ev) && ev[j].Kind == tokenizer.KindPipe {
				j++
				var c *validator.Particle
				c, j, err = parseParticle(p, ev, j)
				if err != nil {
					return nil, i, err
				}
				children = append(children, c)
			}
		case tokenizer.KindComma:
			kind = validator.PSeq
			for j < len(ev) && ev[j].Kind == tokenizer.KindComma {
				j++
				var c *validator.Particle
				c, j, err = parseParticle(p, ev, j)
				if err != nil {
					return nil, i, err
				}
				children = append(children, c)
			}
		}
	}
	if j >= len(ev) || ev[j].Kind != tokenizer.KindRParen {
		return nil, i, p.fatalf("expected ')' to close content model group")
	}
	j++
	return &validator.Particle{Kind: kind, Children: children}, j, nil
}
