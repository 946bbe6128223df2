package dtd

import "github.com/shapestone/xmlstream/internal/tokenizer"

var attTypeKeywords = map[string]bool{
	"CDATA": true, "ID": true, "IDREF": true, "IDREFS": true,
	"ENTITY": true, "ENTITIES": true, "NMTOKEN": true, "NMTOKENS": true,
}

// newAttlistDeclParser returns the sub-parser for an ATTLIST
// declaration's body, fed starting right after KindAttlistDeclStart:
// Name AttDef* '>', where each AttDef is Name AttType DefaultDecl.
func newAttlistDeclParser(p *Parser) declParser {
	return newFlatCollector(p, func(ev []Event) error {
		return finishAttlistDecl(p, ev)
	})
}

func finishAttlistDecl(p *Parser, ev []Event) error {
	i := 0
	if i >= len(ev) || ev[i].Kind != tokenizer.KindName {
		return p.fatalf("expected an element name in ATTLIST declaration")
	}
	elementName := ev[i].Text
	i++

	for i < len(ev) {
		var decl *AttributeDeclaration
		var err error
		decl, i, err = parseAttDef(p, ev, i, elementName)
		if err != nil {
			return err
		}
		if !p.Table.DeclareAttribute(elementName, decl) {
			// first-declaration-binding: the later duplicate of this
			// attribute is ignored, but still reported as a warning.
			if err := p.warnf("attribute %q of element %q is already declared; ignoring duplicate declaration", decl.Name, elementName); err != nil {
				return err
			}
			continue
		}
	}
	return nil
}

func parseAttDef(p *Parser, ev []Event, i int, elementName string) (*AttributeDeclaration, int, error) {
	if i >= len(ev) || ev[i].Kind != tokenizer.KindName {
		return nil, i, p.fatalf("expected an attribute name in ATTLIST declaration for %q", elementName)
	}
	decl := &AttributeDeclaration{Name: ev[i].Text}
	i++

	if i >= len(ev) {
		return nil, i, p.fatalf("attribute %q of %q is missing its type", decl.Name, elementName)
	}
	switch {
	case ev[i].Kind == tokenizer.KindName && attTypeKeywords[ev[i].Text]:
		decl.Type = ev[i].Text
		i++
	case ev[i].Kind == tokenizer.KindName && ev[i].Text == "NOTATION":
		i++
		names, j, err := parseParenNameList(p, ev, i, elementName, decl.Name)
		if err != nil {
			return nil, i, err
		}
		decl.Type = "NOTATION"
		decl.Enumeration = names
		i = j
	case ev[i].Kind == tokenizer.KindLParen:
		names, j, err := parseParenNameList(p, ev, i, elementName, decl.Name)
		if err != nil {
			return nil, i, err
		}
		decl.Type = "ENUMERATION"
		decl.Enumeration = names
		i = j
	default:
		return nil, i, p.fatalf("unrecognized type for attribute %q of %q", decl.Name, elementName)
	}

	j, err := parseDefaultDecl(p, ev, i, decl, elementName)
	if err != nil {
		return nil, i, err
	}
	return decl, j, nil
}

// parseParenNameList parses '(' Name ('|' Name)* ')', used by both
// NotationType and Enumeration (which differ only in the keyword that
// precedes them, already consumed by the caller).
func parseParenNameList(p *Parser, ev []Event, i int, elementName, attrName string) ([]string, int, error) {
	if i >= len(ev) || ev[i].Kind != tokenizer.KindLParen {
		return nil, i, p.fatalf("expected '(' in type of attribute %q of %q", attrName, elementName)
	}
	i++
	var names []string
	for {
		if i >= len(ev) || ev[i].Kind != tokenizer.KindName {
			return nil, i, p.fatalf("expected a name in type of attribute %q of %q", attrName, elementName)
		}
		names = append(names, ev[i].Text)
		i++
		if i < len(ev) && ev[i].Kind == tokenizer.KindPipe {
			i++
			continue
		}
		break
	}
	if i >= len(ev) || ev[i].Kind != tokenizer.KindRParen {
		return nil, i, p.fatalf("expected ')' in type of attribute %q of %q", attrName, elementName)
	}
	i++
	return names, i, nil
}

// parseDefaultDecl parses '#REQUIRED' | '#IMPLIED' | ('#FIXED'? AttValue).
func parseDefaultDecl(p *Parser, ev []Event, i int, decl *AttributeDeclaration, elementName string) (int, error) {
	if i >= len(ev) {
		return i, p.fatalf("attribute %q of %q is missing its default declaration", decl.Name, elementName)
	}
	if ev[i].Kind == tokenizer.KindHash {
		i++
		if i >= len(ev) || ev[i].Kind != tokenizer.KindName {
			return i, p.fatalf("expected REQUIRED, IMPLIED or FIXED after '#' in attribute %q of %q", decl.Name, elementName)
		}
		switch ev[i].Text {
		case "REQUIRED":
			decl.Mode = ModeRequired
			return i + 1, nil
		case "IMPLIED":
			decl.Mode = ModeImplied
			return i + 1, nil
		case "FIXED":
			decl.Mode = ModeFixed
			i++
		default:
			return i, p.fatalf("expected REQUIRED, IMPLIED or FIXED after '#' in attribute %q of %q", decl.Name, elementName)
		}
	}
	if i >= len(ev) || ev[i].Kind != literalKind {
		return i, p.fatalf("expected a default value in attribute %q of %q", decl.Name, elementName)
	}
	decl.DefaultValue = ev[i].Text
	return i + 1, nil
}
