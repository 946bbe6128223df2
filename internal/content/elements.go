package content

import (
	"fmt"
	"strings"

	"github.com/shapestone/xmlstream/internal/dtd"
	"github.com/shapestone/xmlstream/internal/tokenizer"
	"github.com/shapestone/xmlstream/internal/validator"
)

func (p *Parser) tokenContent(kind tokenizer.Kind, text string) error {
	switch kind {
	case tokenizer.KindLT:
		return nil
	case tokenizer.KindName:
		return p.beginStartTag(text)
	case tokenizer.KindLTSlash:
		p.mode = modeEndTag
		p.endTagName = ""
		return nil
	case tokenizer.KindCData, tokenizer.KindS, tokenizer.KindCharEntityRef:
		return p.characters(text)
	case tokenizer.KindGeneralEntityRef:
		return p.expandGeneralEntity(text)
	case tokenizer.KindCommentStart:
		p.mode = modeComment
		p.commentBuf = p.commentBuf[:0]
		return nil
	case tokenizer.KindPIStart:
		p.mode = modePIBeforeData
		p.piTarget = ""
		p.piData = p.piData[:0]
		return nil
	case tokenizer.KindCDataStart:
		p.inCDATA = true
		if p.Lexical != nil {
			return p.Lexical.StartCDATA()
		}
		return nil
	case tokenizer.KindCDataEnd:
		p.inCDATA = false
		if p.Lexical != nil {
			return p.Lexical.EndCDATA()
		}
		return nil
	case tokenizer.KindDoctypeStart:
		return p.beginDoctype()
	default:
		return fmt.Errorf("content: unexpected token %s in document content", kind)
	}
}

func (p *Parser) characters(text string) error {
	runes := []rune(text)
	if len(p.stack) == 0 {
		// outside the root element, only whitespace (prolog/epilog Misc)
		// is grammatically possible here; it is not content of anything
		// and a conforming handler never sees it reported as Characters.
		if isAllWhitespace(runes) {
			return nil
		}
		return fmt.Errorf("content: character data is not allowed outside the root element")
	}
	if !p.inCDATA {
		top := &p.stack[len(p.stack)-1]
		top.sawChild = true
		if p.Opts.ValidationEnabled && top.validator != nil {
			ws := isAllWhitespace(runes)
			if !top.validator.Text(ws) {
				if err := p.validity("character data is not allowed in the content of element %q here", top.qname); err != nil {
					return err
				}
			}
			if ws && top.contentType == dtd.ContentElement {
				if p.Content == nil {
					return nil
				}
				return p.Content.IgnorableWhitespace(runes)
			}
		}
	}
	if p.Content == nil {
		return nil
	}
	return p.Content.Characters(runes)
}

func isAllWhitespace(rs []rune) bool {
	for _, r := range rs {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func (p *Parser) beginStartTag(name string) error {
	p.startTagName = name
	p.pendingAttrs = nil
	p.attrName = ""
	p.mode = modeStartTag
	p.activeTok.SetState(tokenizer.StateElementAttrs)
	return nil
}

func (p *Parser) tokenStartTag(kind tokenizer.Kind, text string) error {
	if p.attrName != "" && (kind == tokenizer.KindName || kind == tokenizer.KindGT || kind == tokenizer.KindSlashGT) {
		return fmt.Errorf("content: attribute %q has no quoted value", p.attrName)
	}
	switch kind {
	case tokenizer.KindS:
		return nil
	case tokenizer.KindName:
		p.attrName = text
		return nil
	case tokenizer.KindEquals:
		return nil
	case tokenizer.KindApos, tokenizer.KindQuote:
		if p.attrName == "" {
			return fmt.Errorf("content: unexpected attribute value with no preceding name")
		}
		p.attrQuote = kind
		p.attrBuilder = p.attrBuilder[:0]
		p.mode = modeAttrValue
		if kind == tokenizer.KindApos {
			p.activeTok.SetState(tokenizer.StateAttrValueApos)
		} else {
			p.activeTok.SetState(tokenizer.StateAttrValueQuot)
		}
		return nil
	case tokenizer.KindGT:
		p.activeTok.SetState(tokenizer.StateContent)
		return p.finishStartTag(false)
	case tokenizer.KindSlashGT:
		return p.finishStartTag(true)
	default:
		return fmt.Errorf("content: unexpected token %s in start tag", kind)
	}
}

func (p *Parser) tokenAttrValue(kind tokenizer.Kind, text string) error {
	switch kind {
	case tokenizer.KindCData, tokenizer.KindS:
		// literal whitespace normalizes to a single space (a literal
		// tab/CR/LF, not one written as a character reference); spec.md
		// section 4.5's attribute-value normalization, first pass.
		for _, r := range text {
			if r == '\t' || r == '\n' || r == '\r' {
				p.attrBuilder = append(p.attrBuilder, ' ')
			} else {
				p.attrBuilder = append(p.attrBuilder, r)
			}
		}
		return nil
	case tokenizer.KindCharEntityRef:
		p.attrBuilder = append(p.attrBuilder, []rune(text)...)
		return nil
	case tokenizer.KindGeneralEntityRef:
		s, err := p.resolveEntityTextForAttribute(text, map[string]bool{})
		if err != nil {
			return err
		}
		p.attrBuilder = append(p.attrBuilder, []rune(s)...)
		return nil
	case tokenizer.KindApos, tokenizer.KindQuote:
		if kind != p.attrQuote {
			p.attrBuilder = append(p.attrBuilder, []rune(text)...)
			return nil
		}
		p.pendingAttrs = append(p.pendingAttrs, rawAttr{qname: p.attrName, value: string(p.attrBuilder)})
		p.attrName = ""
		p.mode = modeStartTag
		p.activeTok.SetState(tokenizer.StateElementAttrs)
		return nil
	default:
		return fmt.Errorf("content: unexpected token %s in attribute value", kind)
	}
}

// finishStartTag processes xmlns declarations, resolves every name
// against the resulting scope, applies DTD-declared attribute defaults
// (spec.md section 4.4), validates against a declared content model if
// one is registered, and reports StartElement (and, for a self-closing
// tag, the matching EndElement immediately after).
func (p *Parser) finishStartTag(selfClosing bool) error {
	name := p.startTagName
	attrs := p.pendingAttrs
	p.pendingAttrs = nil

	p.ns.PushScope()

	var declErr error
	var declaredPrefixes []string
	kept := attrs[:0]
	for _, a := range attrs {
		if !p.Opts.NamespacesEnabled {
			kept = append(kept, a)
			continue
		}
		switch {
		case a.qname == "xmlns":
			if err := p.ns.Declare("", a.value); err != nil {
				if declErr == nil {
					declErr = err
				}
			} else {
				declaredPrefixes = append(declaredPrefixes, "")
			}
			if p.Opts.NamespacePrefixesEnabled {
				kept = append(kept, a)
			}
		case strings.HasPrefix(a.qname, "xmlns:"):
			prefix := a.qname[len("xmlns:"):]
			if err := p.ns.Declare(prefix, a.value); err != nil {
				if declErr == nil {
					declErr = err
				}
			} else {
				declaredPrefixes = append(declaredPrefixes, prefix)
			}
			if p.Opts.NamespacePrefixesEnabled {
				kept = append(kept, a)
			}
		default:
			kept = append(kept, a)
		}
	}
	attrs = kept
	if declErr != nil {
		p.ns.PopScope()
		return declErr
	}

	if p.Content != nil {
		for _, prefix := range declaredPrefixes {
			uri, _ := p.ns.Resolve(prefix)
			if err := p.Content.StartPrefixMapping(prefix, uri); err != nil {
				p.ns.PopScope()
				return err
			}
		}
	}

	resolved, err := p.ns.ProcessName(name, false)
	if err != nil {
		p.ns.PopScope()
		return err
	}
	resolved.URI = p.internString(resolved.URI)
	resolved.LocalName = p.internString(resolved.LocalName)
	resolved.QName = p.internString(resolved.QName)

	built := newAttributeList(len(attrs))
	seenResolved := make(map[[2]string]bool, len(attrs))
	seenQNames := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		ar, err := p.ns.ProcessName(a.qname, true)
		if err != nil {
			p.ns.PopScope()
			return err
		}
		key := [2]string{ar.URI, ar.LocalName}
		if seenResolved[key] {
			p.ns.PopScope()
			return fmt.Errorf("duplicate attribute %q on element %q", a.qname, name)
		}
		seenResolved[key] = true
		seenQNames[a.qname] = true
		built.add(p.internString(ar.URI), p.internString(ar.LocalName), p.internString(ar.QName), p.attrType(resolved.LocalName, a.qname), a.value)
	}
	if err := p.applyAttributeDefaults(resolved.LocalName, built, seenQNames); err != nil {
		p.ns.PopScope()
		return err
	}

	fr := frame{qname: name, uri: resolved.URI, localName: resolved.LocalName, contentType: dtd.ContentAny, declaredPrefixes: declaredPrefixes}
	if decl, ok := p.table.Elements[resolved.LocalName]; ok {
		fr.contentType = decl.ContentType
		if p.Opts.ValidationEnabled {
			if m, ok := p.table.Model(resolved.LocalName); ok {
				fr.validator = validator.New(m)
			}
		}
	} else if p.Opts.ValidationEnabled {
		if err := p.validity("element %q is not declared", name); err != nil {
			p.ns.PopScope()
			return err
		}
	}

	if len(p.stack) > 0 {
		parent := &p.stack[len(p.stack)-1]
		parent.sawChild = true
		if parent.validator != nil && !parent.validator.Child(resolved.LocalName) {
			if err := p.validity("element %q is not valid in the content of %q here", name, parent.qname); err != nil {
				p.ns.PopScope()
				return err
			}
		}
	} else if p.rootSeen {
		p.ns.PopScope()
		return fmt.Errorf("multiple root elements: %q", name)
	}
	p.rootSeen = true

	if p.Content != nil {
		if err := p.Content.StartElement(resolved.URI, resolved.LocalName, name, built); err != nil {
			p.ns.PopScope()
			return err
		}
	}

	if selfClosing {
		if fr.validator != nil && !fr.validator.Finish() {
			if err := p.validity("element %q is missing required content", name); err != nil {
				p.ns.PopScope()
				return err
			}
		}
		if p.Content != nil {
			if err := p.Content.EndElement(resolved.URI, resolved.LocalName, name); err != nil {
				p.ns.PopScope()
				return err
			}
			if err := p.endPrefixMappings(declaredPrefixes); err != nil {
				p.ns.PopScope()
				return err
			}
		}
		p.ns.PopScope()
		if len(p.stack) == 0 {
			p.rootClosed = true
		}
		p.mode = modeContent
		return nil
	}

	p.stack = append(p.stack, fr)
	p.mode = modeContent
	return nil
}

func (p *Parser) attrType(elementLocal, qname string) string {
	if attrs, ok := p.table.Attlists[elementLocal]; ok {
		if d, ok := attrs[qname]; ok {
			return d.Type
		}
	}
	return "CDATA"
}

func (p *Parser) applyAttributeDefaults(elementLocal string, built *attributeList, seenQNames map[string]bool) error {
	order := p.table.AttrOrder[elementLocal]
	attrs := p.table.Attlists[elementLocal]
	for _, name := range order {
		if seenQNames[name] {
			continue
		}
		decl := attrs[name]
		if decl.Mode == dtd.ModeRequired {
			if err := p.validity("required attribute %q of element %q is missing", name, elementLocal); err != nil {
				return err
			}
			continue
		}
		if decl.DefaultValue == "" && decl.Mode != dtd.ModeFixed {
			continue
		}
		ar, err := p.ns.ProcessName(name, true)
		if err != nil {
			continue
		}
		built.add(p.internString(ar.URI), p.internString(ar.LocalName), p.internString(ar.QName), decl.Type, decl.DefaultValue)
	}
	return nil
}

func (p *Parser) tokenEndTag(kind tokenizer.Kind, text string) error {
	switch kind {
	case tokenizer.KindName:
		p.endTagName = text
		return nil
	case tokenizer.KindGT:
		return p.finishEndTag()
	default:
		return fmt.Errorf("content: unexpected token %s in end tag", kind)
	}
}

func (p *Parser) finishEndTag() error {
	if len(p.stack) == 0 {
		return fmt.Errorf("end tag %q with no matching start tag", p.endTagName)
	}
	top := p.stack[len(p.stack)-1]
	if top.qname != p.endTagName {
		return fmt.Errorf("mismatched end tag: expected %q, got %q", top.qname, p.endTagName)
	}
	p.stack = p.stack[:len(p.stack)-1]
	if top.validator != nil && !top.validator.Finish() {
		if err := p.validity("element %q is missing required content", top.qname); err != nil {
			p.ns.PopScope()
			return err
		}
	}
	if p.Content != nil {
		if err := p.Content.EndElement(top.uri, top.localName, top.qname); err != nil {
			p.ns.PopScope()
			return err
		}
		if err := p.endPrefixMappings(top.declaredPrefixes); err != nil {
			p.ns.PopScope()
			return err
		}
	}
	p.ns.PopScope()
	if len(p.stack) == 0 {
		p.rootClosed = true
	}
	p.mode = modeContent
	return nil
}

// endPrefixMappings fires EndPrefixMapping for the given prefixes in
// reverse declaration order, the mirror image of the StartPrefixMapping
// calls finishStartTag made for the same element, and must run before
// the namespace scope they were bound in is popped.
func (p *Parser) endPrefixMappings(prefixes []string) error {
	if p.Content == nil {
		return nil
	}
	for i := len(prefixes) - 1; i >= 0; i-- {
		if err := p.Content.EndPrefixMapping(prefixes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) tokenPI(kind tokenizer.Kind, text string) error {
	switch p.mode {
	case modePIBeforeData:
		switch kind {
		case tokenizer.KindName:
			p.piTarget = text
			return nil
		case tokenizer.KindS:
			p.mode = modePIData
			p.activeTok.SetState(tokenizer.StatePIData)
			return nil
		case tokenizer.KindPIEnd:
			return p.finishPI()
		default:
			return fmt.Errorf("content: unexpected token %s in processing instruction", kind)
		}
	case modePIData:
		switch kind {
		case tokenizer.KindCData, tokenizer.KindS:
			p.piData = append(p.piData, []rune(text)...)
			return nil
		case tokenizer.KindPIEnd:
			return p.finishPI()
		default:
			return fmt.Errorf("content: unexpected token %s in processing instruction data", kind)
		}
	default:
		return fmt.Errorf("content: unreachable processing-instruction mode")
	}
}

func (p *Parser) finishPI() error {
	target := p.piTarget
	data := string(p.piData)
	p.piTarget = ""
	p.piData = p.piData[:0]
	p.mode = modeContent
	if p.Content == nil {
		return nil
	}
	return p.Content.ProcessingInstruction(target, data)
}

func (p *Parser) tokenComment(kind tokenizer.Kind, text string) error {
	switch kind {
	case tokenizer.KindCData:
		p.commentBuf = append(p.commentBuf, []rune(text)...)
		return nil
	case tokenizer.KindCommentEnd:
		buf := p.commentBuf
		p.commentBuf = nil
		p.mode = modeContent
		if p.Lexical == nil {
			return nil
		}
		return p.Lexical.Comment(buf)
	default:
		return fmt.Errorf("content: unexpected token %s in comment", kind)
	}
}

// attrRecord and attributeList implement sax.Attributes.
type attrRecord struct {
	uri, local, qname, typ, value string
}

type attributeList struct {
	items []attrRecord
}

func newAttributeList(capHint int) *attributeList {
	return &attributeList{items: make([]attrRecord, 0, capHint)}
}

func (a *attributeList) add(uri, local, qname, typ, value string) {
	a.items = append(a.items, attrRecord{uri, local, qname, typ, value})
}

func (a *attributeList) Len() int { return len(a.items) }

func (a *attributeList) Index(qName string) int {
	for i, it := range a.items {
		if it.qname == qName {
			return i
		}
	}
	return -1
}

func (a *attributeList) LocalName(i int) string { return a.items[i].local }
func (a *attributeList) URI(i int) string       { return a.items[i].uri }
func (a *attributeList) QName(i int) string     { return a.items[i].qname }
func (a *attributeList) Type(i int) string      { return a.items[i].typ }
func (a *attributeList) Value(i int) string     { return a.items[i].value }

func (a *attributeList) ValueByQName(qName string) (string, bool) {
	i := a.Index(qName)
	if i < 0 {
		return "", false
	}
	return a.items[i].value, true
}
