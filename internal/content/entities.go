package content

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/shapestone/xmlstream/internal/dtd"
	"github.com/shapestone/xmlstream/internal/encoding"
	"github.com/shapestone/xmlstream/internal/tokenizer"
)

// predefinedEntities are the five entity names XML guarantees resolve
// without a declaration (spec.md section 4.6). KindPredefEntityRef is
// never actually produced by the tokenizer; every one of these arrives
// as an ordinary KindGeneralEntityRef and is special-cased here before
// any lookup in the DTD's general entity table.
var predefinedEntities = map[string]string{
	"lt":   "<",
	"gt":   ">",
	"amp":  "&",
	"apos": "'",
	"quot": "\"",
}

// expandGeneralEntity handles a &name; reference encountered in
// element content. A predefined name is substituted directly; a
// declared internal entity is re-lexed through a throwaway tokenizer
// re-entering this same Parser, so markup inside its replacement text
// is parsed exactly as if it had appeared literally at the reference
// site (spec.md section 4.6's replacement-text-is-content rule).
func (p *Parser) expandGeneralEntity(name string) error {
	if repl, ok := predefinedEntities[name]; ok {
		return p.characters(repl)
	}
	decl, ok := p.table.GeneralEnt[name]
	if !ok {
		if p.Content != nil {
			if err := p.Content.SkippedEntity(name); err != nil {
				return err
			}
		}
		return fmt.Errorf("entity %q is not declared", name)
	}
	if decl.IsUnparsed() {
		return fmt.Errorf("entity %q is an unparsed entity and cannot be referenced in content", name)
	}
	if p.onEntityStack(name) {
		return fmt.Errorf("entity %q recursively references itself", name)
	}
	if decl.IsExternal() {
		return p.expandExternalGeneralEntity(name, decl)
	}

	text, err := p.flattenReplacementText(decl.ReplacementText, nil)
	if err != nil {
		return err
	}
	return p.reenter(name, text, tokenizer.StateContent)
}

// expandExternalGeneralEntity reports the entity to EntityResolver and,
// if one is registered, resolves and re-lexes its content the same way
// as an internal entity; otherwise the reference is reported as
// skipped, matching the behavior of a non-validating parser that
// cannot be required to fetch external resources (spec.md's
// EntityResolver is an explicit opt-in, never an implicit network
// fetch).
func (p *Parser) expandExternalGeneralEntity(name string, decl *dtd.EntityDeclaration) error {
	if !p.Opts.ExternalGeneralEntitiesEnabled || p.Resolver == nil {
		if p.Content != nil {
			return p.Content.SkippedEntity(name)
		}
		return nil
	}
	src, err := p.Resolver.ResolveEntity(name, decl.ExternalID.PublicID, decl.ExternalID.SystemID, "")
	if err != nil {
		return err
	}
	if src == nil || src.Stream == nil {
		if p.Content != nil {
			return p.Content.SkippedEntity(name)
		}
		return nil
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
	return p.reenter(name, string(utf16.Decode(units)), tokenizer.StateContent)
}

// unitSink accumulates decoded UTF-16 code units from an
// encoding.Decoder into a single slice, for the (typically small)
// external entities this parser re-lexes in one pass.
type unitSink []uint16

func (u *unitSink) Chars(units []uint16) error {
	*u = append(*u, units...)
	return nil
}

// flattenReplacementText resolves every nested general-entity reference
// in parts into its own replacement text, recursively, so the final
// string can be handed to a single re-entrant tokenizer pass. seen
// guards recursion within the flattening itself, independent of
// entityStack (which guards recursion through actual re-entry).
func (p *Parser) flattenReplacementText(parts []dtd.EntityTextPart, seen map[string]bool) (string, error) {
	var b strings.Builder
	for _, part := range parts {
		switch {
		case part.IsParamRef:
			return "", fmt.Errorf("parameter entity reference is not valid outside a DTD")
		case part.IsGeneralRef:
			if repl, ok := predefinedEntities[part.ReferenceName]; ok {
				b.WriteString(repl)
				continue
			}
			if seen[part.ReferenceName] {
				return "", fmt.Errorf("entity %q recursively references itself", part.ReferenceName)
			}
			nested, ok := p.table.GeneralEnt[part.ReferenceName]
			if !ok {
				return "", fmt.Errorf("entity %q is not declared", part.ReferenceName)
			}
			if nested.IsExternal() || nested.IsUnparsed() {
				return "", fmt.Errorf("entity %q cannot be expanded inline", part.ReferenceName)
			}
			sub := make(map[string]bool, len(seen)+1)
			for k := range seen {
				sub[k] = true
			}
			sub[part.ReferenceName] = true
			nestedText, err := p.flattenReplacementText(nested.ReplacementText, sub)
			if err != nil {
				return "", err
			}
			b.WriteString(nestedText)
		default:
			b.WriteString(part.Literal)
		}
	}
	return b.String(), nil
}

// resolveEntityTextForAttribute resolves a &name; reference encountered
// inside an attribute value literal to flat text: WFC No < in Attribute
// Values forbids markup from entering this way, so unlike content-
// position expansion this never re-enters the tokenizer, only the
// flattener, and rejects a result containing '<'.
func (p *Parser) resolveEntityTextForAttribute(name string, seen map[string]bool) (string, error) {
	if repl, ok := predefinedEntities[name]; ok {
		return repl, nil
	}
	decl, ok := p.table.GeneralEnt[name]
	if !ok {
		return "", fmt.Errorf("entity %q is not declared", name)
	}
	if decl.IsUnparsed() || decl.IsExternal() {
		return "", fmt.Errorf("entity %q cannot be referenced in an attribute value", name)
	}
	if seen[name] || p.onEntityStack(name) {
		return "", fmt.Errorf("entity %q recursively references itself", name)
	}
	sub := make(map[string]bool, len(seen)+1)
	for k := range seen {
		sub[k] = true
	}
	sub[name] = true
	text, err := p.flattenReplacementText(decl.ReplacementText, sub)
	if err != nil {
		return "", err
	}
	if strings.ContainsRune(text, '<') {
		return "", fmt.Errorf("entity %q expands to text containing '<' inside an attribute value", name)
	}
	return text, nil
}

// reenter pushes name onto entityStack, re-lexes text through a fresh
// tokenizer whose Consumer is this same Parser (so every mode handler
// above runs exactly as it would for the main document stream), and
// pops the stack again once the nested tokenizer's input is exhausted.
// The tokenizer backing the reference is restored as activeTok
// regardless of how the nested pass returns, so Window/Position
// resolution for subsequent main-stream tokens is never left pointing
// at the now-discarded nested tokenizer.
func (p *Parser) reenter(name, text string, start tokenizer.State) error {
	p.entityStack = append(p.entityStack, name)
	defer func() { p.entityStack = p.entityStack[:len(p.entityStack)-1] }()

	if p.Lexical != nil {
		if err := p.Lexical.StartEntity(name); err != nil {
			return err
		}
	}

	outer := p.activeTok
	nested := tokenizer.New(start, p.xml11, false, p)
	p.activeTok = nested
	err := nested.Feed(utf16.Encode([]rune(text)))
	if err == nil {
		err = nested.Flush()
	}
	p.activeTok = outer
	if err != nil {
		return err
	}

	if p.Lexical != nil {
		return p.Lexical.EndEntity(name)
	}
	return nil
}

func (p *Parser) onEntityStack(name string) bool {
	for _, s := range p.entityStack {
		if s == name {
			return true
		}
	}
	return false
}
