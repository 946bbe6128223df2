package dtd

import (
	"strings"
	"unicode/utf16"

	"github.com/shapestone/xmlstream/internal/tokenizer"
	"github.com/shapestone/xmlstream/internal/xmlerr"
)

// TokenizerControl is the slice of *tokenizer.Tokenizer the DTD parser
// needs in order to drive the shared tokenizer through the handful of
// DOCTYPE-interior transitions spec.md section 4.2 leaves externally
// controlled: opening/closing a quoted literal (SYSTEM/PUBLIC
// identifier, entity value, attribute default), and resolving a
// conditional section's INCLUDE/IGNORE keyword into the matching
// top-level state.
type TokenizerControl interface {
	SetState(tokenizer.State)
	State() tokenizer.State
}

// Phase is the DTD parser's outer state, collapsing spec.md section
// 4.4's INITIAL -> AFTER_NAME -> ... -> DONE chain. The IN_{ELEMENTDECL,
// ATTLISTDECL,ENTITYDECL,NOTATIONDECL} states from that chain are not
// separate Phase values here: they're represented by PhaseInternalSubset/
// PhaseExternalSubset plus a non-nil active declaration sub-parser,
// since "which declaration is open" is exactly what the sub-parser
// identity already records.
type Phase int

const (
	PhaseAfterDoctypeKeyword Phase = iota
	PhaseAfterName
	PhaseExternalID
	PhaseBeforeSubsetOrClose
	PhaseInternalSubset
	PhaseAfterInternalSubset
	PhaseExternalSubset
	PhaseDone
)

// declParser is a pushdown sub-parser for one markup declaration, fed
// one decoded token at a time and reporting completion on the closing
// '>' (spec.md section 4.4's "fed one token at a time ... continue /
// complete / error").
type declParser interface {
	token(kind tokenizer.Kind, text string) (done bool, err error)
}

// bufferedToken is one token captured during parameter-entity
// forward-reference buffering (spec.md section 4.4).
type bufferedToken struct {
	kind tokenizer.Kind
	text string
	loc  xmlerr.Locator
}

// condFrame is one level of a conditional-section nesting stack.
// ignore is true once this frame or any ancestor is IGNORE, matching
// the rule that nested sections inside an ignored section are never
// actually evaluated for their own keyword.
type condFrame struct {
	ignore bool
}

// Parser drives spec.md section 4.4 over the shared tokenizer's
// DOCTYPE-interior token stream, building Table.
type Parser struct {
	Table *Table

	// Warn, if set, receives a non-fatal notice (currently: a
	// first-declaration-binding duplicate). Its own return follows
	// ErrorHandler.Error's override convention: a non-nil return is
	// treated as an escalation to fatal. A nil Warn silently drops
	// every notice, matching the package's existing silent-duplicate
	// behavior when no caller wants them.
	Warn func(err error) error

	ctrl   TokenizerControl
	xml11  bool
	locate func() xmlerr.Locator

	phase Phase
	name  string // DOCTYPE root element name

	extID        *ExternalID
	pendingPubID string // PUBLIC literal already read, awaiting the SYSTEM literal

	lit *literalReader // non-nil while a top-level (outside-a-declaration) quoted literal is open

	active declParser

	external bool // true once external-subset tokens are being processed

	unresolvedPE  map[string]struct{}
	buffering     bool
	pendingBuffer []bufferedToken

	condStack          []condFrame
	condPendingKeyword bool   // true between KindCondStart and the keyword KindName
	condKeyword        string // resolved INCLUDE/IGNORE awaiting the body's '['

	done bool
}

// New returns a Parser ready to receive the tokens following a
// KindDoctypeStart ("<!DOCTYPE"), driving ctrl's shared tokenizer as
// needed. locate is consulted for every error's position snapshot; a
// nil locate reports the zero Locator.
func New(ctrl TokenizerControl, xml11 bool, locate func() xmlerr.Locator) *Parser {
	if locate == nil {
		locate = func() xmlerr.Locator { return xmlerr.Locator{} }
	}
	return &Parser{
		Table:        NewTable(),
		ctrl:         ctrl,
		xml11:        xml11,
		locate:       locate,
		phase:        PhaseAfterDoctypeKeyword,
		unresolvedPE: make(map[string]struct{}),
	}
}

// Done reports whether the DOCTYPE declaration (internal subset and,
// if loaded, external subset) has fully closed.
func (p *Parser) Done() bool { return p.done }

// RootName returns the document type name declared by "<!DOCTYPE name".
func (p *Parser) RootName() string { return p.name }

// ExternalSubsetID returns the DOCTYPE's own ExternalID, or nil if the
// document declared no external subset. The caller resolves and loads
// this (per its own EntityResolver policy) before calling
// BeginExternalSubset and feeding the loaded subset's tokens.
func (p *Parser) ExternalSubsetID() *ExternalID { return p.extID }

// Token feeds one decoded token to the parser. kind is the token's
// Kind; text is its already-decoded text (empty for tokens that carry
// no data, such as KindGT). Callers resolve a Token's Window via
// (*tokenizer.Tokenizer).Text before calling Token, since only the
// owning tokenizer can see its internal buffer.
func (p *Parser) Token(kind tokenizer.Kind, text string) error {
	if p.buffering {
		p.pendingBuffer = append(p.pendingBuffer, bufferedToken{kind: kind, text: text, loc: p.locate()})
		return nil
	}
	return p.dispatch(kind, text)
}

// BeginExternalSubset switches the parser to process tokens from the
// loaded external subset (spec.md section 4.4's required processing
// order: internal subset first, so parameter entities it declares are
// visible while the external subset is read).
func (p *Parser) BeginExternalSubset() {
	p.external = true
	p.phase = PhaseExternalSubset
	p.ctrl.SetState(tokenizer.StateDoctypeInternal)
}

// FinishExternalSubset must be called once every external-subset token
// has been fed. It reports the fatal *undefined parameter entity*
// error spec.md section 4.4 requires when the subset ends while a
// forward-referenced parameter entity is still unresolved.
func (p *Parser) FinishExternalSubset() error {
	if p.buffering && len(p.unresolvedPE) > 0 {
		names := make([]string, 0, len(p.unresolvedPE))
		for n := range p.unresolvedPE {
			names = append(names, n)
		}
		return p.fatalf("undefined parameter entity %s referenced in external subset", strings.Join(names, ", "))
	}
	p.done = true
	p.phase = PhaseDone
	return nil
}

func (p *Parser) dispatch(kind tokenizer.Kind, text string) error {
	if p.active != nil {
		return p.stepActive(kind, text)
	}
	if p.lit != nil {
		return p.stepTopLevelLiteral(kind, text)
	}
	switch kind {
	case tokenizer.KindCommentStart, tokenizer.KindCommentEnd,
		tokenizer.KindPIStart, tokenizer.KindPIEnd,
		tokenizer.KindS, tokenizer.KindCData:
		// Comment/PI bodies are fully handled by the tokenizer itself
		// (it returns to the surrounding state on its own); stray
		// whitespace and PI/comment text between declarations carries
		// no DOCTYPE-interior meaning.
		return nil
	case tokenizer.KindParameterEntityRef:
		return p.expandParamEntityTopLevel(text)
	case tokenizer.KindApos, tokenizer.KindQuote:
		p.openTopLevelLiteral(kind)
		return nil
	}

	switch p.phase {
	case PhaseAfterDoctypeKeyword:
		return p.stepAfterDoctypeKeyword(kind, text)
	case PhaseAfterName:
		return p.stepAfterName(kind, text)
	case PhaseExternalID:
		return p.stepExternalID(kind, text)
	case PhaseBeforeSubsetOrClose:
		return p.stepBeforeSubsetOrClose(kind, text)
	case PhaseInternalSubset, PhaseExternalSubset:
		return p.stepSubset(kind, text)
	case PhaseAfterInternalSubset:
		return p.stepAfterInternalSubset(kind, text)
	case PhaseDone:
		return p.fatalf("unexpected token %s after DOCTYPE declaration closed", kind)
	default:
		return p.fatalf("unreachable DTD parser phase %d", p.phase)
	}
}

func (p *Parser) stepActive(kind tokenizer.Kind, text string) error {
	done, err := p.active.token(kind, text)
	if err != nil {
		p.active = nil
		return err
	}
	if done {
		p.active = nil
	}
	return nil
}

// --- PhaseAfterDoctypeKeyword: "<!DOCTYPE" S Name ---

func (p *Parser) stepAfterDoctypeKeyword(kind tokenizer.Kind, text string) error {
	if kind != tokenizer.KindName {
		return p.fatalf("expected root element name after DOCTYPE, got %s", kind)
	}
	p.name = text
	p.phase = PhaseAfterName
	return nil
}

// --- PhaseAfterName: optional ExternalID, then '[' or '>' ---

func (p *Parser) stepAfterName(kind tokenizer.Kind, text string) error {
	switch {
	case kind == tokenizer.KindName && (text == "SYSTEM" || text == "PUBLIC"):
		p.extID = &ExternalID{}
		p.phase = PhaseExternalID
		p.pendingPubID = text // reuse as a marker of which keyword introduced this ExternalID
		return nil
	}
	return p.stepBeforeSubsetOrCloseShared(kind, text)
}

// --- PhaseExternalID: SYSTEM SystemLiteral | PUBLIC PubidLiteral SystemLiteral ---

func (p *Parser) stepExternalID(kind tokenizer.Kind, text string) error {
	switch kind {
	case literalKind:
		if p.pendingPubID == "PUBLIC" && p.extID.PublicID == "" && p.extID.SystemID == "" {
			if err := validatePubidLiteral(text); err != nil {
				return p.fatalf("%s", err)
			}
			p.extID.PublicID = text
			// A bare PUBLIC literal with no following SystemLiteral is
			// only legal for a notation's external ID, never the
			// document's; stay in this phase to require the SYSTEM
			// literal that must follow here.
			return nil
		}
		if err := validateSystemLiteral(text); err != nil {
			return p.fatalf("%s", err)
		}
		p.extID.SystemID = text
		p.pendingPubID = ""
		p.phase = PhaseBeforeSubsetOrClose
		return nil
	case tokenizer.KindName:
		return p.fatalf("expected a quoted literal in external id, got %s", kind)
	default:
		return p.fatalf("unexpected token %s reading external id", kind)
	}
}

// --- PhaseBeforeSubsetOrClose / shared "before '[' or '>'" handling ---

func (p *Parser) stepBeforeSubsetOrClose(kind tokenizer.Kind, text string) error {
	return p.stepBeforeSubsetOrCloseShared(kind, text)
}

func (p *Parser) stepBeforeSubsetOrCloseShared(kind tokenizer.Kind, text string) error {
	switch kind {
	case tokenizer.KindLBracket:
		p.phase = PhaseInternalSubset
		p.ctrl.SetState(tokenizer.StateDoctypeInternal)
		return nil
	case tokenizer.KindGT:
		p.phase = PhaseDone
		// as in stepAfterInternalSubset below: an external subset still
		// to load (extID != nil) keeps Done() false until
		// FinishExternalSubset runs, even though there was never an
		// internal subset to close here.
		if p.extID == nil {
			p.done = true
		}
		return nil
	default:
		return p.fatalf("expected '[' or '>' in DOCTYPE declaration, got %s", kind)
	}
}

// --- PhaseAfterInternalSubset: ']' S? '>' ---

func (p *Parser) stepAfterInternalSubset(kind tokenizer.Kind, text string) error {
	if kind != tokenizer.KindGT {
		return p.fatalf("expected '>' to close DOCTYPE after internal subset, got %s", kind)
	}
	p.phase = PhaseDone
	// Whether the document has an external subset still to load is the
	// caller's concern (it knows extID); Done() only reflects internal
	// completion until FinishExternalSubset (if ever called) sets it.
	if p.extID == nil {
		p.done = true
	}
	return nil
}

// --- PhaseInternalSubset / PhaseExternalSubset: the subset body ---

func (p *Parser) stepSubset(kind tokenizer.Kind, text string) error {
	switch kind {
	case tokenizer.KindRBracket:
		if p.phase != PhaseInternalSubset {
			return p.fatalf("unexpected ']' in external subset")
		}
		p.phase = PhaseAfterInternalSubset
		p.ctrl.SetState(tokenizer.StateDoctype)
		return nil
	case tokenizer.KindElementDeclStart:
		p.active = newElementDeclParser(p)
		return nil
	case tokenizer.KindAttlistDeclStart:
		p.active = newAttlistDeclParser(p)
		return nil
	case tokenizer.KindEntityDeclStart:
		p.active = newEntityDeclParser(p)
		return nil
	case tokenizer.KindNotationDeclStart:
		p.active = newNotationDeclParser(p)
		return nil
	case tokenizer.KindCondStart:
		if p.phase != PhaseExternalSubset {
			return p.fatalf("conditional section is only permitted in the external subset")
		}
		p.condPendingKeyword = true
		p.ctrl.SetState(tokenizer.StateConditionalSectionKeyword)
		return nil
	case tokenizer.KindName:
		if p.condPendingKeyword {
			return p.resolveConditionalKeyword(text)
		}
		return p.fatalf("unexpected name %q between markup declarations", text)
	case tokenizer.KindLBracket:
		if p.condKeyword == "" {
			return p.fatalf("unexpected '[' between markup declarations")
		}
		return p.openConditionalBody()
	case tokenizer.KindCondSectionEnd:
		return p.closeConditionalBody()
	default:
		return p.fatalf("unexpected token %s between markup declarations", kind)
	}
}

// --- conditional sections ---

func (p *Parser) resolveConditionalKeyword(name string) error {
	switch name {
	case "INCLUDE", "IGNORE":
		p.condKeyword = name
		p.condPendingKeyword = false
		return nil
	default:
		return p.fatalf("expected INCLUDE or IGNORE, got %q", name)
	}
}

func (p *Parser) openConditionalBody() error {
	parentIgnoring := len(p.condStack) > 0 && p.condStack[len(p.condStack)-1].ignore
	ignore := parentIgnoring || p.condKeyword == "IGNORE"
	p.condStack = append(p.condStack, condFrame{ignore: ignore})
	p.condKeyword = ""
	if ignore {
		p.ctrl.SetState(tokenizer.StateConditionalSectionIgnore)
	} else {
		p.ctrl.SetState(tokenizer.StateConditionalSectionInclude)
	}
	return nil
}

func (p *Parser) closeConditionalBody() error {
	if len(p.condStack) == 0 {
		return p.fatalf("unmatched ']]>' closing a conditional section")
	}
	p.condStack = p.condStack[:len(p.condStack)-1]
	if len(p.condStack) > 0 && p.condStack[len(p.condStack)-1].ignore {
		p.ctrl.SetState(tokenizer.StateConditionalSectionIgnore)
	} else {
		p.ctrl.SetState(tokenizer.StateDoctypeInternal)
	}
	return nil
}

// --- quoted literals outside a declaration (the document's ExternalID) ---

func (p *Parser) openTopLevelLiteral(openKind tokenizer.Kind) {
	p.lit = &literalReader{}
	p.lit.start(openKind, p.ctrl.State())
	p.ctrl.SetState(p.quotedStateFor(openKind))
}

func (p *Parser) stepTopLevelLiteral(kind tokenizer.Kind, text string) error {
	done := p.lit.feed(kind, text)
	if !done {
		return nil
	}
	p.ctrl.SetState(p.lit.returnState)
	literalText := p.lit.text()
	p.lit = nil
	return p.dispatch(literalKind, literalText)
}

// quotedStateFor returns the top-level state the shared tokenizer must
// switch to so it accumulates the quoted literal currently being
// opened (openKind is KindApos or KindQuote) as plain text.
func (p *Parser) quotedStateFor(openKind tokenizer.Kind) tokenizer.State {
	internal := p.ctrl.State() == tokenizer.StateDoctypeInternal ||
		p.ctrl.State() == tokenizer.StateConditionalSectionInclude ||
		p.ctrl.State() == tokenizer.StateConditionalSectionIgnore
	switch {
	case internal && openKind == tokenizer.KindApos:
		return tokenizer.StateDoctypeInternalQuotedApos
	case internal:
		return tokenizer.StateDoctypeInternalQuotedQuot
	case openKind == tokenizer.KindApos:
		return tokenizer.StateDoctypeQuotedApos
	default:
		return tokenizer.StateDoctypeQuotedQuot
	}
}

// --- parameter entity expansion ---

// literalKind is a synthetic, package-local pseudo-Kind used to hand a
// fully-read quoted literal's decoded text back through dispatch/
// declParser.token as a single unit, the way the tokenizer hands back
// an ACCUMULATING_CDATA run: callers that care about literal text
// switch on this value instead of reassembling KindApos/KindCData/
// KindApos sequences themselves. It is never produced by the
// tokenizer and never leaves this package.
const literalKind tokenizer.Kind = -1

// expandParamEntityTopLevel handles a "%name;" reference seen between
// markup declarations (spec.md section 4.4's PE-expansion and
// forward-reference rules). Mid-declaration PE references are handled
// separately by flatCollector, with a narrower (non-buffering) policy
// documented there.
func (p *Parser) expandParamEntityTopLevel(name string) error {
	decl, ok := p.Table.ParamEnt[name]
	if !ok {
		if !p.external {
			return p.fatalf("parameter entity %%%s; referenced before being declared in the internal subset", name)
		}
		p.unresolvedPE[name] = struct{}{}
		p.buffering = true
		return nil
	}
	if decl.IsExternal() {
		// External parameter entities need a second byte stream resolved
		// and decoded through the §4.1 encoding pipeline this package
		// doesn't own; until the content parser wires an EntityResolver
		// through, treat the reference as expanding to nothing rather
		// than failing the whole subset.
		return nil
	}
	text, err := p.paramEntityText(name, map[string]bool{})
	if err != nil {
		return err
	}
	events, err := tokenizeSubset(p.ctrl.State(), p.xml11, " "+text+" ")
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := p.dispatch(ev.Kind, ev.Text); err != nil {
			return err
		}
	}
	return nil
}

// noteParamEntityDeclared is called by the ENTITY declaration
// sub-parser every time it successfully registers a parameter entity,
// so pending forward references can be checked off and, once none
// remain, the buffered token run replayed.
func (p *Parser) noteParamEntityDeclared(name string) error {
	delete(p.unresolvedPE, name)
	if !p.buffering || len(p.unresolvedPE) > 0 {
		return nil
	}
	p.buffering = false
	buf := p.pendingBuffer
	p.pendingBuffer = nil
	for _, bt := range buf {
		if err := p.Token(bt.kind, bt.text); err != nil {
			return err
		}
	}
	return nil
}

// paramEntityText recursively resolves name's replacement text to a
// plain string, expanding any nested (still-unexpanded-in-storage)
// parameter-entity references it contains — the mechanism spec.md
// section 4.4 calls out for chains like "%a; -> %b; -> external %c;".
// General-entity references inside the text are left as literal
// "&name;": per the EntityValue production they are not expanded here,
// only when the *general* entity is itself later referenced in content.
func (p *Parser) paramEntityText(name string, seen map[string]bool) (string, error) {
	if seen[name] {
		return "", p.fatalf("parameter entity %%%s; is recursively defined", name)
	}
	decl, ok := p.Table.ParamEnt[name]
	if !ok {
		return "", p.fatalf("parameter entity %%%s; is not declared", name)
	}
	if decl.IsExternal() {
		return "", nil
	}
	seen[name] = true
	defer delete(seen, name)
	var b strings.Builder
	for _, part := range decl.ReplacementText {
		switch {
		case part.IsParamRef:
			nested, err := p.paramEntityText(part.ReferenceName, seen)
			if err != nil {
				return "", err
			}
			b.WriteString(nested)
		case part.IsGeneralRef:
			b.WriteString("&")
			b.WriteString(part.ReferenceName)
			b.WriteString(";")
		default:
			b.WriteString(part.Literal)
		}
	}
	return b.String(), nil
}

// expandParamEntityInto resolves name's replacement text and replays
// its re-tokenised events through sink — used by a declaration
// sub-parser (flatCollector) to expand a PE reference appearing inside
// a markup declaration in the external subset. Unlike
// expandParamEntityTopLevel, an unresolved name here is always fatal:
// forward-reference buffering is only supported between declarations,
// not mid-declaration (documented simplification; see DESIGN.md).
func (p *Parser) expandParamEntityInto(name string, sink func(kind tokenizer.Kind, text string) (bool, error)) error {
	if !p.external {
		return p.fatalf("parameter entity %%%s; reference is not allowed inside a declaration in the internal subset", name)
	}
	if _, ok := p.Table.ParamEnt[name]; !ok {
		return p.fatalf("parameter entity %%%s; referenced inside a markup declaration is not yet declared", name)
	}
	text, err := p.paramEntityText(name, map[string]bool{})
	if err != nil {
		return err
	}
	events, err := tokenizeSubset(p.ctrl.State(), p.xml11, " "+text+" ")
	if err != nil {
		return err
	}
	for _, ev := range events {
		done, err := sink(ev.Kind, ev.Text)
		if err != nil {
			return err
		}
		if done {
			return p.fatalf("markup declaration closed from inside parameter entity %%%s; expansion", name)
		}
	}
	return nil
}

// --- errors ---

func (p *Parser) fatalf(format string, args ...any) error {
	return xmlerr.NewSyntax(p.locate(), format, args...)
}

func (p *Parser) validityf(format string, args ...any) error {
	return xmlerr.NewValidity(p.locate(), format, args...)
}

// warnf reports a non-fatal notice through Warn, honoring a non-nil
// return as an escalation to fatal the same way validity's own
// Errors.Error escalation works one level up in internal/content.
func (p *Parser) warnf(format string, args ...any) error {
	if p.Warn == nil {
		return nil
	}
	if herr := p.Warn(xmlerr.NewWarning(p.locate(), format, args...)); herr != nil {
		return herr
	}
	return nil
}

// --- literal reading helper shared by top-level ExternalID parsing and
// every declaration sub-parser's quoted values ---

// literalReader accumulates one quoted DOCTYPE literal (SystemLiteral/
// PubidLiteral, EntityValue, attribute default value): the open quote
// selects which close quote is expected; plain text and (for
// EntityValue) nested entity references are collected as
// EntityTextPart, matching EntityDeclaration.ReplacementText's shape
// directly so entity declarations need no further conversion.
type literalReader struct {
	quote             tokenizer.Kind
	returnState       tokenizer.State
	parts             []EntityTextPart
	sawCharRef        bool // a KindCharEntityRef/KindPredefEntityRef was folded in as literal text
	sawRestrictedChar bool // reserved for a future XML 1.1 restricted-char-via-reference audit
}

func (l *literalReader) start(openKind tokenizer.Kind, returnState tokenizer.State) {
	l.quote = openKind
	l.returnState = returnState
	l.parts = nil
}

// feed processes one token while the literal is open, returning true
// once the matching closing quote has been consumed.
func (l *literalReader) feed(kind tokenizer.Kind, text string) bool {
	switch kind {
	case tokenizer.KindApos:
		if l.quote == tokenizer.KindApos {
			return true
		}
		l.appendLiteral("'")
	case tokenizer.KindQuote:
		if l.quote == tokenizer.KindQuote {
			return true
		}
		l.appendLiteral("\"")
	case tokenizer.KindCData:
		l.appendLiteral(text)
	case tokenizer.KindCharEntityRef, tokenizer.KindPredefEntityRef:
		l.sawCharRef = true
		l.appendLiteral(text)
	case tokenizer.KindGeneralEntityRef:
		l.parts = append(l.parts, EntityTextPart{IsGeneralRef: true, ReferenceName: text})
	case tokenizer.KindParameterEntityRef:
		l.parts = append(l.parts, EntityTextPart{IsParamRef: true, ReferenceName: text})
	}
	return false
}

func (l *literalReader) appendLiteral(s string) {
	if n := len(l.parts); n > 0 {
		last := &l.parts[n-1]
		if !last.IsGeneralRef && !last.IsParamRef {
			last.Literal += s
			return
		}
	}
	l.parts = append(l.parts, EntityTextPart{Literal: s})
}

// text flattens the literal to plain text, with any entity references
// it contained rendered back as "&name;"/"%name;" — used where only
// the literal's surface spelling matters (SYSTEM/PUBLIC identifiers,
// ATTLIST default values), never for an EntityValue, which keeps
// the structured parts slice instead.
func (l *literalReader) text() string {
	var b strings.Builder
	for _, p := range l.parts {
		switch {
		case p.IsGeneralRef:
			b.WriteString("&")
			b.WriteString(p.ReferenceName)
			b.WriteString(";")
		case p.IsParamRef:
			b.WriteString("%")
			b.WriteString(p.ReferenceName)
			b.WriteString(";")
		default:
			b.WriteString(p.Literal)
		}
	}
	return b.String()
}

// --- nested re-tokenisation of parameter-entity replacement text ---

// Event is one flattened tokenizer event, produced by tokenizeSubset
// and by flatCollector. Parts is only populated for a literalKind
// event produced by closing a quoted literal that contained entity
// references (an EntityValue); every other consumer uses Text, the
// literal's flattened spelling with any reference re-rendered as
// "&name;"/"%name;".
type Event struct {
	Kind    tokenizer.Kind
	Text    string
	Parts   []EntityTextPart
	CharRef bool // true iff a literalKind event's literal contained a character reference
}

// tokenizeSubset drives a fresh, throwaway tokenizer over text (a
// parameter entity's space-padded replacement text, or an external
// subset's full byte-decoded content) in the given starting state, and
// returns every token it produced as a flat, already-decoded Event
// slice. It deliberately does not call Close: a replacement text is a
// markup fragment, not a document, and per XML section 4.4.8's
// mandatory single-space padding on both ends, the trailing pad space
// itself guarantees any in-progress accumulation (a name, a literal
// run) is flushed as its own token before the fed text runs out, so
// skipping the terminal-state check Close enforces costs nothing here.
func tokenizeSubset(initial tokenizer.State, xml11 bool, text string) ([]Event, error) {
	rec := &eventRecorder{}
	tok := tokenizer.New(initial, xml11, true, rec)
	rec.tok = tok
	if err := tok.Feed(utf16.Encode([]rune(text))); err != nil {
		return nil, err
	}
	return rec.events, nil
}

type eventRecorder struct {
	tok    *tokenizer.Tokenizer
	events []Event
}

func (r *eventRecorder) Token(tok tokenizer.Token) error {
	var text string
	switch {
	case len(tok.Decoded) > 0:
		text = string(utf16.Decode(tok.Decoded))
	case tok.Window.Len > 0:
		text = string(utf16.Decode(r.tok.Text(tok.Window)))
	}
	r.events = append(r.events, Event{Kind: tok.Kind, Text: text})
	return nil
}

func (r *eventRecorder) StateChanged(tokenizer.State) error { return nil }
