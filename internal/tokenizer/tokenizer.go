// Package tokenizer implements spec.md section 4.2: a pushdown state
// machine over a two-level (top-level TokenizerState x inner MiniState)
// state space that recognises lexical tokens and emits them with
// zero-copy windows into the decoder's character buffer.
//
// The inner MiniState/CharClass layer is genuinely table-driven (see
// charclass.go's classify and the per-mini-state dispatch below); the
// outer TokenizerState only changes at a handful of unambiguous
// lexical boundaries (tag open/close, comment/PI/CDATA enter/exit,
// doctype internal-subset bracket). Anywhere the next context is
// ambiguous from lexical shape alone (conditional section keyword,
// entity-expansion starting context, DOCTYPE's post-name sub-phases)
// the consumer drives it explicitly via SetState, matching the
// "permits external control of the starting context" requirement.
package tokenizer

import (
	"errors"
	"fmt"

	"github.com/shapestone/xmlstream/internal/buffer"
	"github.com/shapestone/xmlstream/internal/chars"
)

// errUnderflow signals that a SEEN_* handler needs more lookahead than
// is currently buffered to decide how to proceed (confirming a "--",
// "]]" or "]]>" delimiter sequence may need up to two units past the
// first unconsumed character). It never escapes stepOnce.
var errUnderflow = errors.New("tokenizer: internal underflow sentinel")

// Consumer receives tokens and top-level state-change notifications.
type Consumer interface {
	Token(tok Token) error
	StateChanged(s State) error
}

// Tokenizer is the FSM described above. Construct with New, feed
// character chunks with Feed, and call Close once input is exhausted.
type Tokenizer struct {
	consumer            Consumer
	buf                 *buffer.CharacterBuffer
	state               State
	mini                MiniState
	xml11               bool
	allowRestrictedChar bool

	delimStart    int // buf position where a tentative delimiter sequence (--, ]], ?) began
	charRefValue  uint32
	charRefDigits int

	commentReturn State
	piReturn      State

	line, col int // 1-based position of the next unconsumed character

	carryCR bool
	closed  bool
}

// New returns a Tokenizer starting in initial, with xml11 selecting
// the Char/RestrictedChar classes (XML 1.0 vs 1.1) and
// allowRestrictedChar permitting XML 1.1 restricted control characters
// that arrived via a character reference in replacement text.
func New(initial State, xml11, allowRestrictedChar bool, consumer Consumer) *Tokenizer {
	return &Tokenizer{
		consumer:            consumer,
		buf:                 buffer.NewCharacterBuffer(4096),
		state:               initial,
		line:                1,
		col:                 1,
		mini:                MiniReady,
		xml11:               xml11,
		allowRestrictedChar: allowRestrictedChar,
	}
}

// State returns the current top-level context.
func (t *Tokenizer) State() State { return t.state }

// Position returns the 1-based line and column of the next unconsumed
// character, for a Consumer to stamp onto a Locator at the point it
// handles a Token.
func (t *Tokenizer) Position() (line, col int) { return t.line, t.col }

// SetState lets the consumer externally impose the next top-level
// context — used when starting a nested tokenizer for entity
// expansion, and when a conditional section's INCLUDE/IGNORE keyword
// (read by the DTD parser from the token stream) determines which of
// StateConditionalSectionInclude/Ignore applies.
func (t *Tokenizer) SetState(s State) {
	t.state = s
}

// Text resolves a Token's Window against the tokenizer's own character
// buffer. The returned slice is a view, not a copy — valid only until
// the next Feed call advances or compacts the buffer, matching
// Window's own "copy out before the next Feed" contract.
func (t *Tokenizer) Text(w buffer.Window) []uint16 {
	return t.buf.Slice(w)
}

// Feed appends a chunk of decoded UTF-16 code units (from
// internal/encoding) and advances the machine as far as the buffered
// input allows.
func (t *Tokenizer) Feed(units []uint16) error {
	if t.closed {
		return fmt.Errorf("tokenizer: Feed called after Close")
	}
	normalized, carry := normalizeUnits(units, t.xml11, t.carryCR)
	t.carryCR = carry
	t.buf.Append(normalized)
	return t.run()
}

// Close signals end of input. It is an error unless the machine is in
// MiniReady within a terminal top-level context.
func (t *Tokenizer) Close() error {
	t.closed = true
	if t.mini.greedy() {
		if err := t.flushAtEOF(); err != nil {
			return err
		}
	}
	if t.mini != MiniReady {
		return fmt.Errorf("tokenizer: input ended mid-token in mini-state %d", t.mini)
	}
	switch t.state {
	case StateContent, StatePrologBeforeDoctype, StatePrologAfterDoctype, StateClosed:
		return nil
	default:
		return fmt.Errorf("tokenizer: input ended in unterminated context %s", t.state)
	}
}

// Flush emits any in-progress greedy accumulation (trailing text or
// whitespace with nothing after it) without the terminal-state checks
// Close applies. It exists for a throwaway tokenizer re-lexing a
// fragment — entity replacement text, a DTD external subset — whose end
// state is not expected to be one of a whole document's terminal
// states, but whose trailing accumulated text would otherwise sit
// unflushed forever since nothing will ever feed it a stop character.
func (t *Tokenizer) Flush() error {
	if t.mini.greedy() {
		return t.flushAtEOF()
	}
	return nil
}

// flushAtEOF emits the in-progress accumulation as a complete token when
// input ends right where a stop character would otherwise have closed
// it — the common case being trailing whitespace or text with no
// further markup after it (e.g. a final newline after the root
// element's end tag). Every other greedy mini-state reaching EOF still
// mid-accumulation (a name, an entity reference, a character reference)
// is a genuine unterminated construct and is left for the mid-token
// check above to report.
func (t *Tokenizer) flushAtEOF() error {
	switch t.mini {
	case MiniAccumulatingWhitespace:
		w := t.buf.MarkedWindow()
		t.mini = MiniReady
		return t.emit(KindS, w)
	case MiniAccumulatingCData:
		w := t.buf.MarkedWindow()
		t.mini = MiniReady
		return t.emit(KindCData, w)
	default:
		return nil
	}
}

func (t *Tokenizer) run() error {
	for {
		progressed, err := t.stepOnce()
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

func (t *Tokenizer) stepOnce() (bool, error) {
	if t.mini.greedy() {
		return t.stepGreedy()
	}
	r, _, ok := t.peekRune()
	if !ok {
		return false, nil
	}
	if err := t.stepReady(r); err != nil {
		if err == errUnderflow {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// peekRune decodes the code point at the buffer's current position,
// combining a surrogate pair if present. Returns ok=false if the data
// needed to resolve the code point (a pending low surrogate) hasn't
// arrived yet.
func (t *Tokenizer) peekRune() (r rune, width int, ok bool) {
	u0, has := t.buf.Peek()
	if !has {
		return 0, 0, false
	}
	if u0 >= 0xD800 && u0 <= 0xDBFF {
		u1, has1 := t.buf.PeekAt(1)
		if !has1 {
			return 0, 0, false
		}
		if u1 < 0xDC00 || u1 > 0xDFFF {
			return 0, 0, false // malformed pair; let the Char validity check at consume time report it
		}
		cp := (rune(u0-0xD800) << 10) | rune(u1-0xDC00) + 0x10000
		return cp, 2, true
	}
	return rune(u0), 1, true
}

func (t *Tokenizer) consumeRune(width int) error {
	r, _, ok := t.peekRune()
	if ok {
		valid := chars.IsChar(r, t.xml11)
		restricted := chars.IsRestrictedChar(r, t.xml11)
		if !valid || (restricted && !t.allowRestrictedChar) {
			return fmt.Errorf("tokenizer: invalid character U+%04X", r)
		}
	}
	t.buf.Advance(width)
	if r == '\n' {
		t.line++
		t.col = 1
	} else {
		t.col++
	}
	return nil
}

func (t *Tokenizer) emit(kind Kind, w buffer.Window) error {
	return t.consumer.Token(Token{Kind: kind, Window: w})
}

func (t *Tokenizer) emitDecoded(kind Kind, units []uint16) error {
	return t.consumer.Token(Token{Kind: kind, Decoded: units})
}

func (t *Tokenizer) changeState(s State) error {
	t.state = s
	return t.consumer.StateChanged(s)
}

// ---- greedy (ACCUMULATING_*) mini-states ----

func (t *Tokenizer) stepGreedy() (bool, error) {
	r, width, ok := t.peekRune()
	if !ok {
		return false, nil
	}
	class := classify(r, t.xml11)

	switch t.mini {
	case MiniAccumulatingName, MiniAccumulatingMarkupName, MiniAccumulatingEntityName, MiniAccumulatingParamEntityName:
		if class == ClassNameStart || class == ClassNameChar || class == ClassDigit || class == ClassHexDigit || class == ClassColon || class == ClassDash {
			if err := t.consumeRune(width); err != nil {
				return false, err
			}
			return true, nil
		}
		return true, t.finishNameAccumulation()

	case MiniAccumulatingWhitespace:
		if class == ClassWhitespace {
			if err := t.consumeRune(width); err != nil {
				return false, err
			}
			return true, nil
		}
		w := t.buf.MarkedWindow()
		t.mini = MiniReady
		return true, t.emit(KindS, w)

	case MiniAccumulatingCData:
		if !t.isCDataStop(class) {
			if err := t.consumeRune(width); err != nil {
				return false, err
			}
			return true, nil
		}
		return true, t.exitCDataAccumulation(class)

	case MiniAccumulatingCharRefDec:
		if class == ClassDigit {
			t.charRefValue = t.charRefValue*10 + uint32(r-'0')
			t.charRefDigits++
			if err := t.consumeRune(width); err != nil {
				return false, err
			}
			return true, nil
		}
		if class == ClassSemicolon {
			if err := t.consumeRune(width); err != nil {
				return false, err
			}
			return true, t.finishCharRef()
		}
		return false, fmt.Errorf("tokenizer: malformed decimal character reference")

	case MiniAccumulatingCharRefHex:
		if class == ClassDigit || class == ClassHexDigit {
			t.charRefValue = t.charRefValue*16 + uint32(hexValue(r))
			t.charRefDigits++
			if err := t.consumeRune(width); err != nil {
				return false, err
			}
			return true, nil
		}
		if class == ClassSemicolon {
			if err := t.consumeRune(width); err != nil {
				return false, err
			}
			return true, t.finishCharRef()
		}
		return false, fmt.Errorf("tokenizer: malformed hexadecimal character reference")
	}
	return false, fmt.Errorf("tokenizer: unreachable greedy mini-state %d", t.mini)
}

func hexValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	default:
		return int(r-'A') + 10
	}
}

func (t *Tokenizer) finishCharRef() error {
	if t.charRefDigits == 0 {
		return fmt.Errorf("tokenizer: empty character reference")
	}
	r := rune(t.charRefValue)
	t.charRefValue = 0
	t.charRefDigits = 0
	t.mini = MiniReady
	if !chars.IsChar(r, t.xml11) || (chars.IsRestrictedChar(r, t.xml11) && !t.allowRestrictedChar) {
		return fmt.Errorf("tokenizer: character reference to invalid character U+%04X", r)
	}
	return t.emitDecoded(KindCharEntityRef, encodeSurrogates(r))
}

func encodeSurrogates(r rune) []uint16 {
	if r < 0x10000 {
		return []uint16{uint16(r)}
	}
	v := r - 0x10000
	return []uint16{uint16(0xD800 + (v >> 10)), uint16(0xDC00 + (v & 0x3FF))}
}

// isCDataStop reports whether class ends the current ACCUMULATING_CDATA
// run, depending on which top-level context is producing character
// data (content text stops at '<' or '&'; comment/PI/CDATA-section
// content stop at the first character of their own closing delimiter).
func (t *Tokenizer) isCDataStop(class CharClass) bool {
	switch t.state {
	case StateContent:
		return class == ClassLT || class == ClassAmp
	case StateComment:
		return class == ClassDash
	case StatePIData:
		return class == ClassQuestion
	case StateCDataSection:
		return class == ClassCloseBracket
	case StateConditionalSectionIgnore:
		// Unlike a CDATA section, an ignored conditional section must
		// also stop at '<' so a nested "<![" is recognised as its own
		// KindCondStart rather than swallowed as ignored text — the DTD
		// parser needs each nested open/close pair as a token to track
		// IGNORE/INCLUDE nesting depth (XML's ignoreSectContents grammar).
		return class == ClassCloseBracket || class == ClassLT
	case StateAttrValueApos:
		return class == ClassApos || class == ClassAmp || class == ClassLT
	case StateAttrValueQuot:
		return class == ClassQuote || class == ClassAmp || class == ClassLT
	case StateDoctypeQuotedApos, StateDoctypeInternalQuotedApos:
		return class == ClassApos || class == ClassAmp || (class == ClassPercent && t.inParamEntityContext())
	case StateDoctypeQuotedQuot, StateDoctypeInternalQuotedQuot:
		return class == ClassQuote || class == ClassAmp || (class == ClassPercent && t.inParamEntityContext())
	default:
		return class == ClassLT || class == ClassAmp
	}
}

// inParamEntityContext reports whether a '%' at the current position
// starts a parameter-entity reference rather than being ordinary markup
// (e.g. in an ATTLIST enumeration literal where '%' cannot occur). This
// covers every DOCTYPE-interior context a PEReference is grammatically
// allowed in; the DTD parser itself still enforces the narrower
// well-formedness rule that a SYSTEM/PUBLIC literal may not actually
// contain one (WFC *PEs in Internal Subset* and the SystemLiteral/
// PubidLiteral productions forbid '%' outright).
func (t *Tokenizer) inParamEntityContext() bool {
	switch t.state {
	case StateDoctypeInternal, StateConditionalSectionInclude, StateConditionalSectionKeyword,
		StateDoctypeQuotedApos, StateDoctypeQuotedQuot,
		StateDoctypeInternalQuotedApos, StateDoctypeInternalQuotedQuot:
		return true
	default:
		return false
	}
}

func (t *Tokenizer) exitCDataAccumulation(stopClass CharClass) error {
	w := t.buf.MarkedWindow()
	t.mini = MiniReady
	if w.Len > 0 {
		if err := t.emit(KindCData, w); err != nil {
			return err
		}
	}
	switch stopClass {
	case ClassDash:
		t.delimStart = t.buf.Position()
		t.mini = MiniSeenDash
	case ClassQuestion:
		t.delimStart = t.buf.Position()
		t.mini = MiniSeenQuery
	case ClassCloseBracket:
		t.delimStart = t.buf.Position()
		t.mini = MiniSeenCloseBracket
	}
	return nil
}

func (t *Tokenizer) finishNameAccumulation() error {
	w := t.buf.MarkedWindow()
	mini := t.mini
	t.mini = MiniReady
	switch mini {
	case MiniAccumulatingMarkupName:
		name := string(uint16ToRuneHint(t.buf.Slice(w)))
		kind, ok := markupDeclKind(name)
		if !ok {
			return fmt.Errorf("tokenizer: %q is not a recognised markup declaration keyword", name)
		}
		if err := t.emit(kind, w); err != nil {
			return err
		}
		if kind == KindDoctypeStart {
			return t.changeState(StateDoctype)
		}
		return nil
	case MiniAccumulatingEntityName, MiniAccumulatingParamEntityName:
		if r, _, _ := t.peekRune(); r != ';' {
			return fmt.Errorf("tokenizer: entity reference is not terminated by ';'")
		}
		if err := t.consumeRune(1); err != nil {
			return err
		}
		if mini == MiniAccumulatingParamEntityName {
			return t.emit(KindParameterEntityRef, w)
		}
		return t.emit(KindGeneralEntityRef, w)
	default:
		return t.emit(KindName, w)
	}
}

// uint16ToRuneHint widens BMP code units for the markup-keyword
// comparison; declaration keywords are always ASCII so surrogate pairs
// never occur here.
func uint16ToRuneHint(units []uint16) []rune {
	out := make([]rune, len(units))
	for i, u := range units {
		out[i] = rune(u)
	}
	return out
}

func markupDeclKind(name string) (Kind, bool) {
	switch name {
	case "ELEMENT":
		return KindElementDeclStart, true
	case "ATTLIST":
		return KindAttlistDeclStart, true
	case "ENTITY":
		return KindEntityDeclStart, true
	case "NOTATION":
		return KindNotationDeclStart, true
	case "DOCTYPE":
		return KindDoctypeStart, true
	default:
		return 0, false
	}
}

// ---- MiniReady and SEEN_* dispatch ----

func (t *Tokenizer) stepReady(r rune) error {
	class := classify(r, t.xml11)

	switch t.mini {
	case MiniReady:
		return t.stepFromReady(r, class)
	case MiniSeenLT:
		return t.stepSeenLT(r, class)
	case MiniSeenLTBang:
		return t.stepSeenLTBang(r, class)
	case MiniSeenLTBangDash:
		return t.stepSeenLTBangDash(r, class)
	case MiniSeenLTBangOpenBracket:
		return t.stepSeenLTBangOpenBracket(r, class)
	case MiniSeenAmp:
		return t.stepSeenAmp(r, class)
	case MiniSeenAmpHash:
		return t.stepSeenAmpHash(r, class)
	case MiniSeenAmpHashX:
		return t.stepSeenAmpHashX(r, class)
	case MiniSeenPercent:
		return t.stepSeenPercent(r, class)
	case MiniSeenDash:
		return t.stepSeenDash(r, class)
	case MiniSeenCloseBracket:
		return t.stepSeenCloseBracket(r, class)
	case MiniSeenQuery:
		return t.stepSeenQuery(r, class)
	case MiniSeenSlash:
		return t.stepSeenSlash(r, class)
	default:
		return fmt.Errorf("tokenizer: unreachable mini-state %d", t.mini)
	}
}

func (t *Tokenizer) stepFromReady(r rune, class CharClass) error {
	switch t.state {
	case StateContent, StateComment, StatePIData, StateCDataSection, StateConditionalSectionIgnore,
		StateAttrValueApos, StateAttrValueQuot,
		StateDoctypeQuotedApos, StateDoctypeQuotedQuot,
		StateDoctypeInternalQuotedApos, StateDoctypeInternalQuotedQuot:
		// Character data starts here unless r is a stop character that
		// opens markup or a reference, or closes a quoted literal; those
		// fall through to the class switches below. The '-', '?' and ']'
		// stops are resolved by exitCDataAccumulation instead.
		if !t.isCDataStop(class) || class == ClassDash || class == ClassQuestion || class == ClassCloseBracket {
			t.buf.Mark()
			t.mini = MiniAccumulatingCData
			return nil
		}
	}

	switch class {
	case ClassLT:
		if err := t.consumeRune(1); err != nil {
			return err
		}
		t.mini = MiniSeenLT
		return nil
	case ClassAmp:
		if err := t.consumeRune(1); err != nil {
			return err
		}
		t.mini = MiniSeenAmp
		return nil
	case ClassPercent:
		if t.inParamEntityContext() {
			if err := t.consumeRune(1); err != nil {
				return err
			}
			t.mini = MiniSeenPercent
			return nil
		}
		return t.emitSingle(KindPercent, 1)
	}

	switch class {
	case ClassWhitespace:
		t.buf.Mark()
		t.mini = MiniAccumulatingWhitespace
		return nil
	case ClassNameStart, ClassHexDigit:
		t.buf.Mark()
		t.mini = MiniAccumulatingName
		return nil
	case ClassGT:
		if err := t.emitSingle(KindGT, 1); err != nil {
			return err
		}
		if t.state == StateElementAttrs || t.state == StateElementName {
			return t.changeState(StateContent)
		}
		return nil
	case ClassSlash:
		if t.state == StateElementAttrs {
			if err := t.consumeRune(1); err != nil {
				return err
			}
			t.mini = MiniSeenSlash
			return nil
		}
		return t.emitSingle(KindSlashGT, 1)
	case ClassEquals:
		return t.emitSingle(KindEquals, 1)
	case ClassApos:
		opensValue := t.state == StateElementAttrs
		if err := t.emitSingle(KindApos, 1); err != nil {
			return err
		}
		if opensValue {
			return t.changeState(StateAttrValueApos)
		}
		return nil
	case ClassQuote:
		opensValue := t.state == StateElementAttrs
		if err := t.emitSingle(KindQuote, 1); err != nil {
			return err
		}
		if opensValue {
			return t.changeState(StateAttrValueQuot)
		}
		return nil
	case ClassHash:
		return t.emitSingle(KindHash, 1)
	case ClassPipe:
		return t.emitSingle(KindPipe, 1)
	case ClassComma:
		return t.emitSingle(KindComma, 1)
	case ClassStar:
		return t.emitSingle(KindStar, 1)
	case ClassPlus:
		return t.emitSingle(KindPlus, 1)
	case ClassQuestion:
		// A bare '?' only ever starts a "?>" close sequence while the
		// tokenizer is positioned to end a PI (PITarget with no data,
		// or PIData — the latter is handled via the CDATA-accumulation
		// stop-class path above, not here). Everywhere else (content
		// models, ATTLIST enumerations) '?' is the occurrence-indicator
		// token on its own.
		if t.state != StatePITarget {
			return t.emitSingle(KindQuestion, 1)
		}
		t.delimStart = t.buf.Position()
		if err := t.consumeRune(1); err != nil {
			return err
		}
		t.mini = MiniSeenQuery
		return nil
	case ClassColon:
		return t.emitSingle(KindColon, 1)
	case ClassOpenBracket:
		return t.emitSingle(KindLBracket, 1)
	case ClassOpenParen:
		return t.emitSingle(KindLParen, 1)
	case ClassCloseParen:
		return t.emitSingle(KindRParen, 1)
	case ClassCloseBracket:
		// Entered with the ']' itself still unconsumed, matching the
		// exitCDataAccumulation entry into the same mini-state — the
		// SEEN_CLOSE_BRACKET handler owns deciding how much of "]]>" it
		// actually is and consuming exactly that much.
		t.delimStart = t.buf.Position()
		t.mini = MiniSeenCloseBracket
		return nil
	default:
		return fmt.Errorf("tokenizer: unexpected character U+%04X in state %s", r, t.state)
	}
}

func (t *Tokenizer) emitSingle(kind Kind, width int) error {
	t.buf.Mark()
	if err := t.consumeRune(width); err != nil {
		return err
	}
	return t.emit(kind, t.buf.MarkedWindow())
}

func (t *Tokenizer) stepSeenLT(r rune, class CharClass) error {
	switch class {
	case ClassSlash:
		start := t.buf.Position() - 1
		if err := t.consumeRune(1); err != nil {
			return err
		}
		t.mini = MiniReady
		if err := t.emit(KindLTSlash, buffer.Window{Start: start, Len: 2}); err != nil {
			return err
		}
		return t.changeState(StateElementName)
	case ClassBang:
		if err := t.consumeRune(1); err != nil {
			return err
		}
		t.mini = MiniSeenLTBang
		return nil
	case ClassQuestion:
		start := t.buf.Position() - 1
		if err := t.consumeRune(1); err != nil {
			return err
		}
		t.mini = MiniReady
		if err := t.emit(KindPIStart, buffer.Window{Start: start, Len: 2}); err != nil {
			return err
		}
		t.piReturn = t.state
		return t.changeState(StatePITarget)
	case ClassNameStart, ClassHexDigit:
		t.mini = MiniReady
		if err := t.emit(KindLT, buffer.Window{Start: t.buf.Position() - 1, Len: 1}); err != nil {
			return err
		}
		if err := t.changeState(StateElementName); err != nil {
			return err
		}
		return t.stepFromReady(r, class)
	default:
		return fmt.Errorf("tokenizer: expected '/', '!', '?' or a name after '<', got U+%04X", r)
	}
}

func (t *Tokenizer) stepSeenLTBang(r rune, class CharClass) error {
	switch class {
	case ClassDash:
		if err := t.consumeRune(1); err != nil {
			return err
		}
		t.mini = MiniSeenLTBangDash
		return nil
	case ClassOpenBracket:
		if err := t.consumeRune(1); err != nil {
			return err
		}
		t.mini = MiniSeenLTBangOpenBracket
		return nil
	case ClassNameStart, ClassHexDigit:
		// "<!NAME" opens a markup declaration (ELEMENT/ATTLIST/ENTITY/
		// NOTATION) inside the internal subset, or "<!DOCTYPE" in the
		// prolog; both are recognised as an accumulated name and
		// classified once complete (markupDeclKind / the prolog driver
		// comparing against "DOCTYPE").
		t.buf.Mark()
		t.mini = MiniAccumulatingMarkupName
		return nil
	default:
		return fmt.Errorf("tokenizer: malformed markup declaration opener")
	}
}

func (t *Tokenizer) stepSeenLTBangDash(r rune, class CharClass) error {
	if class != ClassDash {
		return fmt.Errorf("tokenizer: expected second '-' to open a comment")
	}
	start := t.buf.Position() - 3
	if err := t.consumeRune(1); err != nil {
		return err
	}
	t.mini = MiniReady
	if err := t.emit(KindCommentStart, buffer.Window{Start: start, Len: 4}); err != nil {
		return err
	}
	t.commentReturn = t.state
	return t.changeState(StateComment)
}

const cdataLiteral = "CDATA["

func (t *Tokenizer) stepSeenLTBangOpenBracket(r rune, class CharClass) error {
	// "<![" is shared between CDATA sections (content only, literal
	// "CDATA[" follows) and DTD conditional sections (external subset,
	// where the keyword is a NAME the DTD parser classifies). Content
	// position only ever sees the CDATA spelling; DOCTYPE-interior
	// position hands off to the conditional-section opener instead.
	if t.state == StateContent || t.state == StateCDataSection {
		start := t.buf.Position() - 3
		ok, err := t.matchLiteralFrom(cdataLiteral)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("tokenizer: malformed CDATA section opener")
		}
		t.mini = MiniReady
		if err := t.emit(KindCDataStart, buffer.Window{Start: start, Len: 9}); err != nil {
			return err
		}
		return t.changeState(StateCDataSection)
	}
	start := t.buf.Position() - 3
	t.mini = MiniReady
	if err := t.emit(KindCondStart, buffer.Window{Start: start, Len: 3}); err != nil {
		return err
	}
	return t.changeState(StateConditionalSectionKeyword)
}

// matchLiteralFrom consumes exactly lit from the current position, or
// fails without consuming past the mismatch point (the declaration
// scanner in internal/encoding uses the same restore-on-mismatch
// convention).
func (t *Tokenizer) matchLiteralFrom(lit string) (bool, error) {
	for _, want := range lit {
		r, width, ok := t.peekRune()
		if !ok {
			return false, nil
		}
		if r != want {
			return false, nil
		}
		if err := t.consumeRune(width); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (t *Tokenizer) stepSeenAmp(r rune, class CharClass) error {
	switch class {
	case ClassHash:
		if err := t.consumeRune(1); err != nil {
			return err
		}
		t.mini = MiniSeenAmpHash
		return nil
	case ClassNameStart, ClassHexDigit:
		t.buf.Mark()
		t.mini = MiniAccumulatingEntityName
		return nil
	default:
		return fmt.Errorf("tokenizer: expected '#' or a name after '&'")
	}
}

func (t *Tokenizer) stepSeenAmpHash(r rune, class CharClass) error {
	if r == 'x' || r == 'X' {
		if err := t.consumeRune(1); err != nil {
			return err
		}
		t.mini = MiniSeenAmpHashX
		return nil
	}
	if class == ClassDigit {
		t.charRefValue = uint32(r - '0')
		t.charRefDigits = 1
		return t.consumeAndSwitch(1, MiniAccumulatingCharRefDec)
	}
	return fmt.Errorf("tokenizer: expected digit or 'x' after '&#'")
}

func (t *Tokenizer) stepSeenAmpHashX(r rune, class CharClass) error {
	if class == ClassDigit || class == ClassHexDigit {
		t.charRefValue = uint32(hexValue(r))
		t.charRefDigits = 1
		return t.consumeAndSwitch(1, MiniAccumulatingCharRefHex)
	}
	return fmt.Errorf("tokenizer: expected hex digit after '&#x'")
}

func (t *Tokenizer) consumeAndSwitch(width int, next MiniState) error {
	if err := t.consumeRune(width); err != nil {
		return err
	}
	t.mini = next
	return nil
}

func (t *Tokenizer) stepSeenPercent(r rune, class CharClass) error {
	if class == ClassWhitespace {
		// "<!ENTITY % name": the '%' marks a parameter-entity declaration.
		t.mini = MiniReady
		return t.emit(KindPercent, buffer.Window{Start: t.buf.Position() - 1, Len: 1})
	}
	if class != ClassNameStart && class != ClassHexDigit {
		return fmt.Errorf("tokenizer: expected a name after '%%'")
	}
	t.buf.Mark()
	t.mini = MiniAccumulatingParamEntityName
	return nil
}

// stepSeenDash is entered with the first unconsumed '-' of a candidate
// comment-close sequence at the current position (delimStart already
// records its offset). It looks up to two units ahead to decide
// whether this is "--" (and, if so, whether "-->") in one pass rather
// than threading that decision across further mini-states — XML
// forbids a literal "--" anywhere in a comment body, so confirming two
// dashes not followed by '>' is itself a well-formedness error, not a
// resumption point.
func (t *Tokenizer) stepSeenDash(r rune, class CharClass) error {
	u1, ok := t.buf.PeekAt(1)
	if !ok {
		return errUnderflow
	}
	if u1 != '-' {
		// A lone dash was ordinary comment text.
		return t.resumeAccumulatingOne()
	}
	u2, ok2 := t.buf.PeekAt(2)
	if !ok2 {
		return errUnderflow
	}
	if u2 != '>' {
		return fmt.Errorf("tokenizer: '--' is not allowed inside a comment")
	}
	start := t.delimStart
	for i := 0; i < 3; i++ {
		if err := t.consumeRune(1); err != nil {
			return err
		}
	}
	t.mini = MiniReady
	if err := t.emit(KindCommentEnd, buffer.Window{Start: start, Len: t.buf.Position() - start}); err != nil {
		return err
	}
	return t.changeState(t.commentReturn)
}

// stepSeenCloseBracket is entered with the first unconsumed ']' of a
// candidate "]]>" sequence at the current position. As with
// stepSeenDash, the confirmation is resolved in one handler call via
// lookahead rather than threaded across two mini-states, since a
// partial match (one or two brackets not followed by '>') means
// different things depending on context: ordinary text inside a CDATA
// section or an ignored conditional section, or content-bracket
// punctuation (KindRBracket) everywhere else.
func (t *Tokenizer) stepSeenCloseBracket(r rune, class CharClass) error {
	resumesAsText := t.state == StateCDataSection || t.state == StateConditionalSectionIgnore

	u1, ok := t.buf.PeekAt(1)
	if !ok {
		return errUnderflow
	}
	if u1 != ']' {
		// Exactly one ']', confirmed not the start of "]]>".
		if resumesAsText {
			return t.resumeAccumulatingOne()
		}
		return t.emitRBracket()
	}
	u2, ok2 := t.buf.PeekAt(2)
	if !ok2 {
		return errUnderflow
	}
	if u2 != '>' {
		// Two brackets not followed by '>': only the first is confirmed
		// ordinary text. Consume just that one and re-examine the
		// second fresh (handles e.g. "]]]>", where the second and third
		// brackets form their own close candidate).
		if resumesAsText {
			return t.resumeAccumulatingOne()
		}
		return t.emitRBracket()
	}
	start := t.delimStart
	for i := 0; i < 3; i++ {
		if err := t.consumeRune(1); err != nil {
			return err
		}
	}
	t.mini = MiniReady
	kind := KindCDataEnd
	if t.state != StateCDataSection {
		kind = KindCondSectionEnd
	}
	if err := t.emit(kind, buffer.Window{Start: start, Len: t.buf.Position() - start}); err != nil {
		return err
	}
	if t.state == StateCDataSection {
		return t.changeState(StateContent)
	}
	return nil // conditional-section close: DTD parser drives the next state
}

// emitRBracket consumes the single ']' at delimStart and emits it as
// ordinary bracket punctuation (the candidate "]]>" it was tentatively
// read as didn't pan out).
func (t *Tokenizer) emitRBracket() error {
	start := t.delimStart
	if err := t.consumeRune(1); err != nil {
		return err
	}
	t.mini = MiniReady
	return t.emit(KindRBracket, buffer.Window{Start: start, Len: 1})
}

// resumeAccumulatingOne consumes the single confirmed-ordinary
// character at delimStart (a '-' or ']' that turned out not to start
// its delimiter sequence) into a freshly (re-)started ACCUMULATING_CDATA
// run and resumes greedy accumulation. Marking here — rather than
// leaving the stale mark from before the stop — is required for
// correctness: the char at delimStart was never consumed while this
// mini-state was being resolved, so without a fresh Mark+consume here
// the next greedy step would immediately re-trigger the same stop on
// the same unconsumed character and never make progress.
func (t *Tokenizer) resumeAccumulatingOne() error {
	t.buf.Mark()
	if err := t.consumeRune(1); err != nil {
		return err
	}
	t.mini = MiniAccumulatingCData
	return nil
}

// stepSeenQuery is entered with the '?' of a candidate "?>" PI-close
// sequence unconsumed at the current position.
func (t *Tokenizer) stepSeenQuery(r rune, class CharClass) error {
	u1, ok := t.buf.PeekAt(1)
	if !ok {
		return errUnderflow
	}
	if u1 != '>' {
		if t.state == StatePIData {
			// A lone '?' was ordinary PI-data text.
			return t.resumeAccumulatingOne()
		}
		return fmt.Errorf("tokenizer: expected '>' to close '?'")
	}
	start := t.delimStart
	if err := t.consumeRune(1); err != nil {
		return err
	}
	if err := t.consumeRune(1); err != nil {
		return err
	}
	t.mini = MiniReady
	if err := t.emit(KindPIEnd, buffer.Window{Start: start, Len: t.buf.Position() - start}); err != nil {
		return err
	}
	return t.changeState(t.piReturn)
}

func (t *Tokenizer) stepSeenSlash(r rune, class CharClass) error {
	if class != ClassGT {
		return fmt.Errorf("tokenizer: expected '>' after '/'")
	}
	start := t.buf.Position() - 1
	if err := t.consumeRune(1); err != nil {
		return err
	}
	t.mini = MiniReady
	if err := t.emit(KindSlashGT, buffer.Window{Start: start, Len: 2}); err != nil {
		return err
	}
	return t.changeState(StateContent)
}

// normalizeUnits applies XML 1.0 section 2.11 line-ending
// normalisation directly over UTF-16 code units: CR LF and lone CR
// both become LF; XML 1.1 additionally folds NEL (U+0085) and LS
// (U+2028) to LF. carryCR threads a CR seen as the very last unit of a
// chunk across the Feed boundary, so a split "CR | LF" is still
// recognised as one line ending.
func normalizeUnits(units []uint16, xml11 bool, carryCR bool) (out []uint16, newCarryCR bool) {
	out = make([]uint16, 0, len(units))
	skipLeadingLF := carryCR
	for i := 0; i < len(units); i++ {
		u := units[i]
		if skipLeadingLF {
			skipLeadingLF = false
			if u == 0x0A {
				continue
			}
		}
		if u == 0x0D {
			out = append(out, 0x0A)
			if i+1 < len(units) && units[i+1] == 0x0A {
				i++
			} else if i+1 == len(units) {
				skipLeadingLF = true
			}
			continue
		}
		if xml11 && (u == 0x0085 || u == 0x2028) {
			out = append(out, 0x0A)
			continue
		}
		out = append(out, u)
	}
	return out, skipLeadingLF
}
