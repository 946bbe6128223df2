package tokenizer

import (
	"testing"
)

// recorder is a Consumer test double that records every emitted token
// (by kind and decoded text) and every state change, in order.
type recorder struct {
	tok       *Tokenizer
	kinds     []Kind
	texts     []string
	states    []State
	tokenErr  error
	stateErr  error
}

func (r *recorder) Token(tok Token) error {
	if r.tokenErr != nil {
		return r.tokenErr
	}
	r.kinds = append(r.kinds, tok.Kind)
	if tok.Decoded != nil {
		r.texts = append(r.texts, string(utf16ToRunes(tok.Decoded)))
	} else {
		r.texts = append(r.texts, string(utf16ToRunes(r.tok.buf.Slice(tok.Window))))
	}
	return nil
}

func (r *recorder) StateChanged(s State) error {
	if r.stateErr != nil {
		return r.stateErr
	}
	r.states = append(r.states, s)
	return nil
}

func utf16ToRunes(units []uint16) []rune {
	out := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) {
			u1 := units[i+1]
			out = append(out, (rune(u-0xD800)<<10)|rune(u1-0xDC00)+0x10000)
			i++
			continue
		}
		out = append(out, rune(u))
	}
	return out
}

func feedString(t *testing.T, tok *Tokenizer, s string) {
	t.Helper()
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		if r < 0x10000 {
			units = append(units, uint16(r))
			continue
		}
		v := r - 0x10000
		units = append(units, uint16(0xD800+(v>>10)), uint16(0xDC00+(v&0x3FF)))
	}
	if err := tok.Feed(units); err != nil {
		t.Fatalf("Feed(%q): %v", s, err)
	}
}

func newHarness() (*Tokenizer, *recorder) {
	rec := &recorder{}
	tok := New(StateContent, false, false, rec)
	rec.tok = tok
	return tok, rec
}

func TestElementOpenAttrsClose(t *testing.T) {
	tok, rec := newHarness()
	feedString(t, tok, `<`)
	feedString(t, tok, `a`)
	feedString(t, tok, ` `)
	feedString(t, tok, `x`)
	feedString(t, tok, `=`)
	feedString(t, tok, `"`)
	tok.SetState(StateAttrValueQuot)
	feedString(t, tok, `1`)
	feedString(t, tok, `"`)
	tok.SetState(StateElementAttrs)
	feedString(t, tok, `>`)
	if err := tok.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	wantKinds := []Kind{KindLT, KindName, KindS, KindName, KindEquals, KindQuote, KindCData, KindQuote, KindGT}
	if len(rec.kinds) != len(wantKinds) {
		t.Fatalf("got %d tokens %v, want %d %v", len(rec.kinds), rec.kinds, len(wantKinds), wantKinds)
	}
	for i, k := range wantKinds {
		if rec.kinds[i] != k {
			t.Errorf("token %d: got %s, want %s (text %q)", i, rec.kinds[i], k, rec.texts[i])
		}
	}
}

func TestSelfClosingTag(t *testing.T) {
	tok, rec := newHarness()
	feedString(t, tok, `<`)
	feedString(t, tok, `a`)
	tok.SetState(StateElementAttrs)
	feedString(t, tok, `/`)
	feedString(t, tok, `>`)
	if err := tok.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	wantKinds := []Kind{KindLT, KindName, KindSlashGT}
	if len(rec.kinds) != len(wantKinds) {
		t.Fatalf("got %v, want %v", rec.kinds, wantKinds)
	}
}

func TestCommentRoundTrip(t *testing.T) {
	tok, rec := newHarness()
	feedString(t, tok, `<!--hi-->`)
	if err := tok.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	wantKinds := []Kind{KindCommentStart, KindCData, KindCommentEnd}
	if len(rec.kinds) != len(wantKinds) {
		t.Fatalf("got %v texts=%v, want %v", rec.kinds, rec.texts, wantKinds)
	}
	if rec.texts[1] != "hi" {
		t.Errorf("comment text = %q, want %q", rec.texts[1], "hi")
	}
	if len(rec.states) == 0 || rec.states[len(rec.states)-1] != StateContent {
		t.Errorf("final state = %v, want return to Content", rec.states)
	}
}

func TestCommentRejectsDoubleDash(t *testing.T) {
	tok, _ := newHarness()
	if err := tok.Feed([]uint16{'<', '!', '-', '-', 'a', '-', '-', 'b', '-', '-', '>'}); err == nil {
		t.Fatal("expected error for '--' inside comment body")
	}
}

func TestCDataSectionRoundTrip(t *testing.T) {
	tok, rec := newHarness()
	feedString(t, tok, `<![CDATA[a]]b]]>`)
	if err := tok.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// A ']' or ']]' that doesn't resolve into the closing "]]>" forces
	// the buffered run to be emitted before resumption (the tokenizer
	// cannot retroactively un-split an already-emitted chunk), so the
	// section's text may arrive as more than one KindCData token — the
	// same multi-chunk allowance SAX's characters() callback documents.
	// Only the overall shape and concatenated text need to match.
	if len(rec.kinds) < 3 {
		t.Fatalf("got %v texts=%v, want at least [CDataStart, CData..., CDataEnd]", rec.kinds, rec.texts)
	}
	if rec.kinds[0] != KindCDataStart {
		t.Fatalf("first token = %s, want CDataStart", rec.kinds[0])
	}
	if rec.kinds[len(rec.kinds)-1] != KindCDataEnd {
		t.Fatalf("last token = %s, want CDataEnd", rec.kinds[len(rec.kinds)-1])
	}
	var text string
	for i := 1; i < len(rec.kinds)-1; i++ {
		if rec.kinds[i] != KindCData {
			t.Fatalf("token %d = %s, want CData", i, rec.kinds[i])
		}
		text += rec.texts[i]
	}
	if text != "a]]b" {
		t.Errorf("cdata text = %q, want %q", text, "a]]b")
	}
}

func TestProcessingInstruction(t *testing.T) {
	tok, rec := newHarness()
	feedString(t, tok, `<?`)
	tok.SetState(StatePITarget)
	feedString(t, tok, `target`)
	tok.SetState(StatePIData)
	feedString(t, tok, ` data here`)
	feedString(t, tok, `?>`)
	if err := tok.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// PIData is opaque accumulated text to the tokenizer — the
	// mandatory separator whitespace between PITarget and the PI's data
	// is not split out as its own KindS token, unlike whitespace between
	// element attributes.
	wantKinds := []Kind{KindPIStart, KindName, KindCData, KindPIEnd}
	if len(rec.kinds) != len(wantKinds) {
		t.Fatalf("got %v texts=%v, want %v", rec.kinds, rec.texts, wantKinds)
	}
	for i, k := range wantKinds {
		if rec.kinds[i] != k {
			t.Errorf("token %d: got %s, want %s (text %q)", i, rec.kinds[i], k, rec.texts[i])
		}
	}
	if rec.texts[2] != " data here" {
		t.Errorf("PI data text = %q, want %q", rec.texts[2], " data here")
	}
}

func TestDecimalCharRef(t *testing.T) {
	tok, rec := newHarness()
	feedString(t, tok, `&#65;`)
	if err := tok.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(rec.kinds) != 1 || rec.kinds[0] != KindCharEntityRef || rec.texts[0] != "A" {
		t.Fatalf("got kinds=%v texts=%v, want one CharEntityRef %q", rec.kinds, rec.texts, "A")
	}
}

func TestHexCharRefSupplementaryPlane(t *testing.T) {
	tok, rec := newHarness()
	feedString(t, tok, `&#x1F600;`)
	if err := tok.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(rec.texts) != 1 || rec.texts[0] != string(rune(0x1F600)) {
		t.Fatalf("got texts=%v, want %q", rec.texts, string(rune(0x1F600)))
	}
}

func TestGeneralEntityRef(t *testing.T) {
	tok, rec := newHarness()
	feedString(t, tok, `&amp;`)
	if err := tok.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(rec.kinds) != 1 || rec.kinds[0] != KindGeneralEntityRef || rec.texts[0] != "amp" {
		t.Fatalf("got kinds=%v texts=%v, want one GeneralEntityRef %q", rec.kinds, rec.texts, "amp")
	}
}

func TestMarkupDeclarationKeywords(t *testing.T) {
	for _, tc := range []struct {
		src  string
		want Kind
	}{
		{"ELEMENT", KindElementDeclStart},
		{"ATTLIST", KindAttlistDeclStart},
		{"ENTITY", KindEntityDeclStart},
		{"NOTATION", KindNotationDeclStart},
	} {
		// A fragment test: the tokenizer is left mid-subset on purpose
		// (a real document always closes the DOCTYPE before EOF), so
		// this checks the emitted tokens directly rather than calling
		// Close, which requires a well-formed terminal state.
		rec := &recorder{}
		tok := New(StateDoctypeInternal, false, false, rec)
		rec.tok = tok
		feedString(t, tok, "<!"+tc.src)
		tok.SetState(StateDoctypeInternal)
		feedString(t, tok, " ")
		if len(rec.kinds) < 1 || rec.kinds[0] != tc.want {
			t.Fatalf("%s: got kinds=%v, want first %s", tc.src, rec.kinds, tc.want)
		}
	}
}

func TestUnrecognisedMarkupKeywordErrors(t *testing.T) {
	tok := New(StateDoctypeInternal, false, false, &recorder{})
	if err := tok.Feed([]uint16{'<', '!', 'B', 'O', 'G', 'U', 'S', ' '}); err == nil {
		t.Fatal("expected error for unrecognised markup declaration keyword")
	}
}

func TestParensAndContentModelPunctuation(t *testing.T) {
	rec := &recorder{}
	tok := New(StateDoctypeInternal, false, false, rec)
	rec.tok = tok
	// Fragment test (see TestMarkupDeclarationKeywords): no Close, since
	// StateDoctypeInternal is deliberately never a Close-valid state.
	feedString(t, tok, `(a,b|c)*+?`)
	wantKinds := []Kind{KindLParen, KindName, KindComma, KindName, KindPipe, KindName, KindRParen, KindStar, KindPlus, KindQuestion}
	if len(rec.kinds) != len(wantKinds) {
		t.Fatalf("got %v, want %v", rec.kinds, wantKinds)
	}
	for i, k := range wantKinds {
		if rec.kinds[i] != k {
			t.Errorf("token %d: got %s, want %s", i, rec.kinds[i], k)
		}
	}
}

func TestCloseMidTokenFails(t *testing.T) {
	tok, _ := newHarness()
	feedString(t, tok, `<`)
	if err := tok.Close(); err == nil {
		t.Fatal("expected Close to fail with an unterminated '<'")
	}
}

func TestCloseInsideCommentFails(t *testing.T) {
	tok, _ := newHarness()
	feedString(t, tok, `<!--unterminated`)
	if err := tok.Close(); err == nil {
		t.Fatal("expected Close to fail inside an open comment")
	}
}

func TestFlushEmitsTrailingAccumulation(t *testing.T) {
	tok, rec := newHarness()
	feedString(t, tok, `hello world`)
	if len(rec.texts) != 0 {
		t.Fatalf("expected nothing emitted before Flush, got %v", rec.texts)
	}
	if err := tok.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(rec.texts) != 1 || rec.texts[0] != "hello world" {
		t.Fatalf("got texts=%v, want trailing text flushed", rec.texts)
	}
	// Flush leaves the machine in MiniReady, so a following Close (the
	// state a reentrant tokenizer like content.Parser.reenter never
	// actually calls, but which a whole document's own tokenizer does)
	// still succeeds rather than re-reporting an unterminated token.
	if err := tok.Close(); err != nil {
		t.Fatalf("Close after Flush: %v", err)
	}
}

func TestFlushIsNoopWithNothingAccumulating(t *testing.T) {
	tok, rec := newHarness()
	feedString(t, tok, `<root/>`)
	before := len(rec.texts)
	if err := tok.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(rec.texts) != before {
		t.Fatalf("Flush emitted something with nothing accumulating: %v", rec.texts)
	}
}

func TestCRLFNormalizedToLF(t *testing.T) {
	tok, rec := newHarness()
	if err := tok.Feed([]uint16{'a', '\r', '\n', 'b'}); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	feedString(t, tok, `<`)
	if err := tok.Close(); err == nil {
		t.Fatal("expected Close to fail with trailing unterminated '<'")
	}
	if len(rec.texts) != 1 || rec.texts[0] != "a\nb" {
		t.Fatalf("got texts=%v, want normalized %q", rec.texts, "a\nb")
	}
}

func TestSplitCRLFAcrossFeed(t *testing.T) {
	tok, rec := newHarness()
	if err := tok.Feed([]uint16{'a', '\r'}); err != nil {
		t.Fatalf("Feed 1: %v", err)
	}
	if err := tok.Feed([]uint16{'\n', 'b'}); err != nil {
		t.Fatalf("Feed 2: %v", err)
	}
	feedString(t, tok, `<`)
	_ = tok.Close()
	if len(rec.texts) != 1 || rec.texts[0] != "a\nb" {
		t.Fatalf("got texts=%v, want normalized %q across a Feed boundary", rec.texts, "a\nb")
	}
}

func TestInvalidCharacterRejected(t *testing.T) {
	tok, _ := newHarness()
	if err := tok.Feed([]uint16{0x00}); err == nil {
		t.Fatal("expected NUL to be rejected as an invalid XML Char")
	}
}

func TestNameTokenWindowMatchesSourceText(t *testing.T) {
	tok, rec := newHarness()
	feedString(t, tok, `<`)
	feedString(t, tok, `root`)
	tok.SetState(StateElementAttrs)
	feedString(t, tok, `>`)
	if err := tok.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for i, k := range rec.kinds {
		if k == KindName && rec.texts[i] != "root" {
			t.Errorf("name token text = %q, want %q", rec.texts[i], "root")
		}
	}
}
