package content

import (
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/shapestone/xmlstream/pkg/sax"
)

// recorder implements sax.ContentHandler, sax.LexicalHandler and
// sax.DTDHandler, capturing events as short strings in call order so
// tests can assert on a whole parse's event sequence at once.
type recorder struct {
	events []string
	loc    sax.Locator
}

func (r *recorder) SetDocumentLocator(loc sax.Locator) { r.loc = loc }
func (r *recorder) StartDocument() error                { r.events = append(r.events, "StartDocument"); return nil }
func (r *recorder) EndDocument() error                  { r.events = append(r.events, "EndDocument"); return nil }
func (r *recorder) StartPrefixMapping(prefix, uri string) error {
	r.events = append(r.events, "StartPrefixMapping("+prefix+","+uri+")")
	return nil
}
func (r *recorder) EndPrefixMapping(prefix string) error {
	r.events = append(r.events, "EndPrefixMapping("+prefix+")")
	return nil
}
func (r *recorder) StartElement(uri, localName, qName string, attrs sax.Attributes) error {
	var b strings.Builder
	b.WriteString("StartElement(" + uri + "," + localName + "," + qName)
	for i := 0; i < attrs.Len(); i++ {
		b.WriteString(" " + attrs.QName(i) + "=" + attrs.Value(i))
	}
	b.WriteString(")")
	r.events = append(r.events, b.String())
	return nil
}
func (r *recorder) EndElement(uri, localName, qName string) error {
	r.events = append(r.events, "EndElement("+uri+","+localName+","+qName+")")
	return nil
}
func (r *recorder) Characters(chars []rune) error {
	r.events = append(r.events, "Characters("+string(chars)+")")
	return nil
}
func (r *recorder) IgnorableWhitespace(chars []rune) error {
	r.events = append(r.events, "IgnorableWhitespace("+string(chars)+")")
	return nil
}
func (r *recorder) ProcessingInstruction(target, data string) error {
	r.events = append(r.events, "PI("+target+","+data+")")
	return nil
}
func (r *recorder) SkippedEntity(name string) error {
	r.events = append(r.events, "SkippedEntity("+name+")")
	return nil
}

func (r *recorder) NotationDecl(name, publicID, systemID string) error {
	r.events = append(r.events, "NotationDecl("+name+")")
	return nil
}
func (r *recorder) UnparsedEntityDecl(name, publicID, systemID, notationName string) error {
	r.events = append(r.events, "UnparsedEntityDecl("+name+")")
	return nil
}

func (r *recorder) StartDTD(name, publicID, systemID string) error {
	r.events = append(r.events, "StartDTD("+name+")")
	return nil
}
func (r *recorder) EndDTD() error { r.events = append(r.events, "EndDTD"); return nil }
func (r *recorder) StartEntity(name string) error {
	r.events = append(r.events, "StartEntity("+name+")")
	return nil
}
func (r *recorder) EndEntity(name string) error {
	r.events = append(r.events, "EndEntity("+name+")")
	return nil
}
func (r *recorder) StartCDATA() error { r.events = append(r.events, "StartCDATA"); return nil }
func (r *recorder) EndCDATA() error   { r.events = append(r.events, "EndCDATA"); return nil }
func (r *recorder) Comment(chars []rune) error {
	r.events = append(r.events, "Comment("+string(chars)+")")
	return nil
}

// parseAll returns a Parser wired to a fresh recorder, feeding s
// to completion and failing the test on any error.
func parseAll(t *testing.T, opts sax.Options, s string) (*recorder, *Parser) {
	t.Helper()
	rec := &recorder{}
	p := New(opts, false)
	p.Content = rec
	p.DTD = rec
	p.Lexical = rec
	if err := p.StartDocument(); err != nil {
		t.Fatalf("StartDocument: %v", err)
	}
	if err := p.Chars(utf16.Encode([]rune(s))); err != nil {
		t.Fatalf("Chars: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return rec, p
}

func defaultTestOptions() sax.Options {
	return sax.Options{NamespacesEnabled: true}
}

func TestSimpleElementWithAttributeAndText(t *testing.T) {
	rec, _ := parseAll(t, defaultTestOptions(), `<root a="1">hello</root>`)
	if rec.loc == nil {
		t.Fatal("expected SetDocumentLocator to have been called before StartDocument")
	}
	want := []string{
		"StartDocument",
		"StartElement(,root,root a=1)",
		"Characters(hello)",
		"EndElement(,root,root)",
		"EndDocument",
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i, e := range want {
		if rec.events[i] != e {
			t.Errorf("event %d = %q, want %q", i, rec.events[i], e)
		}
	}
}

func TestSelfClosingElement(t *testing.T) {
	rec, _ := parseAll(t, defaultTestOptions(), `<root><child/></root>`)
	want := []string{
		"StartDocument",
		"StartElement(,root,root)",
		"StartElement(,child,child)",
		"EndElement(,child,child)",
		"EndElement(,root,root)",
		"EndDocument",
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i, e := range want {
		if rec.events[i] != e {
			t.Errorf("event %d = %q, want %q", i, rec.events[i], e)
		}
	}
}

func TestNamespaceResolutionAndPrefixMapping(t *testing.T) {
	rec, _ := parseAll(t, defaultTestOptions(), `<r:root xmlns:r="urn:x"><r:child/></r:root>`)
	want := []string{
		"StartDocument",
		"StartPrefixMapping(r,urn:x)",
		"StartElement(urn:x,root,r:root)",
		"StartElement(urn:x,child,r:child)",
		"EndElement(urn:x,child,r:child)",
		"EndElement(urn:x,root,r:root)",
		"EndPrefixMapping(r)",
		"EndDocument",
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i, e := range want {
		if rec.events[i] != e {
			t.Errorf("event %d = %q, want %q", i, rec.events[i], e)
		}
	}
}

func TestPredefinedEntityExpansion(t *testing.T) {
	rec, _ := parseAll(t, defaultTestOptions(), `<root>a &amp; b &lt; c</root>`)
	var text strings.Builder
	for _, e := range rec.events {
		if strings.HasPrefix(e, "Characters(") {
			text.WriteString(strings.TrimSuffix(strings.TrimPrefix(e, "Characters("), ")"))
		}
	}
	if got, want := text.String(), "a & b < c"; got != want {
		t.Errorf("accumulated characters = %q, want %q", got, want)
	}
}

func TestInternalGeneralEntityWithMarkup(t *testing.T) {
	rec, _ := parseAll(t, defaultTestOptions(), `<!DOCTYPE root [
<!ENTITY greeting "<hello>world</hello>">
]>
<root>&greeting;</root>`)
	foundStart, foundEnd := false, false
	for _, e := range rec.events {
		if e == "StartElement(,hello,hello)" {
			foundStart = true
		}
		if e == "EndElement(,hello,hello)" {
			foundEnd = true
		}
	}
	if !foundStart || !foundEnd {
		t.Fatalf("expected entity replacement markup to reach StartElement/EndElement, got %v", rec.events)
	}
}

func TestUndeclaredEntityIsSkippedAndFatal(t *testing.T) {
	rec := &recorder{}
	p := New(defaultTestOptions(), false)
	p.Content = rec
	if err := p.StartDocument(); err != nil {
		t.Fatalf("StartDocument: %v", err)
	}
	err := p.Chars(utf16.Encode([]rune(`<root>&bogus;</root>`)))
	if err == nil {
		t.Fatal("expected an error for an undeclared entity")
	}
	found := false
	for _, e := range rec.events {
		if e == "SkippedEntity(bogus)" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected SkippedEntity(bogus) to be reported, got %v", rec.events)
	}
}

func TestMismatchedEndTagIsFatal(t *testing.T) {
	p := New(defaultTestOptions(), false)
	p.Content = &recorder{}
	if err := p.StartDocument(); err != nil {
		t.Fatalf("StartDocument: %v", err)
	}
	if err := p.Chars(utf16.Encode([]rune(`<a><b></a></b>`))); err == nil {
		t.Fatal("expected a mismatched end tag error")
	}
}

func TestDuplicateAttributeAfterNamespaceResolutionIsFatal(t *testing.T) {
	p := New(defaultTestOptions(), false)
	p.Content = &recorder{}
	if err := p.StartDocument(); err != nil {
		t.Fatalf("StartDocument: %v", err)
	}
	// a:x and b:x resolve to the same (uri, localName) once a and b are
	// both bound to urn:same, so this collides post-resolution even
	// though the two qnames differ lexically.
	err := p.Chars(utf16.Encode([]rune(
		`<root xmlns:a="urn:same" xmlns:b="urn:same" a:x="1" b:x="2"/>`)))
	if err == nil {
		t.Fatal("expected a duplicate-attribute error after namespace resolution")
	}
}

func TestCommentAndProcessingInstruction(t *testing.T) {
	rec, _ := parseAll(t, defaultTestOptions(), `<root><!-- note --><?target data?></root>`)
	wantComment, wantPI := false, false
	for _, e := range rec.events {
		if e == "Comment( note )" {
			wantComment = true
		}
		if e == "PI(target,data)" {
			wantPI = true
		}
	}
	if !wantComment {
		t.Errorf("expected a Comment event, got %v", rec.events)
	}
	if !wantPI {
		t.Errorf("expected a PI event, got %v", rec.events)
	}
}

func TestCDATASection(t *testing.T) {
	rec, _ := parseAll(t, defaultTestOptions(), `<root><![CDATA[<not-a-tag>]]></root>`)
	found := false
	for _, e := range rec.events {
		if e == "Characters(<not-a-tag>)" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected literal CDATA text as Characters, got %v", rec.events)
	}
}

func TestAttributeValueWhitespaceNormalization(t *testing.T) {
	rec, _ := parseAll(t, defaultTestOptions(), "<root a=\"x\ty\nz\"/>")
	found := false
	for _, e := range rec.events {
		if e == "StartElement(,root,root a=x y z)" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected literal tab/newline in attribute value normalized to spaces, got %v", rec.events)
	}
}

func TestDoctypeDeclaredAttributeDefault(t *testing.T) {
	rec, _ := parseAll(t, defaultTestOptions(), `<!DOCTYPE root [
<!ATTLIST root lang CDATA "en">
]>
<root/>`)
	found := false
	for _, e := range rec.events {
		if e == "StartElement(,root,root lang=en)" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the DTD-declared default attribute to be injected, got %v", rec.events)
	}
}

func TestNotationAndUnparsedEntityReportedAtEndDTD(t *testing.T) {
	rec, _ := parseAll(t, defaultTestOptions(), `<!DOCTYPE root [
<!NOTATION gif PUBLIC "image/gif">
<!ENTITY logo SYSTEM "logo.gif" NDATA gif>
]>
<root/>`)
	wantNotation, wantUnparsed, wantEndDTD := false, false, false
	endDTDIndex, notationIndex := -1, -1
	for i, e := range rec.events {
		if e == "NotationDecl(gif)" {
			wantNotation = true
			notationIndex = i
		}
		if e == "UnparsedEntityDecl(logo)" {
			wantUnparsed = true
		}
		if e == "EndDTD" {
			wantEndDTD = true
			endDTDIndex = i
		}
	}
	if !wantNotation || !wantUnparsed || !wantEndDTD {
		t.Fatalf("expected NotationDecl, UnparsedEntityDecl and EndDTD, got %v", rec.events)
	}
	if notationIndex < endDTDIndex {
		t.Errorf("NotationDecl reported before EndDTD at index %d < %d: declarations batch to EndDTD time", notationIndex, endDTDIndex)
	}
}

func TestDocumentWithoutRootElementIsFatal(t *testing.T) {
	p := New(defaultTestOptions(), false)
	p.Content = &recorder{}
	if err := p.StartDocument(); err != nil {
		t.Fatalf("StartDocument: %v", err)
	}
	if err := p.Chars(utf16.Encode([]rune("   "))); err != nil {
		t.Fatalf("Chars: %v", err)
	}
	if err := p.Close(); err == nil {
		t.Fatal("expected Close to report a missing root element")
	}
}

// errHandler implements sax.ErrorHandler. escalate controls Error's
// return: returning non-nil is how a handler promotes a recoverable
// Validity Constraint violation to fatal, per pkg/sax's own doc comment
// on ErrorHandler.Error.
type errHandler struct {
	escalate    bool
	warnings    int
	errors      int
	fatalErrors int
}

func (h *errHandler) Warning(err error) error { h.warnings++; return nil }
func (h *errHandler) Error(err error) error {
	h.errors++
	if h.escalate {
		return err
	}
	return nil
}
func (h *errHandler) FatalError(err error) error { h.fatalErrors++; return nil }

func TestValidityViolationIsRecoverableByDefault(t *testing.T) {
	eh := &errHandler{escalate: false}
	rec := &recorder{}
	p := New(sax.Options{NamespacesEnabled: true, ValidationEnabled: true}, false)
	p.Content = rec
	p.Errors = eh
	if err := p.StartDocument(); err != nil {
		t.Fatalf("StartDocument: %v", err)
	}
	// no DOCTYPE declares "root", so ValidationEnabled reports a
	// recoverable "not declared" violation for it and parsing continues.
	if err := p.Chars(utf16.Encode([]rune(`<root><child/></root>`))); err != nil {
		t.Fatalf("Chars: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("expected parsing to continue past a non-escalated validity violation, got: %v", err)
	}
	if eh.errors == 0 {
		t.Fatal("expected at least one Error callback for the undeclared elements")
	}
	foundEnd := false
	for _, e := range rec.events {
		if e == "EndElement(,root,root)" {
			foundEnd = true
		}
	}
	if !foundEnd {
		t.Errorf("expected parsing to reach the root's EndElement, got %v", rec.events)
	}
}

func TestValidityViolationEscalatedToFatalStopsParsing(t *testing.T) {
	eh := &errHandler{escalate: true}
	rec := &recorder{}
	p := New(sax.Options{NamespacesEnabled: true, ValidationEnabled: true}, false)
	p.Content = rec
	p.Errors = eh
	if err := p.StartDocument(); err != nil {
		t.Fatalf("StartDocument: %v", err)
	}
	err := p.Chars(utf16.Encode([]rune(`<root><child/></root>`)))
	if err == nil {
		t.Fatal("expected the escalated validity violation to abort parsing with an error")
	}
	if eh.fatalErrors == 0 {
		t.Error("expected FatalError to be invoked once Error escalated")
	}
	for _, e := range rec.events {
		if e == "EndElement(,root,root)" {
			t.Errorf("expected parsing to stop before reaching root's EndElement, got %v", rec.events)
		}
	}
}
