package namespace

import "testing"

func TestResolveDefaultPrefixes(t *testing.T) {
	s := New()
	if uri, ok := s.Resolve(xmlPrefix); !ok || uri != XMLURI {
		t.Errorf("Resolve(xml) = %q, %v, want %q, true", uri, ok, XMLURI)
	}
	if uri, ok := s.Resolve(xmlnsPrefix); !ok || uri != XMLNSURI {
		t.Errorf("Resolve(xmlns) = %q, %v, want %q, true", uri, ok, XMLNSURI)
	}
}

func TestDeclareAndResolveNested(t *testing.T) {
	s := New()
	s.PushScope()
	if err := s.Declare("", "urn:outer"); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	if err := s.Declare("a", "urn:a"); err != nil {
		t.Fatalf("Declare: %v", err)
	}

	s.PushScope()
	if err := s.Declare("", "urn:inner"); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	if uri, _ := s.Resolve(""); uri != "urn:inner" {
		t.Errorf("inner default = %q, want urn:inner", uri)
	}
	if uri, _ := s.Resolve("a"); uri != "urn:a" {
		t.Errorf("inherited prefix a = %q, want urn:a", uri)
	}
	s.PopScope()

	if uri, _ := s.Resolve(""); uri != "urn:outer" {
		t.Errorf("after pop, default = %q, want urn:outer", uri)
	}
	s.PopScope()

	if _, ok := s.Resolve("a"); ok {
		t.Error("prefix a should be unbound after popping its scope")
	}
}

func TestDeclareRejectsReservedPrefixes(t *testing.T) {
	s := New()
	s.PushScope()
	if err := s.Declare(xmlPrefix, "urn:wrong"); err == nil {
		t.Error("expected error rebinding xml prefix to the wrong URI")
	}
	if err := s.Declare(xmlnsPrefix, "urn:whatever"); err == nil {
		t.Error("expected error declaring the xmlns prefix")
	}
	if err := s.Declare("x", XMLNSURI); err == nil {
		t.Error("expected error binding a prefix to the xmlns namespace URI")
	}
}

func TestDeclareAllowsRebindingXMLToItsOwnURI(t *testing.T) {
	s := New()
	s.PushScope()
	if err := s.Declare(xmlPrefix, XMLURI); err != nil {
		t.Errorf("expected redeclaring xml -> %q to be allowed, got %v", XMLURI, err)
	}
}

func TestSplitQName(t *testing.T) {
	tests := []struct {
		in, prefix, local string
	}{
		{"foo", "", "foo"},
		{"ns:foo", "ns", "foo"},
		{"xmlns:ns", "xmlns", "ns"},
	}
	for _, tt := range tests {
		p, l := SplitQName(tt.in)
		if p != tt.prefix || l != tt.local {
			t.Errorf("SplitQName(%q) = %q,%q want %q,%q", tt.in, p, l, tt.prefix, tt.local)
		}
	}
}

func TestProcessNameAttributeNeverDefaults(t *testing.T) {
	s := New()
	s.PushScope()
	if err := s.Declare("", "urn:default"); err != nil {
		t.Fatalf("Declare: %v", err)
	}

	elem, err := s.ProcessName("foo", false)
	if err != nil {
		t.Fatalf("ProcessName element: %v", err)
	}
	if elem.URI != "urn:default" {
		t.Errorf("element URI = %q, want urn:default", elem.URI)
	}

	attr, err := s.ProcessName("foo", true)
	if err != nil {
		t.Fatalf("ProcessName attribute: %v", err)
	}
	if attr.URI != "" {
		t.Errorf("unprefixed attribute URI = %q, want empty", attr.URI)
	}
}

func TestProcessNameUnboundPrefixErrors(t *testing.T) {
	s := New()
	s.PushScope()
	if _, err := s.ProcessName("nope:foo", false); err == nil {
		t.Error("expected an error resolving an undeclared prefix")
	}
}
