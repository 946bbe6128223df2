package xml

import (
	"testing"
)

// FuzzParse fuzzes Parse with random XML input.
func FuzzParse(f *testing.F) {
	f.Add(`<root></root>`)
	f.Add(`<user id="123">Alice</user>`)
	f.Add(`<empty/>`)
	f.Add(`<?xml version="1.0"?><root/>`)
	f.Add(`<nested><child><grandchild/></child></nested>`)
	f.Add(`<![CDATA[some data]]>`)
	f.Add(`<!-- comment --><root/>`)
	f.Add(`<!DOCTYPE root SYSTEM "root.dtd"><root/>`)
	f.Add(`<a xmlns:p="urn:x"><p:b/></a>`)
	f.Add(`<r>&amp;&lt;&#65;&#x41;</r>`)

	f.Fuzz(func(t *testing.T, input string) {
		// Just ensure Parse doesn't panic. Errors are expected for
		// invalid input.
		_, _ = Parse(input)
	})
}

// FuzzValidate fuzzes Validate with random XML input.
func FuzzValidate(f *testing.F) {
	f.Add(`<root></root>`)
	f.Add(`<user id="123">Alice</user>`)
	f.Add(`<empty/>`)
	f.Add(`invalid`)
	f.Add(`<unclosed`)
	f.Add(`<root><child></root>`)

	f.Fuzz(func(t *testing.T, input string) {
		// Just ensure Validate doesn't panic. Errors are expected for
		// invalid input.
		_ = Validate(input)
	})
}
