package xml

import (
	"strings"
	"testing"

	"github.com/shapestone/shape-core/pkg/ast"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid XML - simple element", input: `<root></root>`, wantErr: false},
		{name: "valid XML - self-closing", input: `<root/>`, wantErr: false},
		{name: "valid XML - with text", input: `<root><child>value</child></root>`, wantErr: false},
		{name: "valid XML - with attributes", input: `<root attr="value"><child>text</child></root>`, wantErr: false},
		{name: "valid XML - with declaration", input: `<?xml version="1.0"?><root></root>`, wantErr: false},
		{name: "valid XML - with comment", input: `<!-- comment --><root></root>`, wantErr: false},
		{name: "valid XML - with CDATA", input: `<root><![CDATA[data]]></root>`, wantErr: false},
		{name: "valid XML - nested elements", input: `<root><level1><level2>value</level2></level1></root>`, wantErr: false},
		{name: "invalid XML - empty string", input: ``, wantErr: true},
		{name: "invalid XML - unclosed tag", input: `<root><child>value</root>`, wantErr: true},
		{name: "invalid XML - mismatched tags", input: `<root></wrong>`, wantErr: true},
		{name: "invalid XML - missing closing tag", input: `<root>`, wantErr: true},
		{name: "invalid XML - extra content after root", input: `<root></root><extra></extra>`, wantErr: true},
		{name: "invalid XML - unquoted attribute", input: `<root attr=value></root>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReader(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid XML - with attributes", input: `<root attr="value"><child>text</child></root>`, wantErr: false},
		{name: "valid XML - large document", input: generateLargeXML(100), wantErr: false},
		{name: "invalid XML - empty", input: ``, wantErr: true},
		{name: "invalid XML - malformed", input: `<root><child>value`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReader(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateReader() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func generateLargeXML(numElements int) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?>`)
	sb.WriteString(`<root>`)
	for i := 0; i < numElements; i++ {
		sb.WriteString(`<item id="`)
		sb.WriteString(strings.Repeat("a", 10))
		sb.WriteString(`"><name>Item</name><value>`)
		sb.WriteString(strings.Repeat("c", 100))
		sb.WriteString(`</value></item>`)
	}
	sb.WriteString(`</root>`)
	return sb.String()
}

func TestParse_BasicElement(t *testing.T) {
	node, err := Parse(`<user></user>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		t.Fatalf("Expected *ast.ObjectNode, got %T", node)
	}
	if len(obj.Properties()) != 0 {
		t.Errorf("Expected empty object, got %d properties", len(obj.Properties()))
	}
}

func TestParse_SelfClosingElement(t *testing.T) {
	node, err := Parse(`<user/>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := node.(*ast.ObjectNode); !ok {
		t.Fatalf("Expected *ast.ObjectNode, got %T", node)
	}
}

func TestParse_Attributes(t *testing.T) {
	node, err := Parse(`<user id="123" name="Alice"></user>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	obj := node.(*ast.ObjectNode)

	idNode, exists := obj.GetProperty("@id")
	if !exists {
		t.Fatal("Expected @id property")
	}
	if idNode.(*ast.LiteralNode).Value() != "123" {
		t.Errorf("Expected @id='123', got %v", idNode.(*ast.LiteralNode).Value())
	}

	nameNode, exists := obj.GetProperty("@name")
	if !exists {
		t.Fatal("Expected @name property")
	}
	if nameNode.(*ast.LiteralNode).Value() != "Alice" {
		t.Errorf("Expected @name='Alice', got %v", nameNode.(*ast.LiteralNode).Value())
	}
}

func TestParse_TextContent(t *testing.T) {
	node, err := Parse(`<message>Hello, World!</message>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	obj := node.(*ast.ObjectNode)

	textNode, exists := obj.GetProperty("#text")
	if !exists {
		t.Fatal("Expected #text property")
	}
	if textNode.(*ast.LiteralNode).Value() != "Hello, World!" {
		t.Errorf("Expected text='Hello, World!', got %v", textNode.(*ast.LiteralNode).Value())
	}
}

func TestParse_CDATAContent(t *testing.T) {
	node, err := Parse(`<data><![CDATA[<raw> & unescaped]]></data>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	obj := node.(*ast.ObjectNode)

	cdataNode, exists := obj.GetProperty("#cdata")
	if !exists {
		t.Fatal("Expected #cdata property")
	}
	if cdataNode.(*ast.LiteralNode).Value() != "<raw> & unescaped" {
		t.Errorf("Expected #cdata='<raw> & unescaped', got %v", cdataNode.(*ast.LiteralNode).Value())
	}
}

func TestParse_NestedElements(t *testing.T) {
	node, err := Parse(`<user><name>Alice</name><email>alice@example.com</email></user>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	obj := node.(*ast.ObjectNode)

	nameNode, exists := obj.GetProperty("name")
	if !exists {
		t.Fatal("Expected name property")
	}
	nameObj, ok := nameNode.(*ast.ObjectNode)
	if !ok {
		t.Fatalf("Expected name to be *ast.ObjectNode, got %T", nameNode)
	}
	text, _ := nameObj.GetProperty("#text")
	if text.(*ast.LiteralNode).Value() != "Alice" {
		t.Errorf("Expected name text='Alice', got %v", text.(*ast.LiteralNode).Value())
	}
}

// Repeated sibling elements with the same local name collect into an
// ast.ArrayDataNode keyed by that name, rather than the single-"child"
// placeholder the original parseContent fell back on for lack of a
// per-element key.
func TestParse_RepeatedChildrenBecomeArray(t *testing.T) {
	node, err := Parse(`<users><user id="1"/><user id="2"/><user id="3"/></users>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	obj := node.(*ast.ObjectNode)

	usersNode, exists := obj.GetProperty("user")
	if !exists {
		t.Fatal("Expected user property")
	}
	arr, ok := usersNode.(*ast.ArrayDataNode)
	if !ok {
		t.Fatalf("Expected user to be *ast.ArrayDataNode, got %T", usersNode)
	}
	elems := arr.Elements()
	if len(elems) != 3 {
		t.Fatalf("Expected 3 user elements, got %d", len(elems))
	}
	for i, wantID := range []string{"1", "2", "3"} {
		userObj, ok := elems[i].(*ast.ObjectNode)
		if !ok {
			t.Fatalf("element %d: expected *ast.ObjectNode, got %T", i, elems[i])
		}
		idNode, _ := userObj.GetProperty("@id")
		if idNode.(*ast.LiteralNode).Value() != wantID {
			t.Errorf("element %d: expected @id=%q, got %v", i, wantID, idNode.(*ast.LiteralNode).Value())
		}
	}
}

func TestParseReader_LargeDocument(t *testing.T) {
	node, err := ParseReader(strings.NewReader(generateLargeXML(50)))
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		t.Fatalf("Expected *ast.ObjectNode, got %T", node)
	}
	items, exists := obj.GetProperty("item")
	if !exists {
		t.Fatal("Expected item property")
	}
	arr, ok := items.(*ast.ArrayDataNode)
	if !ok {
		t.Fatalf("Expected item to be *ast.ArrayDataNode, got %T", items)
	}
	if len(arr.Elements()) != 50 {
		t.Errorf("Expected 50 item elements, got %d", len(arr.Elements()))
	}
}

func TestFormat(t *testing.T) {
	if got := Format(); got != "XML" {
		t.Errorf("Format() = %q, want %q", got, "XML")
	}
}

func TestConcurrent_Parse(t *testing.T) {
	const numGoroutines = 50
	const numIterations = 10

	input := `<user id="123"><name>Alice</name><email>alice@example.com</email></user>`

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer func() { done <- true }()
			for j := 0; j < numIterations; j++ {
				if _, err := Parse(input); err != nil {
					t.Errorf("Concurrent Parse failed: %v", err)
				}
			}
		}()
	}
	for i := 0; i < numGoroutines; i++ {
		<-done
	}
}

func TestConcurrent_Validate(t *testing.T) {
	const numGoroutines = 50
	const numIterations = 10

	input := `<user id="123"><name>Alice</name></user>`

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer func() { done <- true }()
			for j := 0; j < numIterations; j++ {
				if err := Validate(input); err != nil {
					t.Errorf("Concurrent Validate failed: %v", err)
				}
			}
		}()
	}
	for i := 0; i < numGoroutines; i++ {
		<-done
	}
}
