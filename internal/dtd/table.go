package dtd

import "github.com/shapestone/xmlstream/internal/validator"

// Table holds the declaration tables a DTD parser builds up across
// the internal and (if present) external subset, per spec.md section
// 4.4's "first-declaration-binding: ignore later duplicates" rule.
type Table struct {
	Elements   map[string]*ElementDeclaration
	Attlists   map[string]map[string]*AttributeDeclaration // element name -> attr name -> decl, insertion order in AttrOrder
	AttrOrder  map[string][]string
	GeneralEnt map[string]*EntityDeclaration
	ParamEnt   map[string]*EntityDeclaration
	Notations  map[string]*NotationDeclaration
	Models     map[string]*validator.Model // element name -> compiled content model, built lazily
}

// NotationDeclaration records a NOTATION declaration's identity.
type NotationDeclaration struct {
	Name     string
	PublicID string
	SystemID string
}

// NewTable returns an empty declaration table.
func NewTable() *Table {
	return &Table{
		Elements:   make(map[string]*ElementDeclaration),
		Attlists:   make(map[string]map[string]*AttributeDeclaration),
		AttrOrder:  make(map[string][]string),
		GeneralEnt: make(map[string]*EntityDeclaration),
		ParamEnt:   make(map[string]*EntityDeclaration),
		Notations:  make(map[string]*NotationDeclaration),
		Models:     make(map[string]*validator.Model),
	}
}

// DeclareElement registers d unless an element of that name is
// already declared (first-declaration-binding). Returns false when the
// declaration was ignored as a duplicate (the ELEMENT declaration
// parser reports every duplicate as a warning, whether or not the
// content models differ).
func (t *Table) DeclareElement(d *ElementDeclaration) bool {
	if _, ok := t.Elements[d.Name]; ok {
		return false
	}
	t.Elements[d.Name] = d
	return true
}

// DeclareAttribute registers an attribute declaration for elementName,
// ignoring a later declaration of the same (element, attribute) pair.
func (t *Table) DeclareAttribute(elementName string, d *AttributeDeclaration) bool {
	attrs, ok := t.Attlists[elementName]
	if !ok {
		attrs = make(map[string]*AttributeDeclaration)
		t.Attlists[elementName] = attrs
	}
	if _, exists := attrs[d.Name]; exists {
		return false
	}
	attrs[d.Name] = d
	t.AttrOrder[elementName] = append(t.AttrOrder[elementName], d.Name)
	return true
}

// DeclareEntity registers a general or parameter entity declaration,
// ignoring a later declaration of the same name (first-declaration-
// binding is scoped separately for general vs. parameter entities,
// since `&x;` and `%x;` occupy distinct namespaces).
func (t *Table) DeclareEntity(d *EntityDeclaration) bool {
	table := t.GeneralEnt
	if d.IsParameter {
		table = t.ParamEnt
	}
	if _, ok := table[d.Name]; ok {
		return false
	}
	table[d.Name] = d
	return true
}

// DeclareNotation registers a notation declaration, ignoring a later
// duplicate.
func (t *Table) DeclareNotation(d *NotationDeclaration) bool {
	if _, ok := t.Notations[d.Name]; ok {
		return false
	}
	t.Notations[d.Name] = d
	return true
}

// Model returns the compiled content-model automaton for elementName,
// compiling and caching it on first use.
func (t *Table) Model(elementName string) (*validator.Model, bool) {
	if m, ok := t.Models[elementName]; ok {
		return m, true
	}
	decl, ok := t.Elements[elementName]
	if !ok {
		return nil, false
	}
	var m *validator.Model
	var err error
	switch decl.ContentType {
	case ContentEmpty:
		m, err = validator.Compile(validator.Empty, nil)
	case ContentAny:
		m, err = validator.Compile(validator.Any, nil)
	case ContentMixed:
		m = validator.NewMixedModel(decl.MixedNames)
	case ContentElement:
		particle, _ := decl.ContentModel.(*validator.Particle)
		m, err = validator.Compile(validator.ElementContent, particle)
	}
	if err != nil || m == nil {
		return nil, false
	}
	t.Models[elementName] = m
	return m, true
}
