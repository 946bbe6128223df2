// Package dtd implements spec.md section 4.4: the DOCTYPE-interior
// parser, its declaration tables, and parameter-entity expansion
// (including the external-subset forward-reference buffering rule).
package dtd

// ExternalID is a SYSTEM or PUBLIC identifier pair, present on an
// external entity declaration or an external DTD subset reference.
type ExternalID struct {
	PublicID string // "" if SYSTEM-only
	SystemID string
}

// EntityTextPart is one segment of an internal entity's replacement
// text: either literal characters, or an unexpanded reference to
// another entity (spec.md section 4.4's "keeps parameter-entity
// references unexpanded ... expands them lazily" rule, generalized to
// general-entity references inside attribute-value-only contexts that
// this module also stores this way).
type EntityTextPart struct {
	Literal        string
	IsParamRef     bool
	IsGeneralRef   bool
	ReferenceName  string
}

// EntityDeclaration matches spec.md section 3's EntityDeclaration
// shape. Exactly one of ReplacementText (internal) or ExternalID
// (external) is populated; unparsed entities additionally set
// NotationName.
type EntityDeclaration struct {
	Name                          string
	IsParameter                   bool
	ReplacementText               []EntityTextPart
	ExternalID                    *ExternalID
	NotationName                  string
	ContainsCharacterReferences   bool
	ContainsRestrictedCharFromRef bool
	DeclarationBaseURI            string
}

// IsExternal reports whether e is an external entity (ExternalID set).
func (e *EntityDeclaration) IsExternal() bool { return e.ExternalID != nil }

// IsUnparsed reports whether e is an unparsed external entity (has a
// NotationName).
func (e *EntityDeclaration) IsUnparsed() bool { return e.NotationName != "" }

// AttributeMode is an ATTLIST declaration's default-value mode.
type AttributeMode int

const (
	ModeDefault AttributeMode = iota
	ModeRequired
	ModeImplied
	ModeFixed
)

// AttributeDeclaration matches spec.md section 3's AttributeDeclaration
// shape. Enumeration is non-empty iff Type is NOTATION or ENUMERATION.
type AttributeDeclaration struct {
	Name               string
	Type               string // "CDATA", "ID", "IDREF", "IDREFS", "ENTITY", "ENTITIES", "NMTOKEN", "NMTOKENS", "NOTATION", "ENUMERATION"
	Enumeration        []string
	Mode               AttributeMode
	DefaultValue       string
	FromExternalSubset bool
}

// ContentKind is an ELEMENT declaration's outer content-type tag,
// mirrored 1:1 onto validator.ContentType at registration time.
type ContentKind int

const (
	ContentEmpty ContentKind = iota
	ContentAny
	ContentMixed
	ContentElement
)

// ElementDeclaration matches spec.md section 3's ElementDeclaration
// shape. ContentModel is nil for EMPTY/ANY/MIXED (MIXED child names are
// in MixedNames) and a *validator.Particle tree for ELEMENT, stored as
// an `any` and compiled on first use by Table.Model.
type ElementDeclaration struct {
	Name         string
	ContentType  ContentKind
	MixedNames   []string // non-nil iff ContentType == ContentMixed
	ContentModel any      // *validator.Particle iff ContentType == ContentElement
}
