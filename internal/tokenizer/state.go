package tokenizer

// State is the outer, ~20-way top-level context. It governs which
// emission logic a completed mini-state lexical event is interpreted
// under (the same "<" sequence means something different as the start
// of a tag in CONTENT versus as the unexpected-markup error it would
// be inside an attribute value).
type State int

const (
	StatePrologBeforeDoctype State = iota
	StatePrologAfterDoctype
	StateContent
	StateElementName
	StateElementAttrs
	StateAttrValueApos
	StateAttrValueQuot
	StateDoctype
	StateDoctypeInternal
	StateDoctypeQuotedApos
	StateDoctypeQuotedQuot
	StateDoctypeInternalQuotedApos
	StateDoctypeInternalQuotedQuot
	StateConditionalSectionKeyword
	StateConditionalSectionInclude
	StateConditionalSectionIgnore
	StateComment
	StateCDataSection
	StatePITarget
	StatePIData
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePrologBeforeDoctype:
		return "PrologBeforeDoctype"
	case StatePrologAfterDoctype:
		return "PrologAfterDoctype"
	case StateContent:
		return "Content"
	case StateElementName:
		return "ElementName"
	case StateElementAttrs:
		return "ElementAttrs"
	case StateAttrValueApos:
		return "AttrValueApos"
	case StateAttrValueQuot:
		return "AttrValueQuot"
	case StateDoctype:
		return "Doctype"
	case StateDoctypeInternal:
		return "DoctypeInternal"
	case StateDoctypeQuotedApos:
		return "DoctypeQuotedApos"
	case StateDoctypeQuotedQuot:
		return "DoctypeQuotedQuot"
	case StateDoctypeInternalQuotedApos:
		return "DoctypeInternalQuotedApos"
	case StateDoctypeInternalQuotedQuot:
		return "DoctypeInternalQuotedQuot"
	case StateConditionalSectionKeyword:
		return "ConditionalSectionKeyword"
	case StateConditionalSectionInclude:
		return "ConditionalSectionInclude"
	case StateConditionalSectionIgnore:
		return "ConditionalSectionIgnore"
	case StateComment:
		return "Comment"
	case StateCDataSection:
		return "CDataSection"
	case StatePITarget:
		return "PITarget"
	case StatePIData:
		return "PIData"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// inMarkupDeclOpener reports whether s is a context in which "<!" may
// legally open a markup declaration keyword (ELEMENT/ATTLIST/ENTITY/
// NOTATION) rather than a comment or CDATA section: the internal subset
// and an INCLUDE conditional section.
func (s State) inMarkupDeclOpener() bool {
	switch s {
	case StateDoctypeInternal, StateConditionalSectionInclude:
		return true
	default:
		return false
	}
}
