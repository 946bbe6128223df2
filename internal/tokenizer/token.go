package tokenizer

import "github.com/shapestone/xmlstream/internal/buffer"

// Kind is the tagged lexical kind of a Token. It mirrors the XML
// grammar's terminals rather than any single production: punctuation
// tokens are one kind each, data-bearing tokens carry a Window into
// the tokenizer's character buffer.
type Kind int

const (
	KindEOF Kind = iota

	// Element delimiters.
	KindLT      // <
	KindLTSlash // </
	KindGT      // >
	KindSlashGT // />

	// Single-character punctuation meaningful outside of plain text/names.
	KindEquals    // =
	KindApos      // '
	KindQuote     // "
	KindHash      // #
	KindPipe      // |
	KindComma     // ,
	KindStar      // *
	KindPlus      // +
	KindQuestion  // ? (bare, inside content models etc.)
	KindColon     // :
	KindPercent   // %
	KindLBracket  // [
	KindRBracket  // ]
	KindLParen    // (
	KindRParen    // )

	// Bracketed / pragma delimiters.
	KindPIStart        // <?
	KindPIEnd          // ?>
	KindCommentStart   // <!--
	KindCommentEnd     // -->
	KindCDataStart     // <![CDATA[
	KindCDataEnd       // ]]>
	KindDoctypeStart   // <!DOCTYPE
	KindCondStart      // <![ (conditional section opener, keyword follows)
	KindCondSectionEnd // ]]> closing a conditional section

	// Markup declaration openers recognised directly by the tokenizer
	// (distinct from ordinary NAME, since ACCUMULATING_MARKUP_NAME only
	// ever follows "<!" in a DOCTYPE-interior context).
	KindElementDeclStart  // <!ELEMENT
	KindAttlistDeclStart  // <!ATTLIST
	KindEntityDeclStart   // <!ENTITY
	KindNotationDeclStart // <!NOTATION

	// Data-bearing tokens.
	KindName           // NAME
	KindS              // whitespace run
	KindCData          // decoded character data (text, or a decoded char/predefined entity ref)
	KindCharEntityRef  // &#…; / &#x…; already decoded to one or two surrogate units
	KindPredefEntityRef
	KindGeneralEntityRef   // &name; not yet resolved
	KindParameterEntityRef // %name; not yet resolved
)

func (k Kind) String() string {
	switch k {
	case KindEOF:
		return "EOF"
	case KindLT:
		return "LT"
	case KindLTSlash:
		return "LTSlash"
	case KindGT:
		return "GT"
	case KindSlashGT:
		return "SlashGT"
	case KindEquals:
		return "Equals"
	case KindApos:
		return "Apos"
	case KindQuote:
		return "Quote"
	case KindHash:
		return "Hash"
	case KindPipe:
		return "Pipe"
	case KindComma:
		return "Comma"
	case KindStar:
		return "Star"
	case KindPlus:
		return "Plus"
	case KindQuestion:
		return "Question"
	case KindColon:
		return "Colon"
	case KindPercent:
		return "Percent"
	case KindLBracket:
		return "LBracket"
	case KindRBracket:
		return "RBracket"
	case KindLParen:
		return "LParen"
	case KindRParen:
		return "RParen"
	case KindPIStart:
		return "PIStart"
	case KindPIEnd:
		return "PIEnd"
	case KindCommentStart:
		return "CommentStart"
	case KindCommentEnd:
		return "CommentEnd"
	case KindCDataStart:
		return "CDataStart"
	case KindCDataEnd:
		return "CDataEnd"
	case KindDoctypeStart:
		return "DoctypeStart"
	case KindCondStart:
		return "CondStart"
	case KindCondSectionEnd:
		return "CondSectionEnd"
	case KindElementDeclStart:
		return "ElementDeclStart"
	case KindAttlistDeclStart:
		return "AttlistDeclStart"
	case KindEntityDeclStart:
		return "EntityDeclStart"
	case KindNotationDeclStart:
		return "NotationDeclStart"
	case KindName:
		return "Name"
	case KindS:
		return "S"
	case KindCData:
		return "CData"
	case KindCharEntityRef:
		return "CharEntityRef"
	case KindPredefEntityRef:
		return "PredefEntityRef"
	case KindGeneralEntityRef:
		return "GeneralEntityRef"
	case KindParameterEntityRef:
		return "ParameterEntityRef"
	default:
		return "Unknown"
	}
}

// Token is a single lexical event. Window is a non-owning reference
// into the Tokenizer's character buffer and is only valid until the
// next Feed call; Decoded holds already-materialised code units for
// tokens synthesised by the tokenizer itself (character references,
// predefined entity references) which have no contiguous backing
// window in the input.
type Token struct {
	Kind    Kind
	Window  buffer.Window
	Decoded []uint16
}
