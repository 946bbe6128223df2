package tokenizer

// MiniState is the inner pushdown state that recognises multi-character
// lexical sequences (delimiters, references, accumulated runs)
// independent of the outer TokenizerState context.
type MiniState int

const (
	MiniReady MiniState = iota
	MiniSeenLT
	MiniSeenLTBang
	MiniSeenLTBangDash
	MiniSeenLTBangOpenBracket
	MiniSeenLTBangLetter
	MiniSeenAmp
	MiniSeenAmpHash
	MiniSeenAmpHashX
	MiniSeenPercent
	MiniSeenDash
	MiniSeenCloseBracket
	MiniSeenQuery
	MiniSeenSlash

	// Greedy accumulating states: once entered, every matching CharClass
	// is consumed directly (bypassing the table) until a stop class is
	// seen, at which point the accumulated window is emitted and the
	// stop character is re-processed from MiniReady.
	MiniAccumulatingName
	MiniAccumulatingWhitespace
	MiniAccumulatingCData
	MiniAccumulatingEntityName
	MiniAccumulatingParamEntityName
	MiniAccumulatingCharRefDec
	MiniAccumulatingCharRefHex
	MiniAccumulatingMarkupName
)

// greedy reports whether m is one of the ACCUMULATING_* states that
// bypasses per-character table lookups.
func (m MiniState) greedy() bool {
	return m >= MiniAccumulatingName
}
