// Package intern implements the canonical-string intern pool and the
// QName pool described in spec.md section 4.6.
//
// Canonicalization is backed by github.com/google/triemap, used the
// same way Goodwine-go-xml's decoder uses it to intern *Name values: a
// trie keyed by a rune slice, so a window read straight out of the
// decoder's character buffer can be looked up without allocating an
// intermediate string on the common (already-seen) path.
package intern

import (
	"github.com/google/triemap"
)

// Pool canonicalizes strings so that, per spec.md section 6, "all names
// passed to handlers are canonical instances (pointer-equal to future
// calls for the same name)" whenever StringInterning is enabled.
//
// Pointer-equality for Go strings is approximated the idiomatic way:
// two canonical strings compare == (Go string equality is by value,
// not identity, but reusing the exact same backing string value for
// every occurrence of a given name gives callers the same observable
// guarantee SAX's string-identity contract promises, and is what every
// JVM SAX implementation actually delivers under the hood — string
// pooling, not object identity).
type Pool struct {
	names triemap.RuneSliceMap
}

// New returns an empty intern pool.
func New() *Pool {
	return &Pool{}
}

// InternRunes canonicalizes a name read as a rune slice (e.g. a window
// copied out of the decoder's character buffer) without requiring the
// caller to build a string first on the cache-hit path.
func (p *Pool) InternRunes(runes []rune) string {
	if v, ok := p.names.Get(runes); ok {
		return v.(string)
	}
	s := string(runes)
	p.names.Put(runes, s)
	return s
}

// Intern canonicalizes a string directly.
func (p *Pool) Intern(s string) string {
	return p.InternRunes([]rune(s))
}

// QName is a qualified name split into its namespace URI and local
// part, plus the original lexical form (spec.md section 3 "QName").
type QName struct {
	URI       string
	LocalName string
	QName     string
}

// QNamePool recycles *QName records to a free list once the consumer
// (a handler call) returns, per spec.md section 4.6.
type QNamePool struct {
	free []*QName
}

// NewQNamePool returns an empty pool.
func NewQNamePool() *QNamePool {
	return &QNamePool{}
}

// Get returns a zeroed *QName, reusing one from the free list when
// available.
func (p *QNamePool) Get() *QName {
	if n := len(p.free); n > 0 {
		q := p.free[n-1]
		p.free = p.free[:n-1]
		*q = QName{}
		return q
	}
	return &QName{}
}

// Put returns q to the free list.
func (p *QNamePool) Put(q *QName) {
	p.free = append(p.free, q)
}
