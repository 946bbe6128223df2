// Package validator implements spec.md section 4.5: compiling a
// DTD-declared content model to a small automaton once, at
// declaration time, and walking one element instance's children
// against it in amortized-linear time.
package validator

import "fmt"

// ContentType is the outer shape of an ELEMENT declaration's content
// (spec.md section 3 "ElementDeclaration").
type ContentType int

const (
	Empty ContentType = iota
	Any
	Mixed
	ElementContent
)

// ParticleKind tags a node in a content-model particle tree, built by
// the DTD parser's content-model sub-parser directly from the
// `(a,b?,(c|d)*)` grammar.
type ParticleKind int

const (
	PName ParticleKind = iota
	PSeq
	PChoice
)

// Occurs is the trailing occurrence indicator on a particle.
type Occurs byte

const (
	OccursOne      Occurs = 0
	OccursOptional Occurs = '?'
	OccursStar     Occurs = '*'
	OccursPlus     Occurs = '+'
)

// Particle is one node of a content model's parse tree: a leaf names
// a declared child element; PSeq/PChoice combine children in order or
// as alternatives, each with its own Occurs.
type Particle struct {
	Kind     ParticleKind
	Name     string
	Children []*Particle
	Occurs   Occurs
}

// Model is the compiled form of one ELEMENT declaration's content,
// built once, on first use of the declaration (internal/dtd's
// Table.Model caches it), and shared read-only across every instance
// of that element type.
type Model struct {
	Type       ContentType
	MixedNames map[string]struct{} // set for Mixed; nil otherwise
	start      *nfaState
}

// Compile builds a Model from a parsed particle tree. typ must be
// Empty, Any, or ElementContent; use NewMixedModel for MIXED content.
func Compile(typ ContentType, root *Particle) (*Model, error) {
	switch typ {
	case Empty, Any:
		return &Model{Type: typ}, nil
	case ElementContent:
		b := &nfaBuilder{}
		frag := b.build(root)
		start := &nfaState{}
		start.eps = append(start.eps, frag.start)
		frag.accept.accept = true
		return &Model{Type: ElementContent, start: start}, nil
	default:
		return nil, fmt.Errorf("validator: Compile called with content type %d, want Empty/Any/ElementContent", typ)
	}
}

// NewMixedModel builds a Model for `(#PCDATA|a|b|...)*` content. An
// empty names set models the bare `(#PCDATA)` case.
func NewMixedModel(names []string) *Model {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &Model{Type: Mixed, MixedNames: set}
}

// --- NFA construction (Thompson-style) ---

type nfaState struct {
	// transitions keyed by child element name; epsilon transitions in eps.
	trans  map[string][]*nfaState
	eps    []*nfaState
	accept bool
}

type nfaFragment struct {
	start  *nfaState
	accept *nfaState
}

type nfaBuilder struct{}

func (b *nfaBuilder) build(p *Particle) nfaFragment {
	var base nfaFragment
	switch p.Kind {
	case PName:
		base = b.buildName(p.Name)
	case PSeq:
		base = b.buildSeq(p.Children)
	case PChoice:
		base = b.buildChoice(p.Children)
	}
	return b.applyOccurs(base, p.Occurs)
}

func (b *nfaBuilder) buildName(name string) nfaFragment {
	start := &nfaState{}
	accept := &nfaState{}
	start.trans = map[string][]*nfaState{name: {accept}}
	return nfaFragment{start: start, accept: accept}
}

func (b *nfaBuilder) buildSeq(children []*Particle) nfaFragment {
	if len(children) == 0 {
		s := &nfaState{}
		return nfaFragment{start: s, accept: s}
	}
	frag := b.build(children[0])
	for _, c := range children[1:] {
		next := b.build(c)
		frag.accept.eps = append(frag.accept.eps, next.start)
		frag.accept = next.accept
	}
	return frag
}

func (b *nfaBuilder) buildChoice(children []*Particle) nfaFragment {
	start := &nfaState{}
	accept := &nfaState{}
	for _, c := range children {
		frag := b.build(c)
		start.eps = append(start.eps, frag.start)
		frag.accept.eps = append(frag.accept.eps, accept)
	}
	return nfaFragment{start: start, accept: accept}
}

func (b *nfaBuilder) applyOccurs(frag nfaFragment, occ Occurs) nfaFragment {
	switch occ {
	case OccursOne:
		return frag
	case OccursOptional:
		start := &nfaState{}
		accept := &nfaState{}
		start.eps = append(start.eps, frag.start, accept)
		frag.accept.eps = append(frag.accept.eps, accept)
		return nfaFragment{start: start, accept: accept}
	case OccursStar:
		start := &nfaState{}
		accept := &nfaState{}
		start.eps = append(start.eps, frag.start, accept)
		frag.accept.eps = append(frag.accept.eps, frag.start, accept)
		return nfaFragment{start: start, accept: accept}
	case OccursPlus:
		start := &nfaState{}
		accept := &nfaState{}
		start.eps = append(start.eps, frag.start)
		frag.accept.eps = append(frag.accept.eps, frag.start, accept)
		return nfaFragment{start: start, accept: accept}
	default:
		return frag
	}
}

// --- element-instance walker ---

// Validator walks one element instance's children against a Model,
// per spec.md section 4.5: accumulate Child/Text calls, then Finish.
type Validator struct {
	model   *Model
	states  map[*nfaState]bool // current state set, for ElementContent
	matched bool               // for Mixed/Any: seen at least one child without error
}

// New returns a Validator positioned at the start of m, ready to
// accept the element's first child.
func New(m *Model) *Validator {
	v := &Validator{model: m}
	if m.Type == ElementContent {
		v.states = epsilonClosure(map[*nfaState]bool{m.start: true})
	}
	return v
}

// Child advances the validator on a child element named name. The
// returned bool is false if name is not accepted in the current
// position (a VC *Element Valid* violation the caller should report).
func (v *Validator) Child(name string) bool {
	switch v.model.Type {
	case Empty:
		return false
	case Any:
		return true
	case Mixed:
		_, ok := v.model.MixedNames[name]
		return ok
	case ElementContent:
		next := make(map[*nfaState]bool)
		for s := range v.states {
			for _, to := range s.trans[name] {
				next[to] = true
			}
		}
		if len(next) == 0 {
			return false
		}
		v.states = epsilonClosure(next)
		return true
	default:
		return false
	}
}

// Text reports whether a text chunk is acceptable in the current
// position. whitespaceOnly chunks are always reportable as ignorable
// whitespace by the caller when the model is ElementContent (element
// content may contain only whitespace, per the Recommendation); a
// non-whitespace chunk is only valid under Mixed or Any.
func (v *Validator) Text(whitespaceOnly bool) bool {
	switch v.model.Type {
	case Empty:
		return false
	case Any, Mixed:
		return true
	case ElementContent:
		return whitespaceOnly
	default:
		return false
	}
}

// Finish reports whether the accumulated sequence of children left the
// validator in an accepting position.
func (v *Validator) Finish() bool {
	switch v.model.Type {
	case Empty, Any, Mixed:
		return true
	case ElementContent:
		for s := range v.states {
			if s.accept {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func epsilonClosure(in map[*nfaState]bool) map[*nfaState]bool {
	out := make(map[*nfaState]bool, len(in))
	stack := make([]*nfaState, 0, len(in))
	for s := range in {
		out[s] = true
		stack = append(stack, s)
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range s.eps {
			if !out[e] {
				out[e] = true
				stack = append(stack, e)
			}
		}
	}
	return out
}
