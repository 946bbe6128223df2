package buffer

import "strings"

// maxPooledBuilderCap bounds how large a *strings.Builder may be before
// it is dropped instead of returned to the pool (spec.md section 4.6:
// "builders larger than 8 KB are dropped on return to limit memory
// bloat").
const maxPooledBuilderCap = 8 << 10

// poolDepth bounds the free-list depth for both pools (spec.md section
// 4.6: "bounded (~6) pools").
const poolDepth = 6

// BuilderPool is a bounded free-list of *strings.Builder used to
// accumulate attribute values and normalized text without an
// allocation per attribute. Not safe for concurrent use: the parser
// that owns it is single-threaded by construction (spec.md section 5).
type BuilderPool struct {
	free []*strings.Builder
}

// NewBuilderPool returns an empty pool.
func NewBuilderPool() *BuilderPool {
	return &BuilderPool{free: make([]*strings.Builder, 0, poolDepth)}
}

// Get returns a reset builder, reusing one from the free list when
// available.
func (p *BuilderPool) Get() *strings.Builder {
	if n := len(p.free); n > 0 {
		b := p.free[n-1]
		p.free = p.free[:n-1]
		b.Reset()
		return b
	}
	return &strings.Builder{}
}

// Put returns b to the pool unless it has grown past the cap or the
// free list is already at depth.
func (p *BuilderPool) Put(b *strings.Builder) {
	if b.Cap() > maxPooledBuilderCap || len(p.free) >= poolDepth {
		return
	}
	p.free = append(p.free, b)
}

// ElementContext is the reusable per-element-instance state the content
// parser pushes on a start tag: the name, the validator watching this
// element's children, and the entity-expansion depth at push time
// (WFC Parsed Entity, spec.md section 3 "ElementValidationContext").
type ElementContext struct {
	ElementName         string
	Validator           ContentValidator
	EntityExpansionDepth int
}

// ContentValidator is the narrow interface internal/validator satisfies;
// declared here (rather than imported) so internal/buffer has no
// dependency on internal/validator, keeping the pools a leaf package
// per spec.md section 2's dependency ordering.
type ContentValidator interface {
	Child(name string) error
	Text(whitespaceOnly bool) error
	Finish() error
}

// ContextPool is a bounded free-list of *ElementContext.
type ContextPool struct {
	free []*ElementContext
}

// NewContextPool returns an empty pool.
func NewContextPool() *ContextPool {
	return &ContextPool{free: make([]*ElementContext, 0, poolDepth)}
}

// Get returns a zeroed context, reusing one from the free list when
// available.
func (p *ContextPool) Get() *ElementContext {
	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free = p.free[:n-1]
		*c = ElementContext{}
		return c
	}
	return &ElementContext{}
}

// Put returns c to the pool after the consumer (handler call) has
// returned, unless the free list is already at depth.
func (p *ContextPool) Put(c *ElementContext) {
	if len(p.free) >= poolDepth {
		return
	}
	p.free = append(p.free, c)
}
