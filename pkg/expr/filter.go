package expr

import (
	"fmt"
	"strings"

	"github.com/mattbab/LiteDB/pkg/domain"
)

// Filter decides whether a document matches a where-clause.
type Filter interface {
	Match(doc *domain.Document) bool
	String() string
}

type cmpOp int

const (
	opEq cmpOp = iota
	opNe
	opGt
	opGte
	opLt
	opLte
)

func (o cmpOp) String() string {
	switch o {
	case opEq:
		return "="
	case opNe:
		return "!="
	case opGt:
		return ">"
	case opGte:
		return ">="
	case opLt:
		return "<"
	case opLte:
		return "<="
	}
	return "?"
}

// comparison matches when any value the path reaches satisfies the operator
// against the operand, so filters on array fields behave element-wise.
type comparison struct {
	path *Path
	op   cmpOp
	val  domain.Value
}

func Eq(p *Path, v domain.Value) Filter  { return &comparison{path: p, op: opEq, val: v} }
func Ne(p *Path, v domain.Value) Filter  { return &comparison{path: p, op: opNe, val: v} }
func Gt(p *Path, v domain.Value) Filter  { return &comparison{path: p, op: opGt, val: v} }
func Gte(p *Path, v domain.Value) Filter { return &comparison{path: p, op: opGte, val: v} }
func Lt(p *Path, v domain.Value) Filter  { return &comparison{path: p, op: opLt, val: v} }
func Lte(p *Path, v domain.Value) Filter { return &comparison{path: p, op: opLte, val: v} }

func (c *comparison) Match(doc *domain.Document) bool {
	for _, v := range c.path.Execute(doc) {
		if c.matchValue(v) {
			return true
		}
		// a path landing on an array matches element-wise, unless the
		// operand itself is an array
		if v.Kind() == domain.KindArray && c.val.Kind() != domain.KindArray {
			items, err := v.AsArray()
			if err != nil {
				continue
			}
			for _, item := range items {
				if c.matchValue(item) {
					return true
				}
			}
		}
	}
	return false
}

func (c *comparison) matchValue(v domain.Value) bool {
	cmp := v.Compare(c.val)
	switch c.op {
	case opEq:
		return cmp == 0
	case opNe:
		return cmp != 0
	case opGt:
		return cmp > 0
	case opGte:
		return cmp >= 0
	case opLt:
		return cmp < 0
	case opLte:
		return cmp <= 0
	}
	return false
}

func (c *comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.path, c.op, c.val)
}

type conjunction struct {
	filters []Filter
	any     bool
}

// And matches when every sub-filter matches. And() with no filters matches
// everything.
func And(fs ...Filter) Filter { return &conjunction{filters: fs} }

// Or matches when at least one sub-filter matches.
func Or(fs ...Filter) Filter { return &conjunction{filters: fs, any: true} }

func (c *conjunction) Match(doc *domain.Document) bool {
	if c.any {
		for _, f := range c.filters {
			if f.Match(doc) {
				return true
			}
		}
		return false
	}
	for _, f := range c.filters {
		if !f.Match(doc) {
			return false
		}
	}
	return true
}

func (c *conjunction) String() string {
	parts := make([]string, len(c.filters))
	for i, f := range c.filters {
		parts[i] = f.String()
	}
	word := " and "
	if c.any {
		word = " or "
	}
	return "(" + strings.Join(parts, word) + ")"
}

// All matches every document.
func All() Filter { return And() }
