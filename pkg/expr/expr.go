package expr

import (
	"strings"

	"github.com/mattbab/LiteDB/pkg/domain"
)

// Expression produces zero or more values when evaluated against a document.
// A document may legitimately yield many values (array fan-out) or none
// (missing field).
type Expression interface {
	Execute(doc *domain.Document) []domain.Value
	String() string
}

// Const always yields its single value, regardless of the document.
type Const struct {
	v domain.Value
}

func Value(v domain.Value) *Const { return &Const{v: v} }

func (c *Const) Execute(doc *domain.Document) []domain.Value {
	return []domain.Value{c.v}
}

func (c *Const) String() string { return c.v.String() }

// DocField is one field of a document-literal expression.
type DocField struct {
	Name string
	Expr Expression
}

// F builds a DocField.
func F(name string, e Expression) DocField { return DocField{Name: name, Expr: e} }

// DocLit yields a single document built by evaluating each field expression
// against the input and taking its first value; fields whose expression
// yields nothing are omitted.
type DocLit struct {
	fields []DocField
}

func Doc(fields ...DocField) *DocLit { return &DocLit{fields: fields} }

func (d *DocLit) Execute(doc *domain.Document) []domain.Value {
	out := domain.NewDocument()
	for _, f := range d.fields {
		vals := f.Expr.Execute(doc)
		if len(vals) == 0 {
			continue
		}
		out.Set(f.Name, vals[0])
	}
	return []domain.Value{domain.DocumentValue(out)}
}

func (d *DocLit) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Expr.String())
	}
	b.WriteByte('}')
	return b.String()
}
