package expr

import (
	"fmt"
	"strings"

	"github.com/mattbab/LiteDB/pkg/domain"
)

// step is one navigation step of a path: a field name, optionally followed by
// an array fan-out.
type step struct {
	field  string
	fanOut bool
}

// Path navigates a document by field names, e.g. "$.address.city". A step
// suffixed with "[*]" fans out over the elements of an array field, so a
// single document can produce many values (multi-key indexing).
type Path struct {
	steps []step
}

// NewPath parses a path of the form "$.a.b" or "a.b[*]". The leading "$."
// is optional.
func NewPath(spec string) (*Path, error) {
	s := strings.TrimPrefix(spec, "$.")
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return nil, domain.NewInvalidArgument("empty path expression")
	}
	var steps []step
	for _, part := range strings.Split(s, ".") {
		fanOut := false
		if strings.HasSuffix(part, "[*]") {
			fanOut = true
			part = strings.TrimSuffix(part, "[*]")
		}
		if part == "" || strings.ContainsAny(part, "[]$") {
			return nil, domain.NewInvalidArgument(fmt.Sprintf("invalid path segment in %q", spec))
		}
		steps = append(steps, step{field: part, fanOut: fanOut})
	}
	return &Path{steps: steps}, nil
}

// MustPath is NewPath for statically known specs; it panics on a parse error.
func MustPath(spec string) *Path {
	p, err := NewPath(spec)
	if err != nil {
		panic(err)
	}
	return p
}

// Field builds a path from pre-split field names, without fan-out.
func Field(names ...string) *Path {
	steps := make([]step, len(names))
	for i, n := range names {
		steps[i] = step{field: n}
	}
	return &Path{steps: steps}
}

// Execute navigates the document and returns every value the path reaches.
// A missing field yields no values; a fan-out step yields one value per
// array element.
func (p *Path) Execute(doc *domain.Document) []domain.Value {
	if doc == nil {
		return nil
	}
	current := []domain.Value{domain.DocumentValue(doc)}
	for _, st := range p.steps {
		var next []domain.Value
		for _, v := range current {
			sub, err := v.AsDocument()
			if err != nil {
				continue
			}
			fv, ok := sub.Get(st.field)
			if !ok {
				continue
			}
			if st.fanOut {
				elems, err := fv.AsArray()
				if err != nil {
					continue
				}
				next = append(next, elems...)
			} else {
				next = append(next, fv)
			}
		}
		current = next
		if len(current) == 0 {
			return nil
		}
	}
	return current
}

// First returns the first value the path reaches, or Null when none.
func (p *Path) First(doc *domain.Document) domain.Value {
	vals := p.Execute(doc)
	if len(vals) == 0 {
		return domain.Null()
	}
	return vals[0]
}

func (p *Path) String() string {
	var b strings.Builder
	b.WriteString("$")
	for _, st := range p.steps {
		b.WriteByte('.')
		b.WriteString(st.field)
		if st.fanOut {
			b.WriteString("[*]")
		}
	}
	return b.String()
}
