package domain

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// IDField is the reserved primary-key field of every stored document.
const IDField = "_id"

// Document is an ordered mapping from field name to Value. Field iteration
// order is insertion order; setting an existing field keeps its position.
type Document struct {
	fields []string
	values map[string]Value
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{values: make(map[string]Value)}
}

// Set stores a field, preserving the position of an existing one.
// It returns the document for fluent construction.
func (d *Document) Set(name string, v Value) *Document {
	if _, exists := d.values[name]; !exists {
		d.fields = append(d.fields, name)
	}
	d.values[name] = v
	return d
}

// Get returns the value of a field and whether it exists.
func (d *Document) Get(name string) (Value, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Has reports whether the field exists.
func (d *Document) Has(name string) bool {
	_, ok := d.values[name]
	return ok
}

// Remove deletes a field; removing a missing field is a no-op.
func (d *Document) Remove(name string) {
	if _, ok := d.values[name]; !ok {
		return
	}
	delete(d.values, name)
	for i, f := range d.fields {
		if f == name {
			d.fields = append(d.fields[:i], d.fields[i+1:]...)
			break
		}
	}
}

// Len returns the number of fields.
func (d *Document) Len() int { return len(d.fields) }

// Fields returns the field names in order.
func (d *Document) Fields() []string {
	out := make([]string, len(d.fields))
	copy(out, d.fields)
	return out
}

// ID returns the document's primary-key value and whether it is present.
func (d *Document) ID() (Value, bool) {
	return d.Get(IDField)
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := NewDocument()
	for _, name := range d.fields {
		out.Set(name, d.values[name].Clone())
	}
	return out
}

// Merge overlays the other document's fields onto a copy of this one; fields
// from other win on conflict. Neither receiver nor argument is modified.
func (d *Document) Merge(other *Document) *Document {
	out := d.Clone()
	for _, name := range other.fields {
		out.Set(name, other.values[name].Clone())
	}
	return out
}

func (d *Document) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range d.fields {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s: %s", name, d.values[name].String())
	}
	buf.WriteByte('}')
	return buf.String()
}

func (d *Document) compare(other *Document) int {
	n := len(d.fields)
	if len(other.fields) < n {
		n = len(other.fields)
	}
	for i := 0; i < n; i++ {
		if c := bytes.Compare([]byte(d.fields[i]), []byte(other.fields[i])); c != 0 {
			return c
		}
		if c := d.values[d.fields[i]].Compare(other.values[other.fields[i]]); c != 0 {
			return c
		}
	}
	switch {
	case len(d.fields) < len(other.fields):
		return -1
	case len(d.fields) > len(other.fields):
		return 1
	}
	return 0
}

// Marshal serializes the document, preserving field order and value kinds.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encodeDocument(enc, d); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalDocument deserializes bytes produced by Marshal.
func UnmarshalDocument(data []byte) (*Document, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	doc, err := decodeDocument(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func encodeDocument(enc *msgpack.Encoder, d *Document) error {
	if err := enc.EncodeMapLen(len(d.fields)); err != nil {
		return err
	}
	for _, name := range d.fields {
		if err := enc.EncodeString(name); err != nil {
			return err
		}
		if err := encodeValue(enc, d.values[name]); err != nil {
			return err
		}
	}
	return nil
}

func decodeDocument(dec *msgpack.Decoder) (*Document, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	doc := NewDocument()
	for i := 0; i < n; i++ {
		name, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		doc.Set(name, v)
	}
	return doc, nil
}

// Values are framed as a two-element array of [kind, payload] so the decoder
// can restore the exact tagged kind rather than msgpack's inferred type.
func encodeValue(enc *msgpack.Encoder, v Value) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(v.kind)); err != nil {
		return err
	}
	switch v.kind {
	case KindNull, KindMinValue, KindMaxValue:
		return enc.EncodeNil()
	case KindInt32, KindInt64:
		return enc.EncodeInt(v.i64)
	case KindDouble:
		return enc.EncodeFloat64(v.f64)
	case KindString:
		return enc.EncodeString(v.str)
	case KindBinary:
		return enc.EncodeBytes(v.bin)
	case KindBoolean:
		return enc.EncodeBool(v.b)
	case KindDate:
		return enc.EncodeInt(v.t.UnixNano())
	case KindObjectID:
		return enc.EncodeBytes(v.oid[:])
	case KindDocument:
		return encodeDocument(enc, v.doc)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.arr)); err != nil {
			return err
		}
		for _, e := range v.arr {
			if err := encodeValue(enc, e); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("cannot encode value of kind %s", v.kind)
}

func decodeValue(dec *msgpack.Decoder) (Value, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return Null(), err
	}
	if n != 2 {
		return Null(), fmt.Errorf("malformed value frame: array length %d", n)
	}
	kindRaw, err := dec.DecodeUint8()
	if err != nil {
		return Null(), err
	}
	kind := Kind(kindRaw)
	switch kind {
	case KindNull, KindMinValue, KindMaxValue:
		if err := dec.DecodeNil(); err != nil {
			return Null(), err
		}
		return Value{kind: kind}, nil
	case KindInt32, KindInt64:
		i, err := dec.DecodeInt64()
		if err != nil {
			return Null(), err
		}
		return Value{kind: kind, i64: i}, nil
	case KindDouble:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return Null(), err
		}
		return Double(f), nil
	case KindString:
		s, err := dec.DecodeString()
		if err != nil {
			return Null(), err
		}
		return String(s), nil
	case KindBinary:
		b, err := dec.DecodeBytes()
		if err != nil {
			return Null(), err
		}
		return Binary(b), nil
	case KindBoolean:
		b, err := dec.DecodeBool()
		if err != nil {
			return Null(), err
		}
		return Bool(b), nil
	case KindDate:
		ns, err := dec.DecodeInt64()
		if err != nil {
			return Null(), err
		}
		return Value{kind: KindDate, t: timeFromUnixNano(ns)}, nil
	case KindObjectID:
		b, err := dec.DecodeBytes()
		if err != nil {
			return Null(), err
		}
		if len(b) != 12 {
			return Null(), fmt.Errorf("malformed object id: %d bytes", len(b))
		}
		var oid ObjectID
		copy(oid[:], b)
		return ObjectIDValue(oid), nil
	case KindDocument:
		doc, err := decodeDocument(dec)
		if err != nil {
			return Null(), err
		}
		return DocumentValue(doc), nil
	case KindArray:
		m, err := dec.DecodeArrayLen()
		if err != nil {
			return Null(), err
		}
		arr := make([]Value, 0, m)
		for i := 0; i < m; i++ {
			e, err := decodeValue(dec)
			if err != nil {
				return Null(), err
			}
			arr = append(arr, e)
		}
		return Array(arr...), nil
	}
	return Null(), fmt.Errorf("cannot decode value of kind %d", kindRaw)
}
