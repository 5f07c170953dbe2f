// Package data bridges between the wire JSON used by the HTTP API and the
// typed documents the engine stores.
package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/mattbab/LiteDB/pkg/domain"
)

// DecodeDocument parses a JSON object into a typed document. Integral JSON
// numbers become Int64, fractional ones Double. Nested object keys are
// sorted so decoding is deterministic.
func DecodeDocument(raw []byte) (*domain.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return documentFromMap(m)
}

func documentFromMap(m map[string]any) (*domain.Document, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := domain.NewDocument()
	for _, name := range names {
		v, err := valueFromJSON(m[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		doc.Set(name, v)
	}
	return doc, nil
}

func valueFromJSON(raw any) (domain.Value, error) {
	switch v := raw.(type) {
	case nil:
		return domain.Null(), nil
	case bool:
		return domain.Bool(v), nil
	case string:
		return domain.String(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return domain.Int64(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return domain.Null(), fmt.Errorf("bad number %q: %w", v.String(), err)
		}
		return domain.Double(f), nil
	case []any:
		items := make([]domain.Value, 0, len(v))
		for _, item := range v {
			iv, err := valueFromJSON(item)
			if err != nil {
				return domain.Null(), err
			}
			items = append(items, iv)
		}
		return domain.Array(items...), nil
	case map[string]any:
		doc, err := documentFromMap(v)
		if err != nil {
			return domain.Null(), err
		}
		return domain.DocumentValue(doc), nil
	default:
		return domain.Null(), fmt.Errorf("unsupported JSON value %T", raw)
	}
}

// EncodeDocument renders a document as JSON, preserving its field order.
func EncodeDocument(doc *domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeDocument(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeDocuments renders a slice of documents as a JSON array.
func EncodeDocuments(docs []*domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, doc := range docs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeDocument(&buf, doc); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeDocument(buf *bytes.Buffer, doc *domain.Document) error {
	buf.WriteByte('{')
	for i, name := range doc.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		v, _ := doc.Get(name)
		if err := writeValue(buf, v); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValue(buf *bytes.Buffer, v domain.Value) error {
	switch v.Kind() {
	case domain.KindNull:
		buf.WriteString("null")
	case domain.KindInt32, domain.KindInt64:
		n, err := v.AsInt64()
		if err != nil {
			return err
		}
		buf.WriteString(strconv.FormatInt(n, 10))
	case domain.KindDouble:
		f, err := v.AsFloat64()
		if err != nil {
			return err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("value %v has no JSON form", f)
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case domain.KindBoolean:
		b, err := v.AsBool()
		if err != nil {
			return err
		}
		buf.WriteString(strconv.FormatBool(b))
	case domain.KindArray:
		items, err := v.AsArray()
		if err != nil {
			return err
		}
		buf.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case domain.KindDocument:
		doc, err := v.AsDocument()
		if err != nil {
			return err
		}
		return writeDocument(buf, doc)
	default:
		// strings, dates, object ids and binary all render via String
		raw, err := json.Marshal(v.String())
		if err != nil {
			return err
		}
		buf.Write(raw)
	}
	return nil
}

// ParseID turns a path or query parameter into a primary key value,
// preferring the narrowest type that fits.
func ParseID(s string) domain.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return domain.Int64(i)
	}
	if oid, err := domain.ParseObjectID(s); err == nil {
		return domain.ObjectIDValue(oid)
	}
	return domain.String(s)
}
