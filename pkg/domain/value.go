package domain

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"
)

// Kind identifies the type of a Value. The declaration order matches the
// comparison precedence used when values of different kinds are ordered
// against each other.
type Kind uint8

const (
	KindMinValue Kind = iota // reserved range-scan lower bound, never a stored key
	KindNull
	KindInt32
	KindInt64
	KindDouble
	KindString
	KindDocument
	KindArray
	KindBinary
	KindObjectID
	KindBoolean
	KindDate
	KindMaxValue // reserved range-scan upper bound, never a stored key
)

func (k Kind) String() string {
	switch k {
	case KindMinValue:
		return "minvalue"
	case KindNull:
		return "null"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindDocument:
		return "document"
	case KindArray:
		return "array"
	case KindBinary:
		return "binary"
	case KindObjectID:
		return "objectid"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindMaxValue:
		return "maxvalue"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ObjectID is a 12-byte unique document identifier.
type ObjectID [12]byte

// NewObjectID generates an ObjectID from the current time and random bytes.
func NewObjectID() ObjectID {
	var oid ObjectID
	binary.BigEndian.PutUint32(oid[0:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(oid[4:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to time bits
		binary.BigEndian.PutUint64(oid[4:12], uint64(time.Now().UnixNano()))
	}
	return oid
}

func (o ObjectID) String() string { return hex.EncodeToString(o[:]) }

func timeFromUnixNano(ns int64) time.Time { return time.Unix(0, ns).UTC() }

// ParseObjectID parses the hex form produced by ObjectID.String.
func ParseObjectID(s string) (ObjectID, error) {
	var oid ObjectID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 12 {
		return oid, NewInvalidArgument(fmt.Sprintf("invalid object id %q", s))
	}
	copy(oid[:], b)
	return oid, nil
}

// Value is a closed tagged union over every type a document field may hold.
// Always build values through the constructors; the zero Value is the
// reserved lower-bound sentinel.
type Value struct {
	kind Kind
	i64  int64
	f64  float64
	str  string
	bin  []byte
	doc  *Document
	arr  []Value
	b    bool
	t    time.Time
	oid  ObjectID
}

// Reserved sentinel values used as index range-scan boundaries.
var (
	MinValue = Value{kind: KindMinValue}
	MaxValue = Value{kind: KindMaxValue}
)

func Null() Value                 { return Value{kind: KindNull} }
func Int32(v int32) Value         { return Value{kind: KindInt32, i64: int64(v)} }
func Int64(v int64) Value         { return Value{kind: KindInt64, i64: v} }
func Double(v float64) Value      { return Value{kind: KindDouble, f64: v} }
func String(v string) Value       { return Value{kind: KindString, str: v} }
func Binary(v []byte) Value       { return Value{kind: KindBinary, bin: v} }
func Bool(v bool) Value           { return Value{kind: KindBoolean, b: v} }
func Date(v time.Time) Value      { return Value{kind: KindDate, t: v.UTC()} }
func ObjectIDValue(o ObjectID) Value { return Value{kind: KindObjectID, oid: o} }
func Array(vs ...Value) Value     { return Value{kind: KindArray, arr: vs} }

// DocumentValue wraps a document as a nested value. A nil document becomes Null.
func DocumentValue(d *Document) Value {
	if d == nil {
		return Null()
	}
	return Value{kind: KindDocument, doc: d}
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == KindNull }
func (v Value) IsNumber() bool {
	return v.kind == KindInt32 || v.kind == KindInt64 || v.kind == KindDouble
}

// IsSentinel reports whether the value is one of the reserved min/max boundary
// values, which must never appear as real document data.
func (v Value) IsSentinel() bool {
	return v.kind == KindMinValue || v.kind == KindMaxValue
}

// AsInt64 returns the numeric value as an int64.
func (v Value) AsInt64() (int64, error) {
	switch v.kind {
	case KindInt32, KindInt64:
		return v.i64, nil
	case KindDouble:
		return int64(v.f64), nil
	}
	return 0, NewInvalidDataType("", fmt.Sprintf("cannot read %s as int64", v.kind))
}

// AsFloat64 returns the numeric value as a float64.
func (v Value) AsFloat64() (float64, error) {
	switch v.kind {
	case KindInt32, KindInt64:
		return float64(v.i64), nil
	case KindDouble:
		return v.f64, nil
	}
	return 0, NewInvalidDataType("", fmt.Sprintf("cannot read %s as float64", v.kind))
}

// AsString returns the string payload of a string value.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", NewInvalidDataType("", fmt.Sprintf("cannot read %s as string", v.kind))
	}
	return v.str, nil
}

// AsDocument returns the nested document of a document value.
func (v Value) AsDocument() (*Document, error) {
	if v.kind != KindDocument {
		return nil, NewInvalidDataType("", fmt.Sprintf("cannot read %s as document", v.kind))
	}
	return v.doc, nil
}

// AsArray returns the elements of an array value.
func (v Value) AsArray() ([]Value, error) {
	if v.kind != KindArray {
		return nil, NewInvalidDataType("", fmt.Sprintf("cannot read %s as array", v.kind))
	}
	return v.arr, nil
}

// AsBinary returns the payload of a binary value.
func (v Value) AsBinary() ([]byte, error) {
	if v.kind != KindBinary {
		return nil, NewInvalidDataType("", fmt.Sprintf("cannot read %s as binary", v.kind))
	}
	return v.bin, nil
}

// AsBool returns the payload of a boolean value.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBoolean {
		return false, NewInvalidDataType("", fmt.Sprintf("cannot read %s as boolean", v.kind))
	}
	return v.b, nil
}

// AsDate returns the payload of a date value.
func (v Value) AsDate() (time.Time, error) {
	if v.kind != KindDate {
		return time.Time{}, NewInvalidDataType("", fmt.Sprintf("cannot read %s as date", v.kind))
	}
	return v.t, nil
}

// AsObjectID returns the payload of an object-id value.
func (v Value) AsObjectID() (ObjectID, error) {
	if v.kind != KindObjectID {
		return ObjectID{}, NewInvalidDataType("", fmt.Sprintf("cannot read %s as objectid", v.kind))
	}
	return v.oid, nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt32, KindInt64:
		return fmt.Sprintf("%d", v.i64)
	case KindDouble:
		return fmt.Sprintf("%g", v.f64)
	case KindString:
		return v.str
	case KindBoolean:
		return fmt.Sprintf("%t", v.b)
	case KindDate:
		return v.t.Format(time.RFC3339Nano)
	case KindObjectID:
		return v.oid.String()
	case KindBinary:
		return hex.EncodeToString(v.bin)
	case KindDocument:
		return v.doc.String()
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(e.String())
		}
		buf.WriteByte(']')
		return buf.String()
	case KindMinValue:
		return "$minvalue"
	case KindMaxValue:
		return "$maxvalue"
	}
	return v.kind.String()
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	switch v.kind {
	case KindBinary:
		c := make([]byte, len(v.bin))
		copy(c, v.bin)
		return Value{kind: KindBinary, bin: c}
	case KindDocument:
		return DocumentValue(v.doc.Clone())
	case KindArray:
		c := make([]Value, len(v.arr))
		for i, e := range v.arr {
			c[i] = e.Clone()
		}
		return Value{kind: KindArray, arr: c}
	default:
		return v
	}
}

// typeOrder groups kinds into comparison classes; all numeric kinds share one
// class so Int32(5), Int64(5) and Double(5) compare equal.
func typeOrder(k Kind) int {
	switch k {
	case KindMinValue:
		return 0
	case KindNull:
		return 1
	case KindInt32, KindInt64, KindDouble:
		return 2
	case KindString:
		return 3
	case KindDocument:
		return 4
	case KindArray:
		return 5
	case KindBinary:
		return 6
	case KindObjectID:
		return 7
	case KindBoolean:
		return 8
	case KindDate:
		return 9
	case KindMaxValue:
		return 10
	}
	return 11
}

// Compare orders two values: -1 if v < other, 0 if equal, 1 if v > other.
// Values of different comparison classes order by class.
func (v Value) Compare(other Value) int {
	oa, ob := typeOrder(v.kind), typeOrder(other.kind)
	if oa != ob {
		if oa < ob {
			return -1
		}
		return 1
	}
	switch oa {
	case 0, 1, 10: // minvalue, null, maxvalue compare equal to themselves
		return 0
	case 2:
		fa, _ := v.AsFloat64()
		fb, _ := other.AsFloat64()
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 3:
		return bytes.Compare([]byte(v.str), []byte(other.str))
	case 4:
		return v.doc.compare(other.doc)
	case 5:
		return compareArrays(v.arr, other.arr)
	case 6:
		return bytes.Compare(v.bin, other.bin)
	case 7:
		return bytes.Compare(v.oid[:], other.oid[:])
	case 8:
		switch {
		case !v.b && other.b:
			return -1
		case v.b && !other.b:
			return 1
		}
		return 0
	case 9:
		switch {
		case v.t.Before(other.t):
			return -1
		case v.t.After(other.t):
			return 1
		}
		return 0
	}
	return 0
}

// Equal reports value equality under the same rules as Compare.
func (v Value) Equal(other Value) bool { return v.Compare(other) == 0 }

func compareArrays(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// CollationKey encodes the value into bytes whose lexicographic order matches
// Compare. Two values are equal exactly when their collation keys are equal,
// which is what index key comparison uses.
func (v Value) CollationKey() []byte {
	var buf bytes.Buffer
	v.appendCollationKey(&buf)
	return buf.Bytes()
}

func (v Value) appendCollationKey(buf *bytes.Buffer) {
	buf.WriteByte(byte(typeOrder(v.kind)))
	switch typeOrder(v.kind) {
	case 2:
		f, _ := v.AsFloat64()
		bits := math.Float64bits(f)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], bits)
		buf.Write(b[:])
	case 3:
		buf.WriteString(v.str)
		buf.WriteByte(0x00)
	case 4:
		for _, name := range v.doc.fields {
			buf.WriteString(name)
			buf.WriteByte(0x00)
			fv, _ := v.doc.Get(name)
			fv.appendCollationKey(buf)
		}
		buf.WriteByte(0x00)
	case 5:
		for _, e := range v.arr {
			e.appendCollationKey(buf)
		}
		buf.WriteByte(0x00)
	case 6:
		buf.Write(v.bin)
		buf.WriteByte(0x00)
	case 7:
		buf.Write(v.oid[:])
	case 8:
		if v.b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case 9:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.t.UnixNano())^(1<<63))
		buf.Write(b[:])
	}
}
