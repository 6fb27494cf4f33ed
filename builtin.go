package uamodel

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// StatusCode is the protocol's 32-bit operation result scalar.
type StatusCode uint32

// IsGood reports whether the severity bits indicate success.
func (c StatusCode) IsGood() bool { return c>>30 == 0 }

// QualifiedName is a name qualified by a namespace index.
type QualifiedName struct {
	NamespaceIndex uint16
	Name           string
}

// LocalizedText pairs a text with an optional locale. Its wire form starts
// with a mask byte: 0x01 locale present, 0x02 text present.
type LocalizedText struct {
	Locale string
	Text   string
}

const (
	localizedTextLocale byte = 0x01
	localizedTextText   byte = 0x02
)

func (w *Writer) WriteQualifiedName(v QualifiedName) {
	w.WriteUint16(v.NamespaceIndex)
	w.WritePrefixedString(v.Name)
}

func (r *Reader) ReadQualifiedName(dest *QualifiedName) {
	r.ReadUint16(&dest.NamespaceIndex)
	r.ReadPrefixedString(&dest.Name)
}

func (w *Writer) WriteLocalizedText(v LocalizedText) {
	var mask byte
	if v.Locale != "" {
		mask |= localizedTextLocale
	}
	if v.Text != "" {
		mask |= localizedTextText
	}
	w.WriteUint8(mask)
	if mask&localizedTextLocale != 0 {
		w.WritePrefixedString(v.Locale)
	}
	if mask&localizedTextText != 0 {
		w.WritePrefixedString(v.Text)
	}
}

func (r *Reader) ReadLocalizedText(dest *LocalizedText) {
	var mask uint8
	r.ReadUint8(&mask)
	var v LocalizedText
	if mask&localizedTextLocale != 0 {
		r.ReadPrefixedString(&v.Locale)
	}
	if mask&localizedTextText != 0 {
		r.ReadPrefixedString(&v.Text)
	}
	if r.err == nil {
		*dest = v
	}
}

// builtinType is one entry of the built-in scalar table: the canonical Go
// representation's zero value, a coercion from option literals into that
// representation, and the matched encode/decode pair.
type builtinType struct {
	name   string
	zero   func() any
	coerce func(v any) (any, error)
	encode func(w *Writer, v any) error
	decode func(r *Reader) any
}

// toInt64 widens any signed or unsigned Go integer into an int64,
// reporting false on unsigned overflow or a non-integer kind.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	}
	if n, ok := toInt64(v); ok && n >= 0 {
		return uint64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if n, ok := toInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}

func coerceSigned(name string, v any, min, max int64, conv func(int64) any) (any, error) {
	n, ok := toInt64(v)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a %s", ErrType, v, name)
	}
	if n < min || n > max {
		return nil, fmt.Errorf("%w: %d out of range for %s", ErrValue, n, name)
	}
	return conv(n), nil
}

func coerceUnsigned(name string, v any, max uint64, conv func(uint64) any) (any, error) {
	n, ok := toUint64(v)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a %s", ErrType, v, name)
	}
	if n > max {
		return nil, fmt.Errorf("%w: %d out of range for %s", ErrValue, n, name)
	}
	return conv(n), nil
}

func wrongType(name string, v any) error {
	return fmt.Errorf("%w: %T is not a %s", ErrType, v, name)
}

// canonicalTime truncates to the wire's 100 ns resolution and rebuilds the
// value through the same tick conversion decode uses, so constructed and
// decoded instances compare equal structurally across the full 1601-9999
// range.
func canonicalTime(t time.Time) time.Time {
	return timeFromTicks(dateTimeTicks(t))
}

// builtins is the built-in scalar type table: primitive type name to its
// canonical representation and codec pair. The table is read-only after
// package init.
var builtins = map[string]*builtinType{
	"Boolean": {
		name: "Boolean",
		zero: func() any { return false },
		coerce: func(v any) (any, error) {
			if b, ok := v.(bool); ok {
				return b, nil
			}
			return nil, wrongType("Boolean", v)
		},
		encode: func(w *Writer, v any) error {
			b, ok := v.(bool)
			if !ok {
				return wrongType("Boolean", v)
			}
			w.WriteBool(b)
			return nil
		},
		decode: func(r *Reader) any { var b bool; r.ReadBool(&b); return b },
	},
	"SByte": {
		name: "SByte",
		zero: func() any { return int8(0) },
		coerce: func(v any) (any, error) {
			return coerceSigned("SByte", v, math.MinInt8, math.MaxInt8, func(n int64) any { return int8(n) })
		},
		encode: func(w *Writer, v any) error {
			n, ok := v.(int8)
			if !ok {
				return wrongType("SByte", v)
			}
			w.WriteInt8(n)
			return nil
		},
		decode: func(r *Reader) any { var n int8; r.ReadInt8(&n); return n },
	},
	"Byte": {
		name: "Byte",
		zero: func() any { return uint8(0) },
		coerce: func(v any) (any, error) {
			return coerceUnsigned("Byte", v, math.MaxUint8, func(n uint64) any { return uint8(n) })
		},
		encode: func(w *Writer, v any) error {
			n, ok := v.(uint8)
			if !ok {
				return wrongType("Byte", v)
			}
			w.WriteUint8(n)
			return nil
		},
		decode: func(r *Reader) any { var n uint8; r.ReadUint8(&n); return n },
	},
	"Int16": {
		name: "Int16",
		zero: func() any { return int16(0) },
		coerce: func(v any) (any, error) {
			return coerceSigned("Int16", v, math.MinInt16, math.MaxInt16, func(n int64) any { return int16(n) })
		},
		encode: func(w *Writer, v any) error {
			n, ok := v.(int16)
			if !ok {
				return wrongType("Int16", v)
			}
			w.WriteInt16(n)
			return nil
		},
		decode: func(r *Reader) any { var n int16; r.ReadInt16(&n); return n },
	},
	"UInt16": {
		name: "UInt16",
		zero: func() any { return uint16(0) },
		coerce: func(v any) (any, error) {
			return coerceUnsigned("UInt16", v, math.MaxUint16, func(n uint64) any { return uint16(n) })
		},
		encode: func(w *Writer, v any) error {
			n, ok := v.(uint16)
			if !ok {
				return wrongType("UInt16", v)
			}
			w.WriteUint16(n)
			return nil
		},
		decode: func(r *Reader) any { var n uint16; r.ReadUint16(&n); return n },
	},
	"Int32": {
		name: "Int32",
		zero: func() any { return int32(0) },
		coerce: func(v any) (any, error) {
			return coerceSigned("Int32", v, math.MinInt32, math.MaxInt32, func(n int64) any { return int32(n) })
		},
		encode: func(w *Writer, v any) error {
			n, ok := v.(int32)
			if !ok {
				return wrongType("Int32", v)
			}
			w.WriteInt32(n)
			return nil
		},
		decode: func(r *Reader) any { var n int32; r.ReadInt32(&n); return n },
	},
	"UInt32": {
		name: "UInt32",
		zero: func() any { return uint32(0) },
		coerce: func(v any) (any, error) {
			return coerceUnsigned("UInt32", v, math.MaxUint32, func(n uint64) any { return uint32(n) })
		},
		encode: func(w *Writer, v any) error {
			n, ok := v.(uint32)
			if !ok {
				return wrongType("UInt32", v)
			}
			w.WriteUint32(n)
			return nil
		},
		decode: func(r *Reader) any { var n uint32; r.ReadUint32(&n); return n },
	},
	"Int64": {
		name: "Int64",
		zero: func() any { return int64(0) },
		coerce: func(v any) (any, error) {
			return coerceSigned("Int64", v, math.MinInt64, math.MaxInt64, func(n int64) any { return n })
		},
		encode: func(w *Writer, v any) error {
			n, ok := v.(int64)
			if !ok {
				return wrongType("Int64", v)
			}
			w.WriteInt64(n)
			return nil
		},
		decode: func(r *Reader) any { var n int64; r.ReadInt64(&n); return n },
	},
	"UInt64": {
		name: "UInt64",
		zero: func() any { return uint64(0) },
		coerce: func(v any) (any, error) {
			return coerceUnsigned("UInt64", v, math.MaxUint64, func(n uint64) any { return n })
		},
		encode: func(w *Writer, v any) error {
			n, ok := v.(uint64)
			if !ok {
				return wrongType("UInt64", v)
			}
			w.WriteUint64(n)
			return nil
		},
		decode: func(r *Reader) any { var n uint64; r.ReadUint64(&n); return n },
	},
	"Float": {
		name: "Float",
		zero: func() any { return float32(0) },
		coerce: func(v any) (any, error) {
			n, ok := toFloat64(v)
			if !ok {
				return nil, wrongType("Float", v)
			}
			return float32(n), nil
		},
		encode: func(w *Writer, v any) error {
			n, ok := v.(float32)
			if !ok {
				return wrongType("Float", v)
			}
			w.WriteFloat32(n)
			return nil
		},
		decode: func(r *Reader) any { var n float32; r.ReadFloat32(&n); return n },
	},
	"Double": {
		name: "Double",
		zero: func() any { return float64(0) },
		coerce: func(v any) (any, error) {
			n, ok := toFloat64(v)
			if !ok {
				return nil, wrongType("Double", v)
			}
			return n, nil
		},
		encode: func(w *Writer, v any) error {
			n, ok := v.(float64)
			if !ok {
				return wrongType("Double", v)
			}
			w.WriteFloat64(n)
			return nil
		},
		decode: func(r *Reader) any { var n float64; r.ReadFloat64(&n); return n },
	},
	"String": {
		name: "String",
		zero: func() any { return "" },
		coerce: func(v any) (any, error) {
			if s, ok := v.(string); ok {
				return s, nil
			}
			return nil, wrongType("String", v)
		},
		encode: func(w *Writer, v any) error {
			s, ok := v.(string)
			if !ok {
				return wrongType("String", v)
			}
			w.WritePrefixedString(s)
			return nil
		},
		decode: func(r *Reader) any { var s string; r.ReadPrefixedString(&s); return s },
	},
	"DateTime": {
		name: "DateTime",
		zero: func() any { return time.Time{} },
		coerce: func(v any) (any, error) {
			if t, ok := v.(time.Time); ok {
				return canonicalTime(t), nil
			}
			return nil, wrongType("DateTime", v)
		},
		encode: func(w *Writer, v any) error {
			t, ok := v.(time.Time)
			if !ok {
				return wrongType("DateTime", v)
			}
			w.WriteDateTime(t)
			return nil
		},
		decode: func(r *Reader) any { var t time.Time; r.ReadDateTime(&t); return t },
	},
	"Guid": {
		name: "Guid",
		zero: func() any { return uuid.Nil },
		coerce: func(v any) (any, error) {
			switch g := v.(type) {
			case uuid.UUID:
				return g, nil
			case [16]byte:
				return uuid.UUID(g), nil
			case string:
				parsed, err := uuid.Parse(g)
				if err != nil {
					return nil, fmt.Errorf("%w: %q is not a Guid: %v", ErrValue, g, err)
				}
				return parsed, nil
			}
			return nil, wrongType("Guid", v)
		},
		encode: func(w *Writer, v any) error {
			g, ok := v.(uuid.UUID)
			if !ok {
				return wrongType("Guid", v)
			}
			w.WriteGuid(g)
			return nil
		},
		decode: func(r *Reader) any { var g uuid.UUID; r.ReadGuid(&g); return g },
	},
	"ByteString": {
		name: "ByteString",
		zero: func() any { return []byte(nil) },
		coerce: func(v any) (any, error) {
			switch b := v.(type) {
			case nil:
				return []byte(nil), nil
			case []byte:
				// Copy so sibling instances never share a backing array.
				out := make([]byte, len(b))
				copy(out, b)
				return out, nil
			case string:
				return []byte(b), nil
			}
			return nil, wrongType("ByteString", v)
		},
		encode: func(w *Writer, v any) error {
			b, ok := v.([]byte)
			if !ok {
				return wrongType("ByteString", v)
			}
			w.WritePrefixedBytes(b)
			return nil
		},
		decode: func(r *Reader) any { var b []byte; r.ReadPrefixedBytes(&b); return b },
	},
	"NodeId": {
		name: "NodeId",
		zero: func() any { return NodeID{} },
		coerce: func(v any) (any, error) {
			if id, ok := v.(NodeID); ok {
				return id, nil
			}
			return nil, wrongType("NodeId", v)
		},
		encode: func(w *Writer, v any) error {
			id, ok := v.(NodeID)
			if !ok {
				return wrongType("NodeId", v)
			}
			w.WriteNodeID(id)
			return nil
		},
		decode: func(r *Reader) any { var id NodeID; r.ReadNodeID(&id); return id },
	},
	"ExpandedNodeId": {
		name: "ExpandedNodeId",
		zero: func() any { return ExpandedNodeID{} },
		coerce: func(v any) (any, error) {
			switch id := v.(type) {
			case ExpandedNodeID:
				return id, nil
			case NodeID:
				return ExpandedNodeID{NodeID: id}, nil
			}
			return nil, wrongType("ExpandedNodeId", v)
		},
		encode: func(w *Writer, v any) error {
			id, ok := v.(ExpandedNodeID)
			if !ok {
				return wrongType("ExpandedNodeId", v)
			}
			w.WriteExpandedNodeID(id)
			return nil
		},
		decode: func(r *Reader) any { var id ExpandedNodeID; r.ReadExpandedNodeID(&id); return id },
	},
	"StatusCode": {
		name: "StatusCode",
		zero: func() any { return StatusCode(0) },
		coerce: func(v any) (any, error) {
			if c, ok := v.(StatusCode); ok {
				return c, nil
			}
			return coerceUnsigned("StatusCode", v, math.MaxUint32, func(n uint64) any { return StatusCode(n) })
		},
		encode: func(w *Writer, v any) error {
			c, ok := v.(StatusCode)
			if !ok {
				return wrongType("StatusCode", v)
			}
			w.WriteUint32(uint32(c))
			return nil
		},
		decode: func(r *Reader) any { var n uint32; r.ReadUint32(&n); return StatusCode(n) },
	},
	"QualifiedName": {
		name: "QualifiedName",
		zero: func() any { return QualifiedName{} },
		coerce: func(v any) (any, error) {
			if q, ok := v.(QualifiedName); ok {
				return q, nil
			}
			return nil, wrongType("QualifiedName", v)
		},
		encode: func(w *Writer, v any) error {
			q, ok := v.(QualifiedName)
			if !ok {
				return wrongType("QualifiedName", v)
			}
			w.WriteQualifiedName(q)
			return nil
		},
		decode: func(r *Reader) any { var q QualifiedName; r.ReadQualifiedName(&q); return q },
	},
	"LocalizedText": {
		name: "LocalizedText",
		zero: func() any { return LocalizedText{} },
		coerce: func(v any) (any, error) {
			switch t := v.(type) {
			case LocalizedText:
				return t, nil
			case string:
				return LocalizedText{Text: t}, nil
			}
			return nil, wrongType("LocalizedText", v)
		},
		encode: func(w *Writer, v any) error {
			t, ok := v.(LocalizedText)
			if !ok {
				return wrongType("LocalizedText", v)
			}
			w.WriteLocalizedText(t)
			return nil
		},
		decode: func(r *Reader) any { var t LocalizedText; r.ReadLocalizedText(&t); return t },
	},
}

// builtinFor looks a primitive type up in the built-in table.
func builtinFor(name string) (*builtinType, bool) {
	b, ok := builtins[name]
	return b, ok
}

// BuiltinTypeNames returns the names of all built-in scalar types, for
// tooling and diagnostics.
func BuiltinTypeNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return names
}
