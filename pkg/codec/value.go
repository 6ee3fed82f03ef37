package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

// Type is the one-byte tag that precedes every element of a document.
type Type byte

// Value tags understood by the decoder.
const (
	TypeDouble           Type = 0x01
	TypeString           Type = 0x02
	TypeEmbeddedDocument Type = 0x03
	TypeArray            Type = 0x04
	TypeBoolean          Type = 0x08
	TypeDateTime         Type = 0x09
	TypeNull             Type = 0x0A
	TypeInt32            Type = 0x10
	TypeInt64            Type = 0x12

	// TypeUnrecognized marks a placeholder for a tag the decoder cannot size.
	// 0x00 never tags a value on the wire because it terminates a document.
	TypeUnrecognized Type = 0x00
)

func (t Type) String() string {
	switch t {
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeEmbeddedDocument:
		return "document"
	case TypeArray:
		return "array"
	case TypeBoolean:
		return "boolean"
	case TypeDateTime:
		return "datetime"
	case TypeNull:
		return "null"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeUnrecognized:
		return "unrecognized"
	default:
		return fmt.Sprintf("type(0x%02x)", byte(t))
	}
}

// Value is one decoded field value. Only the member matching Type is set.
type Value struct {
	Type Type
	// Tag is the byte read from the wire. It equals Type except for
	// TypeUnrecognized placeholders.
	Tag byte

	Double float64
	Int    int64 // Int32, Int64 and DateTime (milliseconds since epoch)
	Bool   bool
	Str    string
	Doc    *Document // EmbeddedDocument and Array
}

// IsNull reports whether v carries no data, including unrecognized placeholders.
func (v Value) IsNull() bool {
	return v.Type == TypeNull || v.Type == TypeUnrecognized
}

// Int64 returns the value as an integer when it is numeric. Doubles are
// truncated toward zero.
func (v Value) Int64() (int64, bool) {
	switch v.Type {
	case TypeInt32, TypeInt64, TypeDateTime:
		return v.Int, true
	case TypeDouble:
		if math.IsNaN(v.Double) || math.IsInf(v.Double, 0) {
			return 0, false
		}
		return int64(v.Double), true
	default:
		return 0, false
	}
}

// Time returns the DateTime payload as a UTC time.
func (v Value) Time() (time.Time, bool) {
	if v.Type != TypeDateTime {
		return time.Time{}, false
	}
	return time.UnixMilli(v.Int).UTC(), true
}

// Elements returns the values of an array or document in field order,
// ignoring their keys.
func (v Value) Elements() []Value {
	if v.Doc == nil {
		return nil
	}
	return v.Doc.Values()
}

// Interface converts v to plain Go values: documents become map[string]any
// and arrays become []any.
func (v Value) Interface() any {
	switch v.Type {
	case TypeDouble:
		return v.Double
	case TypeString:
		return v.Str
	case TypeEmbeddedDocument:
		if v.Doc == nil {
			return nil
		}
		return v.Doc.Map()
	case TypeArray:
		elems := v.Elements()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = e.Interface()
		}
		return out
	case TypeBoolean:
		return v.Bool
	case TypeDateTime:
		t, _ := v.Time()
		return t
	case TypeInt32:
		return int32(v.Int)
	case TypeInt64:
		return v.Int
	default:
		return nil
	}
}

// DecodeValue decodes the value of type tag starting at pos. docEnd is the
// offset of the enclosing document's terminator; the value must end at or
// before it. The returned offset is the first byte after the value.
func (c *DocumentCodec) DecodeValue(buf []byte, tag byte, pos, docEnd int) (Value, int, error) {
	if docEnd > len(buf) {
		docEnd = len(buf)
	}
	if pos < 0 || pos > docEnd {
		return Value{}, pos, fmt.Errorf("%w: value at %d outside document ending at %d", ErrDecodeOverrun, pos, docEnd)
	}
	return c.decodeValue(buf, tag, pos, docEnd, 0)
}

func (c *DocumentCodec) decodeValue(buf []byte, tag byte, pos, docEnd, depth int) (Value, int, error) {
	t := Type(tag)
	switch t {
	case TypeDouble:
		if pos+8 > docEnd {
			return Value{}, pos, overrun(t, pos, 8, docEnd)
		}
		bits := binary.LittleEndian.Uint64(buf[pos:])
		return Value{Type: t, Tag: tag, Double: math.Float64frombits(bits)}, pos + 8, nil

	case TypeString:
		if pos+4 > docEnd {
			return Value{}, pos, overrun(t, pos, 4, docEnd)
		}
		l := int(int32(binary.LittleEndian.Uint32(buf[pos:])))
		if l < 1 || pos+4+l > docEnd {
			return Value{}, pos, overrun(t, pos, 4+l, docEnd)
		}
		text := buf[pos+4 : pos+4+l-1]
		return Value{Type: t, Tag: tag, Str: strings.ToValidUTF8(string(text), "�")}, pos + 4 + l, nil

	case TypeEmbeddedDocument, TypeArray:
		if pos+4 > docEnd {
			return Value{}, pos, overrun(t, pos, 4, docEnd)
		}
		sub, err := c.decode(buf, pos, depth+1)
		if err != nil {
			return Value{}, pos, err
		}
		if pos+sub.Length > docEnd {
			return Value{}, pos, overrun(t, pos, sub.Length, docEnd)
		}
		return Value{Type: t, Tag: tag, Doc: sub}, pos + sub.Length, nil

	case TypeBoolean:
		if pos+1 > docEnd {
			return Value{}, pos, overrun(t, pos, 1, docEnd)
		}
		return Value{Type: t, Tag: tag, Bool: buf[pos] == 1}, pos + 1, nil

	case TypeDateTime, TypeInt64:
		if pos+8 > docEnd {
			return Value{}, pos, overrun(t, pos, 8, docEnd)
		}
		return Value{Type: t, Tag: tag, Int: int64(binary.LittleEndian.Uint64(buf[pos:]))}, pos + 8, nil

	case TypeNull:
		return Value{Type: t, Tag: tag}, pos, nil

	case TypeInt32:
		if pos+4 > docEnd {
			return Value{}, pos, overrun(t, pos, 4, docEnd)
		}
		return Value{Type: t, Tag: tag, Int: int64(int32(binary.LittleEndian.Uint32(buf[pos:])))}, pos + 4, nil

	default:
		// Lossy: the real width is unknown, so later fields may be misaligned.
		return Value{Type: TypeUnrecognized, Tag: tag}, pos + 1, nil
	}
}

func overrun(t Type, pos, size, docEnd int) error {
	return fmt.Errorf("%w: %s of %d bytes at %d exceeds document end %d", ErrDecodeOverrun, t, size, pos, docEnd)
}
