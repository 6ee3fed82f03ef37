package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
)

const (
	// MaxDocSize is the largest declared document length the decoder accepts.
	MaxDocSize = 500000

	// MaxDepth bounds how deeply embedded documents and arrays may nest.
	MaxDepth = 64

	// minDocSize is the length prefix plus the terminator of an empty document.
	minDocSize = 5
)

// Errors returned by the decoder. Callers treat all of them as "no document
// here" and resynchronize.
var (
	ErrInvalidLength     = errors.New("invalid document length")
	ErrDecodeOverrun     = errors.New("read past document end")
	ErrMissingTerminator = errors.New("document terminator missing")
	ErrMaxDepth          = errors.New("document nesting too deep")
)

// Document is one decoded document: its position in the buffer and its
// fields in the order they were read.
type Document struct {
	Offset int // offset of the length prefix
	Length int // declared length, including prefix and terminator
	Fields *orderedmap.OrderedMap[string, Value]

	desynced   bool
	unreliable map[string]struct{}
}

func newDocument(offset, length int) *Document {
	return &Document{
		Offset: offset,
		Length: length,
		Fields: orderedmap.NewOrderedMap[string, Value](),
	}
}

// End returns the offset just past the document's terminator.
func (d *Document) End() int {
	return d.Offset + d.Length
}

// Get returns the value of the named top-level field.
func (d *Document) Get(name string) (Value, bool) {
	if d == nil || d.Fields == nil {
		return Value{}, false
	}
	return d.Fields.Get(name)
}

// Len returns the number of distinct field names.
func (d *Document) Len() int {
	if d == nil || d.Fields == nil {
		return 0
	}
	return d.Fields.Len()
}

// Keys returns the field names in first-seen order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, d.Len())
	if d.Len() == 0 {
		return keys
	}
	for el := d.Fields.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	return keys
}

// Values returns the field values in first-seen order.
func (d *Document) Values() []Value {
	values := make([]Value, 0, d.Len())
	if d.Len() == 0 {
		return values
	}
	for el := d.Fields.Front(); el != nil; el = el.Next() {
		values = append(values, el.Value)
	}
	return values
}

// Map converts the document to a map of plain Go values.
func (d *Document) Map() map[string]any {
	out := make(map[string]any, d.Len())
	if d.Len() == 0 {
		return out
	}
	for el := d.Fields.Front(); el != nil; el = el.Next() {
		out[el.Key] = el.Value.Interface()
	}
	return out
}

// Desynced reports whether an unrecognized tag was skipped while decoding.
func (d *Document) Desynced() bool {
	return d.desynced
}

// Reliable reports whether the named field was decoded before any
// unrecognized tag. Fields read after a skipped tag may be misaligned.
func (d *Document) Reliable(name string) bool {
	if _, ok := d.Get(name); !ok {
		return false
	}
	_, bad := d.unreliable[name]
	return !bad
}

func (d *Document) set(name string, v Value) {
	if v.Type == TypeUnrecognized {
		d.desynced = true
	}
	if d.desynced {
		if d.unreliable == nil {
			d.unreliable = make(map[string]struct{})
		}
		d.unreliable[name] = struct{}{}
	}
	d.Fields.Set(name, v)
}

// DocumentCodec decodes documents and values from a byte buffer.
type DocumentCodec struct {
	maxDepth int
}

// NewDocumentCodec creates a new document codec instance
func NewDocumentCodec() *DocumentCodec {
	return &DocumentCodec{maxDepth: MaxDepth}
}

// DecodeDocument decodes the document at offset using a default codec.
func DecodeDocument(buf []byte, offset int) (*Document, error) {
	return NewDocumentCodec().Decode(buf, offset)
}

// Decode decodes the document whose length prefix starts at offset.
func (c *DocumentCodec) Decode(buf []byte, offset int) (*Document, error) {
	return c.decode(buf, offset, 0)
}

func (c *DocumentCodec) decode(buf []byte, offset, depth int) (*Document, error) {
	if depth > c.maxDepth {
		return nil, fmt.Errorf("%w: depth %d at offset %d", ErrMaxDepth, depth, offset)
	}
	if offset < 0 || offset+4 > len(buf) {
		return nil, fmt.Errorf("%w: no length prefix at offset %d", ErrInvalidLength, offset)
	}

	length := int(int32(binary.LittleEndian.Uint32(buf[offset:])))
	if length < minDocSize || length > MaxDocSize || offset+length > len(buf) {
		return nil, fmt.Errorf("%w: %d at offset %d (buffer %d)", ErrInvalidLength, length, offset, len(buf))
	}

	docEnd := offset + length - 1
	if buf[docEnd] != 0 {
		return nil, fmt.Errorf("%w: byte 0x%02x at %d", ErrMissingTerminator, buf[docEnd], docEnd)
	}

	doc := newDocument(offset, length)
	pos := offset + 4
	for pos < docEnd {
		tag := buf[pos]
		pos++
		if tag == 0 {
			break
		}

		n := bytes.IndexByte(buf[pos:docEnd], 0)
		if n < 0 {
			return nil, fmt.Errorf("%w: unterminated field name at %d", ErrDecodeOverrun, pos)
		}
		name := strings.ToValidUTF8(string(buf[pos:pos+n]), "�")
		pos += n + 1

		v, next, err := c.decodeValue(buf, tag, pos, docEnd, depth)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		doc.set(name, v)
		pos = next
	}

	return doc, nil
}
