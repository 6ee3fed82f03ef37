// Package codec decodes the length-prefixed, field-tagged binary documents
// found inside LiteDB data files.
//
// The codec never consults the file's page or index metadata. It is handed a
// buffer and an offset that is believed to be the start of a document and
// either returns a fully decoded Document or an error explaining why the bytes
// at that offset cannot be one.
//
// # Document Format
//
// A document is laid out as:
//
//	[Length(4)][Element]...[Element][0x00]
//
//	Element := [Type(1)][Name...][0x00][Value]
//
// Fields:
//   - Length: 32-bit signed little-endian byte count, including itself and the terminator
//   - Type: one byte value tag (see Type)
//   - Name: NUL-terminated UTF-8 field name
//   - Value: type-dependent payload
//
// Values:
//   - Double: 8 bytes, IEEE754 little-endian
//   - String: 32-bit length L, L-1 bytes of UTF-8, one NUL byte
//   - EmbeddedDocument, Array: a nested document; arrays use positional keys
//   - Boolean: 1 byte, 1 means true
//   - DateTime: signed 64-bit milliseconds since the Unix epoch
//   - Null: no payload
//   - Int32: 4 bytes little-endian
//   - Int64: 8 bytes little-endian
//
// # Unrecognized Types
//
// Any other tag cannot be sized, so the decoder advances exactly one byte and
// records a TypeUnrecognized placeholder. Everything decoded after that point
// in the same document may be misaligned; such fields are reported by
// Document.Reliable and the document by Document.Desynced.
//
// # Bounds
//
// Every read is checked against the end of the enclosing document, which is
// itself checked against the buffer. Declared lengths outside (0, MaxDocSize]
// are rejected before any field is read, so garbage length prefixes always
// produce an error rather than an out-of-range access.
//
// # Usage
//
//	c := codec.NewDocumentCodec()
//	doc, err := c.Decode(buf, offset)
//	if err != nil {
//	    return err // not a document at this offset
//	}
//	if codec.IsValidMatchDocument(doc) {
//	    v, _ := doc.Get(codec.FieldMatchStartTime)
//	    fmt.Println(v.Time())
//	}
//
// # Thread Safety
//
// DocumentCodec is stateless and safe for concurrent use. Decoded documents are
// never modified after Decode returns.
package codec
