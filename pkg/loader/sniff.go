package loader

import (
	"bytes"
	"encoding/json"
)

// Kind classifies an input buffer.
type Kind int

// Input kinds.
const (
	KindBinary Kind = iota
	KindJSON
)

func (k Kind) String() string {
	if k == KindJSON {
		return "json"
	}
	return "binary"
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Sniff reports KindJSON when data is a JSON object, ignoring a UTF-8 byte
// order mark and surrounding whitespace. Everything else is binary.
func Sniff(data []byte) Kind {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return KindBinary
	}
	if !json.Valid(trimmed) {
		return KindBinary
	}
	return KindJSON
}

// StripBOM removes a leading UTF-8 byte order mark, which PowerShell adds
// to exported files.
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}
