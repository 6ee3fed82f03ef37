package recovery

import "encoding/binary"

// Document start heuristics.
const (
	// BacktrackWindow is how far before a marker a document start is searched.
	BacktrackWindow = 1000
	// FallbackDistance is subtracted from the marker offset when no plausible
	// start is found.
	FallbackDistance = 50

	minPlausibleLength = 100
	maxPlausibleLength = 100000
	minPlausibleTag    = 1
	maxPlausibleTag    = 20
)

// Locate maps the offset of a marker field name back to the start of the
// document that encloses it. Candidates are tried from marker-1 backwards
// down to marker-BacktrackWindow; the first offset whose length prefix lies
// strictly between 100 and 100000 and whose first type tag lies in [1, 20]
// is returned with found set.
//
// The closest plausible start is not necessarily the real one. When no
// candidate qualifies, marker-FallbackDistance is returned with found unset;
// that offset may be negative and the decoder rejects it.
func Locate(buf []byte, marker int) (start int, found bool) {
	lowest := marker - BacktrackWindow
	if lowest < 0 {
		lowest = 0
	}
	for i := marker - 1; i >= lowest; i-- {
		if i+4 >= len(buf) {
			continue
		}
		length := int32(binary.LittleEndian.Uint32(buf[i:]))
		if length <= minPlausibleLength || length >= maxPlausibleLength {
			continue
		}
		if tag := buf[i+4]; tag >= minPlausibleTag && tag <= maxPlausibleTag {
			return i, true
		}
	}
	return marker - FallbackDistance, false
}
