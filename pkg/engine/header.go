package engine

import (
	"bytes"
	"strconv"
)

// LiteDB keeps a fixed banner in its header page.
const (
	headerInfo       = "** This is a LiteDB file **"
	headerInfoOffset = 32
	headerVersionPos = headerInfoOffset + len(headerInfo)
)

// Header is what the engine learned from the first bytes of the buffer.
type Header struct {
	Signature  string `json:"signature"`
	Recognized bool   `json:"recognized"`
	Version    int    `json:"version,omitempty"`
	Size       int    `json:"size"`
}

// ReadHeader inspects the header page. An unrecognized header is reported,
// never rejected.
func ReadHeader(buf []byte) Header {
	h := Header{Size: len(buf)}

	sig := buf
	if len(sig) > 4 {
		sig = sig[:4]
	}
	h.Signature = strconv.QuoteToASCII(string(sig))

	end := headerInfoOffset + len(headerInfo)
	if len(buf) >= end && bytes.Equal(buf[headerInfoOffset:end], []byte(headerInfo)) {
		h.Recognized = true
		if len(buf) > headerVersionPos {
			h.Version = int(buf[headerVersionPos])
		}
	}
	return h
}

// NewHeaderPage returns a zeroed page of size bytes carrying the LiteDB
// banner and version byte, for building test stores.
func NewHeaderPage(size int, version byte) []byte {
	if size <= headerVersionPos {
		size = headerVersionPos + 1
	}
	page := make([]byte, size)
	copy(page[headerInfoOffset:], headerInfo)
	page[headerVersionPos] = version
	return page
}
