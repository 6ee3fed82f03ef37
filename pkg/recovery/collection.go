package recovery

import (
	"errors"

	"go.uber.org/zap"

	"github.com/ssargent/pvpobserver/pkg/codec"
	"github.com/ssargent/pvpobserver/pkg/scan"
)

// MaxDocuments caps the documents emitted by one extraction.
const MaxDocuments = 500

// ExtractStats counts what happened to each marker hit during an extraction.
type ExtractStats struct {
	Markers          int  `json:"markers"`
	Emitted          int  `json:"emitted"`
	BoundaryNotFound int  `json:"boundary_not_found"`
	InvalidLength    int  `json:"invalid_length"`
	DecodeOverrun    int  `json:"decode_overrun"`
	Invalid          int  `json:"invalid"`
	Overlapping      int  `json:"overlapping"`
	Desynced         int  `json:"desynced"`
	CapReached       bool `json:"cap_reached"`
}

// Skipped is the number of marker hits that did not produce a document.
func (s ExtractStats) Skipped() int {
	return s.Markers - s.Emitted
}

// ExtractorConfig holds the tunables of an Extractor.
type ExtractorConfig struct {
	// MaxDocuments caps emitted documents. Zero means MaxDocuments.
	MaxDocuments int
	Logger       *zap.Logger
}

// Extractor recovers whole documents by scanning for marker field names.
type Extractor struct {
	codec  *codec.DocumentCodec
	max    int
	logger *zap.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(config ExtractorConfig) *Extractor {
	if config.MaxDocuments <= 0 {
		config.MaxDocuments = MaxDocuments
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Extractor{
		codec:  codec.NewDocumentCodec(),
		max:    config.MaxDocuments,
		logger: config.Logger,
	}
}

// Extract scans buf for any of the marker names and returns the valid
// documents enclosing them in increasing offset order, at most
// maxDocuments of them (zero uses the extractor's cap).
//
// For each hit the enclosing document is located, decoded and validated.
// An accepted document moves the cursor past its end; anything else moves
// it one byte past the marker. Emitted documents never overlap.
func (e *Extractor) Extract(buf []byte, markers []string, maxDocuments int) ([]*codec.Document, ExtractStats) {
	if maxDocuments <= 0 {
		maxDocuments = e.max
	}
	scanner := scan.NewScanner(buf, codec.Patterns(markers))

	var (
		docs  []*codec.Document
		stats ExtractStats
		floor int
	)

	offset := 0
	for offset < len(buf) {
		marker, which := scanner.Next(offset)
		if marker == scan.NotFound {
			break
		}
		stats.Markers++

		start, found := Locate(buf, marker)
		if !found {
			stats.BoundaryNotFound++
		}

		doc, err := e.codec.Decode(buf, start)
		switch {
		case err != nil:
			if errors.Is(err, codec.ErrInvalidLength) {
				stats.InvalidLength++
			} else {
				stats.DecodeOverrun++
			}
			e.logger.Debug("document decode failed",
				zap.String("marker", markers[which]),
				zap.Int("marker_offset", marker),
				zap.Int("start", start),
				zap.Error(err))
		case !codec.IsValidMatchDocument(doc):
			stats.Invalid++
			doc = nil
		case start < floor:
			stats.Overlapping++
			doc = nil
		}

		if doc == nil {
			offset = marker + 1
			continue
		}

		if doc.Desynced() {
			stats.Desynced++
		}
		docs = append(docs, doc)
		stats.Emitted++
		floor = doc.End()
		if len(docs) >= maxDocuments {
			stats.CapReached = true
			e.logger.Warn("document cap reached",
				zap.Int("max_documents", maxDocuments),
				zap.Int("offset", floor))
			break
		}

		offset = doc.End()
		if offset <= marker {
			offset = marker + 1
		}
	}

	e.logger.Debug("extraction finished",
		zap.Int("markers", stats.Markers),
		zap.Int("emitted", stats.Emitted),
		zap.Int("skipped", stats.Skipped()))
	return docs, stats
}
