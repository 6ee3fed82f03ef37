// Package storage archives recovered matches in a pebble database so that
// repeated recoveries of the same store accumulate history without
// duplicates.
//
// Key layout:
//
//	m/<ksuid>                 -> JSON-encoded match record
//	f/<fingerprint>           -> ksuid of the match with that content
//	t/<start time><ksuid>     -> empty, orders matches by start time
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/pvpobserver/pkg/match"
)

var (
	prefixMatch       = []byte("m/")
	prefixFingerprint = []byte("f/")
	prefixTime        = []byte("t/")
)

// ErrNotFound is returned when no match is stored under an id.
var ErrNotFound = errors.New("match not found")

const idSize = len(ksuid.KSUID{})

// StoredMatch is an archived match and its id.
type StoredMatch struct {
	ID    ksuid.KSUID       `json:"id"`
	Match match.MatchRecord `json:"match"`
}

// PutResult reports what an archive write did.
type PutResult struct {
	Added      int           `json:"added"`
	Duplicates int           `json:"duplicates"`
	IDs        []ksuid.KSUID `json:"ids"`
}

// MatchArchive stores match records.
type MatchArchive struct {
	db     *pebble.DB
	logger *zap.Logger
}

// Options configures a MatchArchive.
type Options struct {
	Logger *zap.Logger
	// Pebble overrides the pebble options, mainly to run on an in-memory
	// filesystem.
	Pebble *pebble.Options
}

// NewMatchArchive opens or creates the archive at path.
func NewMatchArchive(path string, opts Options) (*MatchArchive, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Pebble == nil {
		opts.Pebble = &pebble.Options{}
	}
	db, err := pebble.Open(path, opts.Pebble)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return &MatchArchive{db: db, logger: opts.Logger}, nil
}

// Put stores the matches that are not archived yet. Matches are compared by
// Fingerprint, so re-importing a store adds only new matches.
func (a *MatchArchive) Put(matches []match.MatchRecord) (PutResult, error) {
	var res PutResult
	batch := a.db.NewBatch()
	defer batch.Close()

	pending := make(map[uint64]struct{})
	for _, m := range matches {
		fp := Fingerprint(m)
		if _, dup := pending[fp]; dup {
			res.Duplicates++
			continue
		}
		exists, err := a.has(fingerprintKey(fp))
		if err != nil {
			return PutResult{}, err
		}
		if exists {
			res.Duplicates++
			continue
		}
		pending[fp] = struct{}{}

		data, err := json.Marshal(m)
		if err != nil {
			return PutResult{}, fmt.Errorf("failed to encode match: %w", err)
		}

		id := ksuid.New()
		if err := batch.Set(matchKey(id), data, nil); err != nil {
			return PutResult{}, err
		}
		if err := batch.Set(fingerprintKey(fp), id.Bytes(), nil); err != nil {
			return PutResult{}, err
		}
		if err := batch.Set(timeKey(m, id), nil, nil); err != nil {
			return PutResult{}, err
		}
		res.Added++
		res.IDs = append(res.IDs, id)
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return PutResult{}, fmt.Errorf("failed to commit archive batch: %w", err)
	}
	a.logger.Debug("archived matches",
		zap.Int("added", res.Added),
		zap.Int("duplicates", res.Duplicates))
	return res, nil
}

// Get returns the match stored under id.
func (a *MatchArchive) Get(id ksuid.KSUID) (match.MatchRecord, error) {
	data, closer, err := a.db.Get(matchKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return match.MatchRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return match.MatchRecord{}, err
	}
	defer closer.Close()

	var m match.MatchRecord
	if err := json.Unmarshal(data, &m); err != nil {
		return match.MatchRecord{}, fmt.Errorf("failed to decode match %s: %w", id, err)
	}
	return m, nil
}

// List returns up to limit matches, newest start time first. A limit of
// zero or less returns all of them.
func (a *MatchArchive) List(limit int) ([]StoredMatch, error) {
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: prefixTime,
		UpperBound: prefixEnd(prefixTime),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []StoredMatch
	for ok := iter.Last(); ok; ok = iter.Prev() {
		if limit > 0 && len(out) >= limit {
			break
		}
		key := iter.Key()
		id, err := ksuid.FromBytes(key[len(key)-idSize:])
		if err != nil {
			return nil, fmt.Errorf("corrupt time index key: %w", err)
		}
		m, err := a.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, StoredMatch{ID: id, Match: m})
	}
	return out, iter.Error()
}

// Matches returns every archived match record, newest first.
func (a *MatchArchive) Matches() ([]match.MatchRecord, error) {
	stored, err := a.List(0)
	if err != nil {
		return nil, err
	}
	out := make([]match.MatchRecord, len(stored))
	for i, s := range stored {
		out[i] = s.Match
	}
	return out, nil
}

// Delete removes the match stored under id and its index entries.
func (a *MatchArchive) Delete(id ksuid.KSUID) error {
	m, err := a.Get(id)
	if err != nil {
		return err
	}
	batch := a.db.NewBatch()
	defer batch.Close()

	if err := batch.Delete(matchKey(id), nil); err != nil {
		return err
	}
	if err := batch.Delete(fingerprintKey(Fingerprint(m)), nil); err != nil {
		return err
	}
	if err := batch.Delete(timeKey(m, id), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// Count returns the number of archived matches.
func (a *MatchArchive) Count() (int, error) {
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: prefixMatch,
		UpperBound: prefixEnd(prefixMatch),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Close closes the database.
func (a *MatchArchive) Close() error {
	return a.db.Close()
}

func (a *MatchArchive) has(key []byte) (bool, error) {
	_, closer, err := a.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}

func matchKey(id ksuid.KSUID) []byte {
	return append(append([]byte{}, prefixMatch...), id.Bytes()...)
}

func fingerprintKey(fp uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, prefixFingerprint...), fp)
}

// timeKey orders by start time; flipping the sign bit keeps pre-1970
// times before later ones.
func timeKey(m match.MatchRecord, id ksuid.KSUID) []byte {
	key := append([]byte{}, prefixTime...)
	key = binary.BigEndian.AppendUint64(key, uint64(m.StartTime.UnixMilli())^(1<<63))
	return append(key, id.Bytes()...)
}

func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	end[len(end)-1]++
	return end
}
