package storage

import (
	"encoding/binary"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/ssargent/pvpobserver/pkg/match"
)

// Fingerprint hashes the content of a match: its start time, duty and the
// scoreboard of every player, independent of player order and of where in
// the store the match was found.
func Fingerprint(m match.MatchRecord) uint64 {
	lines := make([]string, 0, len(m.Players))
	for _, p := range m.Players {
		var b strings.Builder
		b.WriteString(p.Key())
		for _, n := range []int64{p.Kills, p.Deaths, p.Assists, p.Damage} {
			b.WriteByte('|')
			b.Write(binary.AppendVarint(nil, n))
		}
		lines = append(lines, b.String())
	}
	slices.Sort(lines)

	d := xxhash.New()
	var hdr [16]byte
	binary.BigEndian.PutUint64(hdr[:8], uint64(m.StartTime.UnixMilli()))
	binary.BigEndian.PutUint64(hdr[8:], uint64(m.DutyID))
	_, _ = d.Write(hdr[:])
	for _, l := range lines {
		_, _ = d.WriteString(l)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
