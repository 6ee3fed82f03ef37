// Package recovery finds flmatch documents in a raw store image without
// consulting its index.
//
// Two strategies are layered:
//
//   - Document recovery: scan for marker field names, walk back to a
//     plausible document start (Locate), decode the whole document and keep
//     it when it carries a match marker (Extractor).
//   - Field recovery: when documents cannot be decoded, rebuild player
//     scoreboards from the Kills/Deaths/Assists field names alone
//     (ExtractPlayers) and rebuild matches from MatchStartTime occurrences
//     (ExtractMatches).
//
// Every loop is bounded by a fixed cap, so any buffer, including an all-zero
// or random one, is processed in finite time.
package recovery
