package scan

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFind(t *testing.T) {
	buf := []byte("xxKillsyyDeathszzKills")

	testCases := []struct {
		name    string
		pattern string
		start   int
		end     int
		want    int
	}{
		{"first occurrence", "Kills", 0, len(buf), 2},
		{"skips earlier match", "Kills", 3, len(buf), 17},
		{"match at very end", "Kills", 17, 17, 17},
		{"end before match", "Deaths", 0, 8, NotFound},
		{"end at match start", "Deaths", 0, 9, 9},
		{"negative start", "xx", -10, 5, 0},
		{"start past end", "Kills", 30, 40, NotFound},
		{"missing pattern", "Assists", 0, len(buf), NotFound},
		{"empty pattern", "", 0, len(buf), NotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Find(buf, []byte(tc.pattern), tc.start, tc.end))
		})
	}
}

func TestFind_PatternLongerThanBuffer(t *testing.T) {
	assert.Equal(t, NotFound, Find([]byte("abc"), []byte("abcd"), 0, 10))
	assert.Equal(t, NotFound, Find(nil, []byte("a"), 0, 10))
}

func TestFind_ResultAlwaysMatches(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []byte("ab\x00")

	for iter := 0; iter < 2000; iter++ {
		buf := make([]byte, rng.Intn(64))
		for i := range buf {
			buf[i] = alphabet[rng.Intn(len(alphabet))]
		}
		pattern := make([]byte, 1+rng.Intn(4))
		for i := range pattern {
			pattern[i] = alphabet[rng.Intn(len(alphabet))]
		}
		start := rng.Intn(80) - 10
		end := rng.Intn(80) - 10

		off := Find(buf, pattern, start, end)
		if off == NotFound {
			continue
		}
		if off < 0 || off+len(pattern) > len(buf) {
			t.Fatalf("offset %d out of range for buffer of %d", off, len(buf))
		}
		if !bytes.Equal(buf[off:off+len(pattern)], pattern) {
			t.Fatalf("offset %d does not hold pattern %q in %q", off, pattern, buf)
		}
		assert.GreaterOrEqual(t, off, start)
		assert.LessOrEqual(t, off, end)
	}
}

func TestFindAny(t *testing.T) {
	buf := []byte("....MatchStartTime....PlayerScoreboards")
	patterns := [][]byte{[]byte("PlayerScoreboards"), []byte("MatchStartTime"), []byte("DutyId")}

	off, which := FindAny(buf, patterns, 0, len(buf))
	assert.Equal(t, 4, off)
	assert.Equal(t, 1, which)

	off, which = FindAny(buf, patterns, 5, len(buf))
	assert.Equal(t, 22, off)
	assert.Equal(t, 0, which)

	off, which = FindAny(buf, patterns, 23, len(buf))
	assert.Equal(t, NotFound, off)
	assert.Equal(t, -1, which)
}

func TestFindAny_TieUsesPatternOrder(t *testing.T) {
	buf := []byte("PlayersPlayerScoreboards")
	off, which := FindAny(buf, [][]byte{[]byte("Players"), []byte("Player")}, 0, len(buf))
	assert.Equal(t, 0, off)
	assert.Equal(t, 0, which)
}

func TestScanner_AgreesWithFindAny(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	patterns := [][]byte{[]byte("ab"), []byte("ba"), []byte("abc"), nil}

	for round := 0; round < 50; round++ {
		buf := make([]byte, 300)
		for i := range buf {
			buf[i] = "abc."[rng.Intn(4)]
		}

		s := NewScanner(buf, patterns)
		for offset := 0; offset <= len(buf); offset += 1 + rng.Intn(12) {
			wantOff, wantWhich := FindAny(buf, patterns, offset, len(buf))
			off, which := s.Next(offset)
			assert.Equal(t, wantOff, off, "round %d offset %d", round, offset)
			assert.Equal(t, wantWhich, which, "round %d offset %d", round, offset)
		}
	}
}

func TestScanner_MovingBackwards(t *testing.T) {
	buf := []byte("DutyId....DutyId")
	s := NewScanner(buf, [][]byte{[]byte("DutyId")})

	off, _ := s.Next(1)
	assert.Equal(t, 10, off)
	off, _ = s.Next(0)
	assert.Equal(t, 0, off)
	off, _ = s.Next(11)
	assert.Equal(t, NotFound, off)
	off, _ = s.Next(-5)
	assert.Equal(t, 0, off)
}
