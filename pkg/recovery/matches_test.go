package recovery

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/pvpobserver/pkg/codec"
	"github.com/ssargent/pvpobserver/pkg/match"
)

func binaryMatch(startMillis int64, players ...[]byte) []byte {
	var b []byte
	b = append(b, 0x09)
	b = append(b, codec.FieldMatchStartTime...)
	b = append(b, 0x00, 0x09)
	b = binary.LittleEndian.AppendUint64(b, uint64(startMillis))
	b = append(b, make([]byte, 40)...)
	b = append(b, 0x03)
	b = append(b, codec.FieldPlayerScoreboards...)
	b = append(b, 0x00)
	for _, p := range players {
		b = append(b, p...)
	}
	return b
}

func TestExtractMatches(t *testing.T) {
	buf := concat(
		make([]byte, 500),
		binaryMatch(1733554081653,
			fieldRecord("Foo Gungnir", 5, 2, 3, 100),
			fieldRecord("Bar Tonberry", 1, 1, 1, 200),
		),
	)

	matches := ExtractMatches(buf)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, time.UnixMilli(1733554081653).UTC(), m.StartTime)
	assert.Equal(t, match.SourceFallback, m.Source)
	assert.True(t, m.Partial)
	assert.Equal(t, 501, m.Offset)
	require.Len(t, m.Players, 2)
	assert.Equal(t, "Foo", m.Players[0].Name)
	assert.Equal(t, "Bar", m.Players[1].Name)
}

func TestExtractMatches_RequiresScoreboardAndPlayers(t *testing.T) {
	t.Run("no scoreboard", func(t *testing.T) {
		var b []byte
		b = append(b, codec.FieldMatchStartTime...)
		b = append(b, make([]byte, 10)...)
		b = append(b, fieldRecord("Foo Gungnir", 1, 1, 1, 1)...)
		assert.Empty(t, ExtractMatches(b))
	})

	t.Run("scoreboard too far away", func(t *testing.T) {
		b := binaryMatch(0)
		far := concat(b[:30], make([]byte, scoreboardAfter+10), b[30:], fieldRecord("Foo Gungnir", 1, 1, 1, 1))
		assert.Empty(t, ExtractMatches(far))
	})

	t.Run("no players", func(t *testing.T) {
		assert.Empty(t, ExtractMatches(binaryMatch(1000)))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, ExtractMatches(nil))
	})
}

func TestExtractMatches_Cap(t *testing.T) {
	var buf []byte
	for i := 0; i < MaxMatches+30; i++ {
		buf = append(buf, binaryMatch(int64(i)*1000, fieldRecord("Foo Gungnir", 1, 1, 1, 1))...)
	}

	matches := ExtractMatches(buf)
	assert.Len(t, matches, MaxMatches)
	for i := 1; i < len(matches); i++ {
		assert.Greater(t, matches[i].Offset, matches[i-1].Offset)
	}
}
