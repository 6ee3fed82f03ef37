package engine

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ssargent/pvpobserver/pkg/codec"
	"github.com/ssargent/pvpobserver/pkg/loader"
	"github.com/ssargent/pvpobserver/pkg/match"
)

func headerPage() []byte {
	return NewHeaderPage(8192, 8)
}

func scoreboard(kills, deaths, assists int32, damage int64) []byte {
	return bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt32Element(nil, codec.FieldKills, kills),
		bsoncore.AppendInt32Element(nil, codec.FieldDeaths, deaths),
		bsoncore.AppendInt32Element(nil, codec.FieldAssists, assists),
		bsoncore.AppendInt64Element(nil, codec.FieldDamageDealt, damage),
	)
}

func matchDoc(startMillis int64) []byte {
	boards := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDocumentElement(nil, "Foo Bar Gungnir", scoreboard(5, 2, 3, 100000)),
		bsoncore.AppendDocumentElement(nil, "Baz Tonberry", scoreboard(1, 4, 7, 80000)),
	)
	return bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDateTimeElement(nil, codec.FieldMatchStartTime, startMillis),
		bsoncore.AppendInt32Element(nil, codec.FieldDutyID, 1116),
		bsoncore.AppendDocumentElement(nil, codec.FieldPlayerScoreboards, boards),
	)
}

// fieldRecord lays out a scoreboard the way field-level recovery reads it.
func fieldRecord(name string, kills, deaths, assists int32) []byte {
	b := make([]byte, 160)
	b = append(b, name...)
	b = append(b, 0x00)
	for _, f := range []struct {
		name string
		v    int32
	}{{codec.FieldKills, kills}, {codec.FieldDeaths, deaths}, {codec.FieldAssists, assists}} {
		b = append(b, f.name...)
		b = append(b, 0x00, 0x10)
		b = binary.LittleEndian.AppendUint32(b, uint32(f.v))
	}
	return b
}

func TestEngine_ScenarioA(t *testing.T) {
	board := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt32Element(nil, codec.FieldKills, 5),
		bsoncore.AppendInt32Element(nil, codec.FieldDeaths, 2),
		bsoncore.AppendInt32Element(nil, codec.FieldAssists, 3),
	)
	buf := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDateTimeElement(nil, codec.FieldMatchStartTime, 1000),
		bsoncore.AppendDocumentElement(nil, codec.FieldPlayerScoreboards, board),
	)

	res := New(Config{}).Parse(buf)

	matches := res.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, time.UnixMilli(1000).UTC(), matches[0].StartTime)
	require.Len(t, matches[0].Players, 1)
	p := matches[0].Players[0]
	assert.Equal(t, int64(5), p.Kills)
	assert.Equal(t, int64(2), p.Deaths)
	assert.Equal(t, int64(3), p.Assists)
	assert.True(t, res.Stats.StandaloneDocument)
	assert.False(t, res.Stats.BinaryFallback)
}

func TestEngine_StoreImage(t *testing.T) {
	buf := headerPage()
	buf = append(buf, matchDoc(1733554081653)...)
	buf = append(buf, make([]byte, 97)...)
	buf = append(buf, matchDoc(1733554981653)...)
	buf = append(buf, make([]byte, 8192)...)

	res := New(Config{}).Parse(buf)

	assert.True(t, res.Header.Recognized)
	assert.Equal(t, 8, res.Header.Version)
	assert.Equal(t, len(buf), res.Header.Size)

	matches := res.Matches()
	require.Len(t, matches, 2)
	assert.True(t, matches[0].StartTime.Before(matches[1].StartTime))
	assert.Less(t, matches[0].Offset, matches[1].Offset)
	assert.Equal(t, match.SourceDocument, matches[0].Source)

	require.Len(t, matches[0].Players, 2)
	assert.Equal(t, "Foo Bar", matches[0].Players[0].Name)
	assert.Equal(t, "Gungnir", matches[0].Players[0].Server)
	assert.Equal(t, int64(100000), matches[0].Players[0].Damage)

	assert.Equal(t, 2, res.Stats.Documents)
	assert.Equal(t, 4, res.Stats.Players)
	assert.Equal(t, 2, res.Stats.Extract.Emitted)
}

func TestEngine_UnknownServers(t *testing.T) {
	boards := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDocumentElement(nil, "Foo Gungnir", scoreboard(1, 1, 1, 10)),
		bsoncore.AppendDocumentElement(nil, "Bar Cactuar", scoreboard(2, 2, 2, 20)),
	)
	buf := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDateTimeElement(nil, codec.FieldMatchStartTime, 1000),
		bsoncore.AppendDocumentElement(nil, codec.FieldPlayerScoreboards, boards),
	)

	res := New(Config{}).Parse(buf)
	assert.Equal(t, 2, res.Stats.Players)
	assert.Equal(t, 1, res.Stats.UnknownServers)
}

func TestEngine_ScoreboardAfterUnknownTagUsesFieldFallback(t *testing.T) {
	unknown := append([]byte{0x07}, "_x\x00"...)
	unknown = append(unknown, 0xAA)

	boards := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDocumentElement(nil, "Foo Gungnir", scoreboard(5, 2, 3, 100000)),
	)
	buf := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDateTimeElement(nil, codec.FieldMatchStartTime, 1000),
		unknown,
		bsoncore.AppendDocumentElement(nil, codec.FieldPlayerScoreboards, boards),
	)

	res := New(Config{}).Parse(buf)

	matches := res.Matches()
	require.Len(t, matches, 1)
	m := matches[0]
	assert.True(t, m.Partial)
	assert.Equal(t, match.SourceFallback, m.Source)
	assert.Equal(t, time.UnixMilli(1000).UTC(), m.StartTime)
	require.Len(t, m.Players, 1)
	assert.Equal(t, "Foo", m.Players[0].Name)
	assert.Equal(t, "Gungnir", m.Players[0].Server)
	assert.Equal(t, 1, res.Stats.DocumentFallbacks)
}

func TestEngine_DocumentWithOnlyUnreliableMarkersIsSkipped(t *testing.T) {
	unknown := append([]byte{0x07}, "_x\x00"...)
	unknown = append(unknown, 0xAA)
	doc := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendStringElement(nil, "pad", string(make([]byte, 120))),
		unknown,
		bsoncore.AppendInt32Element(nil, codec.FieldDutyID, 0xDEAD),
	)
	buf := append(headerPage(), doc...)
	buf = append(buf, make([]byte, 64)...)

	res := New(Config{}).Parse(buf)

	assert.Equal(t, 0, res.Stats.Documents)
	assert.Equal(t, 1, res.Stats.Extract.Invalid)
	assert.Empty(t, res.Matches())
	assert.True(t, res.Stats.BinaryFallback)
}

func TestEngine_HeaderMismatchIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := New(Config{Logger: zap.New(core)})

	res := e.Parse(append(make([]byte, 64), matchDoc(1000)...))

	assert.False(t, res.Header.Recognized)
	assert.Len(t, res.Matches(), 1)
	assert.Equal(t, 1, logs.FilterMessage("unexpected file header, scanning anyway").Len())
}

func TestEngine_DocumentFallback(t *testing.T) {
	blob := fieldRecord("Foo Gungnir", 4, 1, 9)
	doc := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt32Element(nil, codec.FieldDutyID, 1116),
		bsoncore.AppendStringElement(nil, "Blob", string(blob)),
	)
	buf := append(headerPage(), doc...)

	res := New(Config{}).Parse(buf)

	matches := res.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, match.SourceFallback, matches[0].Source)
	assert.Equal(t, int64(1116), matches[0].DutyID)
	require.Len(t, matches[0].Players, 1)
	assert.Equal(t, "Foo", matches[0].Players[0].Name)
	assert.Equal(t, int64(9), matches[0].Players[0].Assists)
	assert.Equal(t, 1, res.Stats.DocumentFallbacks)
}

func TestEngine_BinaryFallback(t *testing.T) {
	var buf []byte
	buf = append(buf, make([]byte, 300)...)
	buf = append(buf, codec.FieldMatchStartTime...)
	buf = append(buf, 0x00, 0x09)
	buf = binary.LittleEndian.AppendUint64(buf, 5000)
	buf = append(buf, codec.FieldPlayerScoreboards...)
	buf = append(buf, 0x00)
	buf = append(buf, fieldRecord("Foo Gungnir", 1, 2, 3)...)
	buf = append(buf, fieldRecord("Bar Moogle", 4, 5, 6)...)

	res := New(Config{}).Parse(buf)

	assert.True(t, res.Stats.BinaryFallback)
	matches := res.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, time.UnixMilli(5000).UTC(), matches[0].StartTime)
	assert.Len(t, matches[0].Players, 2)
	assert.Equal(t, 2, res.Stats.Players)
}

func TestEngine_GarbageYieldsEmptyCollection(t *testing.T) {
	res := New(Config{}).Parse(make([]byte, 4096))

	matches, ok := res.Collections[codec.CollectionFlMatch]
	assert.True(t, ok)
	assert.Empty(t, matches)
}

func TestEngine_ParseJSON(t *testing.T) {
	data := []byte("\xEF\xBB\xBF" + `{"flmatch": [{"MatchStartTime": "2025-12-07T06:48:01Z", "Players": [{"key": "Foo Bar Gungnir", "kills": 5, "team": 1}]}]}`)

	res, err := New(Config{}).ParseJSON(data)
	require.NoError(t, err)

	matches := res.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, "Foo Bar", matches[0].Players[0].Name)
	assert.Equal(t, match.TeamAdders, matches[0].Players[0].Team)
	assert.Equal(t, 1, res.Stats.Players)

	_, err = New(Config{}).ParseJSON([]byte(`{"ccmatch": []}`))
	assert.ErrorIs(t, err, match.ErrNoMatchArray)
}

func TestEngine_Load(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "data.json")
	dbPath := filepath.Join(dir, "data.db")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"flmatch": [{"Players": []}]}`), 0o600))
	require.NoError(t, os.WriteFile(dbPath, append(headerPage(), matchDoc(1000)...), 0o600))

	e := New(Config{Loader: loader.New(loader.Config{})})

	res, err := e.Load(context.Background(), jsonPath)
	require.NoError(t, err)
	assert.Len(t, res.Matches(), 1)
	assert.Equal(t, match.SourceJSON, res.Matches()[0].Source)

	res, err = e.Load(context.Background(), dbPath)
	require.NoError(t, err)
	assert.Len(t, res.Matches(), 1)
	assert.True(t, res.Header.Recognized)

	_, err = e.Load(context.Background(), filepath.Join(dir, "missing.db"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadHeader(t *testing.T) {
	h := ReadHeader([]byte{0x00, 'a', 0x01})
	assert.False(t, h.Recognized)
	assert.Equal(t, `"\x00a\x01"`, h.Signature)
	assert.Equal(t, 3, h.Size)

	h = ReadHeader(nil)
	assert.False(t, h.Recognized)
	assert.Equal(t, 0, h.Size)
}

func TestNewHeaderPage(t *testing.T) {
	h := ReadHeader(NewHeaderPage(4096, 5))
	assert.True(t, h.Recognized)
	assert.Equal(t, 5, h.Version)
	assert.Equal(t, 4096, h.Size)

	// Too small for the banner: grown to fit.
	h = ReadHeader(NewHeaderPage(0, 8))
	assert.True(t, h.Recognized)
	assert.Equal(t, 8, h.Version)
}
