package match

import (
	"testing"
	"time"

	"github.com/ssargent/pvpobserver/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

func decode(t *testing.T, data []byte) *codec.Document {
	t.Helper()
	doc, err := codec.DecodeDocument(data, 0)
	require.NoError(t, err)
	return doc
}

func scoreboard(kills, deaths, assists int32, damage int64) []byte {
	return bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt32Element(nil, codec.FieldKills, kills),
		bsoncore.AppendInt32Element(nil, codec.FieldDeaths, deaths),
		bsoncore.AppendInt32Element(nil, codec.FieldAssists, assists),
		bsoncore.AppendInt64Element(nil, codec.FieldDamageDealt, damage),
	)
}

func TestFromDocument_SingleScoreboard(t *testing.T) {
	board := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt32Element(nil, codec.FieldKills, 5),
		bsoncore.AppendInt32Element(nil, codec.FieldDeaths, 2),
		bsoncore.AppendInt32Element(nil, codec.FieldAssists, 3),
	)
	data := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDateTimeElement(nil, codec.FieldMatchStartTime, 1000),
		bsoncore.AppendDocumentElement(nil, codec.FieldPlayerScoreboards, board),
	)

	rec := FromDocument(decode(t, data))

	assert.Equal(t, time.UnixMilli(1000).UTC(), rec.StartTime)
	assert.Equal(t, SourceDocument, rec.Source)
	assert.False(t, rec.Partial)
	require.Len(t, rec.Players, 1)
	assert.Equal(t, int64(5), rec.Players[0].Kills)
	assert.Equal(t, int64(2), rec.Players[0].Deaths)
	assert.Equal(t, int64(3), rec.Players[0].Assists)
	assert.Nil(t, rec.Extra)
}

func TestFromDocument_DropsFieldsAfterUnknownTag(t *testing.T) {
	unknown := append([]byte{0x07}, "_x\x00"...)
	unknown = append(unknown, 0xAA)

	data := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDateTimeElement(nil, codec.FieldMatchStartTime, 1000),
		bsoncore.AppendInt32Element(nil, codec.FieldDutyID, 1116),
		bsoncore.AppendStringElement(nil, "Note", "kept"),
		unknown,
		bsoncore.AppendDocumentElement(nil, codec.FieldPlayerScoreboards, bsoncore.BuildDocumentFromElements(nil,
			bsoncore.AppendDocumentElement(nil, "Foo Gungnir", scoreboard(5, 2, 3, 100000)),
		)),
		bsoncore.AppendStringElement(nil, "Comment", "dropped"),
	)

	doc := decode(t, data)
	require.True(t, doc.Desynced())
	rec := FromDocument(doc)

	assert.True(t, rec.Partial)
	assert.Equal(t, time.UnixMilli(1000).UTC(), rec.StartTime)
	assert.Equal(t, int64(1116), rec.DutyID)
	assert.Empty(t, rec.Players)
	assert.Equal(t, map[string]any{"Note": "kept"}, rec.Extra)
}

func TestFromDocument_KeyedScoreboardsAndRoster(t *testing.T) {
	boards := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDocumentElement(nil, "Foo Bar Gungnir", scoreboard(5, 2, 3, 100000)),
		bsoncore.AppendDocumentElement(nil, "Baz Tonberry", scoreboard(1, -3, 0, 50)),
	)
	roster := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDocumentElement(nil, "0", bsoncore.BuildDocumentFromElements(nil,
			bsoncore.AppendStringElement(nil, "Name", "Foo Bar"),
			bsoncore.AppendStringElement(nil, "HomeWorld", "Gungnir"),
			bsoncore.AppendStringElement(nil, "Job", "WHM"),
			bsoncore.AppendInt32Element(nil, "Team", 2),
		)),
		bsoncore.AppendDocumentElement(nil, "1", bsoncore.BuildDocumentFromElements(nil,
			bsoncore.AppendStringElement(nil, "Name", "Baz"),
			bsoncore.AppendStringElement(nil, "Team", "Maelstrom"),
		)),
	)
	data := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendStringElement(nil, "_id", "abc"),
		bsoncore.AppendStringElement(nil, codec.FieldMatchStartTime, "2025-12-07T06:48:01Z"),
		bsoncore.AppendInt32Element(nil, codec.FieldDutyID, 1116),
		bsoncore.AppendDocumentElement(nil, codec.FieldPlayerScoreboards, boards),
		bsoncore.AppendArrayElement(nil, codec.FieldPlayers, roster),
		bsoncore.AppendBooleanElement(nil, "IsCompleted", true),
	)

	rec := FromDocument(decode(t, data))

	assert.Equal(t, time.Date(2025, 12, 7, 6, 48, 1, 0, time.UTC), rec.StartTime)
	assert.Equal(t, int64(1116), rec.DutyID)
	require.Len(t, rec.Players, 2)

	assert.Equal(t, PlayerRecord{
		Name: "Foo Bar", Server: "Gungnir",
		Kills: 5, Deaths: 2, Assists: 3, Damage: 100000,
		Job: "WHM", Team: TeamFlames,
	}, rec.Players[0])

	baz := rec.Players[1]
	assert.Equal(t, "Baz", baz.Name)
	assert.Equal(t, "Tonberry", baz.Server)
	assert.Equal(t, int64(0), baz.Deaths, "negative counters are clamped")
	assert.Equal(t, TeamMaelstrom, baz.Team)

	assert.Equal(t, map[string]any{"_id": "abc", "IsCompleted": true}, rec.Extra)
}

func TestFromDocument_RosterOnly(t *testing.T) {
	roster := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDocumentElement(nil, "0", bsoncore.BuildDocumentFromElements(nil,
			bsoncore.AppendStringElement(nil, "key", "Foo Gungnir"),
			bsoncore.AppendInt32Element(nil, "kills", 4),
			bsoncore.AppendInt32Element(nil, "alliance", 0),
		)),
	)
	data := bsoncore.BuildDocumentFromElements(nil, bsoncore.AppendArrayElement(nil, codec.FieldPlayers, roster))

	rec := FromDocument(decode(t, data))

	require.Len(t, rec.Players, 1)
	assert.Equal(t, "Foo", rec.Players[0].Name)
	assert.Equal(t, "Gungnir", rec.Players[0].Server)
	assert.Equal(t, int64(4), rec.Players[0].Kills)
	assert.Equal(t, TeamMaelstrom, rec.Players[0].Team)
	assert.True(t, rec.StartTime.Equal(time.UnixMilli(0)))
}

func TestFromDocument_PlayerCap(t *testing.T) {
	elems := make([][]byte, 0, MaxPlayersPerMatch+10)
	for i := 0; i < MaxPlayersPerMatch+10; i++ {
		elems = append(elems, bsoncore.AppendDocumentElement(nil, string(rune('A'+i%26))+" X"+string(rune('a'+i/26)), scoreboard(1, 1, 1, 1)))
	}
	data := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDocumentElement(nil, codec.FieldPlayerScoreboards, bsoncore.BuildDocumentFromElements(nil, elems...)),
	)

	rec := FromDocument(decode(t, data))
	assert.Len(t, rec.Players, MaxPlayersPerMatch)
}
