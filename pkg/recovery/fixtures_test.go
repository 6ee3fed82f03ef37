package recovery

import (
	"encoding/binary"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/ssargent/pvpobserver/pkg/codec"
)

// fieldRecord lays out one scoreboard the way the field-level extractor
// reads it: each name is followed by a NUL, one type byte and the value.
func fieldRecord(name string, kills, deaths, assists int32, damage int64) []byte {
	var b []byte
	b = append(b, make([]byte, 160)...)
	b = append(b, 0x02)
	b = append(b, name...)
	b = append(b, 0x00)
	b = appendInt32Field(b, codec.FieldKills, kills)
	b = appendInt32Field(b, codec.FieldDeaths, deaths)
	b = appendInt32Field(b, codec.FieldAssists, assists)
	b = append(b, codec.FieldDamageDealt...)
	b = append(b, 0x00, 0x12)
	b = binary.LittleEndian.AppendUint64(b, uint64(damage))
	return b
}

func appendInt32Field(b []byte, name string, v int32) []byte {
	b = append(b, name...)
	b = append(b, 0x00, 0x10)
	return binary.LittleEndian.AppendUint32(b, uint32(v))
}

func scoreboardDoc(kills, deaths, assists int32, damage int64) []byte {
	return bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt32Element(nil, codec.FieldKills, kills),
		bsoncore.AppendInt32Element(nil, codec.FieldDeaths, deaths),
		bsoncore.AppendInt32Element(nil, codec.FieldAssists, assists),
		bsoncore.AppendInt64Element(nil, codec.FieldDamageDealt, damage),
	)
}

// matchDoc builds a match document large enough to pass the document start
// heuristics.
func matchDoc(startMillis int64, dutyID int32) []byte {
	boards := bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDocumentElement(nil, "Foo Gungnir", scoreboardDoc(5, 2, 3, 100000)),
		bsoncore.AppendDocumentElement(nil, "Bar Tonberry", scoreboardDoc(1, 4, 7, 80000)),
	)
	return bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDateTimeElement(nil, codec.FieldMatchStartTime, startMillis),
		bsoncore.AppendInt32Element(nil, codec.FieldDutyID, dutyID),
		bsoncore.AppendDocumentElement(nil, codec.FieldPlayerScoreboards, boards),
	)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
