package codec

import (
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

func benchmarkMatchDocument(players int) []byte {
	boards := make([][]byte, 0, players)
	for i := 0; i < players; i++ {
		board := bsoncore.BuildDocumentFromElements(nil,
			bsoncore.AppendInt32Element(nil, FieldKills, int32(i%7)),
			bsoncore.AppendInt32Element(nil, FieldDeaths, int32(i%5)),
			bsoncore.AppendInt32Element(nil, FieldAssists, int32(i%11)),
			bsoncore.AppendInt64Element(nil, FieldDamageDealt, int64(i)*1000),
		)
		boards = append(boards, bsoncore.AppendDocumentElement(nil, fmt.Sprintf("Player%d Gungnir", i), board))
	}

	return bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendDateTimeElement(nil, FieldMatchStartTime, 1733554081653),
		bsoncore.AppendInt32Element(nil, FieldDutyID, 1116),
		bsoncore.AppendDocumentElement(nil, FieldPlayerScoreboards, bsoncore.BuildDocumentFromElements(nil, boards...)),
	)
}

func BenchmarkDocumentCodec_Decode(b *testing.B) {
	c := NewDocumentCodec()

	for _, players := range []int{1, 24, 72} {
		data := benchmarkMatchDocument(players)
		b.Run(fmt.Sprintf("players-%d", players), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := c.Decode(data, 0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
