package match

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitKey(t *testing.T) {
	testCases := []struct {
		key        string
		wantName   string
		wantServer string
	}{
		{"Foo Bar Gungnir", "Foo Bar", "Gungnir"},
		{"Foo Gungnir", "Foo", "Gungnir"},
		{"  Foo   Bar\tGungnir ", "Foo Bar", "Gungnir"},
		{"Solo", "Solo", "Solo"},
		{"", "Unknown", "Unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			name, server := SplitKey(tc.key)
			assert.Equal(t, tc.wantName, name)
			assert.Equal(t, tc.wantServer, server)
		})
	}
}

func TestNormalizeTeam(t *testing.T) {
	testCases := []struct {
		name     string
		team     any
		alliance any
		want     string
	}{
		{"code 0", 0, nil, TeamMaelstrom},
		{"code 1", 1, nil, TeamAdders},
		{"code 2", 2, nil, TeamFlames},
		{"json number", json.Number("1"), nil, TeamAdders},
		{"float code", float64(2), nil, TeamFlames},
		{"canonical Maelstrom", "Maelstrom", nil, TeamMaelstrom},
		{"canonical Adders", "Adders", nil, TeamAdders},
		{"canonical Flames", "Flames", nil, TeamFlames},
		{"alliance when team missing", nil, 1, TeamAdders},
		{"alliance when team is a string", "Unaligned", 2, TeamFlames},
		{"numeric team wins over alliance", 0, 2, TeamMaelstrom},
		{"unrecognized string passes through", "Immortal Flames", nil, "Immortal Flames"},
		{"unrecognized code passes through", 7, nil, "7"},
		{"missing", nil, nil, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeTeam(tc.team, tc.alliance))
		})
	}
}

func TestNormalizeJSON(t *testing.T) {
	data := []byte(`{
		"flmatch": [
			{
				"MatchStartTime": "{\"$date\":\"2025-12-07T06:48:01.6530000Z\"}",
				"DutyId": 1116,
				"Players": [
					{"key": "Foo Bar Gungnir", "kills": 5, "deaths": 2, "assists": 3, "damage": 123456, "job": "PLD", "team": 1},
					{"key": "Baz Tonberry", "alliance": 2},
					{"key": "Neg Atomos", "kills": -4, "deaths": "x"}
				]
			},
			{"MatchStartTime": "2025-12-06T10:00:00Z"}
		]
	}`)

	matches, err := NormalizeJSON(data)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	first := matches[0]
	assert.Equal(t, time.Date(2025, 12, 7, 6, 48, 1, 653000000, time.UTC), first.StartTime)
	assert.Equal(t, int64(1116), first.DutyID)
	assert.Equal(t, SourceJSON, first.Source)
	assert.Equal(t, -1, first.Offset)
	require.Len(t, first.Players, 3)

	assert.Equal(t, PlayerRecord{
		Name: "Foo Bar", Server: "Gungnir",
		Kills: 5, Deaths: 2, Assists: 3, Damage: 123456,
		Job: "PLD", Team: TeamAdders,
	}, first.Players[0])

	assert.Equal(t, PlayerRecord{Name: "Baz", Server: "Tonberry", Team: TeamFlames}, first.Players[1])

	assert.Equal(t, int64(0), first.Players[2].Kills)
	assert.Equal(t, int64(0), first.Players[2].Deaths)

	assert.Empty(t, matches[1].Players)
	assert.Equal(t, time.Date(2025, 12, 6, 10, 0, 0, 0, time.UTC), matches[1].StartTime)
}

func TestNormalizeJSON_Errors(t *testing.T) {
	_, err := NormalizeJSON([]byte(`{"ccmatch": []}`))
	assert.ErrorIs(t, err, ErrNoMatchArray)

	_, err = NormalizeJSON([]byte(`{"flmatch": `))
	assert.Error(t, err)

	_, err = NormalizeJSON([]byte(`{"flmatch": {"not": "an array"}}`))
	assert.Error(t, err)
}

func TestPlayerRecord_Key(t *testing.T) {
	assert.Equal(t, "Foo@Gungnir", PlayerRecord{Name: "Foo", Server: "Gungnir"}.Key())
	assert.Equal(t, "Foo@Unknown", PlayerRecord{Name: "Foo"}.Key())
}
