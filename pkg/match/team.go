package match

import "fmt"

// Localized faction names.
const (
	TeamMaelstrom = "黑渦團"
	TeamAdders    = "雙蛇黨"
	TeamFlames    = "恆輝隊"
)

type teamEntry struct {
	code      int
	canonical string
	localized string
}

var teamTable = []teamEntry{
	{0, "Maelstrom", TeamMaelstrom},
	{1, "Adders", TeamAdders},
	{2, "Flames", TeamFlames},
}

// NormalizeTeam maps a numeric team code or a canonical English faction name
// to the localized faction name. alliance is consulted only when team is not
// numeric. Unresolved values pass through unchanged and nil yields "".
func NormalizeTeam(team, alliance any) string {
	code, ok := asCode(team)
	if !ok {
		code, ok = asCode(alliance)
	}
	name, isName := team.(string)

	for _, e := range teamTable {
		if (ok && code == e.code) || (isName && name == e.canonical) {
			return e.localized
		}
	}

	if team == nil {
		return ""
	}
	if isName {
		return name
	}
	return fmt.Sprint(team)
}

func asCode(v any) (int, bool) {
	n, ok := asInt64(v)
	if !ok {
		return 0, false
	}
	return int(n), true
}
