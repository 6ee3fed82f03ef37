package recovery

import (
	"fmt"
	"regexp"
	"strings"
)

// ServerNames is the dictionary of home-world names used to recognize
// "<name> <server>" text. Lookup walks it in order and the first entry that
// matches wins, so the order is part of the behavior.
var ServerNames = []string{
	"Moogle", "Chocobo", "Tonberry", "Alexander", "Bahamut", "Titan",
	"Carbuncle", "Fenrir", "Ultima", "Kujata", "Typhon", "Garuda",
	"Atomos", "Ixion", "Ramuh", "Mandragora", "Asura", "Pandaemonium",
	"Shinryu", "Gungnir", "Masamune", "Hades", "Anima", "Valefor",
	"Yojimbo", "Zeromus", "Ridill", "Durandal", "Aegis", "Tiamat",
	"Unicorn", "Belias", "Ifrit",
}

type serverPattern struct {
	name string
	re   *regexp.Regexp
}

var serverPatterns = compileServerPatterns(ServerNames)

func compileServerPatterns(names []string) []serverPattern {
	out := make([]serverPattern, len(names))
	for i, n := range names {
		out[i] = serverPattern{
			name: n,
			re:   regexp.MustCompile(fmt.Sprintf(`(?i)([A-Za-z']+)\s+(%s)`, regexp.QuoteMeta(n))),
		}
	}
	return out
}

// MatchServerName looks for "<word> <server>" in text for each dictionary
// entry in order and returns the word and the dictionary spelling of the
// first server that matches.
func MatchServerName(text string) (name, server string, ok bool) {
	for _, p := range serverPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return m[1], p.name, true
	}
	return "", "", false
}

// IsKnownServer reports whether s names a dictionary server, ignoring case.
func IsKnownServer(s string) bool {
	for _, n := range ServerNames {
		if strings.EqualFold(n, s) {
			return true
		}
	}
	return false
}
