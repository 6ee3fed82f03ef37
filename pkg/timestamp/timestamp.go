// Package timestamp normalizes the different ways a match start time is
// stored into a single UTC time.
package timestamp

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ssargent/pvpobserver/pkg/codec"
)

// Epoch is returned for any input that cannot be parsed.
var Epoch = time.UnixMilli(0).UTC()

var (
	wrappedISO     = regexp.MustCompile(`"?\$date"?\s*:\s*"([^"]+)"`)
	wrappedNumeric = regexp.MustCompile(`"?\$date"?\s*:\s*\{?\s*(?:"\$numberLong"\s*:\s*)?"?(-?\d+)"?`)
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse converts raw into a UTC time. Recognized forms, tried in order:
// a wrapped {"$date": ...} value, a plain ISO-8601 string, and a native
// time or number of milliseconds since the epoch. Parse never fails; any
// other input yields Epoch.
func Parse(raw any) time.Time {
	switch v := raw.(type) {
	case nil:
		return Epoch
	case string:
		return parseString(v)
	case map[string]any:
		if inner, ok := v["$date"]; ok {
			return Parse(inner)
		}
		if inner, ok := v["$numberLong"]; ok {
			return Parse(inner)
		}
		return Epoch
	case time.Time:
		if v.IsZero() {
			return Epoch
		}
		return v.UTC()
	case *time.Time:
		if v == nil {
			return Epoch
		}
		return Parse(*v)
	case codec.Value:
		return parseValue(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.UnixMilli(n).UTC()
		}
		if f, err := v.Float64(); err == nil {
			return fromFloat(f)
		}
		return Epoch
	case int:
		return time.UnixMilli(int64(v)).UTC()
	case int32:
		return time.UnixMilli(int64(v)).UTC()
	case int64:
		return time.UnixMilli(v).UTC()
	case float64:
		return fromFloat(v)
	default:
		return Epoch
	}
}

// IsEpoch reports whether t is the unparseable sentinel.
func IsEpoch(t time.Time) bool {
	return t.Equal(Epoch)
}

func parseString(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return Epoch
	}

	if strings.Contains(s, "$date") {
		if m := wrappedISO.FindStringSubmatch(s); m != nil {
			if t, ok := parseISO(m[1]); ok {
				return t
			}
		}
		if m := wrappedNumeric.FindStringSubmatch(s); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return time.UnixMilli(n).UTC()
			}
		}
	}

	if t, ok := parseISO(s); ok {
		return t
	}
	return Epoch
}

func parseISO(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseValue(v codec.Value) time.Time {
	switch v.Type {
	case codec.TypeDateTime:
		t, _ := v.Time()
		return t
	case codec.TypeString:
		return parseString(v.Str)
	case codec.TypeEmbeddedDocument:
		if inner, ok := v.Doc.Get("$date"); ok {
			return parseValue(inner)
		}
		return Epoch
	default:
		if n, ok := v.Int64(); ok {
			return time.UnixMilli(n).UTC()
		}
		return Epoch
	}
}

func fromFloat(f float64) time.Time {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Epoch
	}
	return time.UnixMilli(int64(f)).UTC()
}
