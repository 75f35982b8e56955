// Package radar turns raw radar printout cells and headers into typed, keyed shot data.
package radar

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// IndexKey is the canonical key of the shot-number column.
const IndexKey = "shot_index"

// NormalizeToken lowercases s, strips diacritics, collapses every run of
// non-alphanumeric characters into a single space and trims the result.
func NormalizeToken(s string) string {
	lower := strings.ToLower(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, lower)
	if err != nil {
		stripped = lower
	}

	var b strings.Builder
	pendingSpace := false
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// KnownColumns maps normalized "group:label" headers printed by Flightscope and
// Trackman exports to canonical keys. An empty group matches headers printed
// without a group row.
var KnownColumns = map[string]string{
	"distance:carry":    "distance_carry",
	"distance:total":    "distance_total",
	"distance:side":     "distance_side",
	"distance:lateral":  "distance_side",
	"distance:roll":     "distance_roll",
	"ball:speed":        "ball_speed",
	"ball:spin":         "spin_rate",
	"club:speed":        "club_speed",
	"club:path":         "club_path",
	"club:face":         "face_angle",
	"club:face to path": "face_to_path",
	"club:aoa":          "attack_angle",
	"club:attack angle": "attack_angle",
	"club:dynamic loft": "dynamic_loft",
	"club:spin loft":    "spin_loft",
	"launch:v":          "launch_angle",
	"launch:angle":      "launch_angle",
	"launch:h":          "launch_direction",
	"launch:direction":  "launch_direction",
	"spin:rate":         "spin_rate",
	"spin:axis":         "spin_axis",
	"flight:height":     "apex_height",
	"flight:apex":       "apex_height",
	"flight:land angle": "landing_angle",
	"flight:hang time":  "hang_time",
	":smash":            "smash_factor",
	":smash factor":     "smash_factor",
	":smash fac":        "smash_factor",
	":club speed":       "club_speed",
	":ball speed":       "ball_speed",
	":launch ang":       "launch_angle",
	":launch angle":     "launch_angle",
	":launch dir":       "launch_direction",
	":attack ang":       "attack_angle",
	":club path":        "club_path",
	":face ang":         "face_angle",
	":face to path":     "face_to_path",
	":dyn loft":         "dynamic_loft",
	":spin rate":        "spin_rate",
	":spin axis":        "spin_axis",
	":carry":            "distance_carry",
	":total":            "distance_total",
	":side":             "distance_side",
	":height":           "apex_height",
	":land ang":         "landing_angle",
	":shot":             IndexKey,
	":shot no":          IndexKey,
	":no":               IndexKey,
	":n":                IndexKey,
	":coup":             IndexKey,
}

// BuildKey resolves one printed column header to its canonical key using
// KnownColumns, falling back to a slug of group and label.
func BuildKey(group, label string) string {
	return buildKey(KnownColumns, group, label)
}

func buildKey(table map[string]string, group, label string) string {
	if strings.TrimSpace(label) == "#" {
		return IndexKey
	}
	g := NormalizeToken(group)
	l := NormalizeToken(label)
	if key, ok := table[g+":"+l]; ok {
		return key
	}
	if key, ok := table[":"+l]; ok {
		return key
	}

	slug := strings.Trim(strings.ReplaceAll(g+"_"+l, " ", "_"), "_")
	if slug == "" {
		return "col_value"
	}
	return slug
}

// NormalizeColumns keys every column and suffixes repeated keys with _2, _3, ...
// so that keys are unique within the set.
func NormalizeColumns(cols []RadarColumn) []NormalizedColumn {
	out := make([]NormalizedColumn, 0, len(cols))
	used := make(map[string]bool, len(cols))
	for _, c := range cols {
		base := BuildKey(deref(c.Group), c.Label)
		key := base
		for n := 2; used[key]; n++ {
			key = base + "_" + strconv.Itoa(n)
		}
		used[key] = true
		out = append(out, NormalizedColumn{Group: c.Group, Label: c.Label, Unit: c.Unit, Key: key})
	}
	return out
}

var directionalRe = regexp.MustCompile(`^(-?\d+(?:[.,]\d+)?)\s*([LR])$`)

var nonNumericRe = regexp.MustCompile(`[^0-9.\-]`)

// ParseCellValue converts one raw cell into a float64, nil for empty cells, or
// the trimmed string when no number can be read from it.
func ParseCellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case float32:
		return ParseCellValue(float64(val))
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return ParseCellValue(f)
		}
		return ParseCellValue(val.String())
	case string:
		return parseCellString(val)
	default:
		return nil
	}
}

func parseCellString(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "-" {
		return nil
	}

	if m := directionalRe.FindStringSubmatch(strings.ToUpper(trimmed)); m != nil {
		n, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err == nil {
			n = math.Abs(n)
			if m[2] == "L" {
				return -n
			}
			return n
		}
	}

	// commas outside a directional cell are thousands separators
	cleaned := nonNumericRe.ReplaceAllString(trimmed, "")
	if cleaned != "" && cleaned != "-" && cleaned != "." {
		if n, err := strconv.ParseFloat(cleaned, 64); err == nil && !math.IsInf(n, 0) {
			return n
		}
	}
	return trimmed
}

// NumericCell returns the cell as a float pointer, or nil when it is not numeric.
func NumericCell(v any) *float64 {
	if f, ok := ParseCellValue(v).(float64); ok {
		return &f
	}
	return nil
}

// NormalizeUnit reduces a printed unit to one of mph, km/h, m/s, yd, m, ft,
// or returns it lowercased and trimmed when unknown.
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.Trim(u, "()[] ")
	switch strings.ReplaceAll(u, " ", "") {
	case "mph", "mi/h":
		return "mph"
	case "km/h", "kmh", "kph", "km/hr":
		return "km/h"
	case "m/s", "mps":
		return "m/s"
	case "yd", "yds", "yard", "yards", "y":
		return "yd"
	case "m", "meter", "meters", "metre", "metres", "mètres", "mètre":
		return "m"
	case "ft", "feet", "foot", "pieds":
		return "ft"
	}
	return u
}

// ToMph converts a speed to miles per hour. Unknown or already-mph units pass through.
func ToMph(v *float64, unit string) *float64 {
	if v == nil {
		return nil
	}
	var out float64
	switch NormalizeUnit(unit) {
	case "km/h":
		out = *v * (1 / 1.60934)
	case "m/s":
		out = *v * 2.23694
	default:
		out = *v
	}
	return &out
}

// ToYards converts a distance to yards. Unknown or already-yard units pass through.
func ToYards(v *float64, unit string) *float64 {
	if v == nil {
		return nil
	}
	var out float64
	switch NormalizeUnit(unit) {
	case "m":
		out = *v * 1.09361
	case "ft":
		out = *v / 3
	default:
		out = *v
	}
	return &out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
