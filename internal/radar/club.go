package radar

import (
	"math"
	"regexp"
	"strings"
)

// Benchmark is a reference club speed (mph) and carry (yards).
type Benchmark struct {
	Club  string
	Speed float64
	Carry float64
}

// PGABenchmarks holds tour-average club speed and carry per club.
var PGABenchmarks = []Benchmark{
	{Club: "Driver", Speed: 113, Carry: 275},
	{Club: "3 Wood", Speed: 107, Carry: 243},
	{Club: "5 Wood", Speed: 103, Carry: 230},
	{Club: "Hybrid", Speed: 100, Carry: 225},
	{Club: "3 Iron", Speed: 98, Carry: 212},
	{Club: "4 Iron", Speed: 96, Carry: 203},
	{Club: "5 Iron", Speed: 94, Carry: 194},
	{Club: "6 Iron", Speed: 92, Carry: 183},
	{Club: "7 Iron", Speed: 90, Carry: 172},
	{Club: "8 Iron", Speed: 87, Carry: 160},
	{Club: "9 Iron", Speed: 85, Carry: 148},
	{Club: "PW", Speed: 83, Carry: 136},
}

// labelOverrideMargin is how much better the inferred club must score before
// it replaces a club the printout names explicitly.
const labelOverrideMargin = 0.2

var clubAliases = map[string]string{
	"driver":         "Driver",
	"dr":             "Driver",
	"1w":             "Driver",
	"1 w":            "Driver",
	"bois 1":         "Driver",
	"3w":             "3 Wood",
	"3 w":            "3 Wood",
	"3 wood":         "3 Wood",
	"bois 3":         "3 Wood",
	"5w":             "5 Wood",
	"5 w":            "5 Wood",
	"5 wood":         "5 Wood",
	"bois 5":         "5 Wood",
	"hybrid":         "Hybrid",
	"hybride":        "Hybrid",
	"rescue":         "Hybrid",
	"pw":             "PW",
	"pitch":          "PW",
	"pitching wedge": "PW",
	"gw":             "GW",
	"aw":             "GW",
	"gap":            "GW",
	"sw":             "SW",
	"sand":           "SW",
	"sand wedge":     "SW",
	"lw":             "LW",
	"lob":            "LW",
}

var ironRe = regexp.MustCompile(`^(?:([3-9])\s*(?:i|iron|fer)|(?:iron|fer)\s*([3-9]))$`)

// NormalizeClubLabel maps common club spellings to a canonical club name.
// Unrecognized labels are returned trimmed.
func NormalizeClubLabel(label string) string {
	tok := NormalizeToken(label)
	if tok == "" {
		return strings.TrimSpace(label)
	}
	if club, ok := clubAliases[tok]; ok {
		return club
	}
	if m := ironRe.FindStringSubmatch(tok); m != nil {
		n := m[1]
		if n == "" {
			n = m[2]
		}
		return n + " Iron"
	}
	return strings.TrimSpace(label)
}

// ClubEvidence is the aggregate session data used to infer a club.
type ClubEvidence struct {
	ClubSpeed    *float64
	SpeedUnit    string
	Carry        *float64
	DistanceUnit string
}

// ScoreBenchmark averages the normalized speed and carry gaps between the
// evidence (already in mph/yards) and a benchmark. It reports false when the
// evidence carries neither value.
func ScoreBenchmark(b Benchmark, speedMph, carryYds *float64) (float64, bool) {
	var sum float64
	var n int
	if speedMph != nil {
		sum += math.Abs(*speedMph-b.Speed) / 12
		n++
	}
	if carryYds != nil {
		sum += math.Abs(*carryYds-b.Carry) / 20
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// ClubResolution is the resolved club and where it came from.
type ClubResolution struct {
	Club     string   `json:"club"`
	Source   string   `json:"source"` // "label" or "inferred"
	Label    string   `json:"label,omitempty"`
	Inferred string   `json:"inferred,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// ResolveClubFromAnalytics picks the club from the printed label and the
// session's mean club speed and carry. The stated label wins unless the
// inferred club scores better by more than labelOverrideMargin. It returns nil
// when there is neither a label nor any evidence.
func ResolveClubFromAnalytics(label string, ev ClubEvidence) *ClubResolution {
	normalized := ""
	if strings.TrimSpace(label) != "" {
		normalized = NormalizeClubLabel(label)
	}

	speed := ToMph(ev.ClubSpeed, ev.SpeedUnit)
	carry := ToYards(ev.Carry, ev.DistanceUnit)

	var best *Benchmark
	bestScore := math.Inf(1)
	normalizedScore := math.Inf(1)
	benchmarked := false
	for i := range PGABenchmarks {
		b := &PGABenchmarks[i]
		score, ok := ScoreBenchmark(*b, speed, carry)
		if !ok {
			break
		}
		if score < bestScore {
			best, bestScore = b, score
		}
		if b.Club == normalized {
			normalizedScore, benchmarked = score, true
		}
	}

	switch {
	case best == nil && normalized == "":
		return nil
	case best == nil:
		return &ClubResolution{Club: normalized, Source: "label", Label: normalized}
	case normalized == "":
		return &ClubResolution{Club: best.Club, Source: "inferred", Inferred: best.Club, Score: ptr(Round2(bestScore))}
	case benchmarked && bestScore+labelOverrideMargin < normalizedScore:
		return &ClubResolution{Club: best.Club, Source: "inferred", Label: normalized, Inferred: best.Club, Score: ptr(Round2(bestScore))}
	default:
		return &ClubResolution{Club: normalized, Source: "label", Label: normalized, Inferred: best.Club, Score: ptr(Round2(bestScore))}
	}
}
