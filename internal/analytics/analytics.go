// Package analytics derives session-level statistics, units and the club from
// an assembled radar table.
package analytics

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/swingdesk/radar-service/internal/radar"
)

// Input is what the engine consumes for one tabular extraction.
type Input struct {
	Columns  []radar.NormalizedColumn
	Shots    []radar.Shot
	Stats    radar.Stats
	Config   map[string]any
	Metadata radar.Metadata
}

// ColumnStats summarizes one data column across the session.
type ColumnStats struct {
	Label  string   `json:"label"`
	Unit   *string  `json:"unit"`
	Mean   *float64 `json:"mean"`
	StdDev *float64 `json:"stdDev"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Count  int      `json:"count"`
}

// Units are the unit systems the session was recorded in.
type Units struct {
	Speed    string `json:"speed"`
	Distance string `json:"distance"`
}

// Meta is the resolved session context.
type Meta struct {
	Club      *radar.ClubResolution `json:"club"`
	Units     Units                 `json:"units"`
	ShotCount int                   `json:"shotCount"`
}

// Result is persisted in radar_files.analytics.
type Result struct {
	Summary     string                 `json:"summary"`
	Meta        Meta                   `json:"meta"`
	GlobalStats map[string]ColumnStats `json:"globalStats"`
}

// Engine analyzes an assembled table.
type Engine interface {
	Analyze(ctx context.Context, in Input) (*Result, error)
}

// Local computes analytics in-process.
type Local struct{}

func (Local) Analyze(_ context.Context, in Input) (*Result, error) {
	global := GlobalStats(in.Columns, in.Shots)
	units := ResolveUnits(in.Columns, in.Metadata)

	clubLabel := ""
	if in.Metadata.Club != nil {
		clubLabel = *in.Metadata.Club
	}
	club := radar.ResolveClubFromAnalytics(clubLabel, radar.ClubEvidence{
		ClubSpeed:    mean(in.Stats, global, "club_speed"),
		SpeedUnit:    units.Speed,
		Carry:        mean(in.Stats, global, "distance_carry"),
		DistanceUnit: units.Distance,
	})

	meta := Meta{Club: club, Units: units, ShotCount: len(in.Shots)}
	return &Result{
		Summary:     Summarize(meta, in.Stats, global),
		Meta:        meta,
		GlobalStats: global,
	}, nil
}

// GlobalStats computes mean, population standard deviation, min, max and
// count of numeric values for every non-index column.
func GlobalStats(cols []radar.NormalizedColumn, shots []radar.Shot) map[string]ColumnStats {
	out := make(map[string]ColumnStats, len(cols))
	for _, c := range cols {
		if c.Key == radar.IndexKey {
			continue
		}
		cs := ColumnStats{Label: c.Label, Unit: c.Unit}
		lo, hi := math.Inf(1), math.Inf(-1)
		var vals []float64
		for _, s := range shots {
			v := s.Values[c.Key]
			if v == nil {
				continue
			}
			vals = append(vals, *v)
			lo = math.Min(lo, *v)
			hi = math.Max(hi, *v)
		}
		cs.Count = len(vals)
		if cs.Count > 0 {
			mean, dev := radar.MeanStdDev(vals)
			cs.Mean = round(mean)
			cs.StdDev = round(dev)
			cs.Min = round(lo)
			cs.Max = round(hi)
		}
		out[c.Key] = cs
	}
	return out
}

// ResolveUnits prefers the units printed in the header, then the units of the
// club speed and carry columns, then any speed or distance column.
func ResolveUnits(cols []radar.NormalizedColumn, md radar.Metadata) Units {
	u := Units{Speed: unitOf(md.SpeedUnit), Distance: unitOf(md.DistanceUnit)}
	if u.Speed == "" {
		u.Speed = columnUnit(cols, "club_speed", "ball_speed", "speed")
	}
	if u.Distance == "" {
		u.Distance = columnUnit(cols, "distance_carry", "distance_total", "distance")
	}
	if u.Speed == "" {
		u.Speed = "mph"
	}
	if u.Distance == "" {
		u.Distance = "yd"
	}
	return u
}

func columnUnit(cols []radar.NormalizedColumn, exact1, exact2, contains string) string {
	for _, want := range []string{exact1, exact2} {
		for _, c := range cols {
			if c.Key == want {
				if u := unitOf(c.Unit); u != "" {
					return u
				}
			}
		}
	}
	for _, c := range cols {
		if strings.Contains(c.Key, contains) {
			if u := unitOf(c.Unit); u != "" {
				return u
			}
		}
	}
	return ""
}

func unitOf(s *string) string {
	if s == nil {
		return ""
	}
	return radar.NormalizeUnit(*s)
}

// mean prefers the reconciled session average, which may come from the
// printout, over the recomputed one.
func mean(stats radar.Stats, global map[string]ColumnStats, key string) *float64 {
	if v := stats.Avg[key]; v != nil {
		return v
	}
	if cs, ok := global[key]; ok {
		return cs.Mean
	}
	return nil
}

// Summarize writes the short French session summary.
func Summarize(meta Meta, stats radar.Stats, global map[string]ColumnStats) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d coup%s analyse%s.", meta.ShotCount, plural(meta.ShotCount), plural(meta.ShotCount)))
	if meta.Club != nil {
		parts = append(parts, fmt.Sprintf("Club : %s.", meta.Club.Club))
	}
	if v := mean(stats, global, "club_speed"); v != nil {
		parts = append(parts, fmt.Sprintf("Vitesse club moyenne %s %s.", radar.String(v), meta.Units.Speed))
	}
	if v := mean(stats, global, "ball_speed"); v != nil {
		parts = append(parts, fmt.Sprintf("Vitesse balle moyenne %s %s.", radar.String(v), meta.Units.Speed))
	}
	if v := mean(stats, global, "distance_carry"); v != nil {
		line := fmt.Sprintf("Carry moyen %s %s", radar.String(v), meta.Units.Distance)
		if cs, ok := global["distance_carry"]; ok && cs.StdDev != nil {
			line += fmt.Sprintf(" (ecart-type %s)", radar.String(cs.StdDev))
		}
		parts = append(parts, line+".")
	}
	return strings.Join(parts, " ")
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}

func round(v float64) *float64 {
	r := radar.Round2(v)
	return &r
}
