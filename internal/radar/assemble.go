package radar

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Assembled is the tabular extraction reduced to keyed columns, shots and stats.
type Assembled struct {
	Columns []NormalizedColumn `json:"columns"`
	Shots   []Shot             `json:"shots"`
	Stats   Stats              `json:"stats"`
}

// DataColumns returns the columns that carry shot values, i.e. all but the index column.
func (a Assembled) DataColumns() []NormalizedColumn {
	return dataColumns(a.Columns)
}

// Assemble aligns the extracted columns, builds one Shot per row and reconciles
// model-reported aggregates with values recomputed from the shots.
func Assemble(ext TabularExtraction) Assembled {
	cols, avg, dev := dropRedundantIndex(ext.Columns, ext.Avg, ext.Dev)
	normalized := NormalizeColumns(cols)
	data := dataColumns(normalized)

	shots := make([]Shot, 0, len(ext.Rows))
	for i, row := range ext.Rows {
		shots = append(shots, buildShot(row, i+1, data))
	}

	computed := ComputeStats(data, shots)
	stats := Stats{
		Avg: reconcile(normalized, data, avg, computed.Avg),
		Dev: reconcile(normalized, data, dev, computed.Dev),
	}
	return Assembled{Columns: normalized, Shots: shots, Stats: stats}
}

// dropRedundantIndex removes the leading "#" column when it is immediately
// followed by a "Shot" column. The same position is removed from avg and dev
// so they stay aligned with the columns.
func dropRedundantIndex(cols []RadarColumn, avg, dev []any) ([]RadarColumn, []any, []any) {
	if len(cols) < 2 {
		return cols, avg, dev
	}
	if strings.TrimSpace(cols[0].Label) != "#" || NormalizeToken(cols[1].Label) != "shot" {
		return cols, avg, dev
	}
	return cols[1:], dropFirst(avg), dropFirst(dev)
}

func dropFirst(vals []any) []any {
	if len(vals) == 0 {
		return vals
	}
	return vals[1:]
}

func dataColumns(cols []NormalizedColumn) []NormalizedColumn {
	out := make([]NormalizedColumn, 0, len(cols))
	for _, c := range cols {
		if c.Key == IndexKey {
			continue
		}
		out = append(out, c)
	}
	return out
}

func buildShot(row RadarRow, position int, data []NormalizedColumn) Shot {
	values := row.Values
	declared := row.Shot
	if len(values) == len(data)+1 {
		declared = values[0]
		values = values[1:]
	}

	shot := Shot{Index: shotIndex(declared, position), Values: make(map[string]*float64, len(data))}
	for i, c := range data {
		if i < len(values) {
			shot.Values[c.Key] = NumericCell(values[i])
			continue
		}
		shot.Values[c.Key] = nil
	}
	return shot
}

func shotIndex(declared any, position int) int {
	switch v := declared.(type) {
	case float64:
		if v == math.Trunc(v) && v > 0 {
			return int(v)
		}
	case string:
		digits := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "#"))
		if n, err := strconv.Atoi(digits); err == nil && n > 0 {
			return n
		}
	}
	return position
}

// reconcile prefers the model's aggregate cell for each data column when it is
// numeric. Cells are read at the column's position in the full column list, or
// in the data-column list when the model omitted the index position.
func reconcile(all, data []NormalizedColumn, reported []any, computed map[string]*float64) map[string]*float64 {
	layout := all
	if len(reported) == len(data) && len(data) != len(all) {
		layout = data
	}
	pos := make(map[string]int, len(layout))
	for i, c := range layout {
		pos[c.Key] = i
	}

	out := make(map[string]*float64, len(data))
	for _, c := range data {
		if i, ok := pos[c.Key]; ok && i < len(reported) {
			if v := NumericCell(reported[i]); v != nil {
				out[c.Key] = v
				continue
			}
		}
		out[c.Key] = computed[c.Key]
	}
	return out
}

// ComputeStats returns the mean and population standard deviation of every data
// column over the numeric shot values, rounded to 2 decimals. Columns without a
// numeric value get nil.
func ComputeStats(data []NormalizedColumn, shots []Shot) Stats {
	stats := Stats{
		Avg: make(map[string]*float64, len(data)),
		Dev: make(map[string]*float64, len(data)),
	}
	for _, c := range data {
		var vals []float64
		for _, s := range shots {
			if v := s.Values[c.Key]; v != nil {
				vals = append(vals, *v)
			}
		}
		if len(vals) == 0 {
			stats.Avg[c.Key] = nil
			stats.Dev[c.Key] = nil
			continue
		}
		mean, dev := MeanStdDev(vals)
		stats.Avg[c.Key] = ptr(Round2(mean))
		stats.Dev[c.Key] = ptr(Round2(dev))
	}
	return stats
}

// MeanStdDev returns the mean and population standard deviation of vals,
// which must not be empty.
func MeanStdDev(vals []float64) (float64, float64) {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var sq float64
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(vals)))
}

// Round2 rounds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptr(v float64) *float64 { return &v }

// String renders a nullable stat for logs and summaries.
func String(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Describe is a short human-readable description of an assembled table, used in logs.
func (a Assembled) Describe() string {
	return fmt.Sprintf("%d columns, %d shots", len(a.DataColumns()), len(a.Shots))
}
