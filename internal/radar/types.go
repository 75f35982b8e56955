package radar

import (
	"encoding/json"
	"sort"
)

// RadarColumn is one column header as read off the printout.
type RadarColumn struct {
	Group *string `json:"group"`
	Label string  `json:"label"`
	Unit  *string `json:"unit"`
}

// NormalizedColumn is a RadarColumn with its canonical, set-unique key.
type NormalizedColumn struct {
	Group *string `json:"group"`
	Label string  `json:"label"`
	Unit  *string `json:"unit"`
	Key   string  `json:"key"`
}

// RadarRow is one printed row. Values are positional; Shot is the shot number
// when the model reported it separately from the values.
type RadarRow struct {
	Shot   any   `json:"shot"`
	Values []any `json:"values"`
}

// Metadata is what the model read from the printout header.
type Metadata struct {
	Club          *string `json:"club"`
	Player        *string `json:"player"`
	SessionDate   *string `json:"session_date"`
	SpeedUnit     *string `json:"speed_unit"`
	DistanceUnit  *string `json:"distance_unit"`
	DeviceModel   *string `json:"device_model"`
	BallType      *string `json:"ball_type"`
	LocationLabel *string `json:"location"`
}

// TabularExtraction is the decoded tabular model output.
type TabularExtraction struct {
	Columns  []RadarColumn `json:"columns"`
	Rows     []RadarRow    `json:"rows"`
	Avg      []any         `json:"avg"`
	Dev      []any         `json:"dev"`
	Summary  *string       `json:"summary"`
	Metadata Metadata      `json:"metadata"`
}

// Shot is one assembled shot: a shot index plus one value per data column.
type Shot struct {
	Index  int
	Values map[string]*float64
}

// MarshalJSON flattens the shot into {"shot_index": n, "<key>": value, ...}.
func (s Shot) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Values)+1)
	for k, v := range s.Values {
		if v == nil {
			m[k] = nil
			continue
		}
		m[k] = *v
	}
	m[IndexKey] = s.Index
	return json.Marshal(m)
}

// Keys returns the shot's data keys in sorted order.
func (s Shot) Keys() []string {
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stats holds per-column averages and deviations keyed by column key.
type Stats struct {
	Avg map[string]*float64 `json:"avg"`
	Dev map[string]*float64 `json:"dev"`
}
