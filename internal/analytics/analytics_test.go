package analytics

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/swingdesk/radar-service/internal/radar"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func sessionInput() Input {
	return Input{
		Columns: []radar.NormalizedColumn{
			{Label: "Club Speed", Unit: strPtr("km/h"), Key: "club_speed"},
			{Label: "Carry", Unit: strPtr("m"), Key: "distance_carry"},
			{Label: "Spin", Key: "spin_rate"},
		},
		Shots: []radar.Shot{
			{Index: 1, Values: map[string]*float64{"club_speed": floatPtr(180), "distance_carry": floatPtr(250), "spin_rate": nil}},
			{Index: 2, Values: map[string]*float64{"club_speed": floatPtr(183.72), "distance_carry": floatPtr(252.92), "spin_rate": nil}},
		},
		Stats: radar.Stats{Avg: map[string]*float64{}, Dev: map[string]*float64{}},
	}
}

func TestLocal_Analyze(t *testing.T) {
	res, err := Local{}.Analyze(context.Background(), sessionInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(Units{Speed: "km/h", Distance: "m"}, res.Meta.Units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
	if res.Meta.Club == nil || res.Meta.Club.Club != "Driver" || res.Meta.Club.Source != "inferred" {
		t.Errorf("club = %+v, want inferred Driver", res.Meta.Club)
	}
	if res.Meta.ShotCount != 2 {
		t.Errorf("ShotCount = %d", res.Meta.ShotCount)
	}

	want := "2 coups analyses. Club : Driver. Vitesse club moyenne 181.86 km/h. Carry moyen 251.46 m (ecart-type 1.46)."
	if res.Summary != want {
		t.Errorf("Summary = %q\nwant      %q", res.Summary, want)
	}
}

func TestLocal_Analyze_LabelWins(t *testing.T) {
	in := sessionInput()
	in.Metadata.Club = strPtr("bois 1")
	res, _ := Local{}.Analyze(context.Background(), in)
	if res.Meta.Club == nil || res.Meta.Club.Source != "label" || res.Meta.Club.Club != "Driver" {
		t.Errorf("club = %+v", res.Meta.Club)
	}
}

func TestGlobalStats(t *testing.T) {
	in := sessionInput()
	in.Columns = append([]radar.NormalizedColumn{{Label: "#", Key: radar.IndexKey}}, in.Columns...)

	got := GlobalStats(in.Columns, in.Shots)
	if _, ok := got[radar.IndexKey]; ok {
		t.Error("index column should not have stats")
	}

	carry := got["distance_carry"]
	want := ColumnStats{
		Label:  "Carry",
		Unit:   strPtr("m"),
		Mean:   floatPtr(251.46),
		StdDev: floatPtr(1.46),
		Min:    floatPtr(250),
		Max:    floatPtr(252.92),
		Count:  2,
	}
	if diff := cmp.Diff(want, carry); diff != "" {
		t.Errorf("carry stats mismatch (-want +got):\n%s", diff)
	}

	spin := got["spin_rate"]
	if spin.Count != 0 || spin.Mean != nil || spin.Min != nil {
		t.Errorf("spin stats = %+v, want empty", spin)
	}
}

func TestResolveUnits(t *testing.T) {
	tests := []struct {
		name string
		cols []radar.NormalizedColumn
		md   radar.Metadata
		want Units
	}{
		{
			name: "defaults",
			want: Units{Speed: "mph", Distance: "yd"},
		},
		{
			name: "header wins over columns",
			cols: []radar.NormalizedColumn{{Key: "club_speed", Unit: strPtr("mph")}},
			md:   radar.Metadata{SpeedUnit: strPtr("KM/H"), DistanceUnit: strPtr("meters")},
			want: Units{Speed: "km/h", Distance: "m"},
		},
		{
			name: "any speed column",
			cols: []radar.NormalizedColumn{
				{Key: "club_speed"},
				{Key: "swing_speed", Unit: strPtr("m/s")},
				{Key: "distance_total", Unit: strPtr("yds")},
			},
			want: Units{Speed: "m/s", Distance: "yd"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveUnits(tt.cols, tt.md); got != tt.want {
				t.Errorf("ResolveUnits() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSummarize_ReportedAverageWins(t *testing.T) {
	stats := radar.Stats{Avg: map[string]*float64{"ball_speed": floatPtr(150.2)}}
	meta := Meta{ShotCount: 1, Units: Units{Speed: "mph", Distance: "yd"}}

	got := Summarize(meta, stats, map[string]ColumnStats{"ball_speed": {Mean: floatPtr(149)}})
	want := "1 coup analyse. Vitesse balle moyenne 150.2 mph."
	if got != want {
		t.Errorf("Summarize() = %q, want %q", got, want)
	}
}
