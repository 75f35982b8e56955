package prompts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/swingdesk/radar-service/internal/db"
	"github.com/swingdesk/radar-service/internal/schema"
	"github.com/swingdesk/radar-service/internal/smart2move"
)

func TestResolveRadarPromptConfig(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		graphType string
		want      Config
	}{
		{
			name:   "flightscope",
			source: "Flightscope",
			want: Config{
				Source: SourceFlightscope, SourceLabel: "Flightscope", Mode: ModeTabular,
				ExtractSystemSection: "radar_extract_system", VerifySystemSection: "radar_verify_system",
			},
		},
		{
			name:   "trackman",
			source: "TrackMan 4",
			want: Config{
				Source: SourceTrackman, SourceLabel: "Trackman", Mode: ModeTabular,
				ExtractSystemSection: SectionTrackmanExtractSystem, ExtractFallbackSection: SectionExtractSystem,
				VerifySystemSection: SectionTrackmanVerifySystem, VerifyFallbackSection: SectionVerifySystem,
			},
		},
		{
			name:      "smart2move fx",
			source:    "smart2move",
			graphType: "fx",
			want: Config{
				Source: SourceSmart2Move, SourceLabel: "Smart2Move", Mode: ModeSmart2MoveGraph,
				ExtractSystemSection: "radar_smart2move_extract_system_fx", VerifySystemSection: SectionSmart2MoveVerifySystem,
				Smart2MoveGraphType: "fx", Smart2MoveGraphLabel: "Fx",
			},
		},
		{
			name:      "smart2move unknown graph falls back to fx",
			source:    "Smart 2 Move",
			graphType: "torque",
			want: Config{
				Source: SourceSmart2Move, SourceLabel: "Smart2Move", Mode: ModeSmart2MoveGraph,
				ExtractSystemSection: "radar_smart2move_extract_system_fx", VerifySystemSection: SectionSmart2MoveVerifySystem,
				Smart2MoveGraphType: "fx", Smart2MoveGraphLabel: "Fx",
			},
		},
		{
			name:      "graph type ignored for tabular",
			source:    "gcquad",
			graphType: "mz",
			want: Config{
				Source: SourceFlightscope, SourceLabel: "Flightscope", Mode: ModeTabular,
				ExtractSystemSection: SectionExtractSystem, VerifySystemSection: SectionVerifySystem,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRadarPromptConfig(tt.source, tt.graphType)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveRadarPromptConfig_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		got := ResolveRadarPromptConfig("smart2move", "fx")
		if got.Mode != ModeSmart2MoveGraph || got.SourceLabel != "Smart2Move" || got.Smart2MoveGraphType != "fx" {
			t.Fatalf("unexpected config: %+v", got)
		}
	}
	for _, s := range []string{"", "unknown", "Garmin R10", "???"} {
		if got := ResolveRadarPromptConfig(s, ""); got.SourceLabel != "Flightscope" || got.Mode != ModeTabular {
			t.Errorf("ResolveRadarPromptConfig(%q) = %+v, want flightscope fallback", s, got)
		}
	}
}

func TestConfigSchemas(t *testing.T) {
	tab := ResolveRadarPromptConfig("trackman", "")
	if name, _ := tab.ExtractSchema(); name != schema.NameTabular {
		t.Errorf("tabular extract schema = %s", name)
	}
	if name, _ := tab.VerifySchema(); name != schema.NameVerification {
		t.Errorf("tabular verify schema = %s", name)
	}
	s2m := ResolveRadarPromptConfig("smart2move", "fz")
	if name, _ := s2m.ExtractSchema(); name != schema.NameSmart2Move {
		t.Errorf("smart2move extract schema = %s", name)
	}
	if name, def := s2m.VerifySchema(); name != schema.NameGraphVerification || def["properties"].(map[string]any)["matches_selected_graph_type"] == nil {
		t.Errorf("smart2move verify schema = %s", name)
	}
}

func TestDefaultSectionsCoverEveryConfig(t *testing.T) {
	ctx := context.Background()
	sources := []string{"flightscope", "trackman"}
	for _, gt := range smart2move.GraphTypes {
		cfg := ResolveRadarPromptConfig("smart2move", gt)
		for _, s := range []string{cfg.ExtractSystemSection, cfg.VerifySystemSection} {
			if text, _ := (DefaultStore{}).Section(ctx, s); text == "" {
				t.Errorf("missing default section %s", s)
			}
		}
	}
	for _, src := range sources {
		cfg := ResolveRadarPromptConfig(src, "")
		if _, err := Resolve(ctx, DefaultStore{}, cfg.ExtractSystemSection, cfg.ExtractFallbackSection); err != nil {
			t.Errorf("%s extract: %v", src, err)
		}
		if _, err := Resolve(ctx, DefaultStore{}, cfg.VerifySystemSection, cfg.VerifyFallbackSection); err != nil {
			t.Errorf("%s verify: %v", src, err)
		}
	}
}

func TestPgStore_Section(t *testing.T) {
	tests := []struct {
		name    string
		rows    []map[string]any
		err     error
		section string
		want    string
	}{
		{"override", []map[string]any{{"body": "custom {language}"}}, nil, SectionExtractSystem, "custom {language}"},
		{"blank override falls back", []map[string]any{{"body": "  "}}, nil, SectionExtractSystem, ExtractSystemPrompt},
		{"missing row falls back", nil, nil, SectionVerifySystem, VerifySystemPrompt},
		{"query error falls back", nil, errors.New("connection refused"), SectionVerifySystem, VerifySystemPrompt},
		{"unknown section", nil, nil, "radar_nope", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotArgs []any
			store := NewPgStore(&db.MockDB{
				QueryFn: func(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
					gotArgs = args
					return tt.rows, tt.err
				},
			})
			got, err := store.Section(context.Background(), tt.section)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Section() = %q, want %q", got, tt.want)
			}
			if len(gotArgs) != 1 || gotArgs[0] != tt.section {
				t.Errorf("query args = %v", gotArgs)
			}
		})
	}
}

type mapStore map[string]string

func (m mapStore) Section(_ context.Context, name string) (string, error) { return m[name], nil }

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := mapStore{"primary": "P", "fallback": "F", "blank": " \n"}

	if got, _ := Resolve(ctx, store, "primary", "fallback"); got != "P" {
		t.Errorf("primary = %q", got)
	}
	if got, _ := Resolve(ctx, store, "blank", "fallback"); got != "F" {
		t.Errorf("blank primary = %q, want fallback", got)
	}
	if _, err := Resolve(ctx, store, "missing", ""); err == nil {
		t.Error("expected error for empty section")
	}
}

func TestInterpolate(t *testing.T) {
	got := Interpolate("Write in {language}. {tpiContextBlock} keep {unknown} and {}", map[string]string{
		"language":        "fr",
		"tpiContextBlock": "MARKERS",
	})
	want := "Write in fr. MARKERS keep {unknown} and {}"
	if got != want {
		t.Errorf("Interpolate() = %q, want %q", got, want)
	}
}

func TestSmart2MoveInstructions(t *testing.T) {
	cfg := ResolveRadarPromptConfig("smart2move", "mz")
	m, _ := smart2move.NormalizeMarkers(0.6, nil)
	got := Smart2MoveInstructions(cfg, m)
	for _, want := range []string{"Analyse Mz - Smart2Move", "1. Adresse et backswing", "4. Synthese et priorites", "impact 0.600", "peak_intensity_timing"} {
		if !strings.Contains(got, want) {
			t.Errorf("instructions missing %q:\n%s", want, got)
		}
	}
	if block := TPIContextBlock(m); !strings.Contains(block, "Impact is at 60% of the graph width") {
		t.Errorf("TPIContextBlock() = %q", block)
	}
}
