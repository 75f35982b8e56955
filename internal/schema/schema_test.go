package schema

import (
	"errors"
	"testing"
)

const validTabular = `{
	"columns": [{"group": "Distance", "label": "Carry", "unit": "yds"}, {"group": null, "label": "Side", "unit": null}],
	"rows": [{"shot": 1, "values": [152.3, "3.1L"]}, {"shot": null, "values": [148, null]}],
	"avg": [150.1, "1.2L"],
	"dev": null,
	"summary": null,
	"metadata": {"club": "7i", "player": null, "session_date": null, "speed_unit": "mph", "distance_unit": "yds", "device_model": null, "ball_type": null, "location": null}
}`

const validSmart2Move = `{
	"graph_type": "fx",
	"annotations": [
		{"bubble_key": "address_backswing", "title": "t", "detail": "d", "reasoning": "r", "solution": "s", "evidence": "e", "anchor": {"x": 0.1, "y": 0.5}},
		{"bubble_key": "transition_impact", "title": "t", "detail": "d", "reasoning": "r", "solution": "s", "evidence": "e", "anchor": {"x": 0.5, "y": 0.5}},
		{"bubble_key": "peak_intensity_timing", "title": "t", "detail": "d", "reasoning": "r", "solution": "s", "evidence": "e", "anchor": {"x": 0.7, "y": 0.5}},
		{"bubble_key": "summary", "title": "t", "detail": "d", "reasoning": "r", "solution": "s", "evidence": "e", "anchor": {"x": 0.9, "y": 0.5}}
	],
	"analysis": "Analyse Fx - Smart2Move",
	"summary": null
}`

func TestValidate(t *testing.T) {
	v := NewValidator()
	tests := []struct {
		name    string
		schema  string
		def     map[string]any
		raw     string
		wantErr bool
	}{
		{"tabular valid", NameTabular, Tabular(), validTabular, false},
		{"tabular missing metadata", NameTabular, Tabular(), `{"columns":[],"rows":[],"avg":null,"dev":null,"summary":null}`, true},
		{"tabular extra property", NameTabular, Tabular(), `{"columns":[],"rows":[],"avg":null,"dev":null,"summary":null,"metadata":{"club":null,"player":null,"session_date":null,"speed_unit":null,"distance_unit":null,"device_model":null,"ball_type":null,"location":null},"notes":"x"}`, true},
		{"tabular bad cell", NameTabular, Tabular(), `{"columns":[],"rows":[{"shot":1,"values":[true]}],"avg":null,"dev":null,"summary":null,"metadata":{"club":null,"player":null,"session_date":null,"speed_unit":null,"distance_unit":null,"device_model":null,"ball_type":null,"location":null}}`, true},
		{"smart2move valid", NameSmart2Move, Smart2Move(), validSmart2Move, false},
		{"smart2move unknown graph", NameSmart2Move, Smart2Move(), `{"graph_type":"fq","annotations":[],"analysis":"","summary":null}`, true},
		{"verification valid", NameVerification, Verification(false), `{"is_valid":true,"confidence":0.9,"issues":[]}`, false},
		{"verification graph flag required", NameGraphVerification, Verification(true), `{"is_valid":true,"confidence":0.9,"issues":[]}`, true},
		{"verification graph flag", NameGraphVerification, Verification(true), `{"is_valid":false,"confidence":0.4,"issues":["x"],"matches_selected_graph_type":false}`, false},
		{"not json", NameVerification, Verification(false), `{"is_valid":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.schema, tt.def, []byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("err = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestObjectsAreStrict(t *testing.T) {
	var walk func(path string, node map[string]any)
	walk = func(path string, node map[string]any) {
		if props, ok := node["properties"].(map[string]any); ok {
			if node["additionalProperties"] != false {
				t.Errorf("%s: additionalProperties must be false", path)
			}
			req, _ := node["required"].([]string)
			if len(req) != len(props) {
				t.Errorf("%s: %d required for %d properties", path, len(req), len(props))
			}
			for k, p := range props {
				if m, ok := p.(map[string]any); ok {
					walk(path+"."+k, m)
				}
			}
		}
		if items, ok := node["items"].(map[string]any); ok {
			walk(path+"[]", items)
		}
		if _, ok := node["minItems"]; ok {
			t.Errorf("%s: minItems is not supported in strict mode", path)
		}
	}
	walk("tabular", Tabular())
	walk("smart2move", Smart2Move())
	walk("verification", Verification(true))
}

func TestVerificationName(t *testing.T) {
	if VerificationName(true) != NameGraphVerification || VerificationName(false) != NameVerification {
		t.Error("VerificationName mismatch")
	}
}
