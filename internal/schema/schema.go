// Package schema holds the strict JSON schemas requested from the model and
// validates model output against them.
package schema

import (
	"slices"

	"github.com/swingdesk/radar-service/internal/smart2move"
)

// Schema names sent with structured-output requests.
const (
	NameTabular      = "radar_tabular_extraction"
	NameSmart2Move   = "radar_smart2move_extraction"
	NameVerification = "radar_extraction_verification"

	// NameGraphVerification is the verdict schema that also asks whether the
	// image shows the selected graph type.
	NameGraphVerification = "radar_smart2move_verification"
)

func object(props map[string]any) map[string]any {
	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}
	slices.Sort(required)
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func array(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func typed(types ...string) map[string]any {
	if len(types) == 1 {
		return map[string]any{"type": types[0]}
	}
	t := make([]any, len(types))
	for i, s := range types {
		t[i] = s
	}
	return map[string]any{"type": t}
}

func enum(values []string) map[string]any {
	e := make([]any, len(values))
	for i, v := range values {
		e[i] = v
	}
	return map[string]any{"type": "string", "enum": e}
}

func cell() map[string]any { return typed("string", "number", "null") }

func nullableCells() map[string]any {
	return map[string]any{
		"type":  []any{"array", "null"},
		"items": cell(),
	}
}

// Tabular describes a printed shot table: header columns, one row per shot,
// optional average and deviation rows, and session metadata.
func Tabular() map[string]any {
	nullableString := func() map[string]any { return typed("string", "null") }
	return object(map[string]any{
		"columns": array(object(map[string]any{
			"group": nullableString(),
			"label": typed("string"),
			"unit":  nullableString(),
		})),
		"rows": array(object(map[string]any{
			"shot":   cell(),
			"values": array(cell()),
		})),
		"avg":     nullableCells(),
		"dev":     nullableCells(),
		"summary": nullableString(),
		"metadata": object(map[string]any{
			"club":          nullableString(),
			"player":        nullableString(),
			"session_date":  nullableString(),
			"speed_unit":    nullableString(),
			"distance_unit": nullableString(),
			"device_model":  nullableString(),
			"ball_type":     nullableString(),
			"location":      nullableString(),
		}),
	})
}

// Smart2Move describes the annotated force-plate graph reading. The
// four-annotation count is enforced after parsing, not in the schema.
func Smart2Move() map[string]any {
	return object(map[string]any{
		"graph_type": enum(smart2move.GraphTypes),
		"annotations": array(object(map[string]any{
			"bubble_key": enum(smart2move.BubbleKeys),
			"title":      typed("string"),
			"detail":     typed("string"),
			"reasoning":  typed("string"),
			"solution":   typed("string"),
			"evidence":   typed("string"),
			"anchor": object(map[string]any{
				"x": typed("number"),
				"y": typed("number"),
			}),
		})),
		"analysis": typed("string"),
		"summary":  typed("string", "null"),
	})
}

// Verification describes the second-pass verdict. matches_selected_graph_type
// is only requested for Smart2Move graphs.
func Verification(withGraphType bool) map[string]any {
	props := map[string]any{
		"is_valid":   typed("boolean"),
		"confidence": typed("number"),
		"issues":     array(typed("string")),
	}
	if withGraphType {
		props["matches_selected_graph_type"] = typed("boolean")
	}
	return object(props)
}

// VerificationName returns the schema name matching Verification(withGraphType).
func VerificationName(withGraphType bool) string {
	if withGraphType {
		return NameGraphVerification
	}
	return NameVerification
}
