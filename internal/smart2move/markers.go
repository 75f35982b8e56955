// Package smart2move post-processes force-plate graph annotations: marker
// positions, the four fixed callouts, and the bounded analysis text.
package smart2move

import (
	"errors"
	"math"
	"strings"
)

// Graph types a coach can select for a Smart2Move export.
const (
	GraphFx = "fx"
	GraphFy = "fy"
	GraphFz = "fz"
	GraphMz = "mz"
)

// DefaultGraphType is used when a graph type is present but unrecognized.
const DefaultGraphType = GraphFx

var graphLabels = map[string]string{
	GraphFx: "Fx",
	GraphFy: "Fy",
	GraphFz: "Fz",
	GraphMz: "Mz",
}

// GraphTypes lists the accepted graph types in display order.
var GraphTypes = []string{GraphFx, GraphFy, GraphFz, GraphMz}

// IsGraphType reports whether s names a known graph type.
func IsGraphType(s string) bool {
	_, ok := graphLabels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ResolveGraphType returns the canonical graph type and its display label,
// falling back to DefaultGraphType.
func ResolveGraphType(s string) (string, string) {
	t := strings.ToLower(strings.TrimSpace(s))
	if label, ok := graphLabels[t]; ok {
		return t, label
	}
	return DefaultGraphType, graphLabels[DefaultGraphType]
}

const (
	defaultImpactX        = 0.5
	transitionLeadDefault = 0.22
	peakWindowHalfWidth   = 0.08
)

// ErrTransitionOrder is returned when the transition start is not before impact.
var ErrTransitionOrder = errors.New("transition start must precede impact")

// Window is a [Start, End] ratio interval on the graph's time axis.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Markers are the time-axis ratios the coach placed on the graph.
type Markers struct {
	ImpactX          float64 `json:"impact_marker_x"`
	TransitionStartX float64 `json:"transition_start_x"`
	PeakWindow       Window  `json:"peak_window"`
}

// NormalizeMarkers clamps the impact ratio to [0,1] and resolves the
// transition start, deriving it from impact when the coach did not place one.
// An explicit transition at or after impact is rejected.
func NormalizeMarkers(impactX float64, transitionStartX *float64) (Markers, error) {
	impact := clamp01(impactX, defaultImpactX)
	m := Markers{ImpactX: impact, PeakWindow: PeakWindow(impact)}

	if transitionStartX == nil {
		m.TransitionStartX = round3(math.Max(0, impact-transitionLeadDefault))
		return m, nil
	}
	transition := clamp01(*transitionStartX, 0)
	if transition >= impact {
		return Markers{}, ErrTransitionOrder
	}
	m.TransitionStartX = transition
	return m, nil
}

// PeakWindow returns the interval around impact in which force peaks are described.
func PeakWindow(impactX float64) Window {
	impact := clamp01(impactX, defaultImpactX)
	return Window{
		Start: round3(math.Max(0, impact-peakWindowHalfWidth)),
		End:   round3(math.Min(1, impact+peakWindowHalfWidth)),
	}
}

func clamp01(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return math.Min(1, math.Max(0, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
