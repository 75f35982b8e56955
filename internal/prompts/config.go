// Package prompts selects the prompt sections and output schema for a radar
// source and resolves prompt templates.
package prompts

import (
	"strings"

	"github.com/swingdesk/radar-service/internal/radar"
	"github.com/swingdesk/radar-service/internal/schema"
	"github.com/swingdesk/radar-service/internal/smart2move"
)

// Extraction modes.
const (
	ModeTabular         = "tabular"
	ModeSmart2MoveGraph = "smart2move_graph"
)

// Canonical sources.
const (
	SourceFlightscope = "flightscope"
	SourceTrackman    = "trackman"
	SourceSmart2Move  = "smart2move"
)

// Prompt section names.
const (
	SectionExtractSystem           = "radar_extract_system"
	SectionVerifySystem            = "radar_verify_system"
	SectionTrackmanExtractSystem   = "radar_trackman_extract_system"
	SectionTrackmanVerifySystem    = "radar_trackman_verify_system"
	SectionSmart2MoveVerifySystem  = "radar_smart2move_verify_system"
	smart2MoveExtractSectionPrefix = "radar_smart2move_extract_system_"
)

var sourceLabels = map[string]string{
	SourceFlightscope: "Flightscope",
	SourceTrackman:    "Trackman",
	SourceSmart2Move:  "Smart2Move",
}

// Config is the resolved prompt and schema selection for one request.
type Config struct {
	Source                 string
	SourceLabel            string
	Mode                   string
	ExtractSystemSection   string
	ExtractFallbackSection string
	VerifySystemSection    string
	VerifyFallbackSection  string
	Smart2MoveGraphType    string
	Smart2MoveGraphLabel   string
}

// IsSmart2Move reports whether the config targets a force-plate graph.
func (c Config) IsSmart2Move() bool { return c.Mode == ModeSmart2MoveGraph }

// ExtractSchema returns the strict response schema for the extraction call.
func (c Config) ExtractSchema() (string, map[string]any) {
	if c.IsSmart2Move() {
		return schema.NameSmart2Move, schema.Smart2Move()
	}
	return schema.NameTabular, schema.Tabular()
}

// VerifySchema returns the strict response schema for the verification call.
func (c Config) VerifySchema() (string, map[string]any) {
	return schema.VerificationName(c.IsSmart2Move()), schema.Verification(c.IsSmart2Move())
}

// NormalizeSource maps a free-text device label onto a canonical source.
// Anything unrecognized is treated as Flightscope.
func NormalizeSource(source string) string {
	compact := strings.ReplaceAll(radar.NormalizeToken(source), " ", "")
	switch {
	case strings.Contains(compact, "smart2move"):
		return SourceSmart2Move
	case strings.Contains(compact, "trackman"):
		return SourceTrackman
	default:
		return SourceFlightscope
	}
}

// ResolveRadarPromptConfig picks the prompt sections and mode for a source.
// graphType is only consulted for Smart2Move and falls back to fx.
func ResolveRadarPromptConfig(source, graphType string) Config {
	src := NormalizeSource(source)
	cfg := Config{Source: src, SourceLabel: sourceLabels[src], Mode: ModeTabular}

	switch src {
	case SourceSmart2Move:
		gt, label := smart2move.ResolveGraphType(graphType)
		cfg.Mode = ModeSmart2MoveGraph
		cfg.ExtractSystemSection = smart2MoveExtractSectionPrefix + gt
		cfg.VerifySystemSection = SectionSmart2MoveVerifySystem
		cfg.Smart2MoveGraphType = gt
		cfg.Smart2MoveGraphLabel = label
	case SourceTrackman:
		cfg.ExtractSystemSection = SectionTrackmanExtractSystem
		cfg.ExtractFallbackSection = SectionExtractSystem
		cfg.VerifySystemSection = SectionTrackmanVerifySystem
		cfg.VerifyFallbackSection = SectionVerifySystem
	default:
		cfg.ExtractSystemSection = SectionExtractSystem
		cfg.VerifySystemSection = SectionVerifySystem
	}
	return cfg
}
