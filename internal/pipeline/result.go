package pipeline

import (
	"maps"

	"github.com/swingdesk/radar-service/internal/analytics"
	"github.com/swingdesk/radar-service/internal/prompts"
	"github.com/swingdesk/radar-service/internal/radar"
	"github.com/swingdesk/radar-service/internal/smart2move"
)

// Result is what one extraction writes to its radar file: either a
// TabularResult or a Smart2MoveResult, never both.
type Result interface {
	Status() string
	update(file *RadarFile) (fileUpdate, error)
}

// TabularResult is a launch monitor shot table.
type TabularResult struct {
	Source    string
	Assembled radar.Assembled
	Metadata  radar.Metadata
	Summary   string
	Analytics *analytics.Result
}

// Smart2MoveResult is an annotated force-plate graph. It carries no shot table.
type Smart2MoveResult struct {
	Graph *smart2move.Result
}

// fileUpdate holds the radar_files column values; nil is SQL NULL.
type fileUpdate struct {
	status    string
	columns   any
	shots     any
	stats     any
	summary   any
	config    any
	analytics any
}

// Status is review: a coach checks the table before it is used.
func (r *TabularResult) Status() string { return StatusReview }

func (r *TabularResult) update(file *RadarFile) (fileUpdate, error) {
	u := fileUpdate{status: r.Status(), summary: r.Summary}

	cfg := cloneConfig(file)
	cfg["mode"] = prompts.ModeTabular
	cfg["source"] = r.Source
	cfg["metadata"] = r.Metadata

	var err error
	if u.columns, err = jsonText(r.Assembled.Columns); err != nil {
		return u, err
	}
	if u.shots, err = jsonText(r.Assembled.Shots); err != nil {
		return u, err
	}
	if u.stats, err = jsonText(r.Assembled.Stats); err != nil {
		return u, err
	}
	if u.config, err = jsonText(cfg); err != nil {
		return u, err
	}
	if r.Analytics != nil {
		if u.analytics, err = jsonText(r.Analytics); err != nil {
			return u, err
		}
	}
	return u, nil
}

// Status is ready: there is no table to review.
func (r *Smart2MoveResult) Status() string { return StatusReady }

func (r *Smart2MoveResult) update(file *RadarFile) (fileUpdate, error) {
	u := fileUpdate{status: r.Status(), summary: r.Graph.Analysis}

	cfg := cloneConfig(file)
	cfg["mode"] = prompts.ModeSmart2MoveGraph
	cfg["source"] = prompts.SourceSmart2Move
	cfg["smart2move"] = map[string]any{
		"graphType":   r.Graph.GraphType,
		"graphLabel":  r.Graph.GraphLabel,
		"markers":     r.Graph.Markers,
		"annotations": r.Graph.Annotations,
		"summary":     r.Graph.Summary,
	}

	var err error
	u.config, err = jsonText(cfg)
	return u, err
}

func cloneConfig(file *RadarFile) map[string]any {
	cfg := make(map[string]any, len(file.Config)+3)
	maps.Copy(cfg, file.Config)
	return cfg
}
