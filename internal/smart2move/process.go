package smart2move

import "strings"

// Extraction is the model's structured reading of a Smart2Move graph.
type Extraction struct {
	GraphType   string       `json:"graph_type"`
	Annotations []Annotation `json:"annotations"`
	Analysis    string       `json:"analysis"`
	Summary     *string      `json:"summary"`
}

// Result is the post-processed extraction ready to be stored.
type Result struct {
	GraphType      string       `json:"graph_type"`
	GraphLabel     string       `json:"graph_label"`
	ModelGraphType string       `json:"model_graph_type,omitempty"`
	Markers        Markers      `json:"markers"`
	Annotations    []Annotation `json:"annotations"`
	Analysis       string       `json:"analysis"`
	Summary        string       `json:"summary"`
}

// Process enforces the annotation set and the analysis layout for the
// selected graph type.
func Process(ext Extraction, graphType string, markers Markers) (*Result, error) {
	gt, label := ResolveGraphType(graphType)

	annotations, err := EnforceAnnotations(ext.Annotations)
	if err != nil {
		return nil, err
	}
	analysis, err := FormatAnalysis(ext.Analysis, label, annotations)
	if err != nil {
		return nil, err
	}

	summary := ""
	if ext.Summary != nil {
		summary = Compact(*ext.Summary, SectionSentences, SectionChars)
	}
	if summary == "" {
		if a, ok := annotationFor(annotations, BubbleSummary); ok {
			summary = Compact(a.Detail, SectionSentences, SectionChars)
		}
	}

	return &Result{
		GraphType:      gt,
		GraphLabel:     label,
		ModelGraphType: strings.ToLower(strings.TrimSpace(ext.GraphType)),
		Markers:        markers,
		Annotations:    annotations,
		Analysis:       analysis,
		Summary:        summary,
	}, nil
}
