package prompts

import (
	"fmt"
	"strings"

	"github.com/swingdesk/radar-service/internal/smart2move"
)

// TabularInstructions is the user message sent with a launch monitor image.
func TabularInstructions(cfg Config) string {
	return fmt.Sprintf(`Transcribe the %s shot table in this image.
Return every column and every shot row in printed order, plus the average and deviation rows when printed.
Respond with JSON only.`, cfg.SourceLabel)
}

// Smart2MoveInstructions is the user message sent with a force plate graph.
func Smart2MoveInstructions(cfg Config, markers smart2move.Markers) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this Smart2Move %s graph (graph_type %q).\n", cfg.Smart2MoveGraphLabel, cfg.Smart2MoveGraphType)
	fmt.Fprintf(&b, "Return exactly 4 annotations, one per bubble_key, in this order: %s.\n", strings.Join(smart2move.BubbleKeys, ", "))
	fmt.Fprintf(&b, "Titles: %d sentence, at most %d characters. detail and reasoning: %d sentences, at most %d characters. solution and evidence: %d sentences, at most %d characters.\n",
		smart2move.TitleSentences, smart2move.TitleChars,
		smart2move.DetailSentences, smart2move.DetailChars,
		smart2move.SolutionSentences, smart2move.SolutionChars)
	fmt.Fprintf(&b, "The analysis starts with the line %q followed by exactly 4 numbered sections:\n", smart2move.Title(cfg.Smart2MoveGraphLabel))
	for i, h := range smart2move.SectionHeadings {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h)
	}
	fmt.Fprintf(&b, "Each section body has at most %d sentences and %d characters.\n", smart2move.SectionSentences, smart2move.SectionChars)
	b.WriteString(MarkersBlock(markers))
	b.WriteString("Respond with JSON only.")
	return b.String()
}

// MarkersBlock describes the coach-placed markers as ratios of graph width.
func MarkersBlock(m smart2move.Markers) string {
	return fmt.Sprintf("Markers (ratio of graph width): transition start %.3f, impact %.3f, peak window %.3f to %.3f.\n",
		m.TransitionStartX, m.ImpactX, m.PeakWindow.Start, m.PeakWindow.End)
}

// TPIContextBlock is interpolated into Smart2Move system prompts as {tpiContextBlock}.
func TPIContextBlock(m smart2move.Markers) string {
	return fmt.Sprintf(`TIMING MARKERS placed by the coach:
- Transition starts at %.0f%% of the graph width
- Impact is at %.0f%% of the graph width
- Describe force peaks inside the %.0f%%-%.0f%% window around impact`,
		m.TransitionStartX*100, m.ImpactX*100, m.PeakWindow.Start*100, m.PeakWindow.End*100)
}

// VerifyInstructions wraps an extraction snapshot for the verification call.
func VerifyInstructions(cfg Config, snapshot string) string {
	var b strings.Builder
	if cfg.IsSmart2Move() {
		fmt.Fprintf(&b, "Selected graph type: %s (%s).\n", cfg.Smart2MoveGraphType, cfg.Smart2MoveGraphLabel)
	} else {
		fmt.Fprintf(&b, "Source: %s.\n", cfg.SourceLabel)
	}
	b.WriteString("Extraction snapshot:\n")
	b.WriteString(snapshot)
	b.WriteString("\nCompare it with the image and return your verdict as JSON.")
	return b.String()
}

// RetryNudge is appended to the verification instructions on the single
// low-confidence retry.
const RetryNudge = `

You rejected this extraction with low confidence. Look at the image again.
If you are unsure, prefer is_valid=true with a low confidence over an outright rejection, and list only issues you can clearly see.`
