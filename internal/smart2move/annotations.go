package smart2move

import (
	"errors"
	"fmt"
	"log"
)

// Bubble keys for the four callouts drawn on every Smart2Move graph.
const (
	BubbleAddressBackswing = "address_backswing"
	BubbleTransitionImpact = "transition_impact"
	BubblePeakTiming       = "peak_intensity_timing"
	BubbleSummary          = "summary"
)

// BubbleKeys lists the callouts in their fixed display order.
var BubbleKeys = []string{
	BubbleAddressBackswing,
	BubbleTransitionImpact,
	BubblePeakTiming,
	BubbleSummary,
}

// ErrAnnotationCount is returned when the model does not produce exactly one
// annotation per bubble key.
var ErrAnnotationCount = errors.New("smart2move: expected exactly 4 annotations")

// Anchor positions a callout on the graph as ratios of width and height.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Annotation is one coaching callout attached to the graph.
type Annotation struct {
	BubbleKey string `json:"bubble_key"`
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	Reasoning string `json:"reasoning"`
	Solution  string `json:"solution"`
	Evidence  string `json:"evidence"`
	Anchor    Anchor `json:"anchor"`
}

// EnforceAnnotations orders annotations by bubble key, retags duplicate or
// unknown keys onto the missing ones, compacts every text field and clamps
// anchors to the graph.
func EnforceAnnotations(in []Annotation) ([]Annotation, error) {
	if len(in) != len(BubbleKeys) {
		return nil, fmt.Errorf("%w: got %d", ErrAnnotationCount, len(in))
	}

	slots := make(map[string]int, len(BubbleKeys))
	for i, k := range BubbleKeys {
		slots[k] = i
	}

	out := make([]Annotation, len(BubbleKeys))
	filled := make([]bool, len(BubbleKeys))
	var leftovers []Annotation
	for _, a := range in {
		i, ok := slots[a.BubbleKey]
		if !ok || filled[i] {
			leftovers = append(leftovers, a)
			continue
		}
		out[i] = a
		filled[i] = true
	}

	for i, k := range BubbleKeys {
		if filled[i] {
			continue
		}
		a := leftovers[0]
		leftovers = leftovers[1:]
		log.Printf("WARNING: smart2move annotation %q retagged as %q", a.BubbleKey, k)
		a.BubbleKey = k
		out[i] = a
	}

	for i := range out {
		out[i] = compactAnnotation(out[i])
	}
	return out, nil
}

func compactAnnotation(a Annotation) Annotation {
	a.Title = Compact(a.Title, TitleSentences, TitleChars)
	a.Detail = Compact(a.Detail, DetailSentences, DetailChars)
	a.Reasoning = Compact(a.Reasoning, ReasonSentences, ReasonChars)
	a.Solution = Compact(a.Solution, SolutionSentences, SolutionChars)
	a.Evidence = Compact(a.Evidence, EvidenceSentences, EvidenceChars)
	a.Anchor = Anchor{
		X: clamp01(a.Anchor.X, 0.5),
		Y: clamp01(a.Anchor.Y, 0.5),
	}
	return a
}

func annotationFor(annotations []Annotation, key string) (Annotation, bool) {
	for _, a := range annotations {
		if a.BubbleKey == key {
			return a, true
		}
	}
	return Annotation{}, false
}
