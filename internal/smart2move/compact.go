package smart2move

import "strings"

// Length ceilings for model-written text, as sentences and characters.
const (
	TitleSentences    = 1
	TitleChars        = 90
	DetailSentences   = 2
	DetailChars       = 240
	ReasonSentences   = 2
	ReasonChars       = 240
	SolutionSentences = 2
	SolutionChars     = 220
	EvidenceSentences = 2
	EvidenceChars     = 220
	SectionSentences  = 2
	SectionChars      = 280
	FreeformSentences = 8
	FreeformChars     = 900
)

const ellipsis = '…'

// Compact collapses whitespace and keeps at most maxSentences sentences and
// maxChars characters of text, cutting on a word boundary with an ellipsis.
func Compact(text string, maxSentences, maxChars int) string {
	if maxSentences <= 0 || maxChars <= 0 {
		return ""
	}
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return ""
	}
	sentences := SplitSentences(clean)
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return truncate(strings.Join(sentences, " "), maxChars)
}

// SplitSentences splits text after '.', '!', '?' or '…' when followed by
// whitespace or the end of the text. Decimal points are not boundaries.
func SplitSentences(text string) []string {
	rs := []rune(text)
	var out []string
	start := 0
	for i, r := range rs {
		if !isTerminator(r) {
			continue
		}
		if i+1 < len(rs) && !isSpace(rs[i+1]) {
			continue
		}
		if seg := strings.TrimSpace(string(rs[start : i+1])); seg != "" {
			out = append(out, seg)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(rs[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

func truncate(s string, maxChars int) string {
	rs := []rune(s)
	if len(rs) <= maxChars {
		return s
	}
	cut := string(rs[:maxChars-1])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-") + string(ellipsis)
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == ellipsis
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
