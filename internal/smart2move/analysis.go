package smart2move

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/swingdesk/radar-service/internal/radar"
)

// ErrEmptyAnalysis is returned when nothing but a title survives compaction.
var ErrEmptyAnalysis = errors.New("smart2move: empty analysis")

// SectionHeadings are the numbered headings of the analysis, one per bubble key.
var SectionHeadings = []string{
	"Adresse et backswing",
	"Transition et impact",
	"Pic d'intensite et timing",
	"Synthese et priorites",
}

var sectionRe = regexp.MustCompile(`^\s*(?:#+\s*)?(?:\*\*)?\s*([1-4])\s*[.)\-:](?:\*\*)?(?:\s+(.*))?$`)

// Title returns the first line every analysis starts with.
func Title(graphLabel string) string {
	return fmt.Sprintf("Analyse %s - Smart2Move", graphLabel)
}

type section struct {
	num  int
	body []string
}

// FormatAnalysis rewrites model text into the title line followed by the four
// numbered sections, each compacted. Sections the model skipped are filled
// from the matching annotation. Text without numbered sections is kept as a
// single compacted paragraph.
func FormatAnalysis(analysis, graphLabel string, annotations []Annotation) (string, error) {
	lines := strings.Split(strings.ReplaceAll(analysis, "\r\n", "\n"), "\n")
	lines = dropTitle(lines)

	var preamble []string
	var sections []*section
	seen := map[int]bool{}
	var cur *section
	for _, line := range lines {
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			num := int(m[1][0] - '0')
			if seen[num] {
				cur = nil
				continue
			}
			seen[num] = true
			cur = &section{num: num}
			if rest := headingRemainder(num, m[2]); rest != "" {
				cur.body = append(cur.body, rest)
			}
			sections = append(sections, cur)
			continue
		}
		switch {
		case cur != nil:
			cur.body = append(cur.body, line)
		case len(sections) == 0:
			preamble = append(preamble, line)
		}
	}

	title := Compact(Title(graphLabel), TitleSentences, TitleChars)

	if len(sections) == 0 {
		body := Compact(strings.Join(preamble, " "), FreeformSentences, FreeformChars)
		if body == "" {
			return "", ErrEmptyAnalysis
		}
		return title + "\n\n" + body, nil
	}

	bodies := make([]string, len(SectionHeadings))
	var content bool
	for _, s := range sections {
		b := Compact(strings.Join(s.body, " "), SectionSentences, SectionChars)
		bodies[s.num-1] = b
		if b != "" {
			content = true
		}
	}
	if !content {
		return "", ErrEmptyAnalysis
	}

	parts := []string{title}
	for i, heading := range SectionHeadings {
		body := bodies[i]
		if body == "" {
			if a, ok := annotationFor(annotations, BubbleKeys[i]); ok {
				body = Compact(a.Detail, SectionSentences, SectionChars)
			}
		}
		block := fmt.Sprintf("%d. %s", i+1, heading)
		if body != "" {
			block += "\n" + body
		}
		parts = append(parts, block)
	}
	return strings.Join(parts, "\n\n"), nil
}

// dropTitle removes leading blank lines and a model-written title line.
func dropTitle(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return lines
	}
	first := radar.NormalizeToken(strings.Trim(lines[0], "#* "))
	if strings.HasPrefix(first, "analyse") || strings.HasPrefix(first, "analysis") {
		return lines[1:]
	}
	return lines
}

// headingRemainder returns body text written on the heading line itself, as in
// "1. Adresse et backswing : le poids reste centre", "1. Adresse et backswing -
// le poids reste centre" or "1. Le poids reste centre". A line carrying only
// the heading yields "".
func headingRemainder(num int, s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
	if s == "" {
		return ""
	}
	heading := radar.NormalizeToken(SectionHeadings[num-1])
	if n := radar.NormalizeToken(s); n == heading || strings.HasPrefix(n, heading+" ") {
		rest := skipWords(s, len(strings.Fields(heading)))
		return strings.TrimSpace(strings.TrimLeft(rest, " -–—:."))
	}
	// shortened heading, as in "1. Adresse : ..."
	if i := strings.Index(s, ":"); i > 0 {
		if pre := radar.NormalizeToken(s[:i]); pre != "" && strings.HasPrefix(heading, pre) {
			return strings.TrimSpace(s[i+1:])
		}
	}
	return s
}

// skipWords returns s after its first n runs of letters and digits, the same
// runs NormalizeToken keeps as words.
func skipWords(s string, n int) string {
	inWord := false
	for i, r := range s {
		word := unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
		switch {
		case word && !inWord:
			if n == 0 {
				return s[i:]
			}
			inWord = true
		case !word && inWord:
			inWord = false
			n--
			if n == 0 {
				return s[i:]
			}
		}
	}
	return ""
}
