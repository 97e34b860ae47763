package report

import (
	"unicode"
	"unicode/utf8"

	"simcheck/internal/normalize"
)

// Segment is a run of the original text; Mark is set on words to highlight.
type Segment struct {
	Text string
	Mark bool
}

// Segments cuts text into plain and marked runs. A word is marked when its
// core, folded the same way the normalizer folds tokens, is one of words.
// Matching is whole-word only: "cat" never marks part of "category".
// Concatenating the Text of the result always reproduces text.
func Segments(text string, words []string) []Segment {
	if len(words) == 0 {
		return appendPlain(nil, text)
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[normalize.Fold(w)] = struct{}{}
	}

	var out []Segment
	last := 0
	for _, span := range fieldSpans(text) {
		lead, core, _ := normalize.SplitEdges(text[span[0]:span[1]])
		if core == "" {
			continue
		}
		if _, ok := set[normalize.Fold(core)]; !ok {
			continue
		}
		start := span[0] + len(lead)
		out = appendPlain(out, text[last:start])
		out = append(out, Segment{Text: core, Mark: true})
		last = start + len(core)
	}
	return appendPlain(out, text[last:])
}

func appendPlain(out []Segment, s string) []Segment {
	if s == "" {
		return out
	}
	if n := len(out); n > 0 && !out[n-1].Mark {
		out[n-1].Text += s
		return out
	}
	return append(out, Segment{Text: s})
}

// fieldSpans returns the byte ranges of whitespace-separated fields, using
// the same notion of whitespace as strings.Fields.
func fieldSpans(text string) [][2]int {
	var spans [][2]int
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(text)})
	}
	return spans
}
