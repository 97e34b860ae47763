package score

import (
	"math"
	"strings"

	"simcheck/internal/match"
)

// Summary is the aggregate result of one comparison run. Percentages are
// whole numbers; Plagiarised is always Exact + Partial and never above 100.
type Summary struct {
	Plagiarised   int      `json:"plagiarised"`
	Exact         int      `json:"exact"`
	Partial       int      `json:"partial"`
	MatchingWords []string `json:"matching_words"`
}

func (s Summary) Unique() int {
	return 100 - s.Plagiarised
}

// Aggregate turns per-chunk classifications into percentages over the raw
// chunk count, and collects the distinct words of every matched chunk in
// first-seen order.
func Aggregate(results []match.Result) Summary {
	summary := Summary{MatchingWords: []string{}}
	if len(results) == 0 {
		return summary
	}

	var exact, partial int
	seenText := map[string]struct{}{}
	seenWord := map[string]struct{}{}
	for _, r := range results {
		switch r.Class {
		case match.Exact:
			exact++
		case match.Partial:
			partial++
		default:
			continue
		}
		if _, ok := seenText[r.Text]; ok {
			continue
		}
		seenText[r.Text] = struct{}{}
		for _, w := range strings.Fields(r.Text) {
			if _, ok := seenWord[w]; ok {
				continue
			}
			seenWord[w] = struct{}{}
			summary.MatchingWords = append(summary.MatchingWords, w)
		}
	}

	total := len(results)
	summary.Exact = percent(exact, total)
	summary.Partial = percent(partial, total)
	// independent rounding can overshoot by one
	if summary.Exact+summary.Partial > 100 {
		summary.Partial = 100 - summary.Exact
	}
	summary.Plagiarised = summary.Exact + summary.Partial
	return summary
}

func percent(n, total int) int {
	return int(math.Round(100 * float64(n) / float64(total)))
}
