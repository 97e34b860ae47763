package match

import (
	"errors"
	"fmt"

	"simcheck/internal/chunk"
	"simcheck/internal/corpus"
)

// DefaultPartialThreshold is the minimum shared-token ratio for a partial match.
const DefaultPartialThreshold = 0.6

// ratios within this distance of the threshold count as reaching it
const epsilon = 1e-9

var ErrInvalidThreshold = errors.New("partial threshold must be in (0, 1]")

type Class int

const (
	Unique Class = iota
	Partial
	Exact
)

func (c Class) String() string {
	switch c {
	case Exact:
		return "exact"
	case Partial:
		return "partial"
	default:
		return "unique"
	}
}

// Result is the classification of one candidate chunk. Text holds the
// canonical chunk text when the chunk matched and is empty otherwise.
type Result struct {
	Chunk chunk.Chunk
	Class Class
	Ratio float64
	Text  string
}

type Matcher struct {
	threshold float64
}

func New(partialThreshold float64) (*Matcher, error) {
	if partialThreshold <= 0 || partialThreshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, partialThreshold)
	}
	return &Matcher{threshold: partialThreshold}, nil
}

// Classify labels every chunk. A chunk whose canonical text is a corpus chunk
// is Exact and is never downgraded. Otherwise the best shared-token count over
// the corpus, divided by the index chunk size, decides between Partial and
// Unique.
func (m *Matcher) Classify(chunks []chunk.Chunk, idx *corpus.Index) []Result {
	out := make([]Result, 0, len(chunks))
	if idx == nil {
		for _, c := range chunks {
			out = append(out, Result{Chunk: c, Class: Unique})
		}
		return out
	}

	size := float64(idx.ChunkSize())
	for _, c := range chunks {
		text := c.Text()
		if idx.Count(text) > 0 {
			out = append(out, Result{Chunk: c, Class: Exact, Ratio: 1, Text: text})
			continue
		}

		ratio := float64(idx.MaxShared(c.Tokens)) / size
		if ratio+epsilon >= m.threshold {
			out = append(out, Result{Chunk: c, Class: Partial, Ratio: ratio, Text: text})
			continue
		}
		out = append(out, Result{Chunk: c, Class: Unique, Ratio: ratio})
	}
	return out
}
