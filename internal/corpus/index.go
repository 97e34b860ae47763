// Package corpus builds the lookup structure that candidate chunks are
// compared against. An Index is built once per check and never shared.
package corpus

import (
	"fmt"

	"simcheck/internal/chunk"
	"simcheck/internal/normalize"
)

type tokenSet map[string]struct{}

// Index maps the canonical text of every corpus chunk to its number of
// occurrences and buckets distinct chunks by the tokens they contain.
type Index struct {
	size    int
	counts  map[string]int
	sets    []tokenSet
	buckets map[string][]int
}

// Build normalizes and chunks every corpus text with the given chunk size.
// Empty texts contribute nothing; an empty corpus yields an index that
// matches nothing.
func Build(texts []string, size int) (*Index, error) {
	idx := &Index{
		size:    size,
		counts:  map[string]int{},
		buckets: map[string][]int{},
	}
	for i, text := range texts {
		chunks, err := chunk.Window(normalize.Tokens(text), size)
		if err != nil {
			return nil, fmt.Errorf("chunk corpus entry %d: %w", i, err)
		}
		for _, c := range chunks {
			idx.add(c)
		}
	}
	return idx, nil
}

func (idx *Index) add(c chunk.Chunk) {
	key := c.Text()
	idx.counts[key]++
	if idx.counts[key] > 1 {
		return
	}

	id := len(idx.sets)
	set := make(tokenSet, len(c.Tokens))
	for _, tok := range c.Tokens {
		set[tok] = struct{}{}
	}
	idx.sets = append(idx.sets, set)
	for tok := range set {
		idx.buckets[tok] = append(idx.buckets[tok], id)
	}
}

// ChunkSize is the window size the index was built with.
func (idx *Index) ChunkSize() int { return idx.size }

// Len is the number of distinct corpus chunks.
func (idx *Index) Len() int { return len(idx.sets) }

// Count reports how many times text occurs as a corpus chunk.
func (idx *Index) Count(text string) int { return idx.counts[text] }

// MaxShared returns the largest number of distinct tokens any single corpus
// chunk has in common with tokens. Only chunks sharing at least one token are
// inspected.
func (idx *Index) MaxShared(tokens []string) int {
	query := make(tokenSet, len(tokens))
	for _, tok := range tokens {
		query[tok] = struct{}{}
	}

	seen := map[int]struct{}{}
	best := 0
	for tok := range query {
		for _, id := range idx.buckets[tok] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			shared := 0
			for p := range query {
				if _, ok := idx.sets[id][p]; ok {
					shared++
				}
			}
			if shared > best {
				best = shared
				if best == len(query) {
					return best
				}
			}
		}
	}
	return best
}
