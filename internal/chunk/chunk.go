package chunk

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultSize is the number of tokens in a chunk unless the caller says otherwise.
const DefaultSize = 5

var ErrInvalidSize = errors.New("chunk size must be positive")

// Chunk is a contiguous run of tokens starting at Offset in the token sequence.
type Chunk struct {
	Offset int
	Tokens []string
}

// Text is the canonical chunk text used for exact lookups.
func (c Chunk) Text() string {
	return strings.Join(c.Tokens, " ")
}

// Window slides a window of size tokens over the sequence one token at a time,
// so every contiguous span of that length is produced. A sequence shorter than
// size yields a single chunk covering all of it; an empty sequence yields none.
func Window(tokens []string, size int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if len(tokens) == 0 {
		return []Chunk{}, nil
	}
	if len(tokens) <= size {
		return []Chunk{{Offset: 0, Tokens: tokens}}, nil
	}

	chunks := make([]Chunk, 0, len(tokens)-size+1)
	for start := 0; start+size <= len(tokens); start++ {
		chunks = append(chunks, Chunk{
			Offset: start,
			Tokens: tokens[start : start+size],
		})
	}
	return chunks, nil
}
