package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simcheck/internal/chunk"
	"simcheck/internal/normalize"
)

func TestBuildCountsChunks(t *testing.T) {
	idx, err := Build([]string{
		"The quick brown fox jumps",
		"the QUICK brown fox jumps!",
		"",
	}, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, idx.Count("the quick brown fox jumps"))
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 5, idx.ChunkSize())
	assert.Zero(t, idx.Count("quick brown fox jumps over"))
}

func TestBuildEmptyCorpus(t *testing.T) {
	idx, err := Build(nil, 5)
	require.NoError(t, err)
	assert.Zero(t, idx.Len())
	assert.Zero(t, idx.MaxShared([]string{"a", "b"}))
}

func TestBuildInvalidSize(t *testing.T) {
	_, err := Build([]string{"a b c"}, 0)
	assert.ErrorIs(t, err, chunk.ErrInvalidSize)
}

func TestMaxShared(t *testing.T) {
	idx, err := Build([]string{"alpha beta gamma delta epsilon"}, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, idx.MaxShared(strings.Fields("epsilon delta gamma beta alpha")))
	assert.Equal(t, 3, idx.MaxShared(strings.Fields("alpha beta gamma one two")))
	assert.Equal(t, 1, idx.MaxShared(strings.Fields("alpha alpha alpha x y")))
	assert.Zero(t, idx.MaxShared(strings.Fields("one two three four five")))
}

func TestMaxSharedMatchesBruteForce(t *testing.T) {
	corpusText := "a b c d e f g h a c e g b d f h"
	idx, err := Build([]string{corpusText}, 4)
	require.NoError(t, err)

	corpusChunks, err := chunk.Window(normalize.Tokens(corpusText), 4)
	require.NoError(t, err)
	candidates, err := chunk.Window(strings.Fields("h g f e d c b a x y z a"), 4)
	require.NoError(t, err)

	for _, c := range candidates {
		want := 0
		for _, cc := range corpusChunks {
			if n := sharedDistinct(c.Tokens, cc.Tokens); n > want {
				want = n
			}
		}
		assert.Equal(t, want, idx.MaxShared(c.Tokens), c.Text())
	}
}

func sharedDistinct(a, b []string) int {
	in := map[string]bool{}
	for _, t := range b {
		in[t] = true
	}
	seen := map[string]bool{}
	n := 0
	for _, t := range a {
		if in[t] && !seen[t] {
			n++
		}
		seen[t] = true
	}
	return n
}
