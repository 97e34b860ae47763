package engine

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simcheck/internal/chunk"
	"simcheck/internal/match"
	"simcheck/internal/report"
	"simcheck/internal/score"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Options{})
	require.NoError(t, err)
	return e
}

func TestCheckIdenticalText(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	s, err := newEngine(t).Check(text, []string{text})
	require.NoError(t, err)

	assert.Equal(t, 100, s.Plagiarised)
	assert.Equal(t, 100, s.Exact)
	assert.Equal(t, 0, s.Partial)
	assert.ElementsMatch(t, []string{"the", "quick", "brown", "fox", "jumps", "over", "lazy", "dog"}, s.MatchingWords)
}

func TestCheckNoOverlap(t *testing.T) {
	s, err := newEngine(t).Check(
		"completely unique sentence with no overlap",
		[]string{"totally different content about something else"},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Plagiarised)
	assert.Equal(t, []string{}, s.MatchingWords)
}

func TestCheckPartialOnly(t *testing.T) {
	s, err := newEngine(t).Check(
		"alpha beta gamma one two",
		[]string{"alpha beta gamma delta epsilon"},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Exact)
	assert.Greater(t, s.Partial, 0)
	assert.Equal(t, s.Partial, s.Plagiarised)
}

func TestCheckSelfSimilarity(t *testing.T) {
	texts := []string{
		"hello",
		"Two words",
		"A longer paragraph, with punctuation; and MIXED case words that repeat: words words words.",
		strings.Repeat("lorem ipsum dolor sit amet ", 40),
	}
	e := newEngine(t)
	for _, text := range texts {
		s, err := e.Check(text, []string{text})
		require.NoError(t, err)
		assert.Equal(t, 100, s.Plagiarised, text)
		assert.Equal(t, 100, s.Exact, text)
		assert.Equal(t, 0, s.Partial, text)
	}
}

func TestCheckEmptyCorpus(t *testing.T) {
	e := newEngine(t)
	for _, text := range []string{"", "one", "the quick brown fox jumps over the lazy dog"} {
		s, err := e.Check(text, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, s.Plagiarised)
	}
}

func TestCheckEmptyCandidate(t *testing.T) {
	s, err := newEngine(t).Check("   ", []string{"some corpus text here to compare"})
	require.NoError(t, err)
	assert.Equal(t, score.Summary{MatchingWords: []string{}}, s)
}

func TestCheckShortCandidateAgainstLongerCorpus(t *testing.T) {
	s, err := newEngine(t).Check("fox", []string{"the quick brown fox jumps"})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Plagiarised)
}

func TestCheckIdempotent(t *testing.T) {
	e := newEngine(t)
	candidate := "the quick brown fox jumps over the lazy dog and runs away"
	corpusTexts := []string{"a quick brown fox jumps over a sleepy dog", "the lazy dog and the cat"}
	first, err := e.Check(candidate, corpusTexts)
	require.NoError(t, err)
	second, err := e.Check(candidate, corpusTexts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCheckPercentageBounds(t *testing.T) {
	vocab := strings.Fields("the a fox dog cat quick lazy brown jumps over runs sleeps")
	rng := rand.New(rand.NewSource(7))
	sentence := func(n int) string {
		words := make([]string, n)
		for i := range words {
			words[i] = vocab[rng.Intn(len(vocab))]
		}
		return strings.Join(words, " ")
	}

	for _, size := range []int{1, 2, 3, 5, 8} {
		e, err := New(Options{ChunkSize: size})
		require.NoError(t, err)
		for range 50 {
			corpusTexts := []string{sentence(rng.Intn(30)), sentence(rng.Intn(30))}
			s, err := e.Check(sentence(rng.Intn(40)), corpusTexts)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, s.Exact, 0)
			assert.GreaterOrEqual(t, s.Partial, 0)
			assert.LessOrEqual(t, s.Plagiarised, 100)
			assert.Equal(t, s.Exact+s.Partial, s.Plagiarised)
			assert.Equal(t, 100-s.Plagiarised, s.Unique())
		}
	}
}

func TestCheckRejectsInvalidUTF8(t *testing.T) {
	e := newEngine(t)
	_, err := e.Check("bad \xff text", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.Check("good text", []string{"ok", "bad \xfe"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{ChunkSize: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, chunk.ErrInvalidSize)

	_, err = New(Options{PartialThreshold: 1.5})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, match.ErrInvalidThreshold)

	e, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, chunk.DefaultSize, e.ChunkSize())
}

func TestCheckFunc(t *testing.T) {
	_, err := Check("text", nil, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	s, err := Check("a b c", []string{"a b c"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 100, s.Exact)
}

func TestRenderReport(t *testing.T) {
	e := newEngine(t)
	text := "The quick brown fox jumps over the lazy dog. A category of concatenated cats."
	s, err := e.Check(text, []string{"the quick brown fox jumps over the lazy dog"})
	require.NoError(t, err)

	doc, err := e.RenderReport("sub-9", text, s)
	require.NoError(t, err)
	assert.Contains(t, doc.Title, "sub-9")

	body, err := doc.HighlightedHTML()
	require.NoError(t, err)
	assert.Contains(t, body, "<mark>fox</mark>")
	assert.Contains(t, body, "<mark>The</mark>")
	assert.NotContains(t, body, "<mark>concatenated</mark>")
	assert.NotContains(t, body, "<mark>cats</mark>")

	raw, err := doc.Bytes(report.FormatHTML)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "sub-9")
}

func TestRenderReportValidates(t *testing.T) {
	e := newEngine(t)
	_, err := e.RenderReport("", "text", score.Summary{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.RenderReport("id", "text", score.Summary{Plagiarised: 50, Exact: 10, Partial: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.RenderReport("id", "text", score.Summary{Plagiarised: 150, Exact: 100, Partial: 50})
	assert.ErrorIs(t, err, ErrInvalidInput)

	doc, err := e.RenderReport("id", "plain text", score.Summary{})
	require.NoError(t, err)
	require.Len(t, doc.Segments, 1)
	assert.False(t, doc.Segments[0].Mark)
}
