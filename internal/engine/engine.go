// Package engine is the similarity detection entry point: it checks a
// candidate text against a caller-supplied corpus and renders the annotated
// report. It holds no state between calls and does no I/O.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"simcheck/internal/chunk"
	"simcheck/internal/corpus"
	"simcheck/internal/logger"
	"simcheck/internal/match"
	"simcheck/internal/normalize"
	"simcheck/internal/report"
	"simcheck/internal/score"
)

var ErrInvalidInput = errors.New("invalid input")

// Options configure an Engine. Zero values select the defaults.
type Options struct {
	ChunkSize        int
	PartialThreshold float64
	Logger           logger.Logger
}

type Engine struct {
	chunkSize int
	matcher   *match.Matcher
	log       logger.Logger
}

func New(opts Options) (*Engine, error) {
	size := opts.ChunkSize
	if size == 0 {
		size = chunk.DefaultSize
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %w: got %d", ErrInvalidInput, chunk.ErrInvalidSize, size)
	}
	threshold := opts.PartialThreshold
	if threshold == 0 {
		threshold = match.DefaultPartialThreshold
	}
	m, err := match.New(threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{chunkSize: size, matcher: m, log: log}, nil
}

func (e *Engine) ChunkSize() int { return e.chunkSize }

// Check scores candidate against corpusTexts. An empty candidate or an empty
// corpus is not an error and scores zero.
func (e *Engine) Check(candidate string, corpusTexts []string) (score.Summary, error) {
	if !utf8.ValidString(candidate) {
		return score.Summary{}, fmt.Errorf("%w: candidate text is not valid UTF-8", ErrInvalidInput)
	}
	for i, text := range corpusTexts {
		if !utf8.ValidString(text) {
			return score.Summary{}, fmt.Errorf("%w: corpus entry %d is not valid UTF-8", ErrInvalidInput, i)
		}
	}

	chunks, err := chunk.Window(normalize.Tokens(candidate), e.chunkSize)
	if err != nil {
		return score.Summary{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	idx, err := corpus.Build(corpusTexts, e.chunkSize)
	if err != nil {
		return score.Summary{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	results := e.matcher.Classify(chunks, idx)
	summary := score.Aggregate(results)
	e.log.Debug("similarity check complete",
		"chunks", len(chunks),
		"corpus_entries", len(corpusTexts),
		"corpus_chunks", idx.Len(),
		"exact", summary.Exact,
		"partial", summary.Partial,
	)
	return summary, nil
}

// Check runs a one-off comparison with the given chunk size and the default
// partial threshold.
func Check(candidate string, corpusTexts []string, chunkSize int) (score.Summary, error) {
	if chunkSize <= 0 {
		return score.Summary{}, fmt.Errorf("%w: %w: got %d", ErrInvalidInput, chunk.ErrInvalidSize, chunkSize)
	}
	e, err := New(Options{ChunkSize: chunkSize})
	if err != nil {
		return score.Summary{}, err
	}
	return e.Check(candidate, corpusTexts)
}

// RenderReport builds the annotated report for a scored submission.
func (e *Engine) RenderReport(submissionID, candidate string, summary score.Summary) (*report.Document, error) {
	if strings.TrimSpace(submissionID) == "" {
		return nil, fmt.Errorf("%w: submission id is required", ErrInvalidInput)
	}
	if !utf8.ValidString(submissionID) || !utf8.ValidString(candidate) {
		return nil, fmt.Errorf("%w: report input is not valid UTF-8", ErrInvalidInput)
	}
	if err := validateSummary(summary); err != nil {
		return nil, err
	}
	return report.New(submissionID, candidate, summary), nil
}

func validateSummary(s score.Summary) error {
	if s.Exact < 0 || s.Partial < 0 || s.Exact > 100 || s.Partial > 100 {
		return fmt.Errorf("%w: percentages out of range", ErrInvalidInput)
	}
	if s.Exact+s.Partial != s.Plagiarised || s.Plagiarised > 100 {
		return fmt.Errorf("%w: plagiarised %d does not equal exact %d + partial %d", ErrInvalidInput, s.Plagiarised, s.Exact, s.Partial)
	}
	return nil
}
