// Package submission is the workflow around the similarity engine: it turns a
// raw submission into candidate text, supplies the corpus from the store,
// persists the summary and report artifact, and applies the alert policy.
package submission

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"simcheck/internal/db"
	"simcheck/internal/engine"
	"simcheck/internal/ingest"
	"simcheck/internal/logger"
	"simcheck/internal/pipeline"
	"simcheck/internal/report"
	"simcheck/internal/score"
	"simcheck/internal/workspace"
)

var (
	ErrInvalidSubmission   = errors.New("invalid submission")
	ErrDuplicateSubmission = errors.New("submission already exists")
)

// Store is the persistence the workflow needs; *db.Store satisfies it.
type Store interface {
	GetSubmission(ctx context.Context, id string) (*db.Submission, error)
	RecordSubmission(ctx context.Context, sub db.Submission, res db.Result) error
	ListSubmissions(ctx context.Context, assignment string) ([]db.Submission, error)
	CorpusTexts(ctx context.Context, assignment, excludeID string) ([]string, error)
	SaveResult(ctx context.Context, res db.Result) error
	GetResult(ctx context.Context, submissionID string) (*db.Result, error)
}

// Input is a submission as it arrives from a form: optional typed text and an
// optional uploaded file, at least one of which must be present.
type Input struct {
	ID          string `validate:"omitempty,max=128"`
	Student     string `validate:"required,max=200"`
	Assignment  string `validate:"required,max=200"`
	Text        string
	FileName    string `validate:"required_with=FileContent"`
	FileContent []byte
}

type Outcome struct {
	SubmissionID string        `json:"submission_id"`
	Summary      score.Summary `json:"summary"`
	ReportPath   string        `json:"report_path"`
	Alert        bool          `json:"alert"`
}

type Options struct {
	Engine         *engine.Engine
	Store          Store
	WorkspaceRoot  string
	Format         report.Format
	PDFFont        string
	AlertThreshold int
	Workers        int
	Logger         logger.Logger
	Now            func() time.Time
}

type Service struct {
	engine    *engine.Engine
	store     Store
	root      string
	format    report.Format
	pdfFont   string
	threshold int
	workers   int
	log       logger.Logger
	now       func() time.Time
	validate  *validator.Validate
}

func NewService(opts Options) (*Service, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.AlertThreshold < 0 || opts.AlertThreshold > 100 {
		return nil, fmt.Errorf("alert threshold must be within 0..100, got %d", opts.AlertThreshold)
	}
	root, err := workspace.EnsureAt(opts.WorkspaceRoot)
	if err != nil {
		return nil, err
	}
	format := opts.Format
	if format == "" {
		format = report.FormatHTML
	}
	if _, err := report.ParseFormat(string(format)); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		engine:    opts.Engine,
		store:     opts.Store,
		root:      root,
		format:    format,
		pdfFont:   opts.PDFFont,
		threshold: opts.AlertThreshold,
		workers:   opts.Workers,
		log:       log,
		now:       now,
		validate:  validator.New(),
	}, nil
}

// CandidateText validates an Input and composes the text the engine sees:
// the typed text followed by the text extracted from the uploaded file.
func (s *Service) CandidateText(in Input) (string, error) {
	in = trimInput(in)
	if err := s.validate.Struct(in); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	text := strings.TrimSpace(in.Text)
	if !utf8.ValidString(text) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidSubmission)
	}
	if len(in.FileContent) > 0 {
		parsed, err := ingest.ParseBytes(in.FileName, in.FileContent)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
		}
		if text != "" && parsed.Text != "" {
			text += "\n"
		}
		text += parsed.Text
	}
	if text == "" {
		return "", fmt.Errorf("%w: text or a file with text is required", ErrInvalidSubmission)
	}
	return text, nil
}

// Submit checks a new submission against every earlier submission to the
// same assignment and stores it together with the outcome. Nothing is stored
// when any step fails, so the same id can be submitted again.
func (s *Service) Submit(ctx context.Context, in Input) (*Outcome, error) {
	in = trimInput(in)
	text, err := s.CandidateText(in)
	if err != nil {
		return nil, err
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := s.store.GetSubmission(ctx, id); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSubmission, id)
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	corpusTexts, err := s.store.CorpusTexts(ctx, in.Assignment, id)
	if err != nil {
		return nil, err
	}
	out, res, err := s.evaluate(id, text, corpusTexts)
	if err != nil {
		return nil, err
	}
	sub := db.Submission{
		ID:         id,
		Student:    in.Student,
		Assignment: in.Assignment,
		Text:       text,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.RecordSubmission(ctx, sub, res); err != nil {
		s.discardReport(res.ReportPath)
		return nil, err
	}
	s.logOutcome(out, len(corpusTexts))
	return out, nil
}

// Recheck scores every submission of an assignment against all the others.
// Submissions are processed concurrently; each one gets its own corpus.
func (s *Service) Recheck(ctx context.Context, assignment string) ([]Outcome, []error) {
	assignment = strings.TrimSpace(assignment)
	subs, err := s.store.ListSubmissions(ctx, assignment)
	if err != nil {
		return nil, []error{err}
	}

	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, len(subs))
	)
	errs := pipeline.Run(ctx, indexes(len(subs)), s.workers, func(ctx context.Context, i int) error {
		corpusTexts := make([]string, 0, len(subs)-1)
		for j, other := range subs {
			if j != i {
				corpusTexts = append(corpusTexts, other.Text)
			}
		}
		out, res, err := s.evaluate(subs[i].ID, subs[i].Text, corpusTexts)
		if err != nil {
			return fmt.Errorf("recheck %s: %w", subs[i].ID, err)
		}
		if err := s.store.SaveResult(ctx, res); err != nil {
			s.discardReport(res.ReportPath)
			return fmt.Errorf("recheck %s: %w", subs[i].ID, err)
		}
		s.logOutcome(out, len(corpusTexts))
		mu.Lock()
		outcomes = append(outcomes, *out)
		mu.Unlock()
		return nil
	})

	order := make(map[string]int, len(subs))
	for i, sub := range subs {
		order[sub.ID] = i
	}
	slices.SortFunc(outcomes, func(a, b Outcome) int { return order[a.SubmissionID] - order[b.SubmissionID] })
	s.log.Info("assignment rechecked", "assignment", assignment, "submissions", len(subs), "failed", len(errs))
	return outcomes, errs
}

// Result returns the stored outcome of a submission.
func (s *Service) Result(ctx context.Context, submissionID string) (*db.Result, error) {
	return s.store.GetResult(ctx, submissionID)
}

// evaluate scores text, renders and writes its report, and returns the
// result to persist. It stores nothing.
func (s *Service) evaluate(id, text string, corpusTexts []string) (*Outcome, db.Result, error) {
	corpusTexts = s.usableCorpus(s.log.With("submission", id), corpusTexts)

	summary, err := s.engine.Check(text, corpusTexts)
	if err != nil {
		return nil, db.Result{}, fmt.Errorf("check submission %s: %w", id, err)
	}
	doc, err := s.engine.RenderReport(id, text, summary)
	if err != nil {
		return nil, db.Result{}, fmt.Errorf("render report for %s: %w", id, err)
	}
	if s.format == report.FormatPDF && s.pdfFont == "" {
		if n := doc.Unencodable(); n > 0 {
			s.log.Warn("pdf report cannot show some characters; set a unicode pdf font", "submission", id, "characters", n)
		}
	}
	raw, err := doc.BytesWith(s.format, report.Options{FontPath: s.pdfFont})
	if err != nil {
		return nil, db.Result{}, fmt.Errorf("render report for %s: %w", id, err)
	}

	checkedAt := s.now().UTC()
	path := workspace.ReportPath(s.root, id, s.format.Extension(), checkedAt)
	if err := workspace.SaveReport(path, raw); err != nil {
		return nil, db.Result{}, err
	}

	alert := summary.Plagiarised >= s.threshold
	res := db.Result{
		SubmissionID:  id,
		Plagiarised:   summary.Plagiarised,
		Exact:         summary.Exact,
		Partial:       summary.Partial,
		MatchingWords: summary.MatchingWords,
		ReportPath:    path,
		Alert:         alert,
		CheckedAt:     checkedAt,
	}
	return &Outcome{SubmissionID: id, Summary: summary, ReportPath: path, Alert: alert}, res, nil
}

func (s *Service) logOutcome(out *Outcome, corpusSize int) {
	log := s.log.With("submission", out.SubmissionID)
	log.Info("submission checked",
		"corpus", corpusSize,
		"plagiarised", out.Summary.Plagiarised,
		"exact", out.Summary.Exact,
		"partial", out.Summary.Partial,
		"report", out.ReportPath,
	)
	if out.Alert {
		log.Warn("similarity above alert threshold", "plagiarised", out.Summary.Plagiarised, "threshold", s.threshold)
	}
}

// discardReport removes an artifact whose result could not be stored.
func (s *Service) discardReport(path string) {
	if err := workspace.RemoveReport(path); err != nil {
		s.log.Warn("could not remove unreferenced report", "path", path, "err", err)
	}
}

func trimInput(in Input) Input {
	in.ID = strings.TrimSpace(in.ID)
	in.Student = strings.TrimSpace(in.Student)
	in.Assignment = strings.TrimSpace(in.Assignment)
	return in
}

// usableCorpus drops entries the engine would reject so one damaged record
// cannot block every later check.
func (s *Service) usableCorpus(log logger.Logger, texts []string) []string {
	out := make([]string, 0, len(texts))
	for i, t := range texts {
		if !utf8.ValidString(t) {
			log.Warn("skipping corpus entry with invalid UTF-8", "entry", i)
			continue
		}
		out = append(out, t)
	}
	return out
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
