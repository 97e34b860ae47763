package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// Store persists submissions and their similarity results. It is the corpus
// supplier for the similarity engine.
type Store struct {
	conn *sql.DB
}

func OpenStore(path string) (*Store, error) {
	conn, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) InsertSubmission(ctx context.Context, sub Submission) error {
	return insertSubmission(ctx, s.conn, sub)
}

// RecordSubmission stores a new submission together with its first result in
// one transaction, so a submission is never stored without a result.
func (s *Store) RecordSubmission(ctx context.Context, sub Submission, res Result) error {
	if res.SubmissionID != sub.ID {
		return fmt.Errorf("result for %q does not belong to submission %q", res.SubmissionID, sub.ID)
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := insertSubmission(ctx, tx, sub); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := saveResult(ctx, tx, res); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submission: %w", err)
	}
	return nil
}

func insertSubmission(ctx context.Context, conn execer, sub Submission) error {
	if strings.TrimSpace(sub.ID) == "" {
		return fmt.Errorf("submission id must be non-empty")
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	_, err := conn.ExecContext(ctx,
		`INSERT INTO submissions(id, student, assignment, text, created_at) VALUES(?,?,?,?,?)`,
		sub.ID, sub.Student, sub.Assignment, sub.Text, formatTime(sub.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, student, assignment, text, created_at FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListSubmissions returns the submissions of an assignment, oldest first.
func (s *Store) ListSubmissions(ctx context.Context, assignment string) ([]Submission, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, student, assignment, text, created_at FROM submissions WHERE assignment = ? ORDER BY seq`, assignment)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}

// CorpusTexts returns the texts of every submission to the assignment except
// excludeID, oldest first.
func (s *Store) CorpusTexts(ctx context.Context, assignment, excludeID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT text FROM submissions WHERE assignment = ? AND id != ? ORDER BY seq`, assignment, excludeID)
	if err != nil {
		return nil, fmt.Errorf("query corpus: %w", err)
	}
	defer rows.Close()

	texts := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan corpus text: %w", err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query corpus: %w", err)
	}
	return texts, nil
}

// SaveResult stores the result for a submission, replacing any earlier one.
func (s *Store) SaveResult(ctx context.Context, res Result) error {
	return saveResult(ctx, s.conn, res)
}

func saveResult(ctx context.Context, conn execer, res Result) error {
	words := res.MatchingWords
	if words == nil {
		words = []string{}
	}
	rawWords, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("marshal matching words: %w", err)
	}
	if res.CheckedAt.IsZero() {
		res.CheckedAt = time.Now().UTC()
	}
	_, err = conn.ExecContext(ctx, `
		INSERT INTO similarity_results(submission_id, plagiarised, exact, partial, matching_words, report_path, alert, checked_at)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(submission_id) DO UPDATE SET
		  plagiarised = excluded.plagiarised,
		  exact = excluded.exact,
		  partial = excluded.partial,
		  matching_words = excluded.matching_words,
		  report_path = excluded.report_path,
		  alert = excluded.alert,
		  checked_at = excluded.checked_at`,
		res.SubmissionID, res.Plagiarised, res.Exact, res.Partial, string(rawWords),
		res.ReportPath, boolToInt(res.Alert), formatTime(res.CheckedAt),
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *Store) GetResult(ctx context.Context, submissionID string) (*Result, error) {
	var (
		res       Result
		rawWords  string
		path      sql.NullString
		alert     int
		checkedAt string
	)
	err := s.conn.QueryRowContext(ctx, `
		SELECT submission_id, plagiarised, exact, partial, matching_words, report_path, alert, checked_at
		FROM similarity_results WHERE submission_id = ?`, submissionID,
	).Scan(&res.SubmissionID, &res.Plagiarised, &res.Exact, &res.Partial, &rawWords, &path, &alert, &checkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result for %s: %w", submissionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	if err := json.Unmarshal([]byte(rawWords), &res.MatchingWords); err != nil {
		return nil, fmt.Errorf("decode matching words: %w", err)
	}
	res.ReportPath = path.String
	res.Alert = alert != 0
	if res.CheckedAt, err = parseTime(checkedAt); err != nil {
		return nil, err
	}
	return &res, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*Submission, error) {
	var (
		sub     Submission
		created string
	)
	if err := row.Scan(&sub.ID, &sub.Student, &sub.Assignment, &sub.Text, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	sub.CreatedAt = t
	return &sub, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
