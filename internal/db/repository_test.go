package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "simcheck.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInsertAndCorpus(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for _, sub := range []Submission{
		{ID: "a1", Student: "ann", Assignment: "essay-1", Text: "first text"},
		{ID: "a2", Student: "bob", Assignment: "essay-1", Text: "second text"},
		{ID: "b1", Student: "cat", Assignment: "essay-2", Text: "other assignment"},
		{ID: "a3", Student: "dan", Assignment: "essay-1", Text: "third text"},
	} {
		require.NoError(t, store.InsertSubmission(ctx, sub))
	}

	texts, err := store.CorpusTexts(ctx, "essay-1", "a2")
	require.NoError(t, err)
	assert.Equal(t, []string{"first text", "third text"}, texts)

	texts, err = store.CorpusTexts(ctx, "missing", "")
	require.NoError(t, err)
	assert.Equal(t, []string{}, texts)

	subs, err := store.ListSubmissions(ctx, "essay-1")
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "a1", subs[0].ID)
	assert.False(t, subs[0].CreatedAt.IsZero())

	n, err := countRows(store.conn, "submissions")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestInsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	sub := Submission{ID: "dup", Student: "s", Assignment: "a", Text: "t"}
	require.NoError(t, store.InsertSubmission(ctx, sub))
	assert.Error(t, store.InsertSubmission(ctx, sub))
	assert.Error(t, store.InsertSubmission(ctx, Submission{Student: "s"}))
}

func TestGetSubmissionNotFound(t *testing.T) {
	_, err := openTestStore(t).GetSubmission(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveResultUpsert(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.InsertSubmission(ctx, Submission{ID: "s1", Student: "ann", Assignment: "a", Text: "t"}))

	require.NoError(t, store.SaveResult(ctx, Result{
		SubmissionID:  "s1",
		Plagiarised:   70,
		Exact:         50,
		Partial:       20,
		MatchingWords: []string{"quick", "fox"},
		ReportPath:    "/tmp/r.html",
		Alert:         true,
	}))
	require.NoError(t, store.SaveResult(ctx, Result{SubmissionID: "s1", Plagiarised: 10, Exact: 10}))

	res, err := store.GetResult(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 10, res.Plagiarised)
	assert.Equal(t, 0, res.Partial)
	assert.Equal(t, []string{}, res.MatchingWords)
	assert.False(t, res.Alert)
	assert.Empty(t, res.ReportPath)

	n, err := countRows(store.conn, "similarity_results")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordSubmission(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	sub := Submission{ID: "s1", Student: "ann", Assignment: "a", Text: "t"}
	require.NoError(t, store.RecordSubmission(ctx, sub, Result{SubmissionID: "s1", Plagiarised: 40, Exact: 40}))

	got, err := store.GetSubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "t", got.Text)
	res, err := store.GetResult(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 40, res.Plagiarised)

	err = store.RecordSubmission(ctx, sub, Result{SubmissionID: "s1", Plagiarised: 90, Exact: 90})
	require.Error(t, err)
	res, err = store.GetResult(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 40, res.Plagiarised, "failed record must not touch the stored result")

	err = store.RecordSubmission(ctx, Submission{ID: "s2", Student: "bob", Assignment: "a", Text: "u"}, Result{SubmissionID: "other"})
	require.Error(t, err)
	_, err = store.GetSubmission(ctx, "s2")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := countRows(store.conn, "submissions")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func countRows(conn *sql.DB, table string) (int, error) {
	row := conn.QueryRow(`SELECT COUNT(*) FROM ` + table)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan count: %w", err)
	}
	return count, nil
}
