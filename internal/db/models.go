package db

import "time"

// Submission is one stored piece of work and the text it was checked with.
type Submission struct {
	ID         string
	Student    string
	Assignment string
	Text       string
	CreatedAt  time.Time
}

// Result is the persisted similarity summary of a submission.
type Result struct {
	SubmissionID  string    `json:"submission_id"`
	Plagiarised   int       `json:"plagiarised"`
	Exact         int       `json:"exact"`
	Partial       int       `json:"partial"`
	MatchingWords []string  `json:"matching_words"`
	ReportPath    string    `json:"report_path"`
	Alert         bool      `json:"alert"`
	CheckedAt     time.Time `json:"checked_at"`
}
