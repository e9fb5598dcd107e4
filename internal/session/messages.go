package session

import "github.com/verte-zerg/moviequiz/internal/model"

// CatalogLoadedMsg reports that the movie catalog is ready.
type CatalogLoadedMsg struct{}

// CatalogFailedMsg reports a catalog load failure.
type CatalogFailedMsg struct {
	Err error
}

// QuestionMsg delivers the outcome of a question request.
type QuestionMsg struct {
	Question model.Question
	Err      error
}

// FeedbackDoneMsg fires when the answer feedback delay elapses.
type FeedbackDoneMsg struct {
	seq int
}

// RoundRecordedMsg carries the statistics after a finished round is committed.
type RoundRecordedMsg struct {
	State model.StatsState
	Err   error
	seq   int
}
