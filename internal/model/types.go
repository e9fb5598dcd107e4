// Package model defines shared data structures.
package model

import "time"

// Config defines play settings.
type Config struct {
	Questions     int
	FeedbackDelay time.Duration
	ThresholdMin  int
	ThresholdMax  int
	ShowTitle     bool
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	ImageWidth    int
	StatsBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// StatsConfig defines options for stats output.
type StatsConfig struct {
	Last        int
	CurveWindow int
	Plain       bool
}

// MovieRecord is a raw catalog entry from the remote source.
type MovieRecord struct {
	ID         string
	Title      string
	RatingText string
	ImageRef   string
}

// Question is a single yes/no rating question. It is never mutated after creation.
type Question struct {
	Image         []byte
	Text          string
	CorrectAnswer bool

	Title     string
	Rating    float64
	Threshold int
}

// Step is the presentable form of the current question.
type Step struct {
	Image   []byte
	Text    string
	Counter string
	Title   string
}

// GameRecord captures the outcome of one completed round.
type GameRecord struct {
	Correct int       `json:"correct"`
	Total   int       `json:"total"`
	Date    time.Time `json:"date"`
}

// IsBetterThan reports whether g has strictly more correct answers than other.
func (g GameRecord) IsBetterThan(other GameRecord) bool {
	return g.Correct > other.Correct
}

// StatsState is the persisted cross-round statistics.
type StatsState struct {
	TotalAccuracy float64
	GamesCount    int
	BestGame      GameRecord
}

// RoundRecord is one entry of the round history.
type RoundRecord struct {
	ID         string    `json:"id"`
	Correct    int       `json:"correct"`
	Total      int       `json:"total"`
	Accuracy   float64   `json:"accuracy"`
	FinishedAt time.Time `json:"finished_at"`
}

// RoundSummary is shown when a round is over.
type RoundSummary struct {
	Title      string
	Message    string
	ButtonText string

	Correct       int
	Total         int
	GamesCount    int
	BestGame      GameRecord
	TotalAccuracy float64
}

// ErrorNotice is shown when questions cannot be produced.
type ErrorNotice struct {
	Title      string
	Message    string
	ButtonText string
}
