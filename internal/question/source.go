// Package question turns catalog movies into randomized yes/no rating questions.
package question

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/verte-zerg/moviequiz/internal/model"
)

const (
	// DefaultThresholdMin and DefaultThresholdMax bound the asked rating, inclusive.
	DefaultThresholdMin = 6
	DefaultThresholdMax = 8

	// LowestThreshold and HighestThreshold are the rating thresholds worth asking on a 0..10 scale.
	LowestThreshold  = 1
	HighestThreshold = 9

	promptTemplate = "Is this movie rated higher than %d?"
)

// ErrEmptyCatalog is returned by Next when no movies are loaded.
var ErrEmptyCatalog = errors.New("movie catalog is empty")

// MovieLoader provides the remote catalog and poster bytes.
type MovieLoader interface {
	LoadMovies(ctx context.Context) ([]model.MovieRecord, error)
	FetchImage(ctx context.Context, ref string) ([]byte, error)
}

// Options configures a Source. Zero values select the defaults.
type Options struct {
	ThresholdMin int
	ThresholdMax int
	Rand         *rand.Rand
	Logger       *log.Logger
}

// Source holds the loaded catalog and produces questions from it.
type Source struct {
	loader MovieLoader
	logger *log.Logger
	minT   int
	maxT   int

	mu     sync.Mutex
	rnd    *rand.Rand
	movies []model.MovieRecord
}

// New returns a Source. Without Options.Rand it is seeded with the current time.
func New(loader MovieLoader, opts Options) *Source {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	minT, maxT := opts.ThresholdMin, opts.ThresholdMax
	if minT == 0 && maxT == 0 {
		minT, maxT = DefaultThresholdMin, DefaultThresholdMax
	}
	if maxT < minT {
		minT, maxT = maxT, minT
	}
	return &Source{
		loader: loader,
		logger: logger,
		minT:   minT,
		maxT:   maxT,
		rnd:    rnd,
	}
}

// LoadCatalog replaces the in-memory catalog. On failure the catalog is left empty.
func (s *Source) LoadCatalog(ctx context.Context) error {
	movies, err := s.loader.LoadMovies(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.movies = nil
		return err
	}
	s.movies = movies
	return nil
}

// Len returns the number of loaded movies.
func (s *Source) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movies)
}

// Next picks a random movie and builds a question about it. It blocks on the
// poster download; a failed download yields a question with an empty image.
func (s *Source) Next(ctx context.Context) (model.Question, error) {
	s.mu.Lock()
	if len(s.movies) == 0 {
		s.mu.Unlock()
		return model.Question{}, ErrEmptyCatalog
	}
	movie := s.movies[s.rnd.Intn(len(s.movies))]
	threshold := s.minT + s.rnd.Intn(s.maxT-s.minT+1)
	s.mu.Unlock()

	image := []byte{}
	if movie.ImageRef != "" {
		data, err := s.loader.FetchImage(ctx, movie.ImageRef)
		if err != nil {
			s.logger.Printf("failed to load image for %q: %v", movie.Title, err)
		} else {
			image = data
		}
	}

	rating := ParseRating(movie.RatingText)
	return model.Question{
		Image:         image,
		Text:          fmt.Sprintf(promptTemplate, threshold),
		CorrectAnswer: rating > float64(threshold),
		Title:         movie.Title,
		Rating:        rating,
		Threshold:     threshold,
	}, nil
}

// ParseRating parses a rating string. Anything that is not a finite number is 0.
func ParseRating(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
