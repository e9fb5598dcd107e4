// Package stats aggregates round results into persisted cross-round statistics.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/moviequiz/internal/model"
)

// Storage keys. Each field is stored independently.
const (
	KeyTotalAccuracy = "total"
	KeyGamesCount    = "gamesCount"
	KeyBestGame      = "bestGame"
)

// ErrInvalidRound is returned for results outside 0 <= correct <= total, total > 0.
var ErrInvalidRound = errors.New("invalid round result")

// Storage is a durable key/value store shared by every process that records rounds.
type Storage interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	// Update reads keys and writes the values returned by fn as one atomic unit.
	// Missing keys are absent from the map passed to fn. fn may be called more
	// than once when a concurrent writer wins.
	Update(ctx context.Context, keys []string, fn func(current map[string]string) (map[string]string, error)) error
}

var statsKeys = []string{KeyTotalAccuracy, KeyGamesCount, KeyBestGame}

// History keeps the list of recorded rounds.
type History interface {
	AppendRound(ctx context.Context, round model.RoundRecord) error
	ListRounds(ctx context.Context, limit int) ([]model.RoundRecord, error)
}

// Aggregator maintains the running accuracy, games count and best game.
type Aggregator struct {
	mu      sync.Mutex
	store   Storage
	history History
	logger  *log.Logger
	now     func() time.Time
}

// NewAggregator returns an Aggregator over store. history and logger may be nil.
func NewAggregator(store Storage, history History, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Aggregator{
		store:   store,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// DefaultBestGame is reported before any round has been recorded.
func DefaultBestGame() model.GameRecord {
	return model.GameRecord{Date: time.Unix(0, 0).UTC()}
}

// Record commits one finished round. The returned state reflects the round even
// when writing it failed, so callers can still report it. When the stored state
// cannot be read, the round is applied to the defaults.
func (a *Aggregator) Record(ctx context.Context, correct, total int) (model.StatsState, error) {
	if total <= 0 || correct < 0 || correct > total {
		return model.StatsState{}, fmt.Errorf("%w: %d/%d", ErrInvalidRound, correct, total)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	accuracy := RoundAccuracy(correct, total)
	finishedAt := a.now()
	record := model.GameRecord{Correct: correct, Total: total, Date: finishedAt}

	var next model.StatsState
	computed := false
	err := a.store.Update(ctx, statsKeys, func(current map[string]string) (map[string]string, error) {
		var improved bool
		next, improved = advance(a.parse(current), record, accuracy)
		computed = true
		return a.encode(next, improved), nil
	})
	if err != nil {
		if !computed {
			next, _ = advance(defaultState(), record, accuracy)
		}
		return next, fmt.Errorf("failed to save stats: %w", err)
	}

	if a.history != nil {
		round := model.RoundRecord{
			ID:         uuid.NewString(),
			Correct:    correct,
			Total:      total,
			Accuracy:   accuracy,
			FinishedAt: finishedAt,
		}
		if err := a.history.AppendRound(ctx, round); err != nil {
			a.logger.Printf("failed to append round history: %v", err)
		}
	}
	return next, nil
}

func defaultState() model.StatsState {
	return model.StatsState{BestGame: DefaultBestGame()}
}

// advance applies one round to prev.
func advance(prev model.StatsState, record model.GameRecord, accuracy float64) (model.StatsState, bool) {
	next := model.StatsState{
		GamesCount:    prev.GamesCount + 1,
		TotalAccuracy: (prev.TotalAccuracy*float64(prev.GamesCount) + accuracy) / float64(prev.GamesCount+1),
		BestGame:      prev.BestGame,
	}
	improved := record.IsBetterThan(prev.BestGame)
	if improved {
		next.BestGame = record
	}
	return next, improved
}

// encode returns the values to write. bestGame is only written when it changed.
func (a *Aggregator) encode(st model.StatsState, improved bool) map[string]string {
	values := map[string]string{
		KeyTotalAccuracy: strconv.FormatFloat(st.TotalAccuracy, 'g', -1, 64),
		KeyGamesCount:    strconv.Itoa(st.GamesCount),
	}
	if improved {
		data, err := json.Marshal(st.BestGame)
		if err != nil {
			a.logger.Printf("failed to encode best game: %v", err)
		} else {
			values[KeyBestGame] = string(data)
		}
	}
	return values
}

// State returns all persisted statistics.
func (a *Aggregator) State(ctx context.Context) (model.StatsState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(ctx)
}

// BestGame returns the best recorded round.
func (a *Aggregator) BestGame(ctx context.Context) (model.GameRecord, error) {
	st, err := a.State(ctx)
	return st.BestGame, err
}

// GamesCount returns the number of recorded rounds.
func (a *Aggregator) GamesCount(ctx context.Context) (int, error) {
	st, err := a.State(ctx)
	return st.GamesCount, err
}

// TotalAccuracy returns the running mean of per-round accuracy percentages.
func (a *Aggregator) TotalAccuracy(ctx context.Context) (float64, error) {
	st, err := a.State(ctx)
	return st.TotalAccuracy, err
}

// Rounds returns up to limit most recent rounds, oldest first. limit <= 0 means all.
func (a *Aggregator) Rounds(ctx context.Context, limit int) ([]model.RoundRecord, error) {
	if a.history == nil {
		return nil, nil
	}
	return a.history.ListRounds(ctx, limit)
}

func (a *Aggregator) load(ctx context.Context) (model.StatsState, error) {
	values, err := a.store.Get(ctx, statsKeys...)
	if err != nil {
		return defaultState(), fmt.Errorf("failed to load stats: %w", err)
	}
	return a.parse(values), nil
}

// parse decodes stored values. Malformed values fall back to their defaults.
func (a *Aggregator) parse(values map[string]string) model.StatsState {
	st := defaultState()
	if raw, ok := values[KeyTotalAccuracy]; ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			a.logger.Printf("ignoring malformed %s value %q: %v", KeyTotalAccuracy, raw, err)
		} else {
			st.TotalAccuracy = v
		}
	}
	if raw, ok := values[KeyGamesCount]; ok {
		v, err := strconv.Atoi(raw)
		if err != nil {
			a.logger.Printf("ignoring malformed %s value %q: %v", KeyGamesCount, raw, err)
		} else {
			st.GamesCount = v
		}
	}
	if raw, ok := values[KeyBestGame]; ok {
		var best model.GameRecord
		if err := json.Unmarshal([]byte(raw), &best); err != nil {
			a.logger.Printf("ignoring malformed %s value: %v", KeyBestGame, err)
		} else {
			st.BestGame = best
		}
	}
	return st
}

// RoundAccuracy returns the percentage of correct answers in a round.
func RoundAccuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(correct) / float64(total)
}
