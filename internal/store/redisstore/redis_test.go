package redisstore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/moviequiz/internal/model"
	"github.com/verte-zerg/moviequiz/internal/stats"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("MOVIEQUIZ_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MOVIEQUIZ_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	base := New(addr, os.Getenv("MOVIEQUIZ_TEST_REDIS_PASSWORD"), 0)
	st := base.WithPrefix("moviequiz:test:" + uuid.NewString() + ":")
	if err := st.Ping(ctx); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() {
		keys, err := st.rdb.Keys(ctx, st.prefix+"*").Result()
		if err == nil && len(keys) > 0 {
			_ = st.rdb.Del(ctx, keys...).Err()
		}
		_ = st.Close()
	})
	return st
}

func TestGetSet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	if err := st.Set(ctx, map[string]string{"total": "50", "gamesCount": "1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := st.Get(ctx, "total", "gamesCount", "bestGame")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["total"] != "50" || got["gamesCount"] != "1" {
		t.Fatalf("unexpected values: %v", got)
	}
	if _, ok := got["bestGame"]; ok {
		t.Fatalf("missing key must be absent")
	}
}

func TestAggregatorOverRedis(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	agg := stats.NewAggregator(st, st, nil)
	if _, err := agg.Record(ctx, 2, 5); err != nil {
		t.Fatalf("record: %v", err)
	}
	state, err := agg.Record(ctx, 3, 5)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if state.GamesCount != 2 || state.TotalAccuracy != 50 || state.BestGame.Correct != 3 {
		t.Fatalf("unexpected state: %+v", state)
	}
	rounds, err := st.ListRounds(ctx, 1)
	if err != nil {
		t.Fatalf("list rounds: %v", err)
	}
	if len(rounds) != 1 || rounds[0].Correct != 3 {
		t.Fatalf("unexpected rounds: %+v", rounds)
	}
}

func TestListRoundsOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		round := model.RoundRecord{ID: uuid.NewString(), Correct: i, Total: 10, FinishedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := st.AppendRound(ctx, round); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	rounds, err := st.ListRounds(ctx, 0)
	if err != nil {
		t.Fatalf("list rounds: %v", err)
	}
	if len(rounds) != 3 || rounds[0].Correct != 0 || rounds[2].Correct != 2 {
		t.Fatalf("unexpected order: %+v", rounds)
	}
}

func TestConcurrentRecordsAcrossClients(t *testing.T) {
	first := newTestStore(t)
	second := first.WithPrefix(first.prefix)
	other := New(os.Getenv("MOVIEQUIZ_TEST_REDIS_ADDR"), os.Getenv("MOVIEQUIZ_TEST_REDIS_PASSWORD"), 0).WithPrefix(first.prefix)
	t.Cleanup(func() {
		_ = other.Close()
	})
	aggs := []*stats.Aggregator{
		stats.NewAggregator(first, nil, nil),
		stats.NewAggregator(second, nil, nil),
		stats.NewAggregator(other, nil, nil),
	}
	ctx := context.Background()

	const perClient = 20
	var wg sync.WaitGroup
	errs := make(chan error, len(aggs)*perClient)
	for _, agg := range aggs {
		for i := 0; i < perClient; i++ {
			wg.Add(1)
			go func(agg *stats.Aggregator) {
				defer wg.Done()
				if _, err := agg.Record(ctx, 5, 10); err != nil {
					errs <- err
				}
			}(agg)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("record: %v", err)
	}
	games, err := aggs[0].GamesCount(ctx)
	if err != nil {
		t.Fatalf("games count: %v", err)
	}
	if games != len(aggs)*perClient {
		t.Fatalf("expected %d games, got %d", len(aggs)*perClient, games)
	}
}
