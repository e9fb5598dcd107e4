// Package redisstore keeps statistics in Redis so several machines can share them.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/verte-zerg/moviequiz/internal/model"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "moviequiz:stats:"

const (
	roundsKey        = "rounds"
	maxUpdateRetries = 50
)

// ErrContention is returned when Update keeps losing to concurrent writers.
var ErrContention = errors.New("redis update contention")

// Store implements stats storage and round history on top of Redis.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// New creates a Redis-backed store. Call Ping to verify the connection.
func New(addr, password string, db int) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{rdb: rdb, prefix: DefaultPrefix}
}

// WithPrefix returns a copy of the store that writes under prefix.
func (s *Store) WithPrefix(prefix string) *Store {
	return &Store{rdb: s.rdb, prefix: prefix}
}

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// Close releases the client connections.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) fullKeys(keys []string) []string {
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.key(key)
	}
	return full
}

func collect(keys []string, values []any) map[string]string {
	result := make(map[string]string, len(keys))
	for i, value := range values {
		str, ok := value.(string)
		if !ok {
			continue
		}
		result[keys[i]] = str
	}
	return result
}

// Get returns the stored values for keys. Missing keys are absent from the result.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	values, err := s.rdb.MGet(ctx, s.fullKeys(keys)...).Result()
	if err != nil {
		return nil, err
	}
	return collect(keys, values), nil
}

// Update watches keys, lets fn compute new values and writes them in MULTI/EXEC.
// The transaction is retried when another client changes a watched key.
func (s *Store) Update(ctx context.Context, keys []string, fn func(map[string]string) (map[string]string, error)) error {
	full := s.fullKeys(keys)
	txf := func(tx *redis.Tx) error {
		var current map[string]string
		if len(full) > 0 {
			values, err := tx.MGet(ctx, full...).Result()
			if err != nil {
				return err
			}
			current = collect(keys, values)
		} else {
			current = map[string]string{}
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for key, value := range next {
				pipe.Set(ctx, s.key(key), value, 0)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, full...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: gave up after %d attempts", ErrContention, maxUpdateRetries)
}

// Set writes all values in a MULTI/EXEC transaction.
func (s *Store) Set(ctx context.Context, values map[string]string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, s.key(key), value, 0)
		}
		return nil
	})
	return err
}

// AppendRound pushes a finished round onto the history list.
func (s *Store) AppendRound(ctx context.Context, round model.RoundRecord) error {
	data, err := json.Marshal(round)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, s.key(roundsKey), data).Err()
}

// ListRounds returns up to limit most recent rounds, oldest first. limit <= 0 returns all.
func (s *Store) ListRounds(ctx context.Context, limit int) ([]model.RoundRecord, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raw, err := s.rdb.LRange(ctx, s.key(roundsKey), start, -1).Result()
	if err != nil {
		return nil, err
	}
	rounds := make([]model.RoundRecord, 0, len(raw))
	for _, item := range raw {
		var round model.RoundRecord
		if err := json.Unmarshal([]byte(item), &round); err != nil {
			return nil, fmt.Errorf("failed to decode round: %w", err)
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}
