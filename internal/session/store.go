// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session keeps snapshots of running research passes in Redis so a
// pass can be inspected while it runs and after it fails.
//
// See docs/ARCHITECTURE.md § Checkpoints.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pdiddy/marketing-research/internal/research"
	"github.com/pdiddy/marketing-research/pkg/types"
)

const (
	keyPrefix = "marketing-research:pass:"
	indexKey  = "marketing-research:passes"

	// DefaultTTL is how long a snapshot lives when no TTL is configured.
	DefaultTTL = 24 * time.Hour
)

// ErrNotFound is returned when no snapshot exists for a pass id.
var ErrNotFound = errors.New("pass snapshot not found")

// RedisStore stores the latest snapshot of each pass. It implements
// research.Checkpointer; the last write for a pass wins.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// Dial connects to the Redis server named in cfg and verifies the
// connection.
func Dial(ctx context.Context, cfg types.SessionConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	return NewRedisStore(client, cfg.TTL, logger), nil
}

// NewRedisStore wraps an existing client. A ttl of 0 means DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func passKey(id string) string {
	return keyPrefix + id
}

// Checkpoint implements research.Checkpointer.
func (s *RedisStore) Checkpoint(ctx context.Context, state *research.PassState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling pass %s: %w", state.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, passKey(state.ID), data, s.ttl)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(state.StartedAt.UnixNano()), Member: state.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving pass %s: %w", state.ID, err)
	}

	s.logger.Debug("checkpoint saved",
		zap.String("pass", state.ID),
		zap.String("phase", string(state.Phase)),
		zap.Int("bytes", len(data)))
	return nil
}

// Load returns the latest snapshot of a pass.
func (s *RedisStore) Load(ctx context.Context, id string) (*research.PassState, error) {
	data, err := s.client.Get(ctx, passKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pass %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading pass %s: %w", id, err)
	}

	var state research.PassState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding pass %s: %w", id, err)
	}
	return &state, nil
}

// Recent returns up to n pass ids whose snapshots still exist, newest
// first. Ids whose snapshot has expired are pruned from the index.
func (s *RedisStore) Recent(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := s.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing passes: %w", err)
	}

	var live, stale []string
	for _, id := range ids {
		if len(live) == n {
			break
		}
		exists, err := s.client.Exists(ctx, passKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("checking pass %s: %w", id, err)
		}
		if exists == 0 {
			stale = append(stale, id)
			continue
		}
		live = append(live, id)
	}

	if len(stale) > 0 {
		members := make([]any, len(stale))
		for i, id := range stale {
			members[i] = id
		}
		if err := s.client.ZRem(ctx, indexKey, members...).Err(); err != nil {
			s.logger.Warn("pruning expired passes failed", zap.Error(err))
		}
	}
	return live, nil
}

// Delete removes the snapshot of a pass.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, passKey(id))
		pipe.ZRem(ctx, indexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting pass %s: %w", id, err)
	}
	return nil
}
