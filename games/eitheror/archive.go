package eitheror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	resultsKey     = "eitheror:results"
	maxResults     = 100
	archiveTimeout = 5 * time.Second
)

// Result is the final scoreboard of a finished game.
type Result struct {
	RoomCode   string     `json:"roomCode"`
	FinishedAt time.Time  `json:"finishedAt"`
	Rounds     int        `json:"rounds"`
	Standings  []Standing `json:"standings"`
}

// Archive stores finished games.
//
//go:generate mockgen -package=mocks -destination=mocks/mock_archive.go github.com/Seednode/eitheror/games/eitheror Archive
type Archive interface {
	// Record stores a finished game.
	Record(ctx context.Context, result Result) error

	// Recent returns up to n results, newest first.
	Recent(ctx context.Context, n int) ([]Result, error)
}

// NopArchive discards results.
type NopArchive struct{}

func (NopArchive) Record(context.Context, Result) error { return nil }

func (NopArchive) Recent(context.Context, int) ([]Result, error) { return []Result{}, nil }

// RedisConfig holds configuration for the Redis archive.
type RedisConfig struct {
	RedisClient *redis.Client
}

// RedisArchive keeps the most recent results in a capped Redis list.
type RedisArchive struct {
	client *redis.Client
}

func NewRedisArchive(ctx context.Context, cfg *RedisConfig) (*RedisArchive, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if err := cfg.RedisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisArchive{
		client: cfg.RedisClient,
	}, nil
}

func (a *RedisArchive) Record(ctx context.Context, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	pipe := a.client.TxPipeline()
	pipe.LPush(ctx, resultsKey, data)
	pipe.LTrim(ctx, resultsKey, 0, maxResults-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	return nil
}

func (a *RedisArchive) Recent(ctx context.Context, n int) ([]Result, error) {
	if n <= 0 {
		return []Result{}, nil
	}

	raw, err := a.client.LRange(ctx, resultsKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		var result Result
		if err := json.Unmarshal([]byte(r), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		results = append(results, result)
	}

	return results, nil
}
