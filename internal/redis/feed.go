// Package redis holds the recent-submissions feed cache. The cache is a
// derived view only; the write path never reads it and the durable store
// remains authoritative.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/arcade-highscores/internal/config"
	"github.com/arcade-highscores/internal/domain"
)

const feedKey = "scores:recent"

// Feed is a capped list of the most recently accepted submissions.
type Feed struct {
	client *redis.Client
	logger *slog.Logger
	size   int
}

// NewFeed creates a new recent-feed cache
func NewFeed(cfg *config.RedisConfig, logger *slog.Logger) (*Feed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Feed{
		client: client,
		logger: logger,
		size:   cfg.FeedSize,
	}, nil
}

// Close closes the Redis connection
func (f *Feed) Close() error {
	return f.client.Close()
}

// Push prepends an accepted submission to the feed and trims it to the
// configured size.
func (f *Feed) Push(ctx context.Context, entry domain.RecentScore) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling feed entry: %w", err)
	}

	pipe := f.client.TxPipeline()
	pipe.LPush(ctx, feedKey, data)
	pipe.LTrim(ctx, feedKey, 0, int64(f.size)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pushing feed entry: %w", err)
	}
	return nil
}

// Recent returns up to limit feed entries, newest first. Entries that
// fail to decode are skipped.
func (f *Feed) Recent(ctx context.Context, limit int) ([]domain.RecentScore, error) {
	if limit <= 0 || limit > f.size {
		limit = f.size
	}

	items, err := f.client.LRange(ctx, feedKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading feed: %w", err)
	}

	entries := make([]domain.RecentScore, 0, len(items))
	for _, item := range items {
		var entry domain.RecentScore
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			f.logger.Warn("skipping malformed feed entry", "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
