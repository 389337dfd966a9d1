package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/qa"
	"github.com/docuqa/backend/pkg/config"
	"github.com/docuqa/backend/pkg/logger"
	"github.com/docuqa/backend/pkg/utils"
)

// Client caches resolved answers per document. Each cached answer key is
// tracked in a per-document set so a snapshot change can drop every answer
// for that document at once.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis answer cache connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)

	return &Client{rdb: rdb, ttl: time.Duration(cfg.TTLSec) * time.Second}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func answerKey(documentID, question string) string {
	return fmt.Sprintf("answer:%s:%s", documentID, utils.HashString(qa.Normalize(question)))
}

func documentSetKey(documentID string) string {
	return "answers:" + documentID
}

// GetAnswer returns the cached result for (document, question), if any.
func (c *Client) GetAnswer(ctx context.Context, documentID, question string) (*qa.AnswerResult, bool) {
	data, err := c.rdb.Get(ctx, answerKey(documentID, question)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Warn("Answer cache read failed", zap.Error(err))
		return nil, false
	}

	var result qa.AnswerResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warn("Answer cache entry malformed, dropping", zap.Error(err))
		c.rdb.Del(ctx, answerKey(documentID, question))
		return nil, false
	}

	return &result, true
}

// SetAnswer stores a resolved answer. Failures are logged only; caching is
// never allowed to fail a question.
func (c *Client) SetAnswer(ctx context.Context, documentID, question string, result *qa.AnswerResult) {
	data, err := json.Marshal(result)
	if err != nil {
		logger.Warn("Failed to marshal answer for cache", zap.Error(err))
		return
	}

	key := answerKey(documentID, question)
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, data, c.ttl)
	pipe.SAdd(ctx, documentSetKey(documentID), key)
	pipe.Expire(ctx, documentSetKey(documentID), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("Answer cache write failed", zap.Error(err))
	}
}

// InvalidateDocument drops every cached answer for the document. Called by
// the sync engine after each snapshot write.
func (c *Client) InvalidateDocument(ctx context.Context, documentID string) error {
	setKey := documentSetKey(documentID)

	keys, err := c.rdb.SMembers(ctx, setKey).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to list cached answers: %w", err)
	}

	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to drop cached answers: %w", err)
		}
	}

	if err := c.rdb.Del(ctx, setKey).Err(); err != nil {
		return fmt.Errorf("failed to drop cache index: %w", err)
	}

	logger.Debug("Answer cache invalidated",
		zap.String("doc_id", documentID),
		zap.Int("entries", len(keys)),
	)
	return nil
}
