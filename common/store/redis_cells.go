package store

import (
	"context"
	"errors"
	"fmt"

	redisWrapper "github.com/pledgekit/patronage/common/redis"
	"github.com/redis/go-redis/v9"
)

// RedisCells stores document cells in Redis, one key per cell. This is the
// backend for self-hosted deployments where the spreadsheet grid is not
// available; the key layout mirrors the grid addressing so the two backends
// stay interchangeable.
type RedisCells struct {
	redis *redisWrapper.Client
	docID string
}

// NewRedisCells creates a Redis cell backend for the given document id.
func NewRedisCells(redisClient *redis.Client, docID string, log Logger) *RedisCells {
	return &RedisCells{
		redis: redisWrapper.NewClient(redisClient, log),
		docID: docID,
	}
}

func (r *RedisCells) key(addr string) string {
	return fmt.Sprintf("doc:%s:cell:%s", r.docID, addr)
}

// ReadCell reads one cell; a missing key is an empty cell, not an error.
func (r *RedisCells) ReadCell(ctx context.Context, addr string) ([]byte, bool, error) {
	val, err := r.redis.Get(ctx, r.key(addr))
	if errors.Is(err, redisWrapper.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(val), true, nil
}

// WriteCell writes one cell with no expiry.
func (r *RedisCells) WriteCell(ctx context.Context, addr string, data []byte) error {
	return r.redis.SetWithExpiry(ctx, r.key(addr), string(data), 0)
}

// ClearCell removes one cell.
func (r *RedisCells) ClearCell(ctx context.Context, addr string) error {
	return r.redis.Delete(ctx, r.key(addr))
}
