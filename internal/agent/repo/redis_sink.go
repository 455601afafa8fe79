package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vmk-assistant/server/internal/agent/model"
	errx "github.com/vmk-assistant/server/internal/core/error"
	logx "github.com/vmk-assistant/server/pkg/logger"
)

// RedisSink appends records to the Redis list conversation:<key>:log.
type RedisSink struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisSink refreshes the list TTL on every append when ttl > 0.
func NewRedisSink(rdb redis.Cmdable, ttl time.Duration) *RedisSink {
	return &RedisSink{rdb: rdb, ttl: ttl}
}

func (r *RedisSink) logKey(conversationKey string) string {
	return fmt.Sprintf("conversation:%s:log", conversationKey)
}

func (r *RedisSink) Append(ctx context.Context, rec model.LogRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal log record: %w", err)
	}
	key := r.logKey(rec.ConversationKey)

	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation log")
		}
	}
	return nil
}

// Records loads the stored records of conversationKey, oldest first.
func (r *RedisSink) Records(ctx context.Context, conversationKey string) ([]model.LogRecord, error) {
	key := r.logKey(conversationKey)
	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.LogRecord{}, nil
		}
		return nil, errx.WrapRedis(err)
	}

	recs := make([]model.LogRecord, 0, len(rows))
	for i, s := range rows {
		var rec model.LogRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal log record at index %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

var _ model.LogSink = (*RedisSink)(nil)
