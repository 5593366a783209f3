package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript выполняет проверку окна атомарно на стороне Redis.
// Окно хранится как sorted set: score - время запроса в миллисекундах.
//
// KEYS[1] - ключ окна
// ARGV[1] - now (ms), ARGV[2] - window (ms), ARGV[3] - max, ARGV[4] - уникальный member
//
// Возвращает {allowed, count, oldest_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
local allowed = 0
if count < max then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)

local oldest = 0
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if first[2] then
  oldest = tonumber(first[2])
end

return {allowed, count, oldest}
`)

// RedisStore хранит окна в Redis, что позволяет нескольким экземплярам сервера
// разделять один лимит. Ключи истекают сами через PEXPIRE.
type RedisStore struct {
	client redis.Scripter
	prefix string
}

// NewRedisStore создает хранилище поверх клиента go-redis.
func NewRedisStore(client redis.Scripter, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// Admit реализует Store.
func (s *RedisStore) Admit(ctx context.Context, key string, limit Limit, now time.Time) (Result, error) {
	nowMs := now.UnixMilli()

	values, err := slidingWindowScript.Run(ctx, s.client,
		[]string{s.prefix + key},
		nowMs,
		limit.Window.Milliseconds(),
		limit.Max,
		fmt.Sprintf("%d-%s", nowMs, uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("failed to run sliding window script: %w", err)
	}
	if len(values) != 3 {
		return Result{}, fmt.Errorf("unexpected sliding window reply: %v", values)
	}

	res := Result{
		Allowed: values[0] == 1,
		Count:   int(values[1]),
	}
	if values[2] > 0 {
		res.Oldest = time.UnixMilli(values[2])
	}

	return res, nil
}
