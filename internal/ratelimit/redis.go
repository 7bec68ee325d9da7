package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore はRedisのINCR + EXPIREによる固定ウィンドウカウンタのStore実装。
// 複数インスタンスを並行稼働させる構成で、プロセスローカルなMemoryStoreの
// 代替として同じコントラクトで注入する。
//
// MemoryStoreと異なり、拒否後もRedis上のカウンタ自体は加算され続けるが、
// ウィンドウのTTLで消滅するため観測可能な挙動（許可/拒否の判定）は一致する。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore はRedisStoreを生成する。
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Check はキーのカウンタをINCRし、初回のみウィンドウ長のEXPIREを設定する。
// カウンタが上限以下なら許可する。
func (s *RedisStore) Check(ctx context.Context, key string, maxAttempts int, window time.Duration) (bool, error) {
	count, err := s.client.Incr(ctx, "grl:"+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if err := s.client.Expire(ctx, "grl:"+key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(maxAttempts), nil
}
