package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "mobeebot:session:"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisStore struct {
	client redisClient
	ttl    time.Duration
}

func NewRedisStore(client redisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func sessionKey(chatID int64) string {
	return keyPrefix + strconv.FormatInt(chatID, 10)
}

func (r *RedisStore) Get(ctx context.Context, chatID int64) (State, error) {
	data, err := r.client.Get(ctx, sessionKey(chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Idle(), nil
		}
		return Idle(), fmt.Errorf("get session: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return Idle(), fmt.Errorf("decode session: %w", err)
	}
	return state, nil
}

func (r *RedisStore) Set(ctx context.Context, chatID int64, state State) error {
	if state.IsIdle() {
		return r.Clear(ctx, chatID)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(chatID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, chatID int64) error {
	if err := r.client.Del(ctx, sessionKey(chatID)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
